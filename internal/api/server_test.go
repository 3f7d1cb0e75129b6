package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gigshield/internal/auth"
	"github.com/ppiankov/gigshield/internal/evidence"
	"github.com/ppiankov/gigshield/internal/knowledge"
	"github.com/ppiankov/gigshield/internal/llm"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/store"
	"github.com/ppiankov/gigshield/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// stubProvider returns a fixed completion and records prompts
type stubProvider struct {
	mu       sync.Mutex
	reply    string
	requests []llm.CompletionRequest
}

func (p *stubProvider) Name() string { return "stub" }
func (p *stubProvider) IsAvailable(context.Context) bool { return true }

func (p *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return &llm.CompletionResponse{Text: p.reply}, nil
}

func (p *stubProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return ""
	}
	msgs := p.requests[len(p.requests)-1].Messages
	return msgs[len(msgs)-1].Content
}

type testEnv struct {
	server   *Server
	store    *store.MemoryStore
	issuer   *auth.Issuer
	provider *stubProvider
	token    string
	uid      string
}

func newTestEnv(t *testing.T, provider *stubProvider, limiter *worker.Limiter) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	var assistant *llm.Assistant
	if provider != nil {
		assistant = llm.NewAssistant(provider, nil)
	}

	evidenceDir := t.TempDir()
	srv := NewServer(model.ServerConfig{AllowedOrigins: []string{"http://localhost:5173"}}, Options{
		Store:        st,
		Knowledge:    knowledge.NewBase(knowledge.BuiltinDocuments()),
		Assistant:    assistant,
		Evidence:     evidence.NewService(evidence.NewLocalStorage(evidenceDir, "/evidence"), 0),
		Issuer:       issuer,
		Limiter:      limiter,
		EvidenceDir:  evidenceDir,
		EvidenceURL:  "/evidence",
		StoreBackend: "memory",
		Version:      "test",
	})
	srv.now = func() time.Time { return testNow }

	user := model.User{Email: "ada@example.com", DisplayName: "Ada Lovelace", PhoneNumber: "555-0100"}
	require.NoError(t, st.CreateUser(context.Background(), &user))
	token, err := issuer.Issue(user)
	require.NoError(t, err)

	return &testEnv{server: srv, store: st, issuer: issuer, provider: provider, token: token, uid: user.ID}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *testEnv) seedCase(t *testing.T, c model.Case) string {
	t.Helper()
	id, err := e.store.CreateCase(context.Background(), &c)
	require.NoError(t, err)
	return id
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", decode(t, w)["status"])

	w = env.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode(t, w)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "none", health["llm_provider"])
	assert.Equal(t, false, health["llm_configured"])
	assert.Equal(t, false, health["vector_search"])
	assert.Equal(t, "memory", health["store"])
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/my-appeals", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "grace@example.com", "password": "compilers!", "name": "Grace",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "GRACE@example.com", "password": "compilers!", "name": "Grace",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "not-an-email", "password": "compilers!", "name": "Grace",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "grace@example.com", "password": "compilers!",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decode(t, w)["token"].(string)
	claims, err := env.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "Grace", claims.Name)

	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "grace@example.com", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "whatever1",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/analyze-notice"},
		{http.MethodPost, "/api/generate-appeal"},
		{http.MethodGet, "/api/my-appeals"},
		{http.MethodPost, "/api/chat"},
		{http.MethodDelete, "/api/appeals/x"},
		{http.MethodPatch, "/api/appeals/x/status"},
		{http.MethodPost, "/api/upload-evidence"},
	} {
		w := env.do(t, route.method, route.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestGenerateAppeal(t *testing.T) {
	provider := &stubProvider{reply: "Dear Uber Appeals Team, please reinstate me."}
	env := newTestEnv(t, provider, nil)

	w := env.do(t, http.MethodPost, "/api/generate-appeal", map[string]any{
		"platform":            "Uber",
		"deactivation_reason": "Low rating",
		"user_story":          "A customer rated me unfairly after a traffic jam.",
		"deadline_days":       30,
	}, env.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "Dear Uber Appeals Team, please reinstate me.", body["appeal_letter"])
	assert.Equal(t, "generated", body["status"])
	assert.Equal(t, "Uber", body["platform"])
	assert.Equal(t, "professional", body["tone_used"])

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "Ada Lovelace")
	assert.Contains(t, prompt, "555-0100")
	assert.Contains(t, prompt, "[Source 1:")

	id, _ := body["appeal_id"].(string)
	saved, err := env.store.GetCase(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, env.uid, saved.UserID)
	assert.Equal(t, model.StatusGenerated, saved.Status)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *saved.AppealDeadline.Time())

	w = env.do(t, http.MethodGet, "/api/my-appeals", nil, env.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])
}

func TestGenerateAppeal_FallbackAndValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/generate-appeal", map[string]any{"platform": "Uber"}, env.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/generate-appeal", map[string]any{
		"platform":            "Lyft",
		"deactivation_reason": "Safety report",
		"user_story":          "I was never in that car.",
		"appeal_tone":         "firm",
	}, env.token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	letter, _ := body["appeal_letter"].(string)
	assert.Contains(t, letter, "Dear Lyft Appeals Team")
	assert.Contains(t, letter, "Ada Lovelace")
	assert.Equal(t, "firm", body["tone_used"])
}

func TestAnalyzeNotice(t *testing.T) {
	provider := &stubProvider{reply: `Here you go: {"platform":"DoorDash","reason":"Low rating","urgency_level":"URGENT","deadline_days":7,"risk_level":"High","missing_info":[],"recommendations":["Gather screenshots"]}`}
	env := newTestEnv(t, provider, nil)

	w := env.do(t, http.MethodPost, "/api/analyze-notice", map[string]string{
		"notice_text": "<html><body><p>Your account has been <b>deactivated</b>.</p></body></html>",
	}, env.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "DoorDash", body["platform"])
	assert.Equal(t, float64(7), body["deadline_days"])
	assert.NotContains(t, provider.lastPrompt(), "<p>")
	assert.Contains(t, provider.lastPrompt(), "Your account has been deactivated.")

	w = env.do(t, http.MethodPost, "/api/analyze-notice", map[string]string{}, env.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_RateLimited(t *testing.T) {
	provider := &stubProvider{reply: "You can appeal within 10 days."}
	env := newTestEnv(t, provider, worker.NewLimiter(0.001, 1))

	w := env.do(t, http.MethodPost, "/api/chat", map[string]any{
		"message":              "How long do I have?",
		"conversation_history": []map[string]string{{"role": "user", "content": "hi"}},
	}, env.token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "You can appeal within 10 days.", body["response"])
	assert.NotEmpty(t, body["suggested_actions"])

	w = env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "again"}, env.token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestSweepLimiter_DropsRefilledBuckets(t *testing.T) {
	limiter := worker.NewLimiter(1000, 1)
	env := newTestEnv(t, nil, limiter)
	for _, uid := range []string{"u1", "u2", "u3"} {
		limiter.Allow(uid)
	}
	require.Equal(t, 3, limiter.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.server.sweepLimiter(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop on cancel")
	}
}

func TestUpdateStatusAndDelete(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.seedCase(t, store.NewCase(env.uid, model.AppealRequest{Platform: "Uber"}, "letter", testNow.Add(-time.Hour)))
	otherID := env.seedCase(t, store.NewCase("someone-else", model.AppealRequest{Platform: "Uber"}, "letter", testNow))

	w := env.do(t, http.MethodPatch, "/api/appeals/"+id+"/status", map[string]string{"status": "pending"}, env.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "2025-06-15T12:00:00Z", body["lastUpdated"])

	saved, err := env.store.GetCase(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, testNow, *saved.SubmittedAt.Time())

	tests := []struct {
		name   string
		id     string
		status string
		code   int
		detail string
	}{
		{"invalid", id, "archived", http.StatusBadRequest, "Invalid status"},
		{"missing", "nope", "denied", http.StatusNotFound, "Appeal not found"},
		{"not owner", otherID, "denied", http.StatusForbidden, "Not authorized to update this appeal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, "/api/appeals/"+tt.id+"/status", map[string]string{"status": tt.status}, env.token)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.detail, decode(t, w)["detail"])
		})
	}

	w = env.do(t, http.MethodDelete, "/api/appeals/"+otherID, nil, env.token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not authorized to delete this appeal", decode(t, w)["detail"])

	w = env.do(t, http.MethodDelete, "/api/appeals/"+id, nil, env.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Appeal deleted successfully", decode(t, w)["message"])

	w = env.do(t, http.MethodDelete, "/api/appeals/"+id, nil, env.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaseScore(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.seedCase(t, model.Case{
		UserID:           env.uid,
		Platform:         "Uber",
		Reason:           "Safety incident reported",
		Status:           model.StatusDenied,
		PriorAppealCount: 1,
		DeactivatedAt:    model.ISOInstant("2025-06-05T12:00:00"),
	})

	w := env.do(t, http.MethodGet, "/api/cases/"+id+"/score", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, id, body["caseId"])
	assert.Equal(t, float64(0), body["score"])
	assert.Equal(t, "low", body["label"])
	assert.Equal(t, []any{float64(0), float64(40)}, body["band"])
	factors, _ := body["factors"].([]any)
	assert.Len(t, factors, 4)
	metadata, _ := body["metadata"].(map[string]any)
	assert.Equal(t, float64(10), metadata["daysSinceDeactivation"])

	w = env.do(t, http.MethodGet, "/api/cases/missing/score", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Case not found", decode(t, w)["detail"])
}

func TestKnowledgeRoutes(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodGet, "/api/knowledge-base/search?query=deactivation+appeal&state=California&top_k=10", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "deactivation appeal", body["query"])
	results, _ := body["results"].([]any)
	require.NotEmpty(t, results)
	assert.Equal(t, float64(len(results)), body["total"])
	for _, r := range results {
		state := r.(map[string]any)["state"]
		assert.Contains(t, []any{"California", "All"}, state)
	}

	w = env.do(t, http.MethodGet, "/api/knowledge-base/search", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/knowledge-base/search?query=x&top_k=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/knowledge-base/states", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"California", "New York", "Washington"}, decode(t, w)["states"])

	w = env.do(t, http.MethodGet, "/api/knowledge-base/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["categories"], 4)

	w = env.do(t, http.MethodGet, "/api/knowledge-base/platforms", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["platforms"], "Amazon Flex")
}

func TestAnalyticsOverview(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedCase(t, model.Case{Platform: "Uber", Status: model.StatusApproved, Reason: "rating", IsSimulated: true,
		CreatedAt: model.InstantOf(testNow.Add(-72 * time.Hour)), LastUpdated: model.InstantOf(testNow)})
	env.seedCase(t, model.Case{Platform: "Uber", Status: model.StatusPending, Reason: "fraud"})

	w := env.do(t, http.MethodGet, "/api/analytics/overview", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["totalCases"])
	assert.Equal(t, "mixed", summary["dataSource"])
	assert.Equal(t, map[string]any{"Uber": float64(3)}, body["avgResponseTimeDays"])
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadEvidence(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.seedCase(t, store.NewCase(env.uid, model.AppealRequest{Platform: "Uber"}, "letter", testNow))
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

	upload := func(filename, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
		body, ct := multipartUpload(t, filename, contentType, data, fields)
		req := httptest.NewRequest(http.MethodPost, "/api/upload-evidence", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer "+env.token)
		w := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(w, req)
		return w
	}

	w := upload("receipt.png", "image/png", png, map[string]string{"caseId": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "receipt.png", body["filename"])
	assert.Equal(t, "image/png", body["contentType"])
	url, _ := body["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/evidence/"+env.uid+"/"), url)

	saved, err := env.store.GetCase(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, saved.Evidence, 1)
	assert.Equal(t, url, saved.Evidence[0].URL)

	get := httptest.NewRequest(http.MethodGet, url, nil)
	gw := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(gw, get)
	assert.Equal(t, http.StatusOK, gw.Code)
	assert.Equal(t, png, gw.Body.Bytes())

	w = upload("notes.txt", "text/plain", []byte("hello"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File type text/plain not allowed. Allowed: images, PDF, Word docs", decode(t, w)["detail"])

	w = upload("fake.png", "image/png", []byte("just some text"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("receipt.png", "image/png", png, map[string]string{"caseId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
