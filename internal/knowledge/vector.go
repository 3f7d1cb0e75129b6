package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/gigshield/internal/llm"
	"github.com/ppiankov/gigshield/internal/model"
)

// VectorMatch is one hit from a vector index
type VectorMatch struct {
	DocumentID string
	Score      float64
}

// VectorIndex finds documents semantically close to a query
type VectorIndex interface {
	Search(ctx context.Context, query string, topK int, filters model.SearchFilters) ([]VectorMatch, error)
}

// QdrantIndex is a VectorIndex backed by the Qdrant REST API
type QdrantIndex struct {
	baseURL    string
	collection string
	vectorSize int
	embedder   llm.Embedder
	httpClient *http.Client
}

// NewQdrantIndex creates an index over collection at baseURL
func NewQdrantIndex(baseURL, collection string, vectorSize int, embedder llm.Embedder) *QdrantIndex {
	return &QdrantIndex{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		collection: collection,
		vectorSize: vectorSize,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewIndexFromConfig returns nil when no vector endpoint is configured
func NewIndexFromConfig(cfg model.KnowledgeConfig) *QdrantIndex {
	if cfg.VectorURL == "" {
		return nil
	}
	embedder := llm.NewOllamaEmbedder(cfg.EmbeddingURL, cfg.EmbeddingModel, 0)
	return NewQdrantIndex(cfg.VectorURL, cfg.Collection, cfg.VectorSize, embedder)
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type qdrantCondition struct {
	Key   string         `json:"key"`
	Match map[string]any `json:"match"`
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must"`
}

type qdrantSearchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type qdrantScoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// PointID maps a document ID to the UUID Qdrant requires
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("gigshield:"+docID)).String()
}

// EnsureCollection creates the collection if it does not exist
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", q.baseURL, q.collection)

	status, err := q.do(ctx, http.MethodGet, url, nil, nil)
	if err == nil && status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("check collection %s: %w", q.collection, err)
	}

	body := map[string]any{
		"vectors": map[string]any{"size": q.vectorSize, "distance": "Cosine"},
	}
	if _, err := q.do(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", q.collection, err)
	}
	return nil
}

// Count returns the number of points in the collection
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/collections/%s/points/count", q.baseURL, q.collection)

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if _, err := q.do(ctx, http.MethodPost, url, map[string]any{"exact": true}, &resp); err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.Result.Count, nil
}

// Upsert writes points for the given documents and vectors
func (q *QdrantIndex) Upsert(ctx context.Context, docs []model.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("upsert: %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	points := make([]qdrantPoint, len(docs))
	for i, d := range docs {
		points[i] = qdrantPoint{
			ID:     PointID(d.ID),
			Vector: vectors[i],
			Payload: map[string]any{
				"doc_id":   d.ID,
				"title":    d.Title,
				"category": d.Category,
				"state":    d.State,
				"platform": d.Platform,
				"tags":     d.Tags,
			},
		}
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.baseURL, q.collection)
	if _, err := q.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Embed embeds a document as "<title>. <content>"
func (q *QdrantIndex) Embed(ctx context.Context, d model.Document) ([]float32, error) {
	return q.embedder.Embed(ctx, d.Title+". "+d.Content)
}

// Search embeds query and returns the closest documents
func (q *QdrantIndex) Search(ctx context.Context, query string, topK int, filters model.SearchFilters) ([]VectorMatch, error) {
	vector, err := q.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := qdrantSearchRequest{
		Vector:      vector,
		Limit:       topK,
		WithPayload: true,
		Filter:      buildFilter(filters),
	}

	var resp struct {
		Result []qdrantScoredPoint `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", q.baseURL, q.collection)
	if _, err := q.do(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	matches := make([]VectorMatch, 0, len(resp.Result))
	for _, p := range resp.Result {
		docID, _ := p.Payload["doc_id"].(string)
		if docID == "" {
			continue
		}
		matches = append(matches, VectorMatch{DocumentID: docID, Score: p.Score})
	}
	return matches, nil
}

// buildFilter turns filters into exact-match conditions
func buildFilter(f model.SearchFilters) *qdrantFilter {
	if f.IsEmpty() {
		return nil
	}
	filter := &qdrantFilter{}
	add := func(key, value string) {
		if value != "" {
			filter.Must = append(filter.Must, qdrantCondition{Key: key, Match: map[string]any{"value": value}})
		}
	}
	add("category", f.Category)
	add("state", f.State)
	add("platform", f.Platform)
	return filter
}

// do sends a JSON request and decodes a JSON response into out.
// The status code is returned even when the request fails.
func (q *QdrantIndex) do(ctx context.Context, method, url string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		content, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("qdrant returned %s: %s", resp.Status, strings.TrimSpace(string(content)))
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
