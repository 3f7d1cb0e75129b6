package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/gigshield/internal/auth"
	"github.com/ppiankov/gigshield/internal/evidence"
	"github.com/ppiankov/gigshield/internal/llm"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/notice"
	"github.com/ppiankov/gigshield/internal/store"
)

type analyzeNoticeRequest struct {
	NoticeText   string `json:"notice_text" binding:"required"`
	PlatformHint string `json:"platform_hint"`
}

type chatRequest struct {
	Message             string              `json:"message" binding:"required"`
	ConversationHistory []model.ChatMessage `json:"conversation_history"`
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

// currentUser returns the token claims; the auth middleware guarantees them
func currentUser(c *gin.Context) *auth.Claims {
	claims, ok := auth.CurrentUser(c)
	if !ok {
		return &auth.Claims{}
	}
	return claims
}

func (s *Server) handleAnalyzeNotice(c *gin.Context) {
	var req analyzeNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	text := notice.PlainText(req.NoticeText)
	result := s.opts.Assistant.AnalyzeNotice(c.Request.Context(), text, req.PlatformHint)
	slog.Debug("Notice analyzed", "uid", currentUser(c).UID, "platform", result.Platform)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGenerateAppeal(c *gin.Context) {
	var req model.AppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.AppealTone == "" {
		req.AppealTone = defaultTone
	}

	ctx := c.Request.Context()
	claims := currentUser(c)

	state := req.UserState
	if state == "" {
		state = defaultState
	}
	draft := llm.AppealDraft{
		Request:          req,
		Contact:          s.contactFor(c, claims),
		KnowledgeContext: s.opts.Knowledge.RelevantContext(ctx, req.Platform, state, req.DeactivationReason, contextTopK),
	}
	letter := s.opts.Assistant.DraftAppeal(ctx, draft)

	record := store.NewCase(claims.UID, req, letter, s.now())
	id, err := s.opts.Store.CreateCase(ctx, &record)
	if err != nil {
		slog.Error("Could not save appeal", "uid", claims.UID, "error", err)
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"appeal_id":     id,
		"appeal_letter": letter,
		"status":        model.StatusGenerated,
		"platform":      req.Platform,
		"tone_used":     req.AppealTone,
	})
}

// contactFor merges the stored profile with the token claims
func (s *Server) contactFor(c *gin.Context, claims *auth.Claims) llm.Contact {
	contact := llm.Contact{Name: claims.Name, Email: claims.Email}

	user, err := s.opts.Store.GetUser(c.Request.Context(), claims.UID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Could not load profile", "uid", claims.UID, "error", err)
		}
		return contact
	}
	if user.DisplayName != "" {
		contact.Name = user.DisplayName
	}
	if user.Email != "" {
		contact.Email = user.Email
	}
	contact.Phone = user.PhoneNumber
	return contact
}

func (s *Server) handleMyAppeals(c *gin.Context) {
	appeals, err := s.opts.Store.ListCasesByUser(c.Request.Context(), currentUser(c).UID)
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"appeals": appeals, "count": len(appeals)})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.opts.Assistant.Chat(c.Request.Context(), req.Message, req.ConversationHistory))
}

func (s *Server) handleDeleteAppeal(c *gin.Context) {
	id := c.Param("id")
	if err := s.opts.Store.DeleteCase(c.Request.Context(), id, currentUser(c).UID); err != nil {
		appealError(c, err, "delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Appeal deleted successfully"})
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.opts.Store.UpdateStatus(c.Request.Context(), c.Param("id"), currentUser(c).UID, req.Status, s.now())
	if err != nil {
		appealError(c, err, "update")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"status":      updated.Status,
		"lastUpdated": updated.LastUpdated,
	})
}

func (s *Server) handleUploadEvidence(c *gin.Context) {
	if s.opts.Evidence == nil {
		abort(c, http.StatusServiceUnavailable, "Evidence uploads are not configured")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		abort(c, http.StatusBadRequest, "file is required")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if err := evidence.CheckType(contentType); err != nil {
		abort(c, http.StatusBadRequest, fmt.Sprintf("File type %s not allowed. Allowed: images, PDF, Word docs", contentType))
		return
	}
	if header.Size > s.opts.Evidence.MaxBytes() {
		abort(c, http.StatusBadRequest, tooLargeDetail(s.opts.Evidence.MaxBytes()))
		return
	}

	f, err := header.Open()
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	ctx := c.Request.Context()
	uid := currentUser(c).UID
	item, err := s.opts.Evidence.Accept(ctx, uid, header.Filename, contentType, f)
	switch {
	case errors.Is(err, evidence.ErrTooLarge):
		abort(c, http.StatusBadRequest, tooLargeDetail(s.opts.Evidence.MaxBytes()))
		return
	case errors.Is(err, evidence.ErrUnsupportedType):
		abort(c, http.StatusBadRequest, "File content does not match an allowed type. Allowed: images, PDF, Word docs")
		return
	case err != nil:
		slog.Error("Evidence upload failed", "uid", uid, "error", err)
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}

	if caseID := c.PostForm("caseId"); caseID != "" {
		if err := s.opts.Store.AddEvidence(ctx, caseID, uid, item); err != nil {
			appealError(c, err, "update")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"url":         item.URL,
		"filename":    item.Filename,
		"contentType": item.ContentType,
	})
}

func tooLargeDetail(maxBytes int64) string {
	return fmt.Sprintf("File too large. Maximum size is %dMB", maxBytes>>20)
}
