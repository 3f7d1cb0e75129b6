package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/gigshield/internal/cache"
	"github.com/ppiankov/gigshield/internal/model"
)

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// ErrUnparseable is returned when a model reply holds no usable JSON
var ErrUnparseable = errors.New("could not parse model response as JSON")

// defaultSuggestedActions point the chat user at the client's main flows
var defaultSuggestedActions = []model.SuggestedAction{
	{Label: "Analyze Notice", Action: "notice-analyzer"},
	{Label: "Start Appeal", Action: "wizard"},
}

// Assistant runs the worker-facing language model features.
// Every method degrades to a deterministic answer when the model is
// disabled or fails, so callers never see provider errors.
type Assistant struct {
	provider Provider
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewAssistant creates an assistant; provider and c may be nil
func NewAssistant(provider Provider, c cache.Cache) *Assistant {
	return &Assistant{
		provider: provider,
		cache:    c,
		cacheTTL: 24 * time.Hour,
		now:      time.Now,
	}
}

// Enabled reports whether a model is configured
func (a *Assistant) Enabled() bool {
	return a.provider != nil
}

// ProviderName returns the configured provider or "none"
func (a *Assistant) ProviderName() string {
	if a.provider == nil {
		return "none"
	}
	return a.provider.Name()
}

// AnalyzeNotice extracts structured facts from a deactivation notice
func (a *Assistant) AnalyzeNotice(ctx context.Context, noticeText, platformHint string) model.NoticeAnalysis {
	if a.provider == nil {
		return FallbackNoticeAnalysis(platformHint)
	}

	key := cache.Key("notice", a.provider.Name(), platformHint, noticeText)
	if cached, ok := cache.GetJSON[model.NoticeAnalysis](ctx, a.cache, key); ok {
		return cached
	}

	resp, err := a.provider.Complete(ctx, CompletionRequest{
		System:      noticeSystemPrompt,
		Messages:    userPrompt(BuildNoticePrompt(noticeText, platformHint)),
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		slog.Warn("notice analysis failed, using fallback", "provider", a.provider.Name(), "error", err)
		return FallbackNoticeAnalysis(platformHint)
	}

	analysis, err := ParseNoticeAnalysis(resp.Text)
	if err != nil {
		slog.Warn("notice analysis unparseable, using fallback", "provider", a.provider.Name(), "error", err)
		return FallbackNoticeAnalysis(platformHint)
	}
	if strings.TrimSpace(analysis.Platform) == "" {
		analysis.Platform = pick(platformHint, "Unknown")
	}

	if err := cache.SetJSON(ctx, a.cache, key, analysis, a.cacheTTL); err != nil {
		slog.Debug("notice analysis not cached", "error", err)
	}
	return analysis
}

// ParseNoticeAnalysis reads a model reply that is JSON or contains a JSON object
func ParseNoticeAnalysis(text string) (model.NoticeAnalysis, error) {
	var analysis model.NoticeAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &analysis); err == nil {
		return normalizeAnalysis(analysis), nil
	}

	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return model.NoticeAnalysis{}, ErrUnparseable
	}
	if err := json.Unmarshal([]byte(match), &analysis); err != nil {
		return model.NoticeAnalysis{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return normalizeAnalysis(analysis), nil
}

func normalizeAnalysis(a model.NoticeAnalysis) model.NoticeAnalysis {
	if a.MissingInfo == nil {
		a.MissingInfo = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return a
}

// FallbackNoticeAnalysis is returned when the model cannot help
func FallbackNoticeAnalysis(platformHint string) model.NoticeAnalysis {
	deadline := 14
	return model.NoticeAnalysis{
		Platform:     pick(platformHint, "Unknown"),
		Reason:       "Unable to determine specific reason",
		UrgencyLevel: "MODERATE",
		DeadlineDays: &deadline,
		RiskLevel:    "Medium",
		MissingInfo:  []string{"Specific policy violated", "Date of incident", "Evidence"},
		Recommendations: []string{
			"Gather all delivery/ride records",
			"Document your account history",
			"Review platform terms of service",
		},
	}
}

// DraftAppeal writes an appeal letter
func (a *Assistant) DraftAppeal(ctx context.Context, d AppealDraft) string {
	if a.provider == nil {
		return a.FallbackAppeal(d)
	}

	resp, err := a.provider.Complete(ctx, CompletionRequest{
		System:      appealSystemPrompt,
		Messages:    userPrompt(BuildAppealPrompt(d)),
		MaxTokens:   2048,
		Temperature: 0.7,
	})
	if err != nil {
		slog.Warn("appeal drafting failed, using template", "provider", a.provider.Name(), "error", err)
		return a.FallbackAppeal(d)
	}
	return resp.Text
}

// FallbackAppeal fills a plain letter template
func (a *Assistant) FallbackAppeal(d AppealDraft) string {
	platform := d.Request.Platform
	var sig strings.Builder
	sig.WriteString(pick(d.Contact.Name, "[Your Name]"))
	if d.Contact.Email != "" {
		sig.WriteString("\n" + d.Contact.Email)
	}
	if d.Contact.Phone != "" {
		sig.WriteString("\n" + d.Contact.Phone)
	}

	return fmt.Sprintf(`%s

%s Appeals Team
Re: Appeal of Account Deactivation

Dear %s Appeals Team,

I am writing to respectfully appeal the deactivation of my %s account.

%s

I have maintained a strong record on your platform and request that you review my case for reinstatement.

Thank you for your consideration.

Sincerely,
%s`, a.now().Format("January 2, 2006"), platform, platform, platform, d.Request.UserStory, sig.String())
}

// Chat answers a rights question in the context of prior turns
func (a *Assistant) Chat(ctx context.Context, message string, history []model.ChatMessage) model.ChatReply {
	if a.provider == nil {
		return fallbackChatReply()
	}

	messages := make([]model.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, model.ChatMessage{Role: "user", Content: message})

	resp, err := a.provider.Complete(ctx, CompletionRequest{
		System:      ChatSystemPrompt,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.5,
	})
	if err != nil {
		slog.Warn("chat failed, using fallback", "provider", a.provider.Name(), "error", err)
		return fallbackChatReply()
	}

	return model.ChatReply{
		Response:         resp.Text,
		SuggestedActions: append([]model.SuggestedAction(nil), defaultSuggestedActions...),
	}
}

func fallbackChatReply() model.ChatReply {
	return model.ChatReply{
		Response:         "I'm here to help with your gig worker rights questions. Please try your question again.",
		SuggestedActions: []model.SuggestedAction{},
	}
}
