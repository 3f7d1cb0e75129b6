// Package store persists appeal cases, user profiles and knowledge documents.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/gigshield/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a user touches a case they do not own
	ErrForbidden = errors.New("not authorized for this appeal")

	// ErrInvalidStatus is returned for a status outside the case lifecycle
	ErrInvalidStatus = errors.New("invalid status")

	// ErrConflict is returned when a unique field is already taken
	ErrConflict = errors.New("already exists")
)

// DefaultDeadlineDays is the appeal window used when a request gives none
const DefaultDeadlineDays = 10

// Collection names
const (
	casesCollection     = "appeals"
	usersCollection     = "users"
	documentsCollection = "knowledge_base"
)

// CaseStore persists appeal cases
type CaseStore interface {
	GetCase(ctx context.Context, id string) (*model.Case, error)
	CreateCase(ctx context.Context, c *model.Case) (string, error)
	ListCasesByUser(ctx context.Context, uid string) ([]model.Case, error)
	ListCases(ctx context.Context) ([]model.Case, error)
	DeleteCase(ctx context.Context, id, uid string) error
	UpdateStatus(ctx context.Context, id, uid string, status model.Status, now time.Time) (*model.Case, error)
	AddEvidence(ctx context.Context, id, uid string, item model.EvidenceItem) error
}

// UserStore persists user profiles
type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
}

// DocumentSource lists knowledge base documents
type DocumentSource interface {
	ListDocuments(ctx context.Context) ([]model.Document, error)
}

// DocumentStore is a DocumentSource that can also be written
type DocumentStore interface {
	DocumentSource
	SaveDocuments(ctx context.Context, docs []model.Document) error
}

// Store is the full persistence surface used by the API and CLI
type Store interface {
	CaseStore
	UserStore
	DocumentStore
	Close(ctx context.Context) error
}

// New opens the store selected by cfg
func New(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "", "mongo", "mongodb":
		return NewMongoStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// NewCase builds the record saved after an appeal letter is generated
func NewCase(uid string, req model.AppealRequest, letter string, now time.Time) model.Case {
	days := req.DeadlineDays
	if days <= 0 {
		days = DefaultDeadlineDays
	}
	now = now.UTC()

	return model.Case{
		UserID:             uid,
		Platform:           req.Platform,
		DeactivationReason: req.DeactivationReason,
		UserStory:          req.UserStory,
		AccountTenure:      req.AccountTenure,
		CurrentRating:      req.CurrentRating,
		CompletionRate:     req.CompletionRate,
		TotalDeliveries:    req.TotalDeliveries,
		AppealTone:         req.AppealTone,
		UserState:          req.UserState,
		GeneratedLetter:    letter,
		Status:             model.StatusGenerated,
		Evidence:           []model.EvidenceItem{},
		CreatedAt:          model.InstantOf(now),
		AppealDeadline:     model.InstantOf(now.AddDate(0, 0, days)),
	}
}

// ApplyStatus moves c to status. Moving to pending records the submission
// time; every other status keeps whatever submission time was there.
func ApplyStatus(c *model.Case, status model.Status, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	c.Status = status
	c.LastUpdated = model.InstantOf(now)
	if status == model.StatusPending {
		c.SubmittedAt = model.InstantOf(now)
	}
	return nil
}

// checkOwner returns ErrForbidden unless uid owns c
func checkOwner(c *model.Case, uid string) error {
	if c.UserID != uid {
		return ErrForbidden
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeDocument fills the defaults older documents may lack
func normalizeDocument(d model.Document) model.Document {
	if d.State == "" {
		d.State = "All"
	}
	if d.Platform == "" {
		d.Platform = "All"
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d
}
