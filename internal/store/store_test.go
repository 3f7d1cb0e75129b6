package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gigshield/internal/model"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestCase(t *testing.T, s *MemoryStore, uid string, created time.Time) string {
	t.Helper()
	c := NewCase(uid, model.AppealRequest{
		Platform:           "DoorDash",
		DeactivationReason: "Customer rating dropped",
		UserStory:          "Bad week",
	}, "Dear DoorDash", created)
	id, err := s.CreateCase(context.Background(), &c)
	require.NoError(t, err)
	return id
}

func TestNewCase(t *testing.T) {
	c := NewCase("u1", model.AppealRequest{Platform: "Uber", DeactivationReason: "fraud"}, "letter", testNow)

	assert.Equal(t, model.StatusGenerated, c.Status)
	assert.Equal(t, "u1", c.UserID)
	assert.NotNil(t, c.Evidence)
	assert.Equal(t, testNow, *c.CreatedAt.Time())
	assert.Equal(t, testNow.AddDate(0, 0, DefaultDeadlineDays), *c.AppealDeadline.Time())
	assert.True(t, c.SubmittedAt.IsZero())

	c = NewCase("u1", model.AppealRequest{DeadlineDays: 30}, "letter", testNow)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *c.AppealDeadline.Time())
}

func TestApplyStatus(t *testing.T) {
	c := model.Case{Status: model.StatusGenerated}

	require.NoError(t, ApplyStatus(&c, model.StatusPending, testNow))
	assert.Equal(t, testNow, *c.SubmittedAt.Time())
	assert.Equal(t, testNow, *c.LastUpdated.Time())

	later := testNow.Add(48 * time.Hour)
	require.NoError(t, ApplyStatus(&c, model.StatusDenied, later))
	assert.Equal(t, testNow, *c.SubmittedAt.Time(), "submission time kept")
	assert.Equal(t, later, *c.LastUpdated.Time())

	err := ApplyStatus(&c, model.Status("archived"), later)
	assert.True(t, errors.Is(err, ErrInvalidStatus))
	assert.Equal(t, model.StatusDenied, c.Status)
}

func TestMemoryStore_CaseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	older := newTestCase(t, s, "u1", testNow.Add(-time.Hour))
	newer := newTestCase(t, s, "u1", testNow)
	newTestCase(t, s, "u2", testNow)

	cases, err := s.ListCasesByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, newer, cases[0].ID)
	assert.Equal(t, older, cases[1].ID)

	all, err := s.ListCases(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.ListCasesByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	updated, err := s.UpdateStatus(ctx, newer, "u1", model.StatusPending, testNow)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, updated.Status)

	_, err = s.UpdateStatus(ctx, newer, "u2", model.StatusApproved, testNow)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.UpdateStatus(ctx, "missing", "u1", model.StatusApproved, testNow)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateStatus(ctx, newer, "u1", model.Status("bogus"), testNow)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	require.NoError(t, s.AddEvidence(ctx, newer, "u1", model.EvidenceItem{URL: "/e/1", Filename: "a.png"}))
	assert.ErrorIs(t, s.AddEvidence(ctx, newer, "u2", model.EvidenceItem{}), ErrForbidden)

	got, err := s.GetCase(ctx, newer)
	require.NoError(t, err)
	require.Len(t, got.Evidence, 1)
	assert.Equal(t, "a.png", got.Evidence[0].Filename)

	assert.ErrorIs(t, s.DeleteCase(ctx, newer, "u2"), ErrForbidden)
	require.NoError(t, s.DeleteCase(ctx, newer, "u1"))
	_, err = s.GetCase(ctx, newer)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCase(ctx, newer, "u1"), ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := newTestCase(t, s, "u1", testNow)
	require.NoError(t, s.AddEvidence(ctx, id, "u1", model.EvidenceItem{Filename: "a.png"}))

	c, err := s.GetCase(ctx, id)
	require.NoError(t, err)
	c.Evidence[0].Filename = "changed"
	c.Status = model.StatusApproved

	again, err := s.GetCase(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a.png", again.Evidence[0].Filename)
	assert.Equal(t, model.StatusGenerated, again.Status)
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := &model.User{Email: " Ada@Example.com ", DisplayName: "Ada"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)

	err := s.CreateUser(ctx, &model.User{Email: "ADA@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	found, err := s.FindUserByEmail(ctx, "ada@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	byID, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.DisplayName)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Documents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, s.SaveDocuments(ctx, []model.Document{
		{ID: "a", Title: "First"},
		{ID: "b", Title: "Second", State: "California", Platform: "Uber"},
	}))
	require.NoError(t, s.SaveDocuments(ctx, []model.Document{{ID: "a", Title: "Replaced"}}))

	docs, err = s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Replaced", docs[0].Title)
	assert.Equal(t, "All", docs[0].State)
	assert.Equal(t, "All", docs[0].Platform)
	assert.Equal(t, "California", docs[1].State)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), model.StoreConfig{Backend: "sqlite"})
	assert.Error(t, err)

	s, err := New(context.Background(), model.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.NoError(t, s.Close(context.Background()))
}
