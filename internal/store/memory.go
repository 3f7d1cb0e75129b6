package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/gigshield/internal/model"
)

// MemoryStore keeps everything in process memory.
// It backs dev mode and tests; data is lost on exit.
type MemoryStore struct {
	mu        sync.RWMutex
	cases     map[string]model.Case
	users     map[string]model.User
	documents []model.Document
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases: make(map[string]model.Case),
		users: make(map[string]model.User),
	}
}

func (s *MemoryStore) GetCase(_ context.Context, id string) (*model.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneCase(c)
	return &c, nil
}

func (s *MemoryStore) CreateCase(_ context.Context, c *model.Case) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := s.cases[c.ID]; exists {
		return "", ErrConflict
	}
	s.cases[c.ID] = cloneCase(*c)
	return c.ID, nil
}

func (s *MemoryStore) ListCasesByUser(_ context.Context, uid string) ([]model.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cases := []model.Case{}
	for _, c := range s.cases {
		if c.UserID == uid {
			cases = append(cases, cloneCase(c))
		}
	}
	sortNewestFirst(cases)
	return cases, nil
}

func (s *MemoryStore) ListCases(_ context.Context) ([]model.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cases := make([]model.Case, 0, len(s.cases))
	for _, c := range s.cases {
		cases = append(cases, cloneCase(c))
	}
	sortNewestFirst(cases)
	return cases, nil
}

func (s *MemoryStore) DeleteCase(_ context.Context, id, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return ErrNotFound
	}
	if err := checkOwner(&c, uid); err != nil {
		return err
	}
	delete(s.cases, id)
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id, uid string, status model.Status, now time.Time) (*model.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := checkOwner(&c, uid); err != nil {
		return nil, err
	}
	if err := ApplyStatus(&c, status, now); err != nil {
		return nil, err
	}
	s.cases[id] = c
	c = cloneCase(c)
	return &c, nil
}

func (s *MemoryStore) AddEvidence(_ context.Context, id, uid string, item model.EvidenceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return ErrNotFound
	}
	if err := checkOwner(&c, uid); err != nil {
		return err
	}
	c.Evidence = append(append([]model.EvidenceItem{}, c.Evidence...), item)
	s.cases[id] = c
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = normalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) ListDocuments(_ context.Context) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]model.Document, len(s.documents))
	for i, d := range s.documents {
		docs[i] = normalizeDocument(d)
	}
	return docs, nil
}

// SaveDocuments replaces documents with matching IDs and appends the rest
func (s *MemoryStore) SaveDocuments(_ context.Context, docs []model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int, len(s.documents))
	for i, d := range s.documents {
		index[d.ID] = i
	}
	for _, d := range docs {
		if i, ok := index[d.ID]; ok {
			s.documents[i] = d
			continue
		}
		index[d.ID] = len(s.documents)
		s.documents = append(s.documents, d)
	}
	return nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}

func cloneCase(c model.Case) model.Case {
	if c.Evidence != nil {
		c.Evidence = append([]model.EvidenceItem{}, c.Evidence...)
	}
	return c
}

// sortNewestFirst orders by creation time; cases without one go last
func sortNewestFirst(cases []model.Case) {
	sort.SliceStable(cases, func(i, j int) bool {
		ti, tj := cases[i].CreatedAt.Time(), cases[j].CreatedAt.Time()
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		case ti.Equal(*tj):
			return cases[i].ID < cases[j].ID
		default:
			return ti.After(*tj)
		}
	})
}
