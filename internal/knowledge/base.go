// Package knowledge holds the legal and policy articles used to ground
// appeal letters, with keyword and vector search over them.
package knowledge

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/gigshield/internal/cache"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/store"
)

// allMarker is the state or platform value meaning "applies everywhere"
const allMarker = "All"

//go:embed documents.yaml
var builtinYAML []byte

var parseBuiltin = sync.OnceValues(func() ([]model.Document, error) {
	var docs []model.Document
	if err := yaml.Unmarshal(builtinYAML, &docs); err != nil {
		return nil, fmt.Errorf("parse built-in documents: %w", err)
	}
	return docs, nil
})

// BuiltinDocuments returns a copy of the embedded document set
func BuiltinDocuments() []model.Document {
	docs, err := parseBuiltin()
	if err != nil {
		// The embedded file is part of the build; a parse failure is a programming error.
		panic(err)
	}
	return append([]model.Document(nil), docs...)
}

// Base is the in-memory knowledge base
type Base struct {
	mu       sync.RWMutex
	docs     []model.Document
	index    VectorIndex
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewBase creates a knowledge base over docs
func NewBase(docs []model.Document) *Base {
	return &Base{docs: docs, cacheTTL: time.Hour}
}

// Load reads documents from src. An unreachable or empty source falls back
// to the built-in set.
func Load(ctx context.Context, src store.DocumentSource) *Base {
	if src == nil {
		return NewBase(BuiltinDocuments())
	}

	docs, err := src.ListDocuments(ctx)
	switch {
	case err != nil:
		slog.Warn("Could not load knowledge documents, using built-in set", "error", err)
		docs = BuiltinDocuments()
	case len(docs) == 0:
		slog.Info("No knowledge documents stored, using built-in set")
		docs = BuiltinDocuments()
	default:
		slog.Debug("Loaded knowledge documents", "count", len(docs))
	}
	return NewBase(docs)
}

// SetIndex enables vector search through idx
func (b *Base) SetIndex(idx VectorIndex) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = idx
}

// SetCache caches vector search results in c for ttl
func (b *Base) SetCache(c cache.Cache, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = c
	if ttl > 0 {
		b.cacheTTL = ttl
	}
}

// VectorEnabled reports whether vector search is configured
func (b *Base) VectorEnabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index != nil
}

// Documents returns a copy of all documents
func (b *Base) Documents() []model.Document {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.Document(nil), b.docs...)
}

// Document looks a document up by ID
func (b *Base) Document(id string) (model.Document, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, d := range b.docs {
		if d.ID == id {
			return d, true
		}
	}
	return model.Document{}, false
}

// Categories returns the distinct categories, sorted
func (b *Base) Categories() []string {
	seen := make(map[string]bool)
	for _, d := range b.Documents() {
		seen[d.Category] = true
	}
	return sortedKeys(seen)
}

// States returns the distinct states, sorted, without "All"
func (b *Base) States() []string {
	seen := make(map[string]bool)
	for _, d := range b.Documents() {
		if d.State != allMarker {
			seen[d.State] = true
		}
	}
	return sortedKeys(seen)
}

// Platforms returns every platform named in a document, sorted, without "All"
func (b *Base) Platforms() []string {
	seen := make(map[string]bool)
	for _, d := range b.Documents() {
		if d.Platform == allMarker {
			continue
		}
		for _, p := range strings.Split(d.Platform, ", ") {
			seen[strings.TrimSpace(p)] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
