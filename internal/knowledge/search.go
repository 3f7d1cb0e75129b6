package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/gigshield/internal/cache"
	"github.com/ppiankov/gigshield/internal/model"
)

// NoContext is returned by RelevantContext when nothing matches
const NoContext = "No specific policy information found."

// Keyword weights
const (
	titleWeight    = 5
	tagWeight      = 3
	categoryWeight = 2
	contentWeight  = 1
	stateWeight    = 4
	platformWeight = 4
)

// Search returns the topK documents most relevant to query.
// Vector search is used when an index is set; it falls back to keyword
// search when the index fails. Keyword search ignores filters.
func (b *Base) Search(ctx context.Context, query string, topK int, filters model.SearchFilters) []model.SearchResult {
	b.mu.RLock()
	idx, c, ttl := b.index, b.cache, b.cacheTTL
	b.mu.RUnlock()

	if idx == nil {
		return b.KeywordSearch(query, topK)
	}

	key := cache.Key("kb-search", query, strconv.Itoa(topK), filters.Category, filters.State, filters.Platform)
	if cached, ok := cache.GetJSON[[]model.SearchResult](ctx, c, key); ok {
		return cached
	}

	results, err := b.vectorSearch(ctx, idx, query, topK, filters)
	if err != nil {
		slog.Warn("Vector search failed, falling back to keyword search", "error", err)
		return b.KeywordSearch(query, topK)
	}
	if err := cache.SetJSON(ctx, c, key, results, ttl); err != nil {
		slog.Debug("Could not cache search results", "error", err)
	}
	return results
}

func (b *Base) vectorSearch(ctx context.Context, idx VectorIndex, query string, topK int, filters model.SearchFilters) ([]model.SearchResult, error) {
	matches, err := idx.Search(ctx, query, topK, filters)
	if err != nil {
		return nil, err
	}

	results := []model.SearchResult{}
	for _, m := range matches {
		doc, ok := b.Document(m.DocumentID)
		if !ok {
			continue
		}
		results = append(results, model.SearchResult{
			Document:       doc,
			RelevanceScore: math.Round(m.Score*100*100) / 100,
		})
	}
	return results, nil
}

// KeywordSearch scores documents by word overlap with query
func (b *Base) KeywordSearch(query string, topK int) []model.SearchResult {
	words := queryWords(query)
	results := []model.SearchResult{}

	for _, doc := range b.Documents() {
		if s := keywordScore(doc, words); s > 0 {
			results = append(results, model.SearchResult{Document: doc, RelevanceScore: float64(s)})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func queryWords(query string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}

func keywordScore(doc model.Document, words []string) int {
	score := 0
	if containsAny(strings.ToLower(doc.Title), words) {
		score += titleWeight
	}
	for _, tag := range doc.Tags {
		if containsAny(tag, words) {
			score += tagWeight
		}
	}
	if containsAny(strings.ToLower(doc.Category), words) {
		score += categoryWeight
	}
	content := strings.ToLower(doc.Content)
	for _, w := range words {
		if strings.Contains(content, w) {
			score += contentWeight
		}
	}
	if containsAny(strings.ToLower(doc.State), words) {
		score += stateWeight
	}
	if containsAny(strings.ToLower(doc.Platform), words) {
		score += platformWeight
	}
	return score
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// FilterResults narrows results after a search. A document for "All"
// states or platforms passes the state or platform filter.
func FilterResults(results []model.SearchResult, f model.SearchFilters) []model.SearchResult {
	out := []model.SearchResult{}
	for _, r := range results {
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		if f.State != "" && r.State != f.State && r.State != allMarker {
			continue
		}
		if f.Platform != "" && !strings.Contains(r.Platform, f.Platform) && r.Platform != allMarker {
			continue
		}
		out = append(out, r)
	}
	return out
}

// RelevantContext builds the cited policy block used when drafting an appeal.
// It searches with platform and state filters first, then without.
func (b *Base) RelevantContext(ctx context.Context, platform, state, reason string, topK int) string {
	query := fmt.Sprintf("%s %s %s deactivation appeal rights policy", platform, state, reason)

	results := b.Search(ctx, query, topK, model.SearchFilters{Platform: platform, State: state})
	if len(results) == 0 {
		results = b.Search(ctx, query, topK, model.SearchFilters{})
	}
	return FormatContext(results)
}

// FormatContext renders results as numbered sources
func FormatContext(results []model.SearchResult) string {
	if len(results) == 0 {
		return NoContext
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Source %d: %s]\nCategory: %s\nState: %s | Platform: %s\nContent: %s\n",
			i+1, r.Title, r.Category, r.State, r.Platform, r.Content)
	}
	return strings.Join(parts, "\n---\n")
}
