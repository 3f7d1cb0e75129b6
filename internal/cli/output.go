package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/store"
)

const rule = "═══════════════════════════════════════════════════════════"

// openStore connects to the configured case store
func openStore(ctx context.Context, cfg *model.Config) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func closeStore(st store.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		slog.Warn("close store", "error", err)
	}
}

// writeJSON writes v as indented JSON to path, or to w when path is empty or "-"
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func banner(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n  %s\n%s\n\n", rule, title, rule)
}

// printScore renders a score and its factors for a terminal
func printScore(w io.Writer, r model.ScoreResult) {
	id := r.CaseID
	if id == "" {
		id = "(unsaved case)"
	}
	fmt.Fprintf(w, "%s  %d/100  %s [%d-%d]\n", id, r.Score, r.Label, r.Band.Lower, r.Band.Upper)
	for _, f := range r.Factors {
		fmt.Fprintf(w, "    %+4d  %-22s %s\n", f.Impact, f.Name, f.Explanation)
	}
}

// referenceTime parses --at, defaulting to now
func referenceTime(at string) (time.Time, error) {
	if at == "" {
		return time.Now().UTC(), nil
	}
	t, err := model.ISOInstant(at).Normalize()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at time %q: %w", at, err)
	}
	return t, nil
}
