package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/gigshield/internal/model"
)

var batchNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestBatchScorer(concurrency int) *BatchScorer {
	b := NewBatchScorer(concurrency)
	b.now = func() time.Time { return batchNow }
	return b
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchScorer_ScoreCases_KeepsInputOrder(t *testing.T) {
	var cases []model.Case
	for i := 0; i < 25; i++ {
		c := model.Case{ID: string(rune('a' + i)), Reason: "Low rating", Status: model.StatusPending}
		if i%2 == 0 {
			c.Reason = "Safety incident"
			c.Status = model.StatusDenied
			c.PriorAppealCount = 1
		}
		cases = append(cases, c)
	}

	results := newTestBatchScorer(4).ScoreCases(context.Background(), cases)

	if len(results) != len(cases) {
		t.Fatalf("expected %d results, got %d", len(cases), len(results))
	}
	for i, r := range results {
		if r.CaseID != cases[i].ID || r.Index != i {
			t.Errorf("result %d belongs to case %s", i, r.CaseID)
		}
		if r.Error != nil || r.Result == nil {
			t.Fatalf("unexpected error for %s: %v", r.CaseID, r.Error)
		}
		if r.Result.CaseID != cases[i].ID {
			t.Errorf("expected result tagged with case id %s, got %s", cases[i].ID, r.Result.CaseID)
		}
	}
	if results[0].Result.Metadata.Category != model.CategorySafety {
		t.Errorf("expected safety category, got %s", results[0].Result.Metadata.Category)
	}
}

func TestBatchScorer_ScoreCases_Empty(t *testing.T) {
	results := newTestBatchScorer(2).ScoreCases(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchScorer_ScoreCases_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newTestBatchScorer(2).ScoreCases(ctx, []model.Case{{ID: "x"}, {ID: "y"}})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.GetError() == nil {
			t.Errorf("expected cancellation error for %s", r.CaseID)
		}
	}
}

func TestReadCasesFromFile_YAMLList(t *testing.T) {
	path := writeFile(t, "cases.yaml", `
- id: c1
  platform: DoorDash
  reason: Customer rating dropped
  status: pending
  deactivated_at: 2025-06-14T12:00:00Z
  evidence:
    - url: /evidence/u/1.pdf
      filename: 1.pdf
- id: c1
  platform: duplicate
- id: c2
  platform: Uber
  deactivation_reason: Fraud
  status: denied
  prior_appeal_count: 2
`)

	cases, err := ReadCasesFromFile(path)
	if err != nil {
		t.Fatalf("ReadCasesFromFile failed: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases after deduplication, got %d", len(cases))
	}
	if cases[0].Platform != "DoorDash" || len(cases[0].Evidence) != 1 {
		t.Errorf("unexpected first case: %+v", cases[0])
	}
	if got := cases[0].DeactivatedAt.Time(); got == nil || got.Day() != 14 {
		t.Errorf("expected deactivation on the 14th, got %v", got)
	}
	if cases[1].PriorAppealCount != 2 || cases[1].ReasonText() != "Fraud" {
		t.Errorf("unexpected second case: %+v", cases[1])
	}
}

func TestReadCasesFromFile_YAMLDocument(t *testing.T) {
	path := writeFile(t, "cases.yml", "cases:\n  - id: a\n  - id: b\n")

	cases, err := ReadCasesFromFile(path)
	if err != nil {
		t.Fatalf("ReadCasesFromFile failed: %v", err)
	}
	if len(cases) != 2 {
		t.Errorf("expected 2 cases, got %d", len(cases))
	}
}

func TestReadCasesFromFile_JSON(t *testing.T) {
	list := writeFile(t, "cases.json", `[{"id":"a","reason":"late","submittedAt":"2025-06-01T00:00:00"}]`)
	doc := writeFile(t, "doc.json", `{"cases":[{"id":"a"},{"id":"b"}]}`)

	cases, err := ReadCasesFromFile(list)
	if err != nil {
		t.Fatalf("ReadCasesFromFile failed: %v", err)
	}
	if len(cases) != 1 || cases[0].SubmittedAt.Time() == nil {
		t.Errorf("unexpected cases: %+v", cases)
	}

	cases, err = ReadCasesFromFile(doc)
	if err != nil {
		t.Fatalf("ReadCasesFromFile failed: %v", err)
	}
	if len(cases) != 2 {
		t.Errorf("expected 2 cases, got %d", len(cases))
	}
}

func TestReadCasesFromFile_Errors(t *testing.T) {
	if _, err := ReadCasesFromFile("no_such_file.yaml"); err == nil {
		t.Error("expected error for non-existent file")
	}
	if _, err := ReadCasesFromFile(writeFile(t, "bad.json", "{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestBatchScorer_ScoreFile(t *testing.T) {
	path := writeFile(t, "cases.yaml", "- id: a\n  reason: rating\n- id: b\n  reason: safety\n")

	results, err := newTestBatchScorer(2).ScoreFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ScoreFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	if _, err := newTestBatchScorer(2).ScoreFile(context.Background(), "missing.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
