package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/score"
)

// ScoreJob scores one case
type ScoreJob struct {
	Index  int
	Case   model.Case
	Scorer *score.Scorer
	Now    time.Time
}

// Execute executes the score job
func (j *ScoreJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &CaseScore{Index: j.Index, CaseID: j.Case.ID, Error: err}
	}
	result := j.Scorer.Calculate(score.SnapshotFromCase(j.Case), j.Now)
	result.CaseID = j.Case.ID
	return &CaseScore{Index: j.Index, CaseID: j.Case.ID, Result: &result}
}

// CaseScore is the outcome of scoring one case in a batch
type CaseScore struct {
	Index  int
	CaseID string
	Result *model.ScoreResult
	Error  error
}

// GetError returns the error from the score job
func (r *CaseScore) GetError() error {
	return r.Error
}

// BatchScorer scores many cases concurrently
type BatchScorer struct {
	scorer      *score.Scorer
	concurrency int
	now         func() time.Time
}

// NewBatchScorer creates a new batch scorer
func NewBatchScorer(concurrency int) *BatchScorer {
	return &BatchScorer{
		scorer:      score.NewScorer(),
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ScoreCases scores every case against a single reference time.
// Results come back in input order.
func (b *BatchScorer) ScoreCases(ctx context.Context, cases []model.Case) []*CaseScore {
	if len(cases) == 0 {
		return []*CaseScore{}
	}

	now := b.now()
	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, c := range cases {
		pool.Submit(&ScoreJob{Index: i, Case: c, Scorer: b.scorer, Now: now})
	}

	scores := make([]*CaseScore, len(cases))
	for _, result := range pool.Wait() {
		cs := result.(*CaseScore)
		scores[cs.Index] = cs
	}

	// Jobs dropped by cancellation never ran
	for i, cs := range scores {
		if cs == nil {
			scores[i] = &CaseScore{Index: i, CaseID: cases[i].ID, Error: context.Cause(ctx)}
		}
	}

	return scores
}

// ScoreFile loads cases from a file and scores them
func (b *BatchScorer) ScoreFile(ctx context.Context, filePath string) ([]*CaseScore, error) {
	cases, err := ReadCasesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}

	return b.ScoreCases(ctx, cases), nil
}

type caseFile struct {
	Cases []model.Case `yaml:"cases" json:"cases"`
}

// ReadCasesFromFile reads cases from a YAML or JSON file holding either a
// list of cases or a {cases: [...]} document. Duplicate IDs keep the first.
func ReadCasesFromFile(filePath string) ([]model.Case, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	var cases []model.Case
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		cases, err = decodeCasesJSON(data)
	default:
		cases, err = decodeCasesYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}

	seen := make(map[string]bool)
	unique := cases[:0]
	for _, c := range cases {
		if c.ID != "" {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
		}
		unique = append(unique, c)
	}
	return unique, nil
}

func decodeCasesJSON(data []byte) ([]model.Case, error) {
	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		var cases []model.Case
		if err := json.Unmarshal(data, &cases); err != nil {
			return nil, err
		}
		return cases, nil
	}
	var doc caseFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Cases, nil
}

func decodeCasesYAML(data []byte) ([]model.Case, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var cases []model.Case
		if err := node.Content[0].Decode(&cases); err != nil {
			return nil, err
		}
		return cases, nil
	}
	var doc caseFile
	if err := node.Content[0].Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Cases, nil
}
