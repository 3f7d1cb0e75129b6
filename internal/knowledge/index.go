package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/worker"
)

// embedLimiterKey groups all embedding calls under one rate limit
const embedLimiterKey = "embeddings"

var errNoIndex = errors.New("vector index is not configured")

// IndexReport summarizes an indexing run
type IndexReport struct {
	Total   int
	Indexed int
	Skipped bool
	Errors  []error
}

// Indexer embeds documents on a worker pool and writes them to a QdrantIndex
type Indexer struct {
	index   *QdrantIndex
	workers int
	limiter *worker.Limiter
}

// NewIndexer creates an indexer. A nil limiter means no rate limit.
func NewIndexer(index *QdrantIndex, workers int, limiter *worker.Limiter) *Indexer {
	if workers <= 0 {
		workers = 4
	}
	return &Indexer{index: index, workers: workers, limiter: limiter}
}

// embedJob embeds one document
type embedJob struct {
	pos     int
	doc     model.Document
	index   *QdrantIndex
	limiter *worker.Limiter
}

type embedResult struct {
	pos    int
	doc    model.Document
	vector []float32
	err    error
}

func (r *embedResult) GetError() error {
	return r.err
}

func (j *embedJob) Execute(ctx context.Context) worker.Result {
	if j.limiter != nil {
		if err := j.limiter.Wait(ctx, embedLimiterKey); err != nil {
			return &embedResult{pos: j.pos, doc: j.doc, err: err}
		}
	}
	vector, err := j.index.Embed(ctx, j.doc)
	if err != nil {
		err = fmt.Errorf("embed %s: %w", j.doc.ID, err)
	}
	return &embedResult{pos: j.pos, doc: j.doc, vector: vector, err: err}
}

// Index embeds and upserts docs. Unless force is set, a collection that
// already holds at least len(docs) points is left alone.
func (ix *Indexer) Index(ctx context.Context, docs []model.Document, force bool) (*IndexReport, error) {
	if ix.index == nil {
		return nil, errNoIndex
	}
	report := &IndexReport{Total: len(docs)}

	if err := ix.index.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	if !force {
		count, err := ix.index.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count >= len(docs) {
			slog.Info("Documents already indexed", "vectors", count)
			report.Skipped = true
			return report, nil
		}
	}

	pool := worker.NewPool(ctx, ix.workers)
	pool.Start()
	for i, d := range docs {
		pool.Submit(&embedJob{pos: i, doc: d, index: ix.index, limiter: ix.limiter})
	}

	embedded := make([]*embedResult, len(docs))
	for _, r := range pool.Wait() {
		res := r.(*embedResult)
		embedded[res.pos] = res
	}

	var okDocs []model.Document
	var vectors [][]float32
	for i, res := range embedded {
		if res == nil {
			report.Errors = append(report.Errors, fmt.Errorf("embed %s: %w", docs[i].ID, context.Cause(ctx)))
			continue
		}
		if res.err != nil {
			report.Errors = append(report.Errors, res.err)
			continue
		}
		okDocs = append(okDocs, res.doc)
		vectors = append(vectors, res.vector)
	}

	if err := ix.index.Upsert(ctx, okDocs, vectors); err != nil {
		return report, err
	}
	report.Indexed = len(okDocs)
	slog.Info("Indexed knowledge documents", "indexed", report.Indexed, "failed", len(report.Errors))
	return report, nil
}
