package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/gigshield/internal/analytics"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/worker"
)

var (
	concurrency  int
	batchOut     string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Score many cases from a file in parallel",
	Long: `Batch scores every case in a YAML or JSON file concurrently:
- Read cases from the input file (a list, or a document with a "cases" key)
- Score them on a worker pool against one reference time
- Print a per-case line and a label summary
- Optionally write all results as JSON

Example:
  gigshield batch cases.yaml
  gigshield batch cases.json --concurrency 8 --json scores.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOut, "json", "", "write JSON results to this path ('-' for stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 5*time.Minute, "total timeout for batch processing")
}

type batchEntry struct {
	CaseID string             `json:"caseId"`
	Result *model.ScoreResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	banner(os.Stderr, "GigShield Batch Scoring")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n\n", batchTimeout)

	scorer := worker.NewBatchScorer(concurrency)
	results, err := scorer.ScoreFile(ctx, file)
	if err != nil {
		return fmt.Errorf("score file: %w", err)
	}

	entries := make([]batchEntry, 0, len(results))
	labels := map[model.Label]int{}
	scores := make([]int, 0, len(results))
	failures := 0

	for _, r := range results {
		entry := batchEntry{CaseID: r.CaseID}
		if r.Error != nil {
			failures++
			entry.Error = r.Error.Error()
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.CaseID, r.Error)
		} else {
			entry.Result = r.Result
			labels[r.Result.Label]++
			scores = append(scores, r.Result.Score)
			if batchOut == "" {
				printScore(cmd.OutOrStdout(), *r.Result)
			}
		}
		entries = append(entries, entry)
	}

	banner(os.Stderr, "Batch Complete")
	fmt.Fprintf(os.Stderr, "  Total:     %d cases\n", len(results))
	fmt.Fprintf(os.Stderr, "  High:      %d\n", labels[model.LabelHigh])
	fmt.Fprintf(os.Stderr, "  Medium:    %d\n", labels[model.LabelMedium])
	fmt.Fprintf(os.Stderr, "  Low:       %d\n", labels[model.LabelLow])
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	if len(scores) > 0 {
		fmt.Fprintf(os.Stderr, "  Mean:      %.1f  Median: %.1f\n", analytics.Average(scores), analytics.Median(scores))
	}
	fmt.Fprintln(os.Stderr)

	if batchOut != "" {
		return writeJSON(cmd.OutOrStdout(), batchOut, entries)
	}
	return nil
}
