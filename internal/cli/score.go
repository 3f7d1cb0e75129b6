package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/score"
	"github.com/ppiankov/gigshield/internal/store"
	"github.com/ppiankov/gigshield/internal/worker"
)

var (
	scoreAt      string
	scoreOut     string
	scoreTimeout time.Duration
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <case-id | file>",
	Short: "Score the likelihood of success of an appeal case",
	Long: `Score computes the explainable success score of an appeal case.

The argument is either a case ID in the configured store or a YAML/JSON
file holding one or more cases. Every factor is printed with its signed
impact and explanation.

Example:
  gigshield score 6f1c2a4e-1a7b-4d3f-9a8e-0c2b5d7e9f10
  gigshield score case.yaml --at 2025-02-01T00:00:00Z
  gigshield score cases.json --json scores.json`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreAt, "at", "", "reference time for staleness checks (ISO-8601, default now)")
	scoreCmd.Flags().StringVar(&scoreOut, "json", "", "write JSON results to this path ('-' for stdout)")
	scoreCmd.Flags().DurationVar(&scoreTimeout, "timeout", 30*time.Second, "store lookup timeout")
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), scoreTimeout)
	defer cancel()

	now, err := referenceTime(scoreAt)
	if err != nil {
		return err
	}

	cases, err := resolveCases(ctx, args[0])
	if err != nil {
		return err
	}

	scorer := score.NewScorer()
	results := make([]model.ScoreResult, 0, len(cases))
	for _, c := range cases {
		r := scorer.Calculate(score.SnapshotFromCase(c), now)
		r.CaseID = c.ID
		results = append(results, r)
	}

	if scoreOut != "" {
		var v any = results
		if len(results) == 1 {
			v = results[0]
		}
		return writeJSON(cmd.OutOrStdout(), scoreOut, v)
	}

	for _, r := range results {
		printScore(cmd.OutOrStdout(), r)
	}
	return nil
}

// resolveCases reads arg as a case file when one exists, else looks it up by ID
func resolveCases(ctx context.Context, arg string) ([]model.Case, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		cases, err := worker.ReadCasesFromFile(arg)
		if err != nil {
			return nil, err
		}
		if len(cases) == 0 {
			return nil, fmt.Errorf("no cases in %s", arg)
		}
		return cases, nil
	}

	cfg, err := currentConfig()
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore(st)

	c, err := st.GetCase(ctx, arg)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("case %s not found", arg)
	}
	if err != nil {
		return nil, err
	}
	return []model.Case{*c}, nil
}
