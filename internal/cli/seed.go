package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/gigshield/internal/knowledge"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/store"
	"github.com/ppiankov/gigshield/internal/worker"
)

var (
	seedUser      string
	seedSimulated bool
	seedDocs      bool
	seedTimeout   time.Duration
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load appeal cases from a file into the store",
	Long: `Seed inserts the cases in a YAML or JSON file into the configured store.

Cases without an owner are assigned to --user; cases whose ID already
exists are skipped. With --docs the built-in knowledge base articles are
written to the store as well.

Example:
  gigshield seed cases.yaml
  gigshield seed demo.yaml --simulated --docs`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedUser, "user", "seed", "owner for cases without a user_id")
	seedCmd.Flags().BoolVar(&seedSimulated, "simulated", false, "mark every seeded case as simulated")
	seedCmd.Flags().BoolVar(&seedDocs, "docs", false, "also write the built-in knowledge base articles")
	seedCmd.Flags().DurationVar(&seedTimeout, "timeout", 2*time.Minute, "overall timeout")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), seedTimeout)
	defer cancel()

	cases, err := worker.ReadCasesFromFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	created, skipped, err := seedCases(ctx, st, cases, seedOptions{
		User:      seedUser,
		Simulated: seedSimulated,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Seeded %d cases (%d already present)\n", created, skipped)

	if seedDocs {
		docs := knowledge.BuiltinDocuments()
		if err := st.SaveDocuments(ctx, docs); err != nil {
			return fmt.Errorf("save knowledge base: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Saved %d knowledge base articles\n", len(docs))
	}
	return nil
}

type seedOptions struct {
	User      string
	Simulated bool
	Now       time.Time
}

// seedCases inserts cases, filling the fields the API would have set
func seedCases(ctx context.Context, st store.CaseStore, cases []model.Case, opts seedOptions) (created, skipped int, err error) {
	for i := range cases {
		c := cases[i]
		if c.UserID == "" {
			c.UserID = opts.User
		}
		if c.Status == "" {
			c.Status = model.StatusGenerated
		}
		if c.Evidence == nil {
			c.Evidence = []model.EvidenceItem{}
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = model.InstantOf(opts.Now)
		}
		if opts.Simulated {
			c.IsSimulated = true
		}

		if _, err := st.CreateCase(ctx, &c); err != nil {
			if errors.Is(err, store.ErrConflict) {
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("case %d: %w", i+1, err)
		}
		created++
	}
	return created, skipped, nil
}
