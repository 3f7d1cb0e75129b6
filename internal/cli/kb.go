package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/gigshield/internal/knowledge"
	"github.com/ppiankov/gigshield/internal/model"
)

var (
	kbForce    bool
	kbTopK     int
	kbFilters  model.SearchFilters
	kbTimeout  time.Duration
	kbJSONPath string
)

// kbCmd represents the kb command
var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base",
	Long: `Manage the worker-protection knowledge base used to ground appeal letters.

Articles come from the store's knowledge_base collection, or the built-in
set when the collection is empty. Vector search needs knowledge.vector_url
(a Qdrant endpoint) and an Ollama embedding model.`,
}

var kbIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the knowledge base into the vector index",
	Long: `Index embeds every knowledge base article and upserts it into the Qdrant
collection. A collection that already holds every article is left alone
unless --force is given.

Example:
  gigshield kb index
  gigshield kb index --force`,
	Args: cobra.NoArgs,
	RunE: runKBIndex,
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base",
	Long: `Search runs the same query the API uses: vector search when configured,
keyword scoring otherwise.

Example:
  gigshield kb search "deactivation without notice"
  gigshield kb search "rating threshold" --state California --top-k 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKBSearch,
}

func init() {
	rootCmd.AddCommand(kbCmd)
	kbCmd.AddCommand(kbIndexCmd)
	kbCmd.AddCommand(kbSearchCmd)

	kbCmd.PersistentFlags().DurationVar(&kbTimeout, "timeout", 5*time.Minute, "overall timeout")

	kbIndexCmd.Flags().BoolVar(&kbForce, "force", false, "re-embed even when the collection looks complete")

	kbSearchCmd.Flags().IntVar(&kbTopK, "top-k", 5, "number of results")
	kbSearchCmd.Flags().StringVar(&kbFilters.Category, "category", "", "only articles in this category")
	kbSearchCmd.Flags().StringVar(&kbFilters.State, "state", "", "only articles for this state (or All)")
	kbSearchCmd.Flags().StringVar(&kbFilters.Platform, "platform", "", "only articles for this platform (or All)")
	kbSearchCmd.Flags().StringVar(&kbJSONPath, "json", "", "write JSON results to this path ('-' for stdout)")
}

// loadKnowledge reads the knowledge base, falling back to the built-in set
// when the store is unreachable
func loadKnowledge(ctx context.Context, cfg *model.Config) *app {
	a := &app{cfg: cfg}
	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Warn("Store unavailable, using built-in knowledge base", "error", err)
		a.kb = knowledge.Load(ctx, nil)
	} else {
		a.store = st
		a.kb = knowledge.Load(ctx, st)
	}
	if idx := knowledge.NewIndexFromConfig(cfg.Knowledge); idx != nil {
		a.index = idx
		a.kb.SetIndex(idx)
	}
	return a
}

func runKBIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), kbTimeout)
	defer cancel()

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	a := loadKnowledge(ctx, cfg)
	defer a.Close()

	if a.index == nil {
		return errors.New("no vector endpoint configured (set knowledge.vector_url or QDRANT_URL)")
	}

	report, err := a.indexKnowledge(ctx, kbForce)
	if err != nil {
		return err
	}
	if report.Skipped {
		fmt.Fprintf(os.Stderr, "✓ Collection %s already holds %d articles (use --force to re-embed)\n", cfg.Knowledge.Collection, report.Total)
		return nil
	}
	fmt.Fprintf(os.Stderr, "✓ Indexed %d/%d articles into %s\n", report.Indexed, report.Total, cfg.Knowledge.Collection)
	if len(report.Errors) > 0 {
		return fmt.Errorf("%d articles failed to index", len(report.Errors))
	}
	return nil
}

func runKBSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), kbTimeout)
	defer cancel()

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	a := loadKnowledge(ctx, cfg)
	defer a.Close()

	results := a.kb.Search(ctx, strings.Join(args, " "), kbTopK, kbFilters)
	if kbJSONPath != "" {
		return writeJSON(cmd.OutOrStdout(), kbJSONPath, results)
	}

	w := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching articles.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s  (relevance %.2f)\n", i+1, r.Title, r.RelevanceScore)
		fmt.Fprintf(w, "   %s | %s | %s\n", r.Category, r.State, r.Platform)
	}
	return nil
}
