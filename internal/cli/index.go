package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	indexAll   bool
	indexForce bool
)

var indexCmd = &cobra.Command{
	Use:   "index [post-id]",
	Short: "Index published posts for retrieval",
	Long: `Index one published post, or all of them, into the local vector store.
Posts whose content has not changed since the last run are skipped;
--force reindexes them anyway.

Examples:
  blograg index 42            # Index a single post
  blograg index --all         # Index everything that changed
  blograg index --all --force # Rebuild the whole index`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "index every published post")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "reindex even if content is unchanged")
}

func runIndex(cmd *cobra.Command, args []string) error {
	if !indexAll && len(args) == 0 {
		return fmt.Errorf("a post id or --all is required")
	}

	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	if !indexAll {
		if err := a.indexer.IndexDocument(ctx, args[0], indexForce); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		fmt.Printf("Indexed post %s\n", args[0])
		return nil
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	summary, err := a.indexer.ReindexAll(ctx, indexForce, progress)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Posts indexed: %d\n", summary.Indexed)
	fmt.Printf("  Posts skipped: %d (unchanged)\n", summary.Skipped)
	if summary.Failed > 0 {
		fmt.Printf("  Posts failed:  %d (see log)\n", summary.Failed)
	}
	fmt.Printf("\nIndex stored at: %s\n", a.cfg.IndexDBPath())
	return nil
}
