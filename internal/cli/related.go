package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	relatedLimit int
	relatedJSON  bool
)

var relatedCmd = &cobra.Command{
	Use:   "related <post-id>",
	Short: "Find posts related to a post",
	Long: `Find posts related to the given one, preferring vector similarity and
falling back to shared category or tags when the index cannot fill the
requested number.

Examples:
  blograg related 42
  blograg related 42 --limit 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	rootCmd.AddCommand(relatedCmd)
	relatedCmd.Flags().IntVar(&relatedLimit, "limit", 0, "number of posts (default from config)")
	relatedCmd.Flags().BoolVar(&relatedJSON, "json", false, "output as JSON")
}

func runRelated(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	limit := a.cfg.Related.Limit
	if relatedLimit > 0 {
		limit = relatedLimit
	}

	result, err := a.related.Related(cmd.Context(), args[0], limit)
	if err != nil {
		return fmt.Errorf("related lookup failed: %w", err)
	}

	if relatedJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(result.Documents) == 0 {
		fmt.Println("No related posts found.")
		return nil
	}

	fmt.Printf("Found %d related posts (%s):\n\n", result.Total, result.Mode)
	for i, doc := range result.Documents {
		line := fmt.Sprintf("  [%d] %s (post %s)", i+1, doc.Title, doc.ID)
		if doc.Category != "" {
			line += " · " + doc.Category
		}
		if len(doc.Tags) > 0 {
			line += " · " + strings.Join(doc.Tags, ", ")
		}
		fmt.Println(line)
	}
	return nil
}
