package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index freshness",
	Long: `Report how many published posts exist, how many have an up-to-date
index entry, and whether a reindex is needed.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.indexer.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Published posts: %d\n", status.TotalDocuments)
	fmt.Printf("Indexed posts:   %d\n", status.IndexedDocuments)
	if status.LastIndexedAt.IsZero() {
		fmt.Println("Last indexed:    never")
	} else {
		fmt.Printf("Last indexed:    %s\n", status.LastIndexedAt.Format("2006-01-02 15:04:05"))
	}
	if status.NeedsIndex {
		fmt.Println("\nIndex is stale. Run 'blograg index --all'.")
	} else {
		fmt.Println("\nIndex is up to date.")
	}
	return nil
}
