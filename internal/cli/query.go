package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blograg/internal/domain"
	"blograg/internal/usecase"
)

var (
	queryText      string
	queryLimit     int
	queryMaxTokens int
	queryStream    bool
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question about the indexed posts",
	Long: `Answer a natural-language question grounded in the indexed posts.
When nothing relevant is indexed the answer falls back to the model's
own knowledge and says so in the reported mode.

Examples:
  blograg query -q "how does the deploy pipeline work"
  blograg query -q "what is CRDT" --limit 8 --json
  blograg query -q "summarise the go posts" --stream`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "question", "q", "", "question to answer (required)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "retrieved chunks (default from config)")
	queryCmd.Flags().IntVar(&queryMaxTokens, "max-tokens", 0, "context token budget (default from config)")
	queryCmd.Flags().BoolVar(&queryStream, "stream", false, "print the answer as it is generated")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("question")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.queryOptions()
	if queryLimit > 0 {
		opts.Limit = queryLimit
	}
	if queryMaxTokens > 0 {
		opts.MaxTokens = queryMaxTokens
	}

	ctx := cmd.Context()

	if queryStream {
		return streamAnswer(cmd, a, opts)
	}

	answer, err := a.engine.Query(ctx, queryText, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answer.Answer)
	printSources(answer.Sources, answer.Mode)
	return nil
}

func streamAnswer(cmd *cobra.Command, a *app, opts usecase.QueryOptions) error {
	var (
		sources  []domain.Source
		streamed bool
		failure  error
	)

	a.engine.StreamQuery(cmd.Context(), queryText, opts, usecase.StreamSinks{
		OnSources: func(s []domain.Source) {
			sources = s
		},
		OnChunk: func(delta string) {
			streamed = true
			fmt.Print(delta)
		},
		OnComplete: func(tokens int) {
			fmt.Println()
			mode := domain.AnswerModeVector
			if len(sources) == 0 {
				mode = domain.AnswerModeFallback
			}
			printSources(sources, mode)
		},
		OnError: func(err error) {
			if streamed {
				fmt.Println()
			}
			failure = err
		},
	})

	if failure != nil {
		return fmt.Errorf("query failed: %w", failure)
	}
	return nil
}

func printSources(sources []domain.Source, mode domain.AnswerMode) {
	if mode == domain.AnswerModeFallback {
		fmt.Fprintln(os.Stderr, "\n(no indexed posts matched; answered without sources)")
		return
	}
	fmt.Fprintln(os.Stderr, "\nSources:")
	for i, s := range sources {
		fmt.Fprintf(os.Stderr, "  [%d] %s (post %s, score %.2f)\n", i+1, s.Title, s.DocumentID, s.Score)
	}
}
