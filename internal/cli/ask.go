package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codescout-ai/codescout/internal/engine"
)

var askCmd = &cobra.Command{
	Use:   "ask <project-id> <question...>",
	Short: "Ask a question about an indexed project",
	Long: `Ask a question about an indexed project. The answer is grounded on the
most similar indexed code and lists its sources.

Examples:
  codescout ask acme-api "how is authentication implemented?"
  codescout ask acme-api where are migrations run`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	projectID := args[0]
	question := strings.Join(args[1:], " ")

	eng, cleanup, err := getEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ans, err := eng.Answer(context.Background(), projectID, question, nil)
	if err != nil {
		if errors.Is(err, engine.ErrProjectNotIndexed) {
			exitWithError("project %q is not indexed — run: codescout index %s <repo-path>", projectID, projectID)
		}
		return err
	}

	fmt.Println(ans.Answer)
	if len(ans.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range ans.Sources {
			fmt.Printf("  %.2f  %s\n", src.Similarity, src.FileName)
		}
	}
	return nil
}
