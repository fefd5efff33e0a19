package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codescout-ai/codescout/internal/models"
)

var indexCmd = &cobra.Command{
	Use:   "index <project-id> <repo-path>",
	Short: "Enqueue an indexing job for a repository",
	Long: `Enqueue a full indexing job for a repository checkout.

The job is processed asynchronously by a worker (see "codescout worker").
Indexing always runs from scratch; re-indexing a project replaces its
embeddings wholesale.

Examples:
  codescout index acme-api ~/src/acme-api
  codescout worker`,
	Args: cobra.ExactArgs(2),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	projectID, repoRef := args[0], args[1]

	job, err := dbClient.CreateJob(context.Background(), projectID, repoRef)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	jobID, err := models.RecordIDString(job.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Queued indexing job %s for project %s\n", jobID, projectID)
	return nil
}
