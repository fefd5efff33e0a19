package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codescout-ai/codescout/internal/db"
	"github.com/codescout-ai/codescout/internal/models"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect indexing jobs",
	Long: `List recent indexing jobs or inspect a specific job by ID.

Examples:
  codescout jobs           # List recent jobs
  codescout jobs abc123    # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := dbClient.ListJobs(ctx, 50)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-14s %-16s %-12s %-9s %s\n", "ID", "PROJECT", "STATUS", "PROGRESS", "CREATED")
	fmt.Println("----------------------------------------------------------------------")
	for _, job := range jobs {
		id, err := models.RecordIDString(job.ID)
		if err != nil {
			id = "?"
		}
		fmt.Printf("%-14s %-16s %-12s %8d%% %s\n",
			id, job.ProjectID, job.Status, job.Progress, job.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := dbClient.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			exitWithError("job %q not found", id)
		}
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Project:  %s\n", job.ProjectID)
	fmt.Printf("Repo:     %s\n", job.RepoRef)
	fmt.Printf("Status:   %s\n", job.Status)
	fmt.Printf("Progress: %d%%\n", job.Progress)
	fmt.Printf("Created:  %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
	if job.LockedBy != nil {
		fmt.Printf("Worker:   %s\n", *job.LockedBy)
	}
	if job.LockedAt != nil {
		fmt.Printf("Locked:   %s\n", job.LockedAt.Format("2006-01-02 15:04:05"))
	}
	if job.Error != nil {
		fmt.Printf("Error:    %s\n", *job.Error)
	}
	return nil
}
