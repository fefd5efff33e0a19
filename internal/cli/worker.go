package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codescout-ai/codescout/internal/indexer"
	"github.com/codescout-ai/codescout/internal/scheduler"
)

var (
	workerLoop     bool
	workerInterval time.Duration
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued indexing jobs",
	Long: `Process at most one queued indexing job and exit, or poll continuously
with --loop.

Multiple workers may run at once; the job claim is atomic, so a job is
never processed twice. A worker that dies mid-job is recovered through
lease expiry.

Examples:
  codescout worker                      # process one job
  codescout worker --loop               # poll every 30s
  codescout worker --loop --interval 5s`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerLoop, "loop", false, "keep polling for jobs")
	workerCmd.Flags().DurationVar(&workerInterval, "interval", 30*time.Second, "polling interval with --loop")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	emb, _, err := getProviders()
	if err != nil {
		return err
	}

	idx := indexer.NewLocal(dbClient, emb, logger)
	sched := scheduler.New(dbClient, idx, cfg.LeaseDuration, logger)

	if workerLoop {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		fmt.Printf("Polling for jobs every %s (Ctrl-C to stop)\n", workerInterval)
		err := sched.RunLoop(ctx, workerInterval)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	out, err := sched.RunOnce(context.Background())
	if err != nil {
		return fmt.Errorf("run worker: %w", err)
	}
	switch out.Status {
	case scheduler.OutcomeIdle:
		fmt.Println("No eligible jobs")
	case scheduler.OutcomeSuccess:
		fmt.Printf("Processed job %s (project %s)\n", out.JobID, out.ProjectID)
	case scheduler.OutcomeError:
		fmt.Printf("Job %s failed: %s\n", out.JobID, out.Error)
	}
	return nil
}
