package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codescout-ai/codescout/internal/metrics"
	"github.com/codescout-ai/codescout/internal/models"
)

var reportDays int

var reportCmd = &cobra.Command{
	Use:   "report <project-id>",
	Short: "Show a project's query health and cost report",
	Long: `Aggregate a project's query metrics into a health and cost report.

Examples:
  codescout report acme-api
  codescout report acme-api --days 30`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportDays, "days", 7, "trailing window in days")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	agg := metrics.NewAggregator(dbClient, cfg.MonthlyBudgetUsd, cfg.BudgetAlertThresholdP)
	report, err := agg.Report(context.Background(), args[0], reportDays)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	fmt.Printf("Project %s — last %d days\n\n", report.ProjectID, report.WindowDays)
	fmt.Printf("Health:          %s\n", report.Health)
	fmt.Printf("Requests:        %d\n", report.TotalRequests)
	fmt.Printf("Error rate:      %.1f%%\n", report.ErrorRate*100)
	fmt.Printf("Avg latency:     %.0f ms  (cold %.0f / warm %.0f, cache hit %.0f / miss %.0f)\n",
		report.AvgLatencyMs, report.ColdStartAvgLatencyMs, report.WarmAvgLatencyMs,
		report.CacheHitAvgLatencyMs, report.CacheMissAvgLatencyMs)
	fmt.Printf("Memory hit rate: %.1f%%\n", report.MemoryHitRate*100)
	fmt.Printf("Avg similarity:  %.2f\n", report.AvgSimilarity)

	fmt.Printf("\nCost (window):   $%.2f\n", report.TotalCostUsd)
	for route, cost := range report.CostByRoute {
		fmt.Printf("  %-13s  $%.2f\n", route, cost)
	}
	fmt.Printf("Cost (30 days):  $%.2f\n", report.Cost30DaysUsd)
	if report.BudgetStatus == models.BudgetNotSet {
		fmt.Println("Budget:          not set")
	} else {
		fmt.Printf("Budget:          %s ($%.2f of $%.2f, %.0f%%)\n",
			report.BudgetStatus, report.Cost30DaysUsd, report.MonthlyBudget, report.BudgetUsedFrac*100)
	}

	if len(report.RecentErrors) > 0 {
		fmt.Println("\nRecent errors:")
		for _, e := range report.RecentErrors {
			fmt.Printf("  [%s] %s: %s\n", e.CreatedAt, e.RouteType, e.Message)
		}
	}
	return nil
}
