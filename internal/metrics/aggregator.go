package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/codescout-ai/codescout/internal/models"
)

// Deployment-wide health thresholds.
const (
	errorRateCritical = 0.15
	errorRateWarning  = 0.05
	latencyWarningMs  = 15000.0

	recentErrorLimit = 10
	budgetWindowDays = 30
)

// MetricsSource reads persisted metric rows.
type MetricsSource interface {
	MetricsSince(ctx context.Context, projectID string, since time.Time) ([]models.QueryMetric, error)
}

// Aggregator computes per-project observability reports.
type Aggregator struct {
	store MetricsSource

	// monthlyBudgetUsd <= 0 means no budget configured.
	monthlyBudgetUsd float64
	alertThresholdP  float64
}

// NewAggregator creates an aggregator with the deployment budget settings.
func NewAggregator(store MetricsSource, monthlyBudgetUsd, alertThresholdPercent float64) *Aggregator {
	return &Aggregator{
		store:            store,
		monthlyBudgetUsd: monthlyBudgetUsd,
		alertThresholdP:  alertThresholdPercent,
	}
}

// Report aggregates a project's metrics over the trailing window. The budget
// comparison always uses a rolling 30 days regardless of the window.
func (a *Aggregator) Report(ctx context.Context, projectID string, windowDays int) (*models.Report, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	now := time.Now()
	fetchDays := max(windowDays, budgetWindowDays)
	all, err := a.store.MetricsSince(ctx, projectID, now.AddDate(0, 0, -fetchDays))
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}

	windowCutoff := now.AddDate(0, 0, -windowDays)
	budgetCutoff := now.AddDate(0, 0, -budgetWindowDays)
	var rows []models.QueryMetric
	var cost30d float64
	for _, m := range all {
		if !m.CreatedAt.Before(budgetCutoff) {
			cost30d += m.EstimatedCostUsd
		}
		if !m.CreatedAt.Before(windowCutoff) {
			rows = append(rows, m)
		}
	}

	report := &models.Report{
		ProjectID:     projectID,
		WindowDays:    windowDays,
		TotalRequests: len(rows),
		CostByRoute:   make(map[models.RouteType]float64),
		Cost30DaysUsd: round2(cost30d),
		MonthlyBudget: a.monthlyBudgetUsd,
		RecentErrors:  []models.ErrorSample{},
	}

	var (
		latencySum   float64
		errorCount   int
		memoryHits   int
		simSum       float64
		simCount     int
		coldSum      float64
		coldCount    int
		warmSum      float64
		warmCount    int
		hitSum       float64
		hitCount     int
		missSum      float64
		missCount    int
		totalCostWin float64
	)

	for _, m := range rows {
		latencySum += float64(m.LatencyMs)
		if !m.Success {
			errorCount++
			if len(report.RecentErrors) < recentErrorLimit {
				msg := ""
				if m.ErrorMessage != nil {
					msg = TruncateMessage(*m.ErrorMessage)
				}
				report.RecentErrors = append(report.RecentErrors, models.ErrorSample{
					RouteType: m.RouteType,
					Message:   msg,
					LatencyMs: m.LatencyMs,
					CreatedAt: m.CreatedAt.Format(time.RFC3339),
				})
			}
		}
		if m.MemoryHitCount > 0 {
			memoryHits++
		}
		if m.AvgMemorySimilarity != nil {
			simSum += *m.AvgMemorySimilarity
			simCount++
		}
		if m.WasColdStart != nil && *m.WasColdStart {
			coldSum += float64(m.LatencyMs)
			coldCount++
		} else {
			warmSum += float64(m.LatencyMs)
			warmCount++
		}
		if m.CacheHit != nil && *m.CacheHit {
			hitSum += float64(m.LatencyMs)
			hitCount++
		} else {
			missSum += float64(m.LatencyMs)
			missCount++
		}
		totalCostWin += m.EstimatedCostUsd
		report.CostByRoute[m.RouteType] += m.EstimatedCostUsd
	}

	if len(rows) > 0 {
		report.ErrorRate = float64(errorCount) / float64(len(rows))
		report.AvgLatencyMs = latencySum / float64(len(rows))
		report.MemoryHitRate = float64(memoryHits) / float64(len(rows))
	}
	if simCount > 0 {
		report.AvgSimilarity = simSum / float64(simCount)
	}
	if coldCount > 0 {
		report.ColdStartAvgLatencyMs = coldSum / float64(coldCount)
	}
	if warmCount > 0 {
		report.WarmAvgLatencyMs = warmSum / float64(warmCount)
	}
	if hitCount > 0 {
		report.CacheHitAvgLatencyMs = hitSum / float64(hitCount)
	}
	if missCount > 0 {
		report.CacheMissAvgLatencyMs = missSum / float64(missCount)
	}
	report.TotalCostUsd = round2(totalCostWin)
	for route, cost := range report.CostByRoute {
		report.CostByRoute[route] = round2(cost)
	}

	report.BudgetStatus = a.budgetStatus(cost30d)
	if a.monthlyBudgetUsd > 0 {
		report.BudgetUsedFrac = cost30d / a.monthlyBudgetUsd
	}
	report.Health = healthStatus(report.ErrorRate, report.AvgLatencyMs, report.BudgetStatus)

	return report, nil
}

// budgetStatus classifies rolling 30-day spend against the monthly budget.
func (a *Aggregator) budgetStatus(cost30d float64) models.BudgetStatus {
	if a.monthlyBudgetUsd <= 0 {
		return models.BudgetNotSet
	}
	switch {
	case cost30d >= a.monthlyBudgetUsd:
		return models.BudgetLimitExceeded
	case cost30d >= a.monthlyBudgetUsd*a.alertThresholdP/100:
		return models.BudgetWarning
	default:
		return models.BudgetOK
	}
}

// healthStatus classifies overall project health from error rate, latency and
// budget standing.
func healthStatus(errorRate, avgLatencyMs float64, budget models.BudgetStatus) models.HealthStatus {
	if errorRate > errorRateCritical || budget == models.BudgetLimitExceeded {
		return models.HealthCritical
	}
	if errorRate >= errorRateWarning || budget == models.BudgetWarning || avgLatencyMs > latencyWarningMs {
		return models.HealthWarning
	}
	return models.HealthHealthy
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
