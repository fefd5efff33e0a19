package models

// BudgetStatus describes rolling 30-day spend relative to the configured monthly budget.
type BudgetStatus string

const (
	BudgetNotSet        BudgetStatus = "not_set"
	BudgetOK            BudgetStatus = "ok"
	BudgetWarning       BudgetStatus = "warning"
	BudgetLimitExceeded BudgetStatus = "limit_exceeded"
)

// HealthStatus is the overall project health classification.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// ErrorSample is one recent failed request, message already truncated.
type ErrorSample struct {
	RouteType RouteType `json:"route_type"`
	Message   string    `json:"message"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt string    `json:"created_at"`
}

// Report aggregates query metrics for one project over a window.
type Report struct {
	ProjectID  string `json:"project_id"`
	WindowDays int    `json:"window_days"`

	TotalRequests int     `json:"total_requests"`
	ErrorRate     float64 `json:"error_rate"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`

	// Memory reuse
	MemoryHitRate float64 `json:"memory_hit_rate"`
	AvgSimilarity float64 `json:"avg_similarity"`

	// Cost
	TotalCostUsd   float64               `json:"total_cost_usd"`
	CostByRoute    map[RouteType]float64 `json:"cost_by_route"`
	Cost30DaysUsd  float64               `json:"cost_30_days_usd"`
	MonthlyBudget  float64               `json:"monthly_budget_usd"`
	BudgetStatus   BudgetStatus          `json:"budget_status"`
	BudgetUsedFrac float64               `json:"budget_used_fraction"`

	// Latency splits
	ColdStartAvgLatencyMs float64 `json:"cold_start_avg_latency_ms"`
	WarmAvgLatencyMs      float64 `json:"warm_avg_latency_ms"`
	CacheHitAvgLatencyMs  float64 `json:"cache_hit_avg_latency_ms"`
	CacheMissAvgLatencyMs float64 `json:"cache_miss_avg_latency_ms"`

	RecentErrors []ErrorSample `json:"recent_errors"`

	Health HealthStatus `json:"health"`
}
