package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RouteType classifies which request path produced a metric.
type RouteType string

const (
	RouteQuery        RouteType = "query"
	RouteDiff         RouteType = "diff"
	RouteArchitecture RouteType = "architecture"
)

// QueryMetric is one immutable telemetry row, written once per request
// attempt (success or failure) and never mutated afterwards.
type QueryMetric struct {
	ID                  surrealmodels.RecordID `json:"id"`
	ProjectID           string                 `json:"project_id"`
	RouteType           RouteType              `json:"route_type"`
	ModelUsed           string                 `json:"model_used"`
	PromptTokens        int                    `json:"prompt_tokens"`
	CompletionTokens    int                    `json:"completion_tokens"`
	TotalTokens         int                    `json:"total_tokens"`
	RetrievalCount      int                    `json:"retrieval_count"`
	MemoryHitCount      int                    `json:"memory_hit_count"`
	LatencyMs           int64                  `json:"latency_ms"`
	EstimatedCostUsd    float64                `json:"estimated_cost_usd"`
	Success             bool                   `json:"success"`
	ErrorMessage        *string                `json:"error_message,omitempty"`
	CacheHit            *bool                  `json:"cache_hit,omitempty"`
	WasColdStart        *bool                  `json:"was_cold_start,omitempty"`
	AvgMemorySimilarity *float64               `json:"avg_memory_similarity,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}

// QueryMetricInput is the write-side shape of a metric row.
type QueryMetricInput struct {
	ProjectID           string    `json:"project_id"`
	RouteType           RouteType `json:"route_type"`
	ModelUsed           string    `json:"model_used"`
	PromptTokens        int       `json:"prompt_tokens"`
	CompletionTokens    int       `json:"completion_tokens"`
	TotalTokens         int       `json:"total_tokens"`
	RetrievalCount      int       `json:"retrieval_count"`
	MemoryHitCount      int       `json:"memory_hit_count"`
	LatencyMs           int64     `json:"latency_ms"`
	EstimatedCostUsd    float64   `json:"estimated_cost_usd"`
	Success             bool      `json:"success"`
	ErrorMessage        *string   `json:"error_message,omitempty"`
	CacheHit            *bool     `json:"cache_hit,omitempty"`
	WasColdStart        *bool     `json:"was_cold_start,omitempty"`
	AvgMemorySimilarity *float64  `json:"avg_memory_similarity,omitempty"`
}
