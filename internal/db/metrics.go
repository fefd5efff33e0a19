package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/codescout-ai/codescout/internal/models"
)

// InsertMetric appends one immutable query metric row.
func (c *Client) InsertMetric(ctx context.Context, m models.QueryMetricInput) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE query_metric CONTENT $metric
	`, map[string]any{"metric": m})
	if err != nil {
		return fmt.Errorf("insert metric: %w", wrapQueryError(err))
	}
	return nil
}

// MetricsSince returns a project's metric rows created at or after since,
// newest first.
func (c *Client) MetricsSince(ctx context.Context, projectID string, since time.Time) ([]models.QueryMetric, error) {
	results, err := surrealdb.Query[[]models.QueryMetric](ctx, c.db, `
		SELECT * FROM query_metric
		WHERE project_id = $project AND created_at >= $since
		ORDER BY created_at DESC
	`, map[string]any{
		"project": projectID,
		"since":   since,
	})
	if err != nil {
		return nil, fmt.Errorf("metrics since: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.QueryMetric{}, nil
	}
	return (*results)[0].Result, nil
}
