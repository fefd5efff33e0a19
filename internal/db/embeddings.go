package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/codescout-ai/codescout/internal/models"
)

// ReplaceProjectEmbeddings replaces all embeddings for a project in one
// transaction. Indexing is full-restart, so every successful run rewrites the
// project's rows wholesale; a reader never observes a half-replaced project.
func (c *Client) ReplaceProjectEmbeddings(ctx context.Context, projectID string, rows []models.CodeEmbeddingInput) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		BEGIN TRANSACTION;
		DELETE code_embedding WHERE project_id = $project;
		INSERT INTO code_embedding $rows;
		COMMIT TRANSACTION;
	`, map[string]any{
		"project": projectID,
		"rows":    rows,
	})
	if err != nil {
		return fmt.Errorf("replace embeddings: %w", wrapQueryError(err))
	}
	return nil
}

// InsertEmbeddings appends embedding rows without touching existing ones.
func (c *Client) InsertEmbeddings(ctx context.Context, rows []models.CodeEmbeddingInput) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := surrealdb.Query[any](ctx, c.db, `INSERT INTO code_embedding $rows`, map[string]any{
		"rows": rows,
	})
	if err != nil {
		return fmt.Errorf("insert embeddings: %w", wrapQueryError(err))
	}
	return nil
}

// SearchEmbeddings returns the top-k most similar chunks for a project,
// sorted by descending cosine similarity. Similarity is clamped to [0,1].
func (c *Client) SearchEmbeddings(ctx context.Context, projectID string, embedding []float32, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		return []models.RetrievedChunk{}, nil
	}

	// KNN operator bounds need literals; ef=40 for better recall.
	sql := fmt.Sprintf(`
		SELECT file_name, source_code, summary,
			vector::similarity::cosine(embedding, $emb) AS similarity
		FROM code_embedding
		WHERE project_id = $project AND embedding <|%d,40|> $emb
		ORDER BY similarity DESC
		LIMIT %d
	`, k, k)

	results, err := surrealdb.Query[[]models.RetrievedChunk](ctx, c.db, sql, map[string]any{
		"project": projectID,
		"emb":     embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.RetrievedChunk{}, nil
	}

	chunks := (*results)[0].Result
	for i := range chunks {
		if chunks[i].Similarity < 0 {
			chunks[i].Similarity = 0
		} else if chunks[i].Similarity > 1 {
			chunks[i].Similarity = 1
		}
	}
	return chunks, nil
}

// CountEmbeddings returns the number of embedding rows for a project.
func (c *Client) CountEmbeddings(ctx context.Context, projectID string) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, `
		SELECT count() AS count FROM code_embedding WHERE project_id = $project GROUP ALL
	`, map[string]any{"project": projectID})
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}
