package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// CodeEmbedding represents one embedded source file chunk, scoped to a project.
// The vector dimension is fixed per deployment and must match the HNSW index
// dimension passed to db.InitSchema.
type CodeEmbedding struct {
	ID         surrealmodels.RecordID `json:"id"`
	ProjectID  string                 `json:"project_id"`
	FileName   string                 `json:"file_name"`
	SourceCode string                 `json:"source_code"`
	Summary    string                 `json:"summary"`
	Embedding  []float32              `json:"embedding"`
	CreatedAt  time.Time              `json:"created_at"`
}

// CodeEmbeddingInput is the input structure for writing embeddings during indexing.
type CodeEmbeddingInput struct {
	ProjectID  string    `json:"project_id"`
	FileName   string    `json:"file_name"`
	SourceCode string    `json:"source_code"`
	Summary    string    `json:"summary"`
	Embedding  []float32 `json:"embedding"`
}

// RetrievedChunk is a search hit with its cosine similarity, normalized to [0,1].
type RetrievedChunk struct {
	FileName   string  `json:"file_name"`
	SourceCode string  `json:"source_code"`
	Summary    string  `json:"summary"`
	Similarity float64 `json:"similarity"`
}
