package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/codescout-ai/codescout/internal/llm"
	"github.com/codescout-ai/codescout/internal/models"
)

// maxFileBytes bounds how much of a single file is read for indexing.
const maxFileBytes = 256 * 1024

// codeExtensions lists the file types worth embedding.
var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".java": true, ".rb": true, ".rs": true, ".c": true, ".h": true,
	".cpp": true, ".cs": true, ".sql": true, ".sh": true, ".md": true,
	".yaml": true, ".yml": true, ".toml": true,
}

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true, "build": true,
}

// EmbeddingStore writes a project's embedding rows.
type EmbeddingStore interface {
	ReplaceProjectEmbeddings(ctx context.Context, projectID string, rows []models.CodeEmbeddingInput) error
}

// Local indexes a repository checked out on the local filesystem. repoRef is
// the checkout path. A successful run replaces the project's embeddings
// wholesale; a failed run leaves the previous rows untouched.
type Local struct {
	store    EmbeddingStore
	embedder llm.Embedder
	logger   *slog.Logger
	chunking ChunkConfig
}

// NewLocal creates a filesystem-based indexer.
func NewLocal(store EmbeddingStore, embedder llm.Embedder, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{store: store, embedder: embedder, logger: logger, chunking: DefaultChunkConfig()}
}

// IndexFull walks the checkout, embeds each code file and replaces the
// project's rows in one transaction. Progress covers the embedding phase.
func (l *Local) IndexFull(ctx context.Context, projectID, repoRef, _ string, onProgress ProgressFunc) error {
	if onProgress == nil {
		onProgress = func(int) {}
	}

	files, err := collectFiles(repoRef)
	if err != nil {
		return fmt.Errorf("scan repository: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no indexable files under %s", repoRef)
	}
	l.logger.Info("indexing repository", "project_id", projectID, "path", repoRef, "files", len(files))
	onProgress(0)

	rows := make([]models.CodeEmbeddingInput, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := readBounded(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(repoRef, path)
		if err != nil {
			rel = path
		}

		for n, chunk := range SplitSource(content, l.chunking) {
			name := rel
			if n > 0 {
				name = fmt.Sprintf("%s#%d", rel, n+1)
			}
			vector, err := l.embedder.Embed(ctx, chunk)
			if err != nil {
				return fmt.Errorf("embed %s: %w", name, err)
			}
			rows = append(rows, models.CodeEmbeddingInput{
				ProjectID:  projectID,
				FileName:   name,
				SourceCode: chunk,
				Summary:    summarize(rel, chunk),
				Embedding:  vector,
			})
		}
		onProgress((i + 1) * 95 / len(files))
	}

	if err := l.store.ReplaceProjectEmbeddings(ctx, projectID, rows); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	onProgress(100)
	return nil
}

func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if codeExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func readBounded(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) > maxFileBytes {
		data = data[:maxFileBytes]
	}
	return string(data), nil
}

// summarize produces a short description: the file name plus its first
// non-empty line. Good enough for source attribution in answers.
func summarize(name, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 120 {
				line = line[:120]
			}
			return fmt.Sprintf("%s: %s", name, line)
		}
	}
	return name
}
