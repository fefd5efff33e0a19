package indexer

import "strings"

// ChunkConfig defines source chunking parameters.
type ChunkConfig struct {
	// Threshold: only chunk files longer than this
	Threshold int
	// TargetSize: ideal chunk size; a cut is preferred at the next blank line
	TargetSize int
	// MaxSize: hard cap per chunk (a single oversized line may still exceed it)
	MaxSize int
	// Overlap: trailing bytes carried into the next chunk for context
	Overlap int
}

// DefaultChunkConfig returns sensible defaults for source files.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Threshold:  4000,
		TargetSize: 2000,
		MaxSize:    3000,
		Overlap:    200,
	}
}

// SplitSource splits file content into bounded chunks at line boundaries,
// preferring blank lines (declaration gaps) once a chunk reaches its target
// size. Short files come back as a single chunk.
func SplitSource(content string, cfg ChunkConfig) []string {
	if cfg.Threshold <= 0 {
		cfg = DefaultChunkConfig()
	}
	if len(content) <= cfg.Threshold {
		return []string{content}
	}

	lines := strings.SplitAfter(content, "\n")
	var (
		chunks     []string
		cur        strings.Builder
		overlap    []string
		overlapLen int
		fresh      bool
	)

	cut := func() {
		chunks = append(chunks, cur.String())
		cur.Reset()
		fresh = false
		for _, l := range overlap {
			cur.WriteString(l)
		}
	}

	for _, line := range lines {
		if cur.Len() > 0 && cur.Len()+len(line) > cfg.MaxSize && fresh {
			cut()
		}
		cur.WriteString(line)
		fresh = true

		overlap = append(overlap, line)
		overlapLen += len(line)
		for overlapLen > cfg.Overlap && len(overlap) > 1 {
			overlapLen -= len(overlap[0])
			overlap = overlap[1:]
		}

		if cur.Len() >= cfg.TargetSize && strings.TrimSpace(line) == "" {
			cut()
		}
	}
	if fresh {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
