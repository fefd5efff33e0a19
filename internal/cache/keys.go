package cache

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// HashKey derives a stable, non-cryptographic cache key from text.
// Collisions are tolerated as an extremely low-probability tradeoff; this is
// not a content-addressing guarantee.
func HashKey(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// QueryKey builds the query-result cache key for a project + question pair.
func QueryKey(projectID, question string) string {
	return projectID + ":" + HashKey(question)
}
