package retrieval

import "github.com/pkg/errors"

var (
	// ErrEmptyQuery reports an empty or whitespace-only query. It short-
	// circuits before any collaborator call and is distinct from a search
	// that found nothing.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrAllSearchesFailed reports that every sub-call of a fan-out failed.
	// Individual sub-call failures degrade to zero results; only total
	// failure surfaces.
	ErrAllSearchesFailed = errors.New("all search calls failed")
)
