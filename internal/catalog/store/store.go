// Package store loads the media catalog from its backing datastore. The
// search engine only ever reads the catalog; writes happen elsewhere and are
// announced on the catalog update topic.
package store

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
)

// Loader returns the complete current catalog.
type Loader interface {
	Load(ctx context.Context) ([]catalog.Record, error)
}
