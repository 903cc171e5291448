package catalog

import (
	"context"

	"github.com/arefiev/storefront/internal/logging"
)

func logIndexError(ctx context.Context, err error) {
	logging.FromContext(ctx).Error("search index update failed", "error", err)
}
