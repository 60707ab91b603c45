package store

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// New creates a postgres-backed store when a database URL is configured,
// otherwise file-backed records under the data directory.
func New(ctx context.Context, databaseURL, dataDir string, logger *zap.Logger) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileStore(dataDir, logger)
	}
	return NewPostgresStore(ctx, databaseURL, logger)
}
