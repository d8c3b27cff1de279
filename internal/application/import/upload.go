package importapp

import (
	"context"

	"github.com/dbcb2b/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Upload kinds, used as archive prefixes
const (
	KindCatalog = "catalog"
	KindOrders  = "orders"
	KindUnits   = "units"
)

// Upload is a spreadsheet received from a caller
type Upload struct {
	Filename string
	Data     []byte
}

// Archiver keeps a copy of every uploaded spreadsheet
type Archiver interface {
	Archive(ctx context.Context, kind, filename string, data []byte) (string, error)
}

// CacheInvalidator drops cached catalog entries after writes
type CacheInvalidator interface {
	Invalidate(ctx context.Context, skus ...string)
	InvalidateAll(ctx context.Context)
}

// ArchiveUpload stores the upload when an archiver is configured. Failures are
// logged and never fail the import.
func ArchiveUpload(ctx context.Context, a Archiver, kind string, up Upload) string {
	if a == nil {
		return ""
	}
	key, err := a.Archive(ctx, kind, up.Filename, up.Data)
	if err != nil {
		logger.L(ctx).Warn("failed to archive upload",
			logger.ImportKind(kind),
			zap.String("filename", up.Filename),
			zap.Error(err),
		)
		return ""
	}
	return key
}
