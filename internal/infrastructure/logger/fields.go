package logger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Field constructors for the identifiers that recur across log lines.

func OrderID(id uuid.UUID) zap.Field { return zap.String("order_id", id.String()) }

func SKU(sku string) zap.Field { return zap.String("sku", sku) }

func ImportKind(kind string) zap.Field { return zap.String("import_kind", kind) }

func Status(status string) zap.Field { return zap.String("order_status", status) }
