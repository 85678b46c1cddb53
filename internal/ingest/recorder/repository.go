package recorder

import (
	"context"

	db "github.com/lueurxax/telegram-repeater-bot/internal/storage"
)

// Repository defines the storage operations required by the Recorder.
type Repository interface {
	SaveRawMessage(ctx context.Context, msg *db.RawMessage) error
}

// Compile-time assertion that *db.DB implements Repository.
var _ Repository = (*db.DB)(nil)
