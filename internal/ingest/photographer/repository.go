package photographer

import (
	"context"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	db "github.com/lueurxax/telegram-repeater-bot/internal/storage"
)

// Repository defines the storage operations required by the Photographer.
type Repository interface {
	HasPicture(ctx context.Context, imageID string) (bool, error)
	SavePicture(ctx context.Context, p domain.Picture) (bool, error)
}

// URLResolver turns a Telegram file id into a download URL.
type URLResolver interface {
	FileURL(ctx context.Context, fileID string) (string, error)
}

// Compile-time assertion that *db.DB implements Repository.
var _ Repository = (*db.DB)(nil)
