package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-repeater-bot/internal/core/errors"
)

// HasPicture reports whether a payload is stored for imageID.
func (db *DB) HasPicture(ctx context.Context, imageID string) (bool, error) {
	var exists bool

	if err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pictures WHERE image_id = $1)
	`, imageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check picture: %w", err)
	}

	return exists, nil
}

// SavePicture stores p unless a picture with the same id exists.
// It reports whether a row was written.
func (db *DB) SavePicture(ctx context.Context, p domain.Picture) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO pictures (image_id, base64, url, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (image_id) DO NOTHING
	`, p.ImageID, p.Base64, toText(p.URL), toText(p.MimeType), p.SizeBytes)
	if err != nil {
		return false, fmt.Errorf("save picture: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// FetchImage returns the stored base64 payload of imageID or ErrImageNotFound.
func (db *DB) FetchImage(ctx context.Context, imageID string) (string, error) {
	var payload string

	err := db.Pool.QueryRow(ctx, `
		SELECT base64 FROM pictures WHERE image_id = $1
	`, imageID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("picture %s: %w", imageID, apperrors.ErrImageNotFound)
	}

	if err != nil {
		return "", fmt.Errorf("fetch picture: %w", err)
	}

	return payload, nil
}
