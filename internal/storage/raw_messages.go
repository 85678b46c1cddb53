package db

import (
	"context"
	"fmt"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
)

// RawMessage is an alias for the domain type.
type RawMessage = domain.RawMessage

// SaveRawMessage appends msg to the message log.
func (db *DB) SaveRawMessage(ctx context.Context, msg *RawMessage) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO raw_messages (id, chat_kind, chat_id, sender_id, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, toUUID(msg.ID), string(msg.ChatKind), msg.ChatID, toInt8(msg.SenderID), msg.Payload, toTimestamptz(msg.ReceivedAt)); err != nil {
		return fmt.Errorf("save raw message: %w", err)
	}

	return nil
}
