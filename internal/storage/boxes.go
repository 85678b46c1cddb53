package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
)

// LoadBoxes returns the promoted fingerprints of every scope in scopes that has a box.
// A box with no entries maps to an empty slice.
func (db *DB) LoadBoxes(ctx context.Context, scopes []int64) (map[int64][]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT b.scope_id, e.fingerprint
		FROM repeater_boxes b
		LEFT JOIN repeater_box_entries e ON e.scope_id = b.scope_id
		WHERE b.scope_id = ANY($1)
		ORDER BY b.scope_id, e.created_at
	`, scopes)
	if err != nil {
		return nil, fmt.Errorf("query boxes: %w", err)
	}
	defer rows.Close()

	boxes := make(map[int64][]string, len(scopes))

	for rows.Next() {
		var (
			scope int64
			fp    *string
		)

		if err := rows.Scan(&scope, &fp); err != nil {
			return nil, fmt.Errorf("scan box row: %w", err)
		}

		if _, ok := boxes[scope]; !ok {
			boxes[scope] = []string{}
		}

		if fp != nil {
			boxes[scope] = append(boxes[scope], *fp)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate box rows: %w", err)
	}

	return boxes, nil
}

// CreateBox creates an empty box for scope if it does not exist.
func (db *DB) CreateBox(ctx context.Context, scope int64) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO repeater_boxes (scope_id) VALUES ($1)
		ON CONFLICT (scope_id) DO NOTHING
	`, scope); err != nil {
		return fmt.Errorf("create box: %w", err)
	}

	return nil
}

// AddToBox adds fp to the box of scope and stores content under fp, both only
// if absent. It reports whether the box entry was new.
func (db *DB) AddToBox(ctx context.Context, scope int64, fp string, content domain.Content) (bool, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return false, fmt.Errorf("marshal repeat content: %w", err)
	}

	var inserted bool

	err = pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO repeater_boxes (scope_id) VALUES ($1)
			ON CONFLICT (scope_id) DO NOTHING
		`, scope); err != nil {
			return fmt.Errorf("ensure box: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO repeater_box_entries (scope_id, fingerprint) VALUES ($1, $2)
			ON CONFLICT (scope_id, fingerprint) DO NOTHING
		`, scope, fp)
		if err != nil {
			return fmt.Errorf("insert box entry: %w", err)
		}

		inserted = tag.RowsAffected() == 1

		if _, err := tx.Exec(ctx, `
			INSERT INTO repeater_messages (fingerprint, content) VALUES ($1, $2)
			ON CONFLICT (fingerprint) DO NOTHING
		`, fp, payload); err != nil {
			return fmt.Errorf("insert repeat message: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("add to box: %w", err)
	}

	return inserted, nil
}
