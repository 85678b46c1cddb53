// Package fingerprint normalizes message chains and derives content fingerprints.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-repeater-bot/internal/core/errors"
)

// ShortLen is the fingerprint prefix length used in logs.
const ShortLen = 7

// canonicalItem is the stable projection of domain.Item that gets hashed.
// Field order is fixed by declaration; transient and transport fields are absent.
type canonicalItem struct {
	Type     domain.ItemType `json:"type"`
	ID       int64           `json:"id"`
	Time     int64           `json:"time"`
	Text     string          `json:"text"`
	UniqueID string          `json:"uniqueId"`
	Emoji    string          `json:"emoji"`
	Name     string          `json:"name"`
	Value    int             `json:"value"`
}

// Normalize drops the leading framing item of chain and clears transient fields.
// The input is not modified.
func Normalize(chain domain.Content) domain.Content {
	if len(chain) <= 1 {
		return domain.Content{}
	}

	out := chain[1:].Clone()
	for i := range out {
		out[i].URL = nil
		out[i].Base64 = ""
	}

	return out
}

// Of returns the hex SHA-256 fingerprint of normalized content.
// An unknown item type yields ErrUnsupportedItem.
func Of(content domain.Content) (string, error) {
	items := make([]canonicalItem, len(content))

	for i, item := range content {
		if !item.Type.Known() {
			return "", fmt.Errorf("%w: %q at index %d", apperrors.ErrUnsupportedItem, item.Type, i)
		}

		items[i] = canonicalItem{
			Type:     item.Type,
			ID:       item.ID,
			Time:     item.Time,
			Text:     item.Text,
			UniqueID: item.UniqueID,
			Emoji:    item.Emoji,
			Name:     item.Name,
			Value:    item.Value,
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal canonical content: %w", err)
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}

// Short returns the log prefix of a fingerprint.
func Short(fp string) string {
	if len(fp) <= ShortLen {
		return fp
	}

	return fp[:ShortLen]
}

// Summary renders content as a single human-readable line.
func Summary(content domain.Content) string {
	var b strings.Builder

	for _, item := range content {
		b.WriteString(summarizeItem(item))
	}

	return b.String()
}

func summarizeItem(item domain.Item) string {
	switch item.Type {
	case domain.ItemPlain:
		return item.Text
	case domain.ItemQuote:
		return "[Quote]"
	case domain.ItemImage:
		return "[Image: " + item.UniqueID + "]"
	case domain.ItemSticker:
		return "[Sticker: " + item.Emoji + "]"
	case domain.ItemAnimation:
		return "[Animation]"
	case domain.ItemVoice:
		return "[Voice]"
	case domain.ItemVideo:
		return "[Video]"
	case domain.ItemFile:
		return "[File: " + item.Name + "]"
	case domain.ItemDice:
		return "[Dice: " + item.Emoji + " " + strconv.Itoa(item.Value) + "]"
	default:
		return ""
	}
}
