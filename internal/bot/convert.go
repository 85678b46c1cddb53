package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
)

// Convert turns a Bot API message into a chat event. The first item is always
// the Source item carrying the message id and date.
func Convert(msg *tgbotapi.Message) domain.Message {
	out := domain.Message{
		Kind:      chatKind(msg.Chat),
		Timestamp: msg.Time(),
	}

	if msg.Chat != nil {
		out.Scope = msg.Chat.ID
		out.ScopeTitle = msg.Chat.Title
	}

	if msg.From != nil {
		out.Sender = msg.From.ID
		out.SenderName = senderName(msg.From)
	}

	out.Text = msg.Text
	if out.Text == "" {
		out.Text = msg.Caption
	}

	out.Items = convertItems(msg, out.Text)

	return out
}

func chatKind(chat *tgbotapi.Chat) domain.ChatKind {
	switch {
	case chat == nil:
		return domain.ChatOther
	case chat.IsGroup() || chat.IsSuperGroup():
		return domain.ChatGroup
	case chat.IsPrivate():
		return domain.ChatPrivate
	default:
		return domain.ChatOther
	}
}

func senderName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}

	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func convertItems(msg *tgbotapi.Message, text string) domain.Content {
	items := domain.Content{{
		Type: domain.ItemSource,
		ID:   int64(msg.MessageID),
		Time: int64(msg.Date),
	}}

	if msg.ReplyToMessage != nil {
		items = append(items, domain.Item{Type: domain.ItemQuote, ID: int64(msg.ReplyToMessage.MessageID)})
	}

	if text != "" {
		items = append(items, domain.Item{Type: domain.ItemPlain, Text: text})
	}

	if photo := largestPhoto(msg.Photo); photo != nil {
		items = append(items, domain.Item{
			Type:     domain.ItemImage,
			UniqueID: photo.FileUniqueID,
			FileID:   photo.FileID,
		})
	}

	return append(items, mediaItems(msg)...)
}

func mediaItems(msg *tgbotapi.Message) domain.Content {
	var items domain.Content

	if s := msg.Sticker; s != nil {
		items = append(items, domain.Item{Type: domain.ItemSticker, UniqueID: s.FileUniqueID, FileID: s.FileID, Emoji: s.Emoji})
	}

	// an animation also arrives as a document
	if a := msg.Animation; a != nil {
		items = append(items, domain.Item{Type: domain.ItemAnimation, UniqueID: a.FileUniqueID, FileID: a.FileID})
	} else if d := msg.Document; d != nil {
		items = append(items, domain.Item{Type: domain.ItemFile, UniqueID: d.FileUniqueID, FileID: d.FileID, Name: d.FileName})
	}

	if v := msg.Voice; v != nil {
		items = append(items, domain.Item{Type: domain.ItemVoice, UniqueID: v.FileUniqueID, FileID: v.FileID})
	}

	if v := msg.Video; v != nil {
		items = append(items, domain.Item{Type: domain.ItemVideo, UniqueID: v.FileUniqueID, FileID: v.FileID})
	}

	if d := msg.Dice; d != nil {
		items = append(items, domain.Item{Type: domain.ItemDice, Emoji: d.Emoji, Value: d.Value})
	}

	return items
}

// largestPhoto picks the biggest size Telegram offers for a photo.
func largestPhoto(sizes []tgbotapi.PhotoSize) *tgbotapi.PhotoSize {
	var best *tgbotapi.PhotoSize

	for i := range sizes {
		s := &sizes[i]
		if best == nil || s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}

	return best
}
