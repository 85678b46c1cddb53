package bot

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-repeater-bot/internal/core/errors"
)

const (
	// maxCaptionLength is the Bot API limit for media captions.
	maxCaptionLength = 1024
	// maxMediaGroupSize is the Bot API limit for photos in one album.
	maxMediaGroupSize = 10
	// maxMessageLength is the Bot API limit for text messages.
	maxMessageLength = 4096
)

// SendGroupMessage renders content as one or more Bot API requests and sends
// them to chatID in order. It stops at the first failed request.
func (b *Bot) SendGroupMessage(ctx context.Context, chatID int64, content domain.Content) error {
	requests, err := buildRequests(chatID, content)
	if err != nil {
		return err
	}

	for i, req := range requests {
		if err := b.sendLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for send slot: %w", err)
		}

		if err := b.sendOne(req); err != nil {
			return fmt.Errorf("send part %d/%d to chat %d: %w", i+1, len(requests), chatID, err)
		}
	}

	return nil
}

func (b *Bot) sendOne(req tgbotapi.Chattable) error {
	if group, ok := req.(tgbotapi.MediaGroupConfig); ok {
		_, err := b.api.SendMediaGroup(group)

		return err //nolint:wrapcheck // wrapped by caller
	}

	_, err := b.api.Send(req)

	return err //nolint:wrapcheck // wrapped by caller
}

// buildRequests maps content onto Bot API requests: text and images first
// (caption on the first image), then stickers, animations, voice, video, files
// and dice by file id. A quote makes the first request a reply.
func buildRequests(chatID int64, content domain.Content) ([]tgbotapi.Chattable, error) {
	var (
		texts   []string
		photos  []tgbotapi.RequestFileData
		others  []tgbotapi.Chattable
		replyTo int
	)

	for _, item := range content {
		switch item.Type {
		case domain.ItemPlain:
			texts = append(texts, item.Text)
		case domain.ItemQuote:
			if replyTo == 0 {
				replyTo = int(item.ID)
			}
		case domain.ItemImage:
			file, err := photoFile(item)
			if err != nil {
				return nil, err
			}

			if file != nil {
				photos = append(photos, file)
			}
		case domain.ItemSticker:
			others = append(others, tgbotapi.NewSticker(chatID, tgbotapi.FileID(item.FileID)))
		case domain.ItemAnimation:
			others = append(others, tgbotapi.NewAnimation(chatID, tgbotapi.FileID(item.FileID)))
		case domain.ItemVoice:
			others = append(others, tgbotapi.NewVoice(chatID, tgbotapi.FileID(item.FileID)))
		case domain.ItemVideo:
			others = append(others, tgbotapi.NewVideo(chatID, tgbotapi.FileID(item.FileID)))
		case domain.ItemFile:
			others = append(others, tgbotapi.NewDocument(chatID, tgbotapi.FileID(item.FileID)))
		case domain.ItemDice:
			others = append(others, tgbotapi.NewDiceWithEmoji(chatID, item.Emoji))
		case domain.ItemSource:
		default:
			return nil, fmt.Errorf("render %q: %w", item.Type, apperrors.ErrUnsupportedItem)
		}
	}

	text := strings.Join(texts, "")

	var requests []tgbotapi.Chattable

	caption := ""
	if utf8.RuneCountInString(text) <= maxCaptionLength {
		caption = text
	}

	if strings.TrimSpace(text) != "" && (len(photos) == 0 || caption == "") {
		for _, part := range splitText(text, maxMessageLength) {
			requests = append(requests, tgbotapi.NewMessage(chatID, part))
		}

		caption = ""
	}

	requests = append(requests, photoRequests(chatID, photos, caption)...)
	requests = append(requests, others...)

	if len(requests) == 0 {
		return nil, apperrors.ErrNothingToSend
	}

	if replyTo != 0 {
		requests[0] = withReply(requests[0], replyTo)
	}

	return requests, nil
}

func photoFile(item domain.Item) (tgbotapi.RequestFileData, error) {
	if item.Base64 == "" {
		if item.FileID == "" {
			return nil, nil
		}

		return tgbotapi.FileID(item.FileID), nil
	}

	data, err := base64.StdEncoding.DecodeString(item.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", item.UniqueID, err)
	}

	return tgbotapi.FileBytes{Name: imageFileName(http.DetectContentType(data)), Bytes: data}, nil
}

func photoRequests(chatID int64, photos []tgbotapi.RequestFileData, caption string) []tgbotapi.Chattable {
	switch len(photos) {
	case 0:
		return nil
	case 1:
		photo := tgbotapi.NewPhoto(chatID, photos[0])
		photo.Caption = caption

		return []tgbotapi.Chattable{photo}
	}

	var requests []tgbotapi.Chattable

	for start := 0; start < len(photos); start += maxMediaGroupSize {
		end := min(start+maxMediaGroupSize, len(photos))
		media := make([]interface{}, 0, end-start)

		for i, p := range photos[start:end] {
			m := tgbotapi.NewInputMediaPhoto(p)
			if start == 0 && i == 0 {
				m.Caption = caption
			}

			media = append(media, m)
		}

		requests = append(requests, tgbotapi.NewMediaGroup(chatID, media))
	}

	return requests
}

func withReply(req tgbotapi.Chattable, replyTo int) tgbotapi.Chattable {
	switch r := req.(type) {
	case tgbotapi.MessageConfig:
		r.ReplyToMessageID = replyTo
		return r
	case tgbotapi.PhotoConfig:
		r.ReplyToMessageID = replyTo
		return r
	case tgbotapi.MediaGroupConfig:
		r.ReplyToMessageID = replyTo
		return r
	case tgbotapi.StickerConfig:
		r.ReplyToMessageID = replyTo
		return r
	case tgbotapi.AnimationConfig:
		r.ReplyToMessageID = replyTo
		return r
	case tgbotapi.VoiceConfig:
		r.ReplyToMessageID = replyTo
		return r
	case tgbotapi.VideoConfig:
		r.ReplyToMessageID = replyTo
		return r
	case tgbotapi.DocumentConfig:
		r.ReplyToMessageID = replyTo
		return r
	case tgbotapi.DiceConfig:
		r.ReplyToMessageID = replyTo
		return r
	default:
		return req
	}
}

// imageFileName returns an upload name matching the detected MIME type.
func imageFileName(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "image.png"
	case "image/webp":
		return "image.webp"
	case "image/gif":
		return "image.gif"
	default:
		return "image.jpg"
	}
}

// splitText cuts text into parts of at most limit runes.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string

	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		parts = append(parts, string(runes[start:end]))
	}

	return parts
}
