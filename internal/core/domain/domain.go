package domain

import (
	"slices"
	"time"
)

// ItemType tags one segment of a message chain.
type ItemType string

// Content item types.
const (
	ItemSource    ItemType = "Source"
	ItemQuote     ItemType = "Quote"
	ItemPlain     ItemType = "Plain"
	ItemImage     ItemType = "Image"
	ItemSticker   ItemType = "Sticker"
	ItemAnimation ItemType = "Animation"
	ItemVoice     ItemType = "Voice"
	ItemVideo     ItemType = "Video"
	ItemFile      ItemType = "File"
	ItemDice      ItemType = "Dice"
)

// KnownItemTypes lists every item type the repeater can fingerprint and resend.
var KnownItemTypes = []ItemType{
	ItemSource, ItemQuote, ItemPlain, ItemImage, ItemSticker,
	ItemAnimation, ItemVoice, ItemVideo, ItemFile, ItemDice,
}

// Known reports whether t is one of KnownItemTypes.
func (t ItemType) Known() bool {
	return slices.Contains(KnownItemTypes, t)
}

// Item is one segment of a message. Only the fields relevant to Type are set.
//
// URL and Base64 are transient: URL is a short-lived download link and Base64 is
// filled in right before a resend. FileID is a transport handle that Telegram may
// change between deliveries of the same file; UniqueID identifies the file itself.
type Item struct {
	Type     ItemType `json:"type"`
	ID       int64    `json:"id,omitempty"`
	Time     int64    `json:"time,omitempty"`
	Text     string   `json:"text,omitempty"`
	UniqueID string   `json:"uniqueId,omitempty"`
	FileID   string   `json:"fileId,omitempty"`
	Emoji    string   `json:"emoji,omitempty"`
	Name     string   `json:"name,omitempty"`
	Value    int      `json:"value,omitempty"`
	URL      *string  `json:"url"`
	Base64   string   `json:"base64,omitempty"`
}

// Content is an ordered message chain.
type Content []Item

// Clone returns a deep copy of c.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}

	out := make(Content, len(c))
	for i, item := range c {
		if item.URL != nil {
			u := *item.URL
			item.URL = &u
		}

		out[i] = item
	}

	return out
}

// Images returns the indexes of all Image items in c.
func (c Content) Images() []int {
	var idx []int

	for i, item := range c {
		if item.Type == ItemImage {
			idx = append(idx, i)
		}
	}

	return idx
}

// ChatKind is the kind of chat a message arrived in.
type ChatKind string

// Chat kinds.
const (
	ChatGroup   ChatKind = "group"
	ChatPrivate ChatKind = "private"
	ChatOther   ChatKind = "other"
)

// Message is an incoming chat message event.
type Message struct {
	Kind       ChatKind
	Scope      int64
	ScopeTitle string
	Sender     int64
	SenderName string
	Items      Content
	Text       string
	Timestamp  time.Time
}

// IsGroup reports whether m was posted in a group chat.
func (m Message) IsGroup() bool {
	return m.Kind == ChatGroup
}

// RawMessage is a recorded incoming message.
type RawMessage struct {
	ID         string
	ChatKind   ChatKind
	ChatID     int64
	SenderID   int64
	Payload    []byte
	ReceivedAt time.Time
}

// Picture is a stored image payload keyed by its stable image id.
type Picture struct {
	ImageID   string
	Base64    string
	URL       string
	MimeType  string
	SizeBytes int
}
