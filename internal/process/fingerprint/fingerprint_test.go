package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-repeater-bot/internal/core/errors"
)

func strPtr(s string) *string {
	return &s
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func chain(items ...domain.Item) domain.Content {
	return append(domain.Content{{Type: domain.ItemSource, ID: 42, Time: 1700000000}}, items...)
}

func TestNormalize(t *testing.T) {
	in := chain(
		domain.Item{Type: domain.ItemPlain, Text: "hello"},
		domain.Item{Type: domain.ItemImage, UniqueID: "img-1", FileID: "file-1", URL: strPtr("https://x/1"), Base64: "AAAA"},
	)

	out := Normalize(in)

	require.Len(t, out, 2)
	assert.Equal(t, domain.ItemPlain, out[0].Type)
	assert.Nil(t, out[1].URL)
	assert.Empty(t, out[1].Base64)
	assert.Equal(t, "file-1", out[1].FileID)

	// input untouched
	require.NotNil(t, in[2].URL)
	assert.Equal(t, "https://x/1", *in[2].URL)
	assert.Equal(t, "AAAA", in[2].Base64)
}

func TestNormalize_Degenerate(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize(domain.Content{{Type: domain.ItemSource, ID: 1}}))
}

func TestOf_Deterministic(t *testing.T) {
	content := Normalize(chain(domain.Item{Type: domain.ItemPlain, Text: "hello"}))

	first, err := Of(content)
	require.NoError(t, err)

	for range 10 {
		again, err := Of(content)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.Len(t, first, 64)
}

func TestOf_StableAcrossProcesses(t *testing.T) {
	content := domain.Content{{Type: domain.ItemPlain, Text: "hello"}}

	fp, err := Of(content)
	require.NoError(t, err)

	// sha256 of the canonical serialization, pinned so format changes are noticed
	assert.Equal(t, sha256Hex(`[{"type":"Plain","id":0,"time":0,"text":"hello","uniqueId":"","emoji":"","name":"","value":0}]`), fp)
}

func TestOf_IgnoresLeadingItemAndVolatileFields(t *testing.T) {
	a := Normalize(domain.Content{
		{Type: domain.ItemSource, ID: 1, Time: 100},
		{Type: domain.ItemImage, UniqueID: "img-1", FileID: "file-a", URL: strPtr("https://cdn/a?token=1")},
	})
	b := Normalize(domain.Content{
		{Type: domain.ItemSource, ID: 2, Time: 200},
		{Type: domain.ItemImage, UniqueID: "img-1", FileID: "file-b", URL: strPtr("https://cdn/a?token=2")},
	})

	fa, err := Of(a)
	require.NoError(t, err)

	fb, err := Of(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
}

func TestOf_DifferentContent(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.Content
	}{
		{
			name: "different text",
			a:    domain.Content{{Type: domain.ItemPlain, Text: "hello"}},
			b:    domain.Content{{Type: domain.ItemPlain, Text: "hello!"}},
		},
		{
			name: "different image",
			a:    domain.Content{{Type: domain.ItemImage, UniqueID: "img-1"}},
			b:    domain.Content{{Type: domain.ItemImage, UniqueID: "img-2"}},
		},
		{
			name: "order matters",
			a:    domain.Content{{Type: domain.ItemPlain, Text: "a"}, {Type: domain.ItemPlain, Text: "b"}},
			b:    domain.Content{{Type: domain.ItemPlain, Text: "b"}, {Type: domain.ItemPlain, Text: "a"}},
		},
		{
			name: "type matters",
			a:    domain.Content{{Type: domain.ItemSticker, UniqueID: "x"}},
			b:    domain.Content{{Type: domain.ItemAnimation, UniqueID: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa, err := Of(tt.a)
			require.NoError(t, err)

			fb, err := Of(tt.b)
			require.NoError(t, err)

			assert.NotEqual(t, fa, fb)
		})
	}
}

func TestOf_UnsupportedItem(t *testing.T) {
	_, err := Of(domain.Content{{Type: "Poll"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedItem)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcdef1", Short("abcdef1234"))
	assert.Equal(t, "abc", Short("abc"))
}

func TestSummary(t *testing.T) {
	content := domain.Content{
		{Type: domain.ItemQuote, ID: 7},
		{Type: domain.ItemPlain, Text: "look "},
		{Type: domain.ItemImage, UniqueID: "img-1"},
		{Type: domain.ItemSticker, Emoji: "😀"},
		{Type: domain.ItemFile, Name: "a.pdf"},
		{Type: domain.ItemDice, Emoji: "🎲", Value: 6},
	}

	assert.Equal(t, "[Quote]look [Image: img-1][Sticker: 😀][File: a.pdf][Dice: 🎲 6]", Summary(content))
}
