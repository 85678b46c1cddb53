package repeater

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/config"
)

func TestScopeFilter_Order(t *testing.T) {
	f, unknown := newScopeFilter([]string{"spam"}, config.GroupRules{
		ExceptSenders: []int64{7},
		ExceptTypes:   []string{"Sticker", "Poll"},
		ExceptWords:   []string{"skip", "  "},
	}, false)

	assert.Equal(t, []string{"Poll"}, unknown)
	assert.Equal(t, []string{"skip"}, f.words, "blank words are ignored")

	sticker := domain.Content{{Type: domain.ItemSource}, {Type: domain.ItemSticker}}

	tests := []struct {
		name     string
		msg      domain.Message
		want     DropReason
		wantDrop bool
	}{
		{name: "clean", msg: domain.Message{Sender: 1, Text: "hi"}},
		{name: "keyword wins over sender", msg: domain.Message{Sender: 7, Text: "spam skip"}, want: DropBlockedKeyword, wantDrop: true},
		{name: "sender wins over type", msg: domain.Message{Sender: 7, Items: sticker}, want: DropExceptSender, wantDrop: true},
		{name: "type wins over word", msg: domain.Message{Sender: 1, Text: "skip", Items: sticker}, want: DropExceptType, wantDrop: true},
		{name: "word", msg: domain.Message{Sender: 1, Text: "please skip this"}, want: DropExceptWord, wantDrop: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, drop := f.Check(tt.msg)
			assert.Equal(t, tt.wantDrop, drop)
			assert.Equal(t, tt.want, reason)
		})
	}
}
