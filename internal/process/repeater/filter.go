package repeater

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/config"
)

// DropReason names the filter that rejected a message.
type DropReason string

const (
	DropBlockedKeyword DropReason = "blocked_keyword"
	DropExceptSender   DropReason = "except_sender"
	DropExceptType     DropReason = "except_type"
	DropExceptWord     DropReason = "except_word"
)

// scopeFilter holds the compiled exclusions of one chat. It is used only from
// the chat's lane, so the caser needs no locking.
type scopeFilter struct {
	blocked []string
	senders map[int64]struct{}
	types   map[domain.ItemType]struct{}
	words   []string
	fold    bool
	caser   cases.Caser
}

func newScopeFilter(blocked []string, rules config.GroupRules, fold bool) (*scopeFilter, []string) {
	f := &scopeFilter{
		senders: make(map[int64]struct{}, len(rules.ExceptSenders)),
		types:   make(map[domain.ItemType]struct{}, len(rules.ExceptTypes)),
		fold:    fold,
	}

	if fold {
		f.caser = cases.Fold()
	}

	for _, id := range rules.ExceptSenders {
		f.senders[id] = struct{}{}
	}

	var unknown []string

	for _, name := range rules.ExceptTypes {
		t := domain.ItemType(name)
		if !t.Known() {
			unknown = append(unknown, name)

			continue
		}

		f.types[t] = struct{}{}
	}

	f.blocked = f.normalizeAll(blocked)
	f.words = f.normalizeAll(rules.ExceptWords)

	return f, unknown
}

func (f *scopeFilter) normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))

	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}

		out = append(out, f.normalize(w))
	}

	return out
}

func (f *scopeFilter) normalize(s string) string {
	if !f.fold {
		return s
	}

	return f.caser.String(s)
}

// Check returns the first filter that matches msg, in the order keyword,
// sender, item type, word.
func (f *scopeFilter) Check(msg domain.Message) (DropReason, bool) {
	text := f.normalize(msg.Text)

	if containsAny(text, f.blocked) {
		return DropBlockedKeyword, true
	}

	if _, ok := f.senders[msg.Sender]; ok {
		return DropExceptSender, true
	}

	for _, item := range msg.Items {
		if _, ok := f.types[item.Type]; ok {
			return DropExceptType, true
		}
	}

	if containsAny(text, f.words) {
		return DropExceptWord, true
	}

	return "", false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}

	return false
}
