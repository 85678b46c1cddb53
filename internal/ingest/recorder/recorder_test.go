package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	db "github.com/lueurxax/telegram-repeater-bot/internal/storage"
)

type mockRepo struct {
	saved []*db.RawMessage
	err   error
	ctxOK bool
}

func (m *mockRepo) SaveRawMessage(ctx context.Context, msg *db.RawMessage) error {
	_, m.ctxOK = ctx.Deadline()

	if m.err != nil {
		return m.err
	}

	m.saved = append(m.saved, msg)

	return nil
}

func newRecorder(repo Repository) *Recorder {
	logger := zerolog.Nop()

	return New(repo, time.Second, &logger)
}

func TestRecord(t *testing.T) {
	repo := &mockRepo{}
	r := newRecorder(repo)

	ts := time.Unix(1700000000, 0)
	msg := domain.Message{
		Kind:      domain.ChatPrivate,
		Scope:     42,
		Sender:    7,
		Timestamp: ts,
		Items: domain.Content{
			{Type: domain.ItemSource, ID: 1, Time: 1700000000},
			{Type: domain.ItemPlain, Text: "hi"},
		},
	}

	require.NoError(t, r.Record(context.Background(), msg))
	require.Len(t, repo.saved, 1)
	assert.True(t, repo.ctxOK, "write runs under a timeout")

	got := repo.saved[0]
	_, err := uuid.Parse(got.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatPrivate, got.ChatKind)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, int64(7), got.SenderID)
	assert.Equal(t, ts, got.ReceivedAt)

	var items domain.Content
	require.NoError(t, json.Unmarshal(got.Payload, &items))
	assert.Equal(t, msg.Items, items)
}

func TestRecord_ZeroTimestampUsesNow(t *testing.T) {
	repo := &mockRepo{}
	r := newRecorder(repo)

	now := time.Unix(1800000000, 0)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Record(context.Background(), domain.Message{Kind: domain.ChatGroup}))
	assert.Equal(t, now, repo.saved[0].ReceivedAt)
}

func TestOnMessage_SwallowsErrors(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection refused")}
	r := newRecorder(repo)

	assert.NotPanics(t, func() {
		r.OnMessage(context.Background(), domain.Message{Kind: domain.ChatGroup, Scope: 1})
		r.Wait()
	})
	assert.Empty(t, repo.saved)
	assert.Equal(t, "recorder", r.Name())
}

type stalledRepo struct {
	release chan struct{}
	mu      sync.Mutex
	saved   int
}

func (m *stalledRepo) SaveRawMessage(ctx context.Context, _ *db.RawMessage) error {
	select {
	case <-m.release:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved++

	return nil
}

func TestOnMessage_DoesNotWaitForStorage(t *testing.T) {
	repo := &stalledRepo{release: make(chan struct{})}
	logger := zerolog.Nop()
	r := New(repo, time.Minute, &logger)

	done := make(chan struct{})

	go func() {
		for i := range 3 {
			r.OnMessage(context.Background(), domain.Message{Kind: domain.ChatGroup, Scope: int64(-100 - i)})
		}

		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnMessage blocked on a stalled repository")
	}

	close(repo.release)
	r.Wait()

	assert.Equal(t, 3, repo.saved)
}

func TestOnMessage_WriteOutlivesCanceledContext(t *testing.T) {
	repo := &mockRepo{}
	r := newRecorder(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.OnMessage(ctx, domain.Message{Kind: domain.ChatGroup, Scope: 1})
	r.Wait()

	assert.Len(t, repo.saved, 1)
}
