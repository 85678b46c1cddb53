package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repeater-bot/internal/ingest/recorder"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/config"
	db "github.com/lueurxax/telegram-repeater-bot/internal/storage"
)

type mockAPI struct {
	mu       sync.Mutex
	updates  chan tgbotapi.Update
	sent     []tgbotapi.Chattable
	groups   []tgbotapi.MediaGroupConfig
	sendErr  error
	failAt   int
	stopped  bool
	fileURLs map[string]string
}

func newMockAPI() *mockAPI {
	return &mockAPI{updates: make(chan tgbotapi.Update, 16), failAt: -1, fileURLs: map[string]string{}}
}

func (m *mockAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockAPI) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAt == len(m.sent)+len(m.groups) {
		return tgbotapi.Message{}, m.sendErr
	}

	m.sent = append(m.sent, c)

	return tgbotapi.Message{}, nil
}

func (m *mockAPI) SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAt == len(m.sent)+len(m.groups) {
		return nil, m.sendErr
	}

	m.groups = append(m.groups, c)

	return nil, nil
}

func (m *mockAPI) GetFileDirectURL(fileID string) (string, error) {
	url, ok := m.fileURLs[fileID]
	if !ok {
		return "", errors.New("file not found")
	}

	return url, nil
}

type recordingListener struct {
	name string
	mu   sync.Mutex
	got  []domain.Message
	boom bool
}

func (l *recordingListener) Name() string { return l.name }

func (l *recordingListener) OnMessage(_ context.Context, msg domain.Message) {
	if l.boom {
		panic("listener failure")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.got = append(l.got, msg)
}

func (l *recordingListener) messages() []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]domain.Message(nil), l.got...)
}

func newTestBot(api API) *Bot {
	logger := zerolog.Nop()

	return NewWithAPI(config.TelegramBotConfig{SendRPS: 1000}, api, &logger)
}

func groupUpdate(id int, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: id,
		Chat:      &tgbotapi.Chat{ID: -100, Type: "supergroup"},
		From:      &tgbotapi.User{ID: 7, UserName: "alice"},
		Text:      text,
	}}
}

func TestBotRun_FansOutToListeners(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(api)

	panicky := &recordingListener{name: "panicky", boom: true}
	first := &recordingListener{name: "first"}
	second := &recordingListener{name: "second"}

	b.AddListener(panicky)
	b.AddListener(first)
	b.AddListener(second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- b.Run(ctx) }()

	api.updates <- groupUpdate(1, "hello")
	api.updates <- tgbotapi.Update{}
	api.updates <- groupUpdate(2, "again")

	require.Eventually(t, func() bool {
		return len(first.messages()) == 2 && len(second.messages()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	got := first.messages()
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, int64(-100), got[0].Scope)
	assert.Equal(t, domain.ChatGroup, got[0].Kind)

	api.mu.Lock()
	defer api.mu.Unlock()

	assert.True(t, api.stopped)
}

func TestBotRun_ClosedChannel(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(api)

	close(api.updates)

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.Canceled)
}

func TestBotFileURL(t *testing.T) {
	api := newMockAPI()
	api.fileURLs["f1"] = "https://api.telegram.org/file/bot/photos/1.jpg"
	b := newTestBot(api)

	url, err := b.FileURL(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.telegram.org/file/bot/photos/1.jpg", url)

	_, err = b.FileURL(context.Background(), "missing")
	require.Error(t, err)
}

type blockingRecorderRepo struct {
	release chan struct{}
}

func (m blockingRecorderRepo) SaveRawMessage(ctx context.Context, _ *db.RawMessage) error {
	select {
	case <-m.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestBotRun_SlowRecorderDoesNotDelayListeners(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(api)

	repo := blockingRecorderRepo{release: make(chan struct{})}
	logger := zerolog.Nop()
	rec := recorder.New(repo, time.Minute, &logger)
	next := &recordingListener{name: "next"}

	b.AddListener(rec)
	b.AddListener(next)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- b.Run(ctx) }()

	for i := range 3 {
		update := groupUpdate(i+1, "hi")
		update.Message.Chat.ID = int64(-100 - i)
		api.updates <- update
	}

	require.Eventually(t, func() bool {
		return len(next.messages()) == 3
	}, 500*time.Millisecond, 5*time.Millisecond)

	cancel()
	<-done

	close(repo.release)
	rec.Wait()
}
