package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/observability"
)

// Log field names.
const (
	LogFieldChatID   = "chat_id"
	LogFieldListener = "listener"
)

// API is the subset of the Bot API client used by Bot.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Listener receives every converted incoming message.
type Listener interface {
	Name() string
	OnMessage(ctx context.Context, msg domain.Message)
}

// Bot is the single update subscription of the process and the outbound sender.
type Bot struct {
	cfg         config.TelegramBotConfig
	api         API
	listeners   []Listener
	sendLimiter *rate.Limiter
	logger      *zerolog.Logger
}

func New(cfg config.TelegramBotConfig, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	api.Debug = cfg.Debug

	logger.Info().Str("username", api.Self.UserName).Msg("authorized on Telegram")

	return NewWithAPI(cfg, api, logger), nil
}

// NewWithAPI creates a bot around an existing API client.
func NewWithAPI(cfg config.TelegramBotConfig, api API, logger *zerolog.Logger) *Bot {
	rps := cfg.SendRPS
	if rps <= 0 {
		rps = 1
	}

	return &Bot{
		cfg:         cfg,
		api:         api,
		sendLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:      logger,
	}
}

// AddListener registers l. Listeners are called in registration order.
func (b *Bot) AddListener(l Listener) {
	b.listeners = append(b.listeners, l)
}

// FileURL returns a temporary download URL for a Telegram file.
func (b *Bot) FileURL(_ context.Context, fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("get file url: %w", err)
	}

	return url, nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdatesTimeout

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("bot updates channel closed")
			}

			if update.Message == nil {
				continue
			}

			b.dispatch(ctx, update.Message)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, raw *tgbotapi.Message) {
	msg := Convert(raw)

	observability.UpdatesReceived.WithLabelValues(string(msg.Kind)).Inc()

	for _, l := range b.listeners {
		b.notify(ctx, l, msg)
	}
}

func (b *Bot) notify(ctx context.Context, l Listener, msg domain.Message) {
	defer func() {
		if r := recover(); r != nil {
			observability.ListenerPanics.WithLabelValues(l.Name()).Inc()
			b.logger.Error().
				Interface("panic", r).
				Str(LogFieldListener, l.Name()).
				Int64(LogFieldChatID, msg.Scope).
				Msg("listener panicked")
		}
	}()

	l.OnMessage(ctx, msg)
}
