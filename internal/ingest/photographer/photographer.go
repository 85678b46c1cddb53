// Package photographer downloads images seen in chats and keeps one stored
// copy per image id for later resends.
package photographer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-repeater-bot/internal/core/errors"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/worker"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBytes     = 15_000_000
	limiterBurst        = 2

	logFieldImageID = "image_id"

	resultStored  = "stored"
	resultExists  = "exists"
	resultTooBig  = "too_large"
	resultMissing = "not_found"
	resultError   = "error"
)

type Photographer struct {
	repo     Repository
	urls     URLResolver
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
	timeout  time.Duration
	tasks    *worker.Group
	logger   *zerolog.Logger
}

func New(cfg config.PhotographerConfig, repo Repository, urls URLResolver, logger *zerolog.Logger) *Photographer {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	rps := cfg.FetchRPS
	if rps <= 0 {
		rps = 1
	}

	l := logger.With().Str("component", "photographer").Logger()

	return &Photographer{
		repo:     repo,
		urls:     urls,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), limiterBurst),
		maxBytes: maxBytes,
		timeout:  timeout,
		tasks:    worker.NewGroup(&l),
		logger:   &l,
	}
}

func (p *Photographer) Name() string {
	return "photographer"
}

// OnMessage schedules a download for every image in msg. It does not block.
func (p *Photographer) OnMessage(ctx context.Context, msg domain.Message) {
	for _, idx := range msg.Items.Images() {
		item := msg.Items[idx]
		if item.UniqueID == "" || item.FileID == "" {
			continue
		}

		p.tasks.Go("photographer.store", func() {
			result, err := p.Store(ctx, item)
			observability.ImageDownloads.WithLabelValues(result).Inc()

			p.logResult(item.UniqueID, result, err)
		})
	}
}

func (p *Photographer) logResult(imageID, result string, err error) {
	switch {
	case err == nil:
		p.logger.Debug().Str(logFieldImageID, imageID).Str("result", result).Msg("image processed")
	case errors.Is(err, context.Canceled):
	case result == resultError:
		p.logger.Error().Err(err).Str(logFieldImageID, imageID).Msg("failed to store image")
	default:
		p.logger.Warn().Err(err).Str(logFieldImageID, imageID).Str("result", result).Msg("image skipped")
	}
}

// Store downloads and saves item unless its image id is already stored.
// The returned result is a metrics label.
func (p *Photographer) Store(ctx context.Context, item domain.Item) (string, error) {
	exists, err := p.repo.HasPicture(ctx, item.UniqueID)
	if err != nil {
		return resultError, err //nolint:wrapcheck // already wrapped by repository
	}

	if exists {
		return resultExists, nil
	}

	url, err := p.urls.FileURL(ctx, item.FileID)
	if err != nil {
		return resultError, fmt.Errorf("resolve image url: %w", err)
	}

	data, err := p.download(ctx, url)
	if err != nil {
		return classify(err), err
	}

	observability.ImageDownloadBytes.Observe(float64(len(data)))

	stored, err := p.repo.SavePicture(ctx, domain.Picture{
		ImageID:   item.UniqueID,
		Base64:    base64.StdEncoding.EncodeToString(data),
		URL:       url,
		MimeType:  http.DetectContentType(data),
		SizeBytes: len(data),
	})
	if err != nil {
		return resultError, err //nolint:wrapcheck // already wrapped by repository
	}

	if !stored {
		return resultExists, nil
	}

	return resultStored, nil
}

func (p *Photographer) download(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("image rate limiter wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrHTTPStatusNotOK, resp.StatusCode)
	}

	if resp.ContentLength > p.maxBytes {
		return nil, fmt.Errorf("%w: content length %d", apperrors.ErrImageTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if int64(len(body)) > p.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", apperrors.ErrImageTooLarge, p.maxBytes)
	}

	return body, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrImageTooLarge):
		return resultTooBig
	case errors.Is(err, apperrors.ErrHTTPStatusNotOK):
		return resultMissing
	default:
		return resultError
	}
}

// Wait blocks until all scheduled downloads finish.
func (p *Photographer) Wait() {
	p.tasks.Wait()
}
