package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/Tenderflow/internal/mq"
)

const (
	defaultHTTPTimeout  = 10 * time.Second
	defaultMaxAttempts  = 3
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 10 * time.Second
)

// Sender доставляет уведомление.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender только пишет уведомление в лог.
type LogSender struct {
	Logger *slog.Logger
}

// Send логирует уведомление.
func (s LogSender) Send(_ context.Context, n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := []any{
		"kind", n.Kind,
		"tender_id", n.TenderID,
		"reference", n.Reference,
		"phase", n.Position.Phase,
		"step", n.Position.Step,
	}
	if n.Recipient != nil {
		args = append(args, "recipient_id", n.Recipient.ID, "recipient_email", n.Recipient.Email)
	}
	logger.Info("notification", args...)
	return nil
}

// WebhookConfig — конфигурация WebhookSender.
type WebhookConfig struct {
	// URL — адрес webhook (обязательно).
	URL string

	// Headers — дополнительные заголовки запроса.
	Headers map[string]string

	// Timeout — таймаут одной попытки. Default: 10s.
	Timeout time.Duration

	// MaxAttempts — количество попыток. Default: 3.
	MaxAttempts int

	// InitialDelay / MaxDelay — границы экспоненциального backoff.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	Client *http.Client
	Logger *slog.Logger
}

// WebhookSender отправляет уведомления HTTP POST запросом с JSON телом.
//
// Ответ 2xx — успех. 5xx, 429 и сетевые ошибки повторяются с
// экспоненциальным backoff. Прочие 4xx повторять бесполезно: ошибка
// помечается mq.ErrPermanent, и сообщение уходит в DLQ.
type WebhookSender struct {
	cfg    WebhookConfig
	client *http.Client
	logger *slog.Logger
}

// NewWebhookSender создаёт WebhookSender.
func NewWebhookSender(cfg WebhookConfig) (*WebhookSender, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrWebhook)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookSender{cfg: cfg, client: client, logger: logger}, nil
}

// Send доставляет уведомление с повторами.
func (s *WebhookSender) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%w: marshal notification: %v", mq.ErrPermanent, err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		retry, err := s.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retry {
			return err
		}
		if attempt == s.cfg.MaxAttempts {
			break
		}

		delay := calculateBackoff(attempt, s.cfg.InitialDelay, s.cfg.MaxDelay)
		s.logger.Debug("retrying webhook",
			"tender_id", n.TenderID,
			"kind", n.Kind,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, s.cfg.MaxAttempts, lastErr)
}

// post выполняет одну попытку. Возвращает true, если ошибку имеет смысл повторить.
func (s *WebhookSender) post(ctx context.Context, body []byte) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: %w: create request: %v", ErrWebhook, mq.ErrPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, val := range s.cfg.Headers {
		req.Header.Set(key, val)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("%w: %v", ErrWebhook, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 300 {
		return false, nil
	}

	errMsg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return true, fmt.Errorf("%w: %s", ErrWebhook, errMsg)
	}
	return false, fmt.Errorf("%w: %w: %s", ErrWebhook, mq.ErrPermanent, errMsg)
}

// calculateBackoff вычисляет задержку перед повтором:
// initial * 2^(attempt-1), не больше max.
func calculateBackoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
