package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
)

// WebhookConfig configures outbound webhook delivery.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	Retries int
}

// WebhookNotifier posts each notification as JSON to a fixed URL.
// Transport errors and 5xx responses are retried; 4xx responses are not.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *slog.Logger
}

// NewWebhookNotifier creates a webhook notifier. The URL must be absolute.
func NewWebhookNotifier(cfg WebhookConfig, logger *slog.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "webhook_notifier"))

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetLogger(restyLogger{log}).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &WebhookNotifier{client: client, url: cfg.URL, logger: log}, nil
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, w.logger)

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(n).
		Post(w.url)
	if err != nil {
		log.Warn("webhook delivery failed",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("webhook delivery: %w", err)
	}
	if resp.IsError() {
		log.Warn("webhook rejected notification",
			slog.String("notification_id", n.ID.String()),
			slog.Int("status", resp.StatusCode()))
		return fmt.Errorf("webhook delivery: unexpected status %d", resp.StatusCode())
	}

	log.Debug("webhook delivered notification",
		slog.String("notification_id", n.ID.String()),
		slog.Int("status", resp.StatusCode()))
	return nil
}

// restyLogger routes resty's internal messages through slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
