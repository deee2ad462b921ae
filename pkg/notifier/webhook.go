package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	webhookAttemptTimeout = 10 * time.Second
	webhookRetryMax       = 2
)

// Webhook posts events to the dashboard server.
// Connection errors and 5xx responses are retried; the caller's context bounds the whole exchange.
type Webhook struct {
	url    string
	token  string
	client *retryablehttp.Client
}

func NewWebhook(url, token string, logger *zap.Logger) *Webhook {
	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{Timeout: webhookAttemptTimeout}
	client.RetryMax = webhookRetryMax
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = &zapRetryLogger{logger: logger.With(zap.String("component", "webhook")).Sugar()}
	// Hand the last response back so its status ends up in the error
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Webhook{
		url:    url,
		token:  token,
		client: client,
	}
}

func (w *Webhook) Name() string {
	return "webhook"
}

func (w *Webhook) Publish(ctx context.Context, ev Event) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, ev.ToJsonBytes())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(ev.Type))
	req.Header.Set("X-Event-Id", ev.ID)
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// zapRetryLogger adapts a sugared zap logger to retryablehttp.LeveledLogger.
type zapRetryLogger struct {
	logger *zap.SugaredLogger
}

func (z *zapRetryLogger) Error(msg string, keysAndValues ...interface{}) {
	z.logger.Warnw(msg, keysAndValues...)
}

func (z *zapRetryLogger) Info(msg string, keysAndValues ...interface{}) {
	z.logger.Infow(msg, keysAndValues...)
}

func (z *zapRetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.logger.Debugw(msg, keysAndValues...)
}

func (z *zapRetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.logger.Warnw(msg, keysAndValues...)
}
