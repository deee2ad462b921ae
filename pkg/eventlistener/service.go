package eventlistener

import (
	"context"
	"net/url"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/notifier"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Options struct {
	TLS            bool
	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration
	// No message or pong within this window means the connection is dead
	PongWait time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 10
	}
	if o.BaseRetryDelay <= 0 {
		o.BaseRetryDelay = 2 * time.Second
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = 60 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
}

// StartListener manages the websocket connection to the shift tracker and calls handle for each event.
// It reconnects with exponential backoff and returns when ctx is done or retries run out.
func StartListener(ctx context.Context, host string, opts Options, logger *zap.Logger, handle func(ev *notifier.Event)) {
	opts.applyDefaults()

	scheme := "ws"
	if opts.TLS {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: "/ws"}
	logger = logger.With(zap.String("component", "event_listener"), zap.String("url", u.String()))

	retryCount := 0
	for {
		if retryCount > 0 {
			// Calculate retry delay with exponential backoff
			retryDelay := time.Duration(1<<(retryCount-1)) * opts.BaseRetryDelay
			if retryDelay > opts.MaxRetryDelay {
				retryDelay = opts.MaxRetryDelay
			}
			logger.Info("retrying connection",
				zap.Duration("delay", retryDelay),
				zap.Int("attempt", retryCount+1),
				zap.Int("max_attempts", opts.MaxRetries),
			)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				logger.Info("shutting down during retry wait")
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		dialer := websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		}
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			retryCount++
			logger.Warn("connection failed", zap.Error(err))
			if retryCount >= opts.MaxRetries {
				logger.Error("max retries reached, giving up", zap.Int("max_retries", opts.MaxRetries))
				return
			}
			continue
		}

		logger.Info("connected, accepting shift events")
		retryCount = 0

		connectionBroken := handleConnection(ctx, c, opts.PongWait, logger, handle)
		c.Close()

		if !connectionBroken {
			// Clean shutdown requested
			return
		}
		logger.Warn("connection lost, will retry")
		retryCount = 1
	}
}

func handleConnection(
	ctx context.Context,
	c *websocket.Conn,
	pongWait time.Duration,
	logger *zap.Logger,
	handle func(ev *notifier.Event),
) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("websocket error", zap.Error(err))
				} else {
					logger.Info("connection closed", zap.Error(err))
				}
				return
			}
			c.SetReadDeadline(time.Now().Add(pongWait))

			if messageType != websocket.TextMessage {
				logger.Debug("ignoring non text message", zap.Int("message_type", messageType))
				continue
			}
			if ev := notifier.EventFromJsonBytes(message); ev != nil {
				handle(ev)
			} else {
				logger.Warn("failed to parse shift event", zap.ByteString("message", message))
			}
		}
	}()

	// Keep the connection alive, the server answers pings with pongs
	ticker := time.NewTicker(pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				logger.Warn("failed to send ping", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("shutting down, closing connection")
			err := c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			if err != nil {
				logger.Warn("error sending close message", zap.Error(err))
			}

			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
