package port_reader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/goburrow/modbus"
	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

func NewTCPReader(opts TCPOptions, logger *zap.Logger) *TCPReader {
	opts.applyDefaults()
	if opts.Port == 0 {
		opts.Port = 502
	}
	return &TCPReader{
		opts:   opts,
		logger: logger,
		ping:   ping,
	}
}

func (r *TCPReader) Address() string {
	return net.JoinHostPort(r.opts.Host, strconv.Itoa(r.opts.Port))
}

// ReadRegisters opens a fresh connection per attempt, machines drop idle sessions.
func (r *TCPReader) ReadRegisters(ctx context.Context) ([]uint16, error) {
	var lastErr error
	for attempt := 0; attempt < r.opts.Retries; attempt++ {
		if attempt > 0 {
			if err := waitRetry(ctx, r.opts.RetryDelay); err != nil {
				return nil, errors.Join(ErrModbusReadFailed, lastErr, err)
			}
		}

		values, err := r.readOnce(ctx)
		if err == nil {
			return values, nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		r.logger.Debug("modbus tcp read failed",
			zap.String("address", r.Address()),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.opts.Retries),
			zap.Error(err),
		)
	}
	return nil, errors.Join(ErrModbusReadFailed, lastErr)
}

func (r *TCPReader) readOnce(ctx context.Context) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Ping check before attempting modbus connection
	if r.opts.PingCheck {
		if ok, _, err := r.ping(ctx, r.opts.Host); !ok || err != nil {
			return nil, errors.Join(ErrModbusNotConnected, fmt.Errorf("ping %s: %w", r.opts.Host, err))
		}
	}

	handler := modbus.NewTCPClientHandler(r.Address())
	handler.Timeout = readTimeout(ctx, r.opts.Timeout)
	handler.SlaveId = r.opts.SlaveID
	if err := handler.Connect(); err != nil {
		handler.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	result, err := client.ReadHoldingRegisters(r.opts.StartAddress, r.opts.Count)
	if err != nil {
		return nil, fmt.Errorf("read holding registers %d+%d: %w", r.opts.StartAddress, r.opts.Count, err)
	}
	return BytesToRegisters(result)
}

func (r *TCPReader) Close() error {
	return nil
}

func ping(ctx context.Context, host string) (bool, time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, 0, err
	}

	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false) // UDP-based, no root needed

	if err := pinger.RunWithContext(ctx); err != nil {
		return false, 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt, nil
	}
	return false, 0, errors.New("no response")
}
