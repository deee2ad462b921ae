package port_reader

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/config"
	"go.uber.org/zap"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultRetries    = 3
	defaultRetryDelay = 2 * time.Second
)

// NewFromConfig builds the reader for one configured machine.
func NewFromConfig(m config.MachineConfig, logger *zap.Logger) (RegisterReader, error) {
	read := ReadOptions{
		SlaveID:      m.SlaveID,
		StartAddress: m.StartRegister,
		Count:        m.RegisterCount,
		Timeout:      time.Duration(m.TimeoutMs) * time.Millisecond,
		Retries:      m.Retries,
		RetryDelay:   time.Duration(m.RetryDelayMs) * time.Millisecond,
	}
	logger = logger.With(zap.String("machine_id", m.MachineID), zap.String("transport", m.Transport))

	switch m.Transport {
	case config.TransportTCP:
		return NewTCPReader(TCPOptions{
			ReadOptions: read,
			Host:        m.Host,
			Port:        m.Port,
			PingCheck:   m.PingCheck,
		}, logger), nil
	case config.TransportRTU:
		return NewRTUReader(RTUOptions{
			ReadOptions: read,
			Device:      m.SerialDevice,
			BaudRate:    m.Baudrate,
			DataBits:    m.DataBits,
			StopBits:    m.StopBits,
			Parity:      m.Parity,
		}, logger), nil
	}
	return nil, fmt.Errorf("machine %s: unknown transport %q", m.MachineID, m.Transport)
}

func (o *ReadOptions) applyDefaults() {
	if o.Count == 0 {
		o.Count = 48
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Retries <= 0 {
		o.Retries = defaultRetries
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	} else if o.RetryDelay == 0 {
		o.RetryDelay = defaultRetryDelay
	}
}

// BytesToRegisters converts a big-endian register payload to register values.
func BytesToRegisters(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd payload length %d", ErrInvalidFrame, len(data))
	}
	values := make([]uint16, len(data)/2)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return values, nil
}

// waitRetry sleeps between attempts, returning early when ctx ends.
func waitRetry(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// readTimeout caps the transport timeout to the context deadline.
func readTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			return left
		}
	}
	return timeout
}
