package port_reader

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"
)

var (
	ErrModbusReadFailed   = errors.New("modbus read failed")
	ErrModbusNotConnected = errors.New("modbus not connected")
	ErrInvalidCRC         = errors.New("invalid crc")
	ErrInvalidFrame       = errors.New("invalid modbus frame")
)

// RegisterReader returns one contiguous block of holding registers per call.
type RegisterReader interface {
	ReadRegisters(ctx context.Context) ([]uint16, error)
	Close() error
}

// Shared by both transports.
type ReadOptions struct {
	SlaveID byte
	// Protocol address of the first register, 0 for 40001.
	StartAddress uint16
	Count        uint16
	Timeout      time.Duration
	Retries      int
	// Zero uses the default, negative retries immediately.
	RetryDelay time.Duration
}

type TCPOptions struct {
	ReadOptions
	Host string
	Port int
	// Ping the host before connecting. Needs unprivileged ICMP on Linux.
	PingCheck bool
}

type TCPReader struct {
	opts   TCPOptions
	logger *zap.Logger
	ping   func(ctx context.Context, host string) (bool, time.Duration, error)
}

type RTUOptions struct {
	ReadOptions
	Device   string
	BaudRate uint
	DataBits uint
	StopBits uint
	// "none", "even" or "odd"
	Parity string
}

type RTUReader struct {
	opts   RTUOptions
	logger *zap.Logger
	open   func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu   sync.Mutex
	port io.ReadWriteCloser
}
