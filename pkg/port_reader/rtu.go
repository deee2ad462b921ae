package port_reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goburrow/modbus"
	"github.com/jacobsa/go-serial/serial"
	"github.com/sigurn/crc16"
	"go.uber.org/zap"
)

const (
	rtuMinFrameSize   = 5 // slave, function, 1 byte payload, 2 byte crc
	rtuMaxFrameSize   = 256
	rtuExceptionFlag  = 0x80
	maxSerialTimeout  = 25500 // ms, VTIME is a single byte of deciseconds
	serialTimeoutStep = 100
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

func NewRTUReader(opts RTUOptions, logger *zap.Logger) *RTUReader {
	opts.applyDefaults()
	if opts.BaudRate == 0 {
		opts.BaudRate = 9600
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	return &RTUReader{
		opts:   opts,
		logger: logger,
		open:   serial.Open,
	}
}

// ReadRegisters keeps the serial port open between polls and reopens it after a failed attempt.
func (r *RTUReader) ReadRegisters(ctx context.Context) ([]uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

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
		r.logger.Debug("modbus rtu read failed",
			zap.String("device", r.opts.Device),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.opts.Retries),
			zap.Error(err),
		)
		r.disconnect()
	}
	return nil, errors.Join(ErrModbusReadFailed, lastErr)
}

func (r *RTUReader) readOnce(ctx context.Context) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.connect(); err != nil {
		return nil, err
	}

	client := modbus.NewClient2(&rtuPackager{slaveID: r.opts.SlaveID}, &rtuTransporter{port: r.port})
	result, err := client.ReadHoldingRegisters(r.opts.StartAddress, r.opts.Count)
	if err != nil {
		return nil, fmt.Errorf("read holding registers %d+%d: %w", r.opts.StartAddress, r.opts.Count, err)
	}
	return BytesToRegisters(result)
}

func (r *RTUReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnect()
	return nil
}

func (r *RTUReader) connect() error {
	if r.port != nil {
		return nil
	}

	parity, err := parseParity(r.opts.Parity)
	if err != nil {
		return err
	}
	options := serial.OpenOptions{
		PortName:              r.opts.Device,
		BaudRate:              r.opts.BaudRate,
		DataBits:              r.opts.DataBits,
		StopBits:              r.opts.StopBits,
		ParityMode:            parity,
		InterCharacterTimeout: serialTimeout(r.opts.Timeout.Milliseconds()),
		MinimumReadSize:       0,
	}

	port, err := r.open(options)
	if err != nil {
		return errors.Join(ErrModbusNotConnected, fmt.Errorf("open serial port %s: %w", r.opts.Device, err))
	}
	r.port = port
	r.logger.Info("connected to serial port", zap.String("device", r.opts.Device), zap.Uint("baudrate", r.opts.BaudRate))
	return nil
}

func (r *RTUReader) disconnect() {
	if r.port != nil {
		r.port.Close()
		r.port = nil
		r.logger.Info("disconnected from serial port", zap.String("device", r.opts.Device))
	}
}

func parseParity(s string) (serial.ParityMode, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serial.PARITY_NONE, nil
	case "even", "e":
		return serial.PARITY_EVEN, nil
	case "odd", "o":
		return serial.PARITY_ODD, nil
	}
	return serial.PARITY_NONE, fmt.Errorf("unknown parity %q", s)
}

func serialTimeout(ms int64) uint {
	switch {
	case ms < serialTimeoutStep:
		return serialTimeoutStep
	case ms > maxSerialTimeout:
		return maxSerialTimeout
	}
	return uint(ms)
}

// goburrow's own RTU handler is bound to goburrow/serial; these two plug the jacobsa port into its client.

// rtuPackager frames PDUs as slave id + pdu + CRC16/MODBUS, low byte first.
type rtuPackager struct {
	slaveID byte
}

func (p *rtuPackager) Encode(pdu *modbus.ProtocolDataUnit) ([]byte, error) {
	size := len(pdu.Data) + 4
	if size > rtuMaxFrameSize {
		return nil, fmt.Errorf("%w: request length %d exceeds %d", ErrInvalidFrame, size, rtuMaxFrameSize)
	}
	adu := make([]byte, 0, size)
	adu = append(adu, p.slaveID, pdu.FunctionCode)
	adu = append(adu, pdu.Data...)
	return appendCRC(adu), nil
}

func (p *rtuPackager) Verify(aduRequest []byte, aduResponse []byte) error {
	if len(aduResponse) < rtuMinFrameSize {
		return fmt.Errorf("%w: response length %d below %d", ErrInvalidFrame, len(aduResponse), rtuMinFrameSize)
	}
	if aduResponse[0] != aduRequest[0] {
		return fmt.Errorf("%w: response slave id %d does not match request %d", ErrInvalidFrame, aduResponse[0], aduRequest[0])
	}
	return nil
}

func (p *rtuPackager) Decode(adu []byte) (*modbus.ProtocolDataUnit, error) {
	if err := checkCRC(adu); err != nil {
		return nil, err
	}
	return &modbus.ProtocolDataUnit{
		FunctionCode: adu[1],
		Data:         adu[2 : len(adu)-2],
	}, nil
}

// rtuTransporter writes one request and reads exactly one response frame.
type rtuTransporter struct {
	port io.ReadWriter
}

func (t *rtuTransporter) Send(aduRequest []byte) ([]byte, error) {
	if _, err := t.port.Write(aduRequest); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	head := make([]byte, 3)
	if _, err := io.ReadFull(t.port, head); err != nil {
		return nil, fmt.Errorf("read response header: %w", err)
	}

	var size int
	switch {
	case head[1]&rtuExceptionFlag != 0:
		size = rtuMinFrameSize
	case head[1] == modbus.FuncCodeReadHoldingRegisters, head[1] == modbus.FuncCodeReadInputRegisters:
		size = rtuMinFrameSize + int(head[2])
	default:
		return nil, fmt.Errorf("%w: unsupported function code %d", ErrInvalidFrame, head[1])
	}

	frame := make([]byte, size)
	copy(frame, head)
	if _, err := io.ReadFull(t.port, frame[len(head):]); err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if err := checkCRC(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func appendCRC(frame []byte) []byte {
	sum := crc16.Checksum(frame, modbusTable)
	return append(frame, byte(sum), byte(sum>>8))
}

func checkCRC(frame []byte) error {
	if len(frame) < 4 {
		return fmt.Errorf("%w: frame too short", ErrInvalidCRC)
	}
	body := frame[:len(frame)-2]
	given := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8
	if calc := crc16.Checksum(body, modbusTable); calc != given {
		return fmt.Errorf("%w: got %04X, want %04X", ErrInvalidCRC, given, calc)
	}
	return nil
}
