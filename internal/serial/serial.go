// Package serial reads raw bytes from a serial device and renders them as hex and ASCII.
package serial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fluxviewer/internal/eventbuf"
	"fluxviewer/internal/listener"
	"fluxviewer/internal/logger"
	"fluxviewer/internal/records"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is used when Start carries no baud rate.
	DefaultBaudRate = 115200
	// ReadBuffer is the largest chunk handed to one SerialEvent.
	ReadBuffer = 256
	// TimestampLayout is the receipt time format of SerialEvent.Timestamp.
	TimestampLayout = "15:04:05.000"
)

// Command is a control message for the serial listener.
type Command interface {
	listener.Command
	serialCommand()
}

// Start opens Port at BaudRate.
type Start struct {
	Port     string
	BaudRate int
}

// Stop closes the port.
type Stop struct{}

func (Start) Kind() listener.Kind { return listener.KindStart }
func (Stop) Kind() listener.Kind { return listener.KindStop }
func (Start) serialCommand() {}
func (Stop) serialCommand() {}

func (c Start) String() string { return fmt.Sprintf("open %s @ %d baud", c.Port, c.BaudRate) }
func (Stop) String() string { return "stop" }

// port is the part of serial.Port the listener uses.
type port interface {
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

type openFunc func(name string, mode *serial.Mode) (port, error)

func openDevice(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode)
}

type transport struct {
	name string
	port port
}

// Receive returns n == 0 with a nil error when the read timeout expires.
func (t *transport) Receive(buf []byte) (int, string, error) {
	n, err := t.port.Read(buf)
	return n, t.name, err
}

func (t *transport) Close() error {
	return t.port.Close()
}

type driver struct {
	open    openFunc
	timeout time.Duration
}

func (d *driver) Open(cmd listener.Command) (listener.Transport, error) {
	start, ok := cmd.(Start)
	if !ok {
		return nil, fmt.Errorf("unexpected start command %T", cmd)
	}
	if start.Port == "" {
		return nil, errors.New("no serial port given")
	}
	baud := start.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	p, err := d.open(start.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", start.Port, err)
	}
	if err := p.SetReadTimeout(d.timeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", start.Port, err)
	}
	return &transport{name: start.Port, port: p}, nil
}

func (d *driver) Configure(cmd listener.Command, _ listener.Transport) error {
	return fmt.Errorf("serial has no %s command", cmd)
}

func (d *driver) Reset() {}

func (d *driver) Decode(f listener.Frame) ([]records.SerialEvent, error) {
	return []records.SerialEvent{records.NewSerialEvent(f.Payload, f.At.Format(TimestampLayout))}, nil
}

// Listener is the serial listener.
type Listener struct {
	loop *listener.Loop[records.SerialEvent]
}

// NewListener builds an idle serial listener.
func NewListener(log *logger.Log, opts listener.Options, obs listener.Observer) *Listener {
	opts.Name = "serial"
	opts.ReadBuffer = ReadBuffer
	opts = opts.WithDefaults()
	d := &driver{open: openDevice, timeout: opts.PollInterval}
	return &Listener{
		loop: listener.New[records.SerialEvent](log, d, opts, obs),
	}
}

func (l *Listener) Run(ctx context.Context) { l.loop.Run(ctx) }
func (l *Listener) Dispatch(cmd Command) error { return l.loop.Dispatch(cmd) }
func (l *Listener) Events() *eventbuf.Buffer[records.SerialEvent] { return l.loop.Events() }
func (l *Listener) Bound() bool { return l.loop.Bound() }
