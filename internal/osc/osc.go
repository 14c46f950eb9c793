// Package osc listens for OSC packets over UDP.
package osc

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"fluxviewer/internal/eventbuf"
	"fluxviewer/internal/listener"
	"fluxviewer/internal/logger"
	"fluxviewer/internal/records"
)

// DefaultPort is used when Start carries no port.
const DefaultPort = 8000

// Command is a control message for the OSC listener.
type Command interface {
	listener.Command
	oscCommand()
}

// Start binds IP:Port.
type Start struct {
	IP   string
	Port int
}

// Stop closes the socket.
type Stop struct{}

func (Start) Kind() listener.Kind { return listener.KindStart }
func (Stop) Kind() listener.Kind { return listener.KindStop }
func (Start) oscCommand() {}
func (Stop) oscCommand() {}

func (c Start) String() string { return fmt.Sprintf("start %s", c.addr()) }
func (Stop) String() string { return "stop" }

func (c Start) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.IP, strconv.Itoa(port))
}

type driver struct {
	timeout time.Duration
}

func (d *driver) Open(cmd listener.Command) (listener.Transport, error) {
	start, ok := cmd.(Start)
	if !ok {
		return nil, fmt.Errorf("unexpected start command %T", cmd)
	}
	return listener.ListenUDP("udp", start.addr(), d.timeout)
}

func (d *driver) Configure(cmd listener.Command, _ listener.Transport) error {
	return fmt.Errorf("osc has no %s command", cmd)
}

func (d *driver) Reset() {}

func (d *driver) Decode(f listener.Frame) ([]records.OscEvent, error) {
	p, err := parsePacket(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode osc packet: %w", err)
	}
	return Decode(p, f.Source, f.At), nil
}

// Listener is the OSC listener.
type Listener struct {
	loop *listener.Loop[records.OscEvent]
}

// NewListener builds an idle OSC listener.
func NewListener(log *logger.Log, opts listener.Options, obs listener.Observer) *Listener {
	opts.Name = "osc"
	opts = opts.WithDefaults()
	return &Listener{
		loop: listener.New[records.OscEvent](log, &driver{timeout: opts.PollInterval}, opts, obs),
	}
}

func (l *Listener) Run(ctx context.Context) { l.loop.Run(ctx) }
func (l *Listener) Dispatch(cmd Command) error { return l.loop.Dispatch(cmd) }
func (l *Listener) Events() *eventbuf.Buffer[records.OscEvent] { return l.loop.Events() }
func (l *Listener) Bound() bool { return l.loop.Bound() }
