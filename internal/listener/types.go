package listener

import (
	"errors"
	"fmt"
	"time"
)

// ErrListenerGone is returned by Dispatch once the loop goroutine has exited. Callers treat
// it as fatal for that protocol.
var ErrListenerGone = errors.New("listener is gone")

// Kind classifies a command for the loop state machine.
type Kind int

const (
	// KindStart acquires a transport, replacing any transport already held.
	KindStart Kind = iota + 1
	// KindStop releases the transport and resets protocol state.
	KindStop
	// KindConfigure mutates protocol state without touching the transport.
	KindConfigure
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindStop:
		return "stop"
	case KindConfigure:
		return "configure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is a control-plane message consumed by a Loop.
type Command interface {
	fmt.Stringer
	Kind() Kind
}

// Transport is an open wire handle owned by one loop.
type Transport interface {
	// Receive blocks for at most the poll interval. A timeout is reported either as an
	// error for which IsTimeout is true or as n == 0 with a nil error.
	Receive(buf []byte) (n int, source string, err error)
	Close() error
}

// Frame is one successful read handed to a Driver.
type Frame struct {
	Payload []byte // Payload is only valid for the duration of Decode.
	Source  string
	At      time.Time
}

// Driver supplies the protocol specific parts of a Loop: transport acquisition,
// subscription state and decoding. All methods are called from the loop goroutine only.
type Driver[T any] interface {
	// Open acquires a transport for a KindStart command.
	Open(cmd Command) (Transport, error)
	// Configure applies a KindConfigure command. t is nil while idle.
	Configure(cmd Command, t Transport) error
	// Reset clears protocol state after a stop.
	Reset()
	// Decode turns one frame into zero or more records.
	Decode(f Frame) ([]T, error)
}

// Observer receives loop events, typically for metrics.
type Observer interface {
	CommandApplied(cmd Command)
	BoundChanged(bound bool)
	FrameReceived()
	DecodeFailed()
	ReadFailed()
	RecordEmitted()
	RecordsDropped(n int)
}

type nopObserver struct{}

func (nopObserver) CommandApplied(Command) {}
func (nopObserver) BoundChanged(bool) {}
func (nopObserver) FrameReceived() {}
func (nopObserver) DecodeFailed() {}
func (nopObserver) ReadFailed() {}
func (nopObserver) RecordEmitted() {}
func (nopObserver) RecordsDropped(int) {}
