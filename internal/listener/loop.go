// Package listener implements the polling loop shared by every protocol listener.
//
// A Loop interleaves control and data on one goroutine. Each iteration takes at most one
// pending command without blocking, applies it, then performs one bounded read if a
// transport is held. A command is therefore observed within one poll interval whether or
// not traffic is flowing.
package listener

import (
	"context"
	"sync/atomic"
	"time"

	diodes "code.cloudfoundry.org/go-diodes"
	"fluxviewer/internal/eventbuf"
	"fluxviewer/internal/logger"
)

const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultReadBuffer    = 1024
	DefaultEventBuffer   = 1024
	DefaultCommandBuffer = 16
)

// Options tune a Loop. Zero values take the defaults above.
type Options struct {
	Name          string        // Name - protocol name used in logs.
	PollInterval  time.Duration // PollInterval - read timeout and idle pause.
	ReadBuffer    int           // ReadBuffer - bytes per read.
	EventBuffer   int           // EventBuffer - records held before the oldest is dropped.
	CommandBuffer int           // CommandBuffer - queued commands before Dispatch blocks.
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ReadBuffer <= 0 {
		o.ReadBuffer = DefaultReadBuffer
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	if o.CommandBuffer <= 0 {
		o.CommandBuffer = DefaultCommandBuffer
	}
	return o
}

// Loop is a listener state machine: Idle (no transport) or Bound (transport held).
type Loop[T any] struct {
	log      *logger.Log
	driver   Driver[T]
	obs      Observer
	interval time.Duration
	readBuf  int

	commands chan Command
	events   *eventbuf.Buffer[T]
	done     chan struct{}
	bound    atomic.Bool
	now      func() time.Time

	// owned by the Run goroutine
	transport   Transport
	readFailing bool
}

// New builds a loop in the Idle state. obs may be nil.
func New[T any](log *logger.Log, driver Driver[T], opts Options, obs Observer) *Loop[T] {
	opts = opts.WithDefaults()
	if obs == nil {
		obs = nopObserver{}
	}

	l := &Loop[T]{
		log:      log.With(logger.Fields{"module": opts.Name}),
		driver:   driver,
		obs:      obs,
		interval: opts.PollInterval,
		readBuf:  opts.ReadBuffer,
		commands: make(chan Command, opts.CommandBuffer),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	l.events = eventbuf.New[T](opts.EventBuffer, diodes.AlertFunc(func(missed int) {
		l.log.Warnf("consumer is behind, dropped %d records", missed)
		l.obs.RecordsDropped(missed)
	}))
	return l
}

// Events is the outbound record buffer. It has exactly one reader.
func (l *Loop[T]) Events() *eventbuf.Buffer[T] {
	return l.events
}

// Bound reports whether a transport is currently held.
func (l *Loop[T]) Bound() bool {
	return l.bound.Load()
}

// Dispatch queues cmd. It fails only with ErrListenerGone.
func (l *Loop[T]) Dispatch(cmd Command) error {
	select {
	case <-l.done:
		return ErrListenerGone
	default:
	}

	select {
	case l.commands <- cmd:
		return nil
	case <-l.done:
		return ErrListenerGone
	}
}

// Run drives the loop until ctx is cancelled. Cancellation is process teardown: it releases
// the transport and makes further dispatches fail. Run must be called once.
func (l *Loop[T]) Run(ctx context.Context) {
	defer close(l.done)
	defer l.release()

	buf := make([]byte, l.readBuf)
	for ctx.Err() == nil {
		l.step(ctx, buf)
	}
}

func (l *Loop[T]) step(ctx context.Context, buf []byte) {
	select {
	case cmd := <-l.commands:
		l.apply(cmd)
	default:
	}

	if l.transport == nil {
		l.pause(ctx)
		return
	}
	l.receive(ctx, buf)
}

func (l *Loop[T]) apply(cmd Command) {
	l.obs.CommandApplied(cmd)

	switch cmd.Kind() {
	case KindStart:
		l.release()
		t, err := l.driver.Open(cmd)
		if err != nil {
			l.log.Errorf("failed to start (%s): %v", cmd, err)
			return
		}
		l.transport = t
		l.setBound(true)
		l.log.Infof("started: %s", cmd)
	case KindStop:
		l.driver.Reset()
		l.release()
		l.log.Info("stopped")
	case KindConfigure:
		if err := l.driver.Configure(cmd, l.transport); err != nil {
			l.log.Errorf("%s: %v", cmd, err)
			return
		}
		l.log.Infof("applied: %s", cmd)
	default:
		l.log.Errorf("unknown command kind %v: %s", cmd.Kind(), cmd)
	}
}

func (l *Loop[T]) receive(ctx context.Context, buf []byte) {
	n, source, err := l.transport.Receive(buf)
	if err != nil {
		if IsTimeout(err) {
			l.readFailing = false
			return
		}
		l.obs.ReadFailed()
		l.log.Errorf("read error: %v", err)
		// back off only when the transport keeps failing
		if l.readFailing {
			l.pause(ctx)
		}
		l.readFailing = true
		return
	}
	l.readFailing = false
	if n == 0 {
		return
	}

	l.obs.FrameReceived()
	out, err := l.driver.Decode(Frame{Payload: buf[:n], Source: source, At: l.now()})
	if err != nil {
		l.obs.DecodeFailed()
		l.log.Warnf("dropped packet from %s: %v", source, err)
		return
	}
	for _, r := range out {
		l.events.Set(r)
		l.obs.RecordEmitted()
	}
}

func (l *Loop[T]) release() {
	if l.transport == nil {
		return
	}
	if err := l.transport.Close(); err != nil {
		l.log.Warnf("close transport: %v", err)
	}
	l.transport = nil
	l.readFailing = false
	l.setBound(false)
}

func (l *Loop[T]) setBound(bound bool) {
	l.bound.Store(bound)
	l.obs.BoundChanged(bound)
}

func (l *Loop[T]) pause(ctx context.Context) {
	t := time.NewTimer(l.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
