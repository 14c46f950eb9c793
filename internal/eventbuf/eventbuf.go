// Package eventbuf provides the bounded, drop-oldest channel between a listener and its
// consumer. The producer never blocks: when the consumer falls behind, the oldest records
// are overwritten and the alerter is told how many were lost.
package eventbuf

import (
	"context"
	"time"

	diodes "code.cloudfoundry.org/go-diodes"
)

const defaultPollInterval = 10 * time.Millisecond

// Buffer is a single-writer, single-reader ring of T.
type Buffer[T any] struct {
	d        *diodes.OneToOne
	interval time.Duration
}

// New initializes a buffer of a given size. The alerter is called from the reader side
// whenever data is dropped, with the number of records that were dropped.
func New[T any](size int, alerter diodes.Alerter) *Buffer[T] {
	if alerter == nil {
		alerter = diodes.AlertFunc(func(int) {})
	}
	return &Buffer[T]{
		d:        diodes.NewOneToOne(size, alerter),
		interval: defaultPollInterval,
	}
}

// Set inserts v, overwriting the oldest record when full.
func (b *Buffer[T]) Set(v T) {
	b.d.Set(diodes.GenericDataType(&v))
}

// TryNext returns the next record if one is available.
func (b *Buffer[T]) TryNext() (T, bool) {
	data, ok := b.d.TryNext()
	if !ok {
		var zero T
		return zero, false
	}
	return *(*T)(data), true
}

// Next blocks until a record is available or ctx is done.
func (b *Buffer[T]) Next(ctx context.Context) (T, bool) {
	if v, ok := b.TryNext(); ok {
		return v, true
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-ticker.C:
			if v, ok := b.TryNext(); ok {
				return v, true
			}
		}
	}
}
