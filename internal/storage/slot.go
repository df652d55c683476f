// Package storage provides the durable key-value slot that mirrors the
// customer register between runs.
//
// A slot holds one value under one key and is always written whole. The
// register is small, so every backend simply overwrites the previous value;
// there are no deltas and no versions.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrSlotEmpty is returned by Read when nothing has been written to the slot.
var ErrSlotEmpty = errors.New("storage: slot is empty")

// ErrQuotaExceeded is returned by Write when the value is larger than the
// configured limit. The previous value is left in place.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Slot is a single named durable value.
type Slot interface {
	// Key names the slot.
	Key() string
	// Read returns the stored value, or ErrSlotEmpty.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the stored value.
	Write(ctx context.Context, data []byte) error
	// Close releases the backend.
	Close() error
}

// quotaSlot rejects writes above a byte limit before they reach the backend.
type quotaSlot struct {
	Slot
	max int64
}

// WithQuota wraps s so that writes larger than max bytes fail with
// ErrQuotaExceeded. A max of zero or less disables the limit.
func WithQuota(s Slot, max int64) Slot {
	if max <= 0 {
		return s
	}
	return &quotaSlot{Slot: s, max: max}
}

func (q *quotaSlot) Write(ctx context.Context, data []byte) error {
	if int64(len(data)) > q.max {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrQuotaExceeded, len(data), q.max)
	}
	return q.Slot.Write(ctx, data)
}
