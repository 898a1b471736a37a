package loader

import (
	"context"
	"sync/atomic"
)

// Slot holds the active chain of an evaluation, the equivalent of a thread's
// context loader. Reads never block.
type Slot struct {
	active atomic.Pointer[Chain]
}

// NewSlot creates a slot holding initial.
func NewSlot(initial *Chain) *Slot {
	s := &Slot{}
	s.active.Store(initial)
	return s
}

// Load returns the active chain.
func (s *Slot) Load() *Chain {
	return s.active.Load()
}

// Set replaces the active chain.
func (s *Slot) Set(c *Chain) {
	s.active.Store(c)
}

// Install makes c the active chain and returns a function that restores the
// chain that was active before.
func (s *Slot) Install(c *Chain) (restore func()) {
	prev := s.active.Swap(c)
	return func() {
		s.active.Store(prev)
	}
}

type slotKey struct{}

// ContextWithSlot attaches s to ctx.
func ContextWithSlot(ctx context.Context, s *Slot) context.Context {
	return context.WithValue(ctx, slotKey{}, s)
}

// SlotFromContext returns the slot attached to ctx, if any.
func SlotFromContext(ctx context.Context) (*Slot, bool) {
	s, ok := ctx.Value(slotKey{}).(*Slot)
	return s, ok
}
