package racechrono

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
)

// Update is one decoded equation reading delivered to subscribers.
type Update struct {
	Index byte
	Value float32
}

type subscription struct {
	isClosed atomic.Bool
	ch       chan Update
}

func (s *subscription) cancel() {
	if s.isClosed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// updateHub fans decoded readings out to subscribers. Publishing never
// blocks; a subscriber that falls behind misses updates.
type updateHub struct {
	lck  sync.RWMutex
	subs []*subscription
}

func newUpdateHub() *updateHub {
	return &updateHub{}
}

func (h *updateHub) register(s *subscription) func() {
	h.lck.Lock()
	defer h.lck.Unlock()

	h.subs = append(h.subs, s)

	return func() {
		h.lck.Lock()
		defer h.lck.Unlock()

		defer s.cancel()

		h.subs = slices.DeleteFunc(h.subs, func(ss *subscription) bool {
			return s == ss
		})
	}
}

func (h *updateHub) subscribe(ctx context.Context) iter.Seq[Update] {
	s := &subscription{
		ch: make(chan Update, 16),
	}

	release := h.register(s)

	return func(yield func(Update) bool) {
		defer release()

		for {
			select {
			case u, ok := <-s.ch:
				if !ok {
					return
				}
				if !yield(u) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *updateHub) publish(u Update) {
	h.lck.RLock()
	defer h.lck.RUnlock()

	for _, s := range h.subs {
		select {
		case s.ch <- u:
		default:
		}
	}
}

func (h *updateHub) shutdown() {
	h.lck.Lock()
	defer h.lck.Unlock()

	for _, s := range h.subs {
		s.cancel()
	}
	h.subs = nil
}
