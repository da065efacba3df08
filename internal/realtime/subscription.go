package realtime

import (
	"encoding/json"
	"sync"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

// Handler receives the opaque payload of an update event. Handlers for one
// message type run in subscription order, synchronously, one message at a
// time.
type Handler func(data json.RawMessage)

type subscription struct {
	handler Handler
	removed bool
}

// registry maps message types to ordered subscriber lists. Unsubscribing is
// effective immediately: a handler whose unsubscribe function has returned is
// never invoked again, even for a message already being dispatched.
type registry struct {
	mu   sync.Mutex
	subs map[domain.MessageType][]*subscription
}

func newRegistry() *registry {
	return &registry{subs: make(map[domain.MessageType][]*subscription)}
}

func (r *registry) subscribe(msgType domain.MessageType, handler Handler) func() {
	sub := &subscription{handler: handler}

	r.mu.Lock()
	r.subs[msgType] = append(r.subs[msgType], sub)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub.removed {
			return
		}
		sub.removed = true
		list := r.subs[msgType]
		for i, candidate := range list {
			if candidate == sub {
				r.subs[msgType] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(r.subs[msgType]) == 0 {
			delete(r.subs, msgType)
		}
	}
}

func (r *registry) dispatch(msgType domain.MessageType, data json.RawMessage, log logger.Logger) {
	r.mu.Lock()
	snapshot := make([]*subscription, len(r.subs[msgType]))
	copy(snapshot, r.subs[msgType])
	r.mu.Unlock()

	for _, sub := range snapshot {
		r.mu.Lock()
		removed := sub.removed
		r.mu.Unlock()
		if removed {
			continue
		}
		invoke(sub.handler, msgType, data, log)
	}
}

// invoke isolates a panicking subscriber so the remaining handlers still
// receive the message.
func invoke(handler Handler, msgType domain.MessageType, data json.RawMessage, log logger.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("subscriber panicked", "message_type", string(msgType), "panic", rec)
		}
	}()
	handler(data)
}
