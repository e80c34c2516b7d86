package janus

import (
	"context"
	"sync"

	"github.com/dkeye/Duet/internal/core"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Handle is a plugin handle attached to a Session.
type Handle struct {
	session *Session
	id      uint64

	mu     sync.Mutex
	events chan core.HandleEvent
	closed bool

	quit     chan struct{}
	quitOnce sync.Once
}

func newHandle(s *Session, id uint64) *Handle {
	return &Handle{
		session: s,
		id:      id,
		events:  make(chan core.HandleEvent, 16),
		quit:    make(chan struct{}),
	}
}

func (h *Handle) ID() uint64 { return h.id }

// Events is closed when the handle is detached or the connection drops.
func (h *Handle) Events() <-chan core.HandleEvent { return h.events }

// Send posts a plugin message. A synchronous plugin reply is returned as is;
// an ack yields nil and the answer arrives later on Events.
func (h *Handle) Send(ctx context.Context, body any, jsep *core.JSEP) (json.RawMessage, error) {
	msg, err := h.session.client.roundTrip(ctx, request{
		Janus:     "message",
		SessionID: h.session.id,
		HandleID:  h.id,
		Body:      body,
		JSEP:      jsep,
	})
	if err != nil {
		return nil, err
	}
	switch msg.Janus {
	case "ack":
		return nil, nil
	case "success":
		if msg.PluginData == nil {
			return nil, nil
		}
		return msg.PluginData.Data, nil
	case "event":
		// some plugins answer a message with the event itself
		h.deliver(core.HandleEvent{Kind: core.HandleEventPlugin, Data: []byte(dataOf(msg)), JSEP: msg.JSEP}, h.session.client.Done())
		return nil, nil
	}
	return nil, ErrBadReply
}

func dataOf(msg *message) json.RawMessage {
	if msg.PluginData == nil {
		return nil
	}
	return msg.PluginData.Data
}

func (h *Handle) Detach(ctx context.Context) error {
	defer h.session.client.unregister(h.id)
	_, err := h.session.client.roundTrip(ctx, request{
		Janus:     "detach",
		SessionID: h.session.id,
		HandleID:  h.id,
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "janus").Uint64("handle", h.id).Msg("detach failed")
		return err
	}
	log.Info().Str("module", "janus").Uint64("handle", h.id).Msg("detached")
	return nil
}

func (h *Handle) deliver(ev core.HandleEvent, done <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.events <- ev:
	case <-h.quit:
	case <-done:
	}
}

func (h *Handle) close() {
	h.quitOnce.Do(func() { close(h.quit) })
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.events)
}
