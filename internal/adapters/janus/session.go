package janus

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Duet/internal/core"
	"github.com/rs/zerolog/log"
)

// Session is a gateway session kept alive by periodic keepalives.
type Session struct {
	client *Client
	id     uint64

	keepalive time.Duration
	timeout   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// CreateSession issues "create" and starts the keepalive loop.
func (c *Client) CreateSession(ctx context.Context, keepalive, timeout time.Duration) (*Session, error) {
	msg, err := c.roundTrip(ctx, request{Janus: "create"})
	if err != nil {
		return nil, err
	}
	if msg.Janus != "success" || msg.Data == nil {
		return nil, ErrBadReply
	}
	s := &Session{
		client:    c,
		id:        msg.Data.ID,
		keepalive: keepalive,
		timeout:   timeout,
		stop:      make(chan struct{}),
	}
	if s.keepalive > 0 {
		go s.keepaliveLoop()
	}
	log.Info().Str("module", "janus").Uint64("session", s.id).Msg("session created")
	return s, nil
}

func (s *Session) ID() uint64 { return s.id }

func (s *Session) keepaliveLoop() {
	t := time.NewTicker(s.keepalive)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-s.client.Done():
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout())
			_, err := s.client.roundTrip(ctx, request{Janus: "keepalive", SessionID: s.id})
			cancel()
			if err != nil {
				log.Warn().Err(err).Str("module", "janus").Uint64("session", s.id).Msg("keepalive failed")
			}
		}
	}
}

func (s *Session) requestTimeout() time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	return 10 * time.Second
}

func (s *Session) Attach(ctx context.Context, plugin, opaqueID string) (core.PluginHandle, error) {
	msg, err := s.client.roundTrip(ctx, request{
		Janus:     "attach",
		SessionID: s.id,
		Plugin:    plugin,
		OpaqueID:  opaqueID,
	})
	if err != nil {
		return nil, err
	}
	if msg.Janus != "success" || msg.Data == nil {
		return nil, ErrBadReply
	}
	h := newHandle(s, msg.Data.ID)
	s.client.register(h)
	log.Info().
		Str("module", "janus").
		Uint64("session", s.id).
		Uint64("handle", h.id).
		Str("plugin", plugin).
		Str("opaque_id", opaqueID).
		Msg("attached")
	return h, nil
}

// Destroy ends the session and closes the underlying connection.
func (s *Session) Destroy(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	defer s.client.Close()

	_, err := s.client.roundTrip(ctx, request{Janus: "destroy", SessionID: s.id})
	if err != nil {
		log.Warn().Err(err).Str("module", "janus").Uint64("session", s.id).Msg("destroy failed")
		return err
	}
	log.Info().Str("module", "janus").Uint64("session", s.id).Msg("session destroyed")
	return nil
}
