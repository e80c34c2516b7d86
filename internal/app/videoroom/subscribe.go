package videoroom

import (
	"context"
	"fmt"

	"github.com/dkeye/Duet/internal/core"
	"github.com/pion/webrtc/v4"
)

// subscribe inserts a feed for id and starts its subscriber handshake.
// Known ids and our own publisher id are ignored.
func (s *Session) subscribe(id uint64, display string) {
	if id == 0 || id == s.id {
		return
	}
	f, ok := s.feeds.Insert(id, display)
	if !ok {
		return
	}
	s.logger.Info().Uint64("feed", id).Str("display", display).Msg("subscribing")

	epoch, gen := s.epoch, f.gen
	gs := s.gs
	s.spawn(func(ctx context.Context) Event {
		h, err := gs.Attach(ctx, plugin, opaqueID("subscriber"))
		return Event{Kind: EventFeedAttached, Epoch: epoch, Feed: id, Gen: gen, Handle: h, Err: err}
	})
}

// remove deletes the feed and releases its handle in the background.
func (s *Session) remove(id uint64) {
	f := s.feeds.Delete(id)
	if f == nil {
		return
	}
	s.logger.Info().Uint64("feed", id).Msg("feed removed")
	if s.sink != nil {
		s.sink.StopFeed(id)
	}
	logger := s.logger
	timeout := s.opts.RequestTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		releaseFeed(ctx, logger, f)
	}()
}

func (s *Session) onFeedAttached(ev Event) {
	if s.stale(ev) {
		go release(ev, s.opts.RequestTimeout)
		return
	}
	f, ok := s.feeds.Lookup(ev.Feed, ev.Gen)
	if !ok || f.handle != nil {
		s.logger.Debug().Uint64("feed", ev.Feed).Msg("attach landed for removed feed")
		go release(ev, s.opts.RequestTimeout)
		return
	}
	if ev.Err != nil {
		s.logger.Warn().Err(ev.Err).Uint64("feed", ev.Feed).Msg("subscriber attach failed")
		s.remove(ev.Feed)
		return
	}
	f.handle = ev.Handle
	s.forward(s.epoch, f.ID, f.gen, f.handle)

	epoch, gen := s.epoch, f.gen
	h := f.handle
	join := map[string]any{
		"request":    "join",
		"room":       s.opts.Room,
		"ptype":      "subscriber",
		"feed":       f.ID,
		"private_id": s.privateID,
	}
	s.spawn(func(ctx context.Context) Event {
		_, err := h.Send(ctx, join, nil)
		if err != nil {
			return Event{Kind: EventFeedAnswered, Epoch: epoch, Feed: f.ID, Gen: gen, Err: fmt.Errorf("subscriber join: %w", err)}
		}
		return Event{Kind: EventMediaState, Epoch: epoch, Feed: f.ID, Gen: gen, Reason: "join_sent"}
	})
}

func (s *Session) onFeedMessage(ev Event) {
	if s.stale(ev) {
		return
	}
	f, ok := s.feeds.Lookup(ev.Feed, ev.Gen)
	if !ok {
		return
	}
	if ev.Data != nil && ev.Data.failed() {
		s.logger.Warn().Uint64("feed", f.ID).Int("code", ev.Data.ErrorCode).Str("error", ev.Data.Error).Msg("subscriber error")
		s.remove(f.ID)
		return
	}
	if ev.JSEP == nil || ev.JSEP.Type != "offer" {
		return
	}
	if f.conn != nil {
		f.conn.Close()
		f.stream = nil
	}
	conn, err := s.media.NewSubscriber()
	if err != nil {
		s.logger.Warn().Err(err).Uint64("feed", f.ID).Msg("subscriber connection failed")
		s.remove(f.ID)
		return
	}
	f.conn = conn

	epoch, id, gen := s.epoch, f.ID, f.gen
	conn.OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		_ = s.post(Event{Kind: EventFeedTrack, Epoch: epoch, Feed: id, Gen: gen, Track: track, TrackCtx: ctx})
	})

	h := f.handle
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: ev.JSEP.SDP}
	start := map[string]any{"request": "start", "room": s.opts.Room}
	s.spawn(func(ctx context.Context) Event {
		ev := Event{Kind: EventFeedAnswered, Epoch: epoch, Feed: id, Gen: gen}
		answer, err := conn.ApplyOfferAndCreateAnswer(ctx, offer)
		if err != nil {
			ev.Err = fmt.Errorf("answer: %w", err)
			return ev
		}
		if _, err := h.Send(ctx, start, &core.JSEP{Type: answer.Type.String(), SDP: answer.SDP}); err != nil {
			ev.Err = fmt.Errorf("start: %w", err)
		}
		return ev
	})
}

func (s *Session) onFeedAnswered(ev Event) {
	if s.stale(ev) {
		return
	}
	if _, ok := s.feeds.Lookup(ev.Feed, ev.Gen); !ok {
		return
	}
	if ev.Err != nil {
		s.logger.Warn().Err(ev.Err).Uint64("feed", ev.Feed).Msg("subscriber negotiation failed")
		s.remove(ev.Feed)
		return
	}
	s.logger.Info().Uint64("feed", ev.Feed).Msg("subscriber answered")
}

func (s *Session) onFeedTrack(ev Event) {
	if s.stale(ev) {
		return
	}
	f, ok := s.feeds.Lookup(ev.Feed, ev.Gen)
	if !ok {
		return
	}
	f.stream = f.stream.with(f.ID, ev.Track)
	if s.sink != nil && ev.Track != nil {
		ctx := ev.TrackCtx
		if ctx == nil {
			ctx = s.connCtx
		}
		s.sink.StartTrack(ctx, f.ID, ev.Track)
	}
}

// onFeedHangup drops the feed's media; the feed itself stays listed.
func (s *Session) onFeedHangup(ev Event) {
	if s.stale(ev) {
		return
	}
	f, ok := s.feeds.Lookup(ev.Feed, ev.Gen)
	if !ok {
		return
	}
	if f.conn != nil {
		go f.conn.Close()
		f.conn = nil
	}
	f.stream = nil
	if s.sink != nil {
		s.sink.StopFeed(f.ID)
	}
	s.logger.Info().Uint64("feed", f.ID).Str("reason", ev.Reason).Msg("feed hung up")
}

func (s *Session) onFeedDetached(ev Event) {
	if s.stale(ev) {
		return
	}
	f, ok := s.feeds.Lookup(ev.Feed, ev.Gen)
	if !ok {
		return
	}
	f.handle = nil
	s.remove(f.ID)
}
