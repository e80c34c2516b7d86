package videoroom

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Duet/internal/core"
	"github.com/pion/webrtc/v4"
)

func (s *Session) onConnect(Event) {
	if s.state != StateIdle {
		s.logger.Debug().Str("state", s.state.String()).Msg("connect ignored")
		return
	}
	s.epoch++
	s.state = StateConnecting
	s.err = nil
	epoch := s.epoch
	s.logger.Info().Str("display", s.opts.Display).Msg("connecting")

	s.spawn(func(ctx context.Context) Event {
		gs, err := s.gw.Open(ctx)
		return Event{Kind: EventSessionOpened, Epoch: epoch, Session: gs, Err: err}
	})
}

func (s *Session) onDisconnect(ev Event) {
	s.logger.Info().Str("state", s.state.String()).Msg("disconnecting")
	s.err = nil
	releaseAll := s.teardown()
	s.publish()
	go func() {
		releaseAll()
		if ev.done != nil {
			close(ev.done)
		}
	}()
}

func (s *Session) onSessionOpened(ev Event) {
	if s.stale(ev) {
		go release(ev, s.opts.RequestTimeout)
		return
	}
	if ev.Err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrSignalingUnreachable, ev.Err))
		return
	}
	s.gs = ev.Session
	epoch := s.epoch
	gs := s.gs
	s.spawn(func(ctx context.Context) Event {
		h, err := gs.Attach(ctx, plugin, opaqueID("publisher"))
		return Event{Kind: EventPublisherAttached, Epoch: epoch, Handle: h, Err: err}
	})
}

func (s *Session) onPublisherAttached(ev Event) {
	if s.stale(ev) {
		go release(ev, s.opts.RequestTimeout)
		return
	}
	if ev.Err != nil {
		s.fail(fmt.Errorf("%w: attach publisher: %v", ErrNegotiation, ev.Err))
		return
	}
	s.pub = ev.Handle
	s.forward(s.epoch, 0, 0, s.pub)
	s.logger.Info().Uint64("handle", s.pub.ID()).Msg("publisher attached")

	epoch := s.epoch
	h := s.pub
	create := map[string]any{
		"request":     "create",
		"room":        s.opts.Room,
		"permanent":   false,
		"publishers":  s.opts.Publishers,
		"bitrate":     s.opts.Bitrate,
		"fir_freq":    s.opts.FIRFreq,
		"description": s.opts.Description,
		"is_private":  false,
	}
	join := map[string]any{
		"request": "join",
		"room":    s.opts.Room,
		"ptype":   "publisher",
		"display": s.opts.Display,
	}
	s.spawn(func(ctx context.Context) Event {
		ev := Event{Kind: EventRoomJoinSent, Epoch: epoch}
		reply, err := h.Send(ctx, create, nil)
		if err != nil {
			ev.Err = fmt.Errorf("create room: %w", err)
			return ev
		}
		if data, perr := parseRoomData(reply); perr == nil && data.failed() && data.ErrorCode != errRoomExists {
			ev.Err = fmt.Errorf("create room: %d %s", data.ErrorCode, data.Error)
			return ev
		}
		if _, err := h.Send(ctx, join, nil); err != nil {
			ev.Err = fmt.Errorf("join room: %w", err)
		}
		return ev
	})
}

func (s *Session) onRoomJoinSent(ev Event) {
	if s.stale(ev) {
		return
	}
	if ev.Err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrNegotiation, ev.Err))
	}
}

func (s *Session) onPublisherMessage(ev Event) {
	if s.stale(ev) {
		return
	}
	if ev.Err != nil || ev.Data == nil {
		s.logger.Warn().Err(ev.Err).Msg("bad publisher event")
		return
	}
	d := ev.Data

	if d.failed() {
		s.logger.Warn().Int("code", d.ErrorCode).Str("error", d.Error).Msg("videoroom error")
		if s.state == StateConnecting || (s.state == StateJoined && s.pubConn != nil) {
			s.fail(fmt.Errorf("%w: %d %s", ErrNegotiation, d.ErrorCode, d.Error))
		}
		return
	}

	switch d.VideoRoom {
	case "joined":
		s.onJoined(d)
	case "event":
		s.onRosterUpdate(d)
	}

	if ev.JSEP != nil && ev.JSEP.Type == "answer" {
		s.applyPublisherAnswer(ev.JSEP)
	}
}

func (s *Session) onJoined(d *roomData) {
	if s.state != StateConnecting {
		return
	}
	s.id, s.privateID = d.ID, d.PrivateID
	s.state = StateJoined
	s.logger.Info().Uint64("publisher", s.id).Int("roster", len(d.Publishers)).Msg("joined")

	s.startCapture()
	for _, p := range d.Publishers {
		s.subscribe(p.ID, p.Display)
	}
}

func (s *Session) onRosterUpdate(d *roomData) {
	if s.state < StateJoined {
		return
	}
	for _, p := range d.Publishers {
		s.subscribe(p.ID, p.Display)
	}
	if d.Leaving.Set && !d.Leaving.OK {
		s.remove(d.Leaving.ID)
	}
	if d.Unpublished.Set {
		if d.Unpublished.OK {
			s.hangupPublisher("unpublished")
		} else {
			s.remove(d.Unpublished.ID)
		}
	}
}

func (s *Session) startCapture() {
	if s.capturing || s.local != nil {
		return
	}
	s.capturing = true
	epoch := s.epoch
	ctx := s.connCtx
	go func() {
		m, err := s.capture.Capture(ctx)
		_ = s.post(Event{Kind: EventCaptured, Epoch: epoch, Media: m, Err: err})
	}()
}

func (s *Session) onCaptured(ev Event) {
	if s.stale(ev) {
		go release(ev, s.opts.RequestTimeout)
		return
	}
	s.capturing = false
	if ev.Err != nil {
		err := ev.Err
		if !errors.Is(err, core.ErrCaptureDenied) {
			err = fmt.Errorf("%w: %v", core.ErrCaptureDenied, err)
		}
		s.fail(err)
		return
	}
	s.local = ev.Media
	s.logger.Info().Str("stream", s.local.StreamID()).Msg("local media captured")
	s.startPublish()
}

func (s *Session) startPublish() {
	if s.state != StateJoined || s.local == nil || s.pubConn != nil {
		return
	}
	conn, err := s.media.NewPublisher(s.local)
	if err != nil {
		s.fail(fmt.Errorf("%w: publisher connection: %v", ErrNegotiation, err))
		return
	}
	s.pubConn = conn
	if s.muted {
		_ = conn.SetSending(webrtc.RTPCodecTypeAudio, false)
	}
	if s.cameraOff {
		_ = conn.SetSending(webrtc.RTPCodecTypeVideo, false)
	}

	epoch := s.epoch
	h := s.pub
	s.spawn(func(ctx context.Context) Event {
		ev := Event{Kind: EventPublishSent, Epoch: epoch}
		offer, err := conn.CreateOffer(ctx)
		if err != nil {
			ev.Err = fmt.Errorf("create offer: %w", err)
			return ev
		}
		body := map[string]any{"request": "configure", "audio": true, "video": true}
		if _, err := h.Send(ctx, body, &core.JSEP{Type: offer.Type.String(), SDP: offer.SDP}); err != nil {
			ev.Err = fmt.Errorf("configure: %w", err)
		}
		return ev
	})
}

func (s *Session) onPublishSent(ev Event) {
	if s.stale(ev) {
		return
	}
	if ev.Err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrNegotiation, ev.Err))
	}
}

func (s *Session) applyPublisherAnswer(jsep *core.JSEP) {
	if s.pubConn == nil {
		s.logger.Warn().Msg("answer without publisher connection")
		return
	}
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: jsep.SDP}
	if err := s.pubConn.ApplyAnswer(answer); err != nil {
		s.fail(fmt.Errorf("%w: apply answer: %v", ErrNegotiation, err))
		return
	}
	s.state = StatePublishing
	s.logger.Info().Msg("publishing")
}

// hangupPublisher closes the publish connection and drops back to joined.
func (s *Session) hangupPublisher(reason string) {
	if s.pubConn == nil {
		return
	}
	conn := s.pubConn
	s.pubConn = nil
	go conn.Close()
	if s.state == StatePublishing {
		s.state = StateJoined
	}
	s.logger.Info().Str("reason", reason).Msg("publisher hung up")
}

func (s *Session) onPublisherHangup(ev Event) {
	if s.stale(ev) {
		return
	}
	s.hangupPublisher(ev.Reason)
}

func (s *Session) onPublisherDetached(ev Event) {
	if s.stale(ev) {
		return
	}
	s.pub = nil
	s.fail(fmt.Errorf("%w: publisher handle detached", ErrNegotiation))
}

func (s *Session) onToggleMute(Event) {
	if s.state != StatePublishing || s.pubConn == nil {
		return
	}
	next := !s.muted
	if err := s.pubConn.SetSending(webrtc.RTPCodecTypeAudio, !next); err != nil {
		s.logger.Warn().Err(err).Msg("toggle mute failed")
		return
	}
	s.muted = next
}

func (s *Session) onToggleCamera(Event) {
	if s.state != StatePublishing || s.pubConn == nil {
		return
	}
	next := !s.cameraOff
	if err := s.pubConn.SetSending(webrtc.RTPCodecTypeVideo, !next); err != nil {
		s.logger.Warn().Err(err).Msg("toggle camera failed")
		return
	}
	s.cameraOff = next
}

func (s *Session) onMediaState(ev Event) {
	if s.stale(ev) {
		return
	}
	s.logger.Debug().Uint64("feed", ev.Feed).Str("kind", ev.Reason).Msg("media state")
}
