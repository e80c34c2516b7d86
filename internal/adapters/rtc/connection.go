package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Duet/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNoSender = errors.New("no sender for track kind")

type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	role   string
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	senders map[webrtc.RTPCodecType]*sender

	onTrack   func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onClosed  func()
	closeOnce sync.Once
}

type sender struct {
	rtp   *webrtc.RTPSender
	track webrtc.TrackLocal
	on    bool
}

func DefaultWebRTCConfig(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: iceServers,
			},
		},
	}
}

func NewWebRTCConnection(api *webrtc.API, cfg webrtc.Configuration, role string) (*WebRTCConnection, error) {
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &WebRTCConnection{
		pc:      pc,
		role:    role,
		ctx:     ctx,
		cancel:  cancel,
		senders: make(map[webrtc.RTPCodecType]*sender),
	}
	c.bind()
	return c, nil
}

func (c *WebRTCConnection) bind() {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("role", c.role).Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateFailed ||
			s == webrtc.ICEConnectionStateClosed {
			c.cancel()
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("role", c.role).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			c.fireClosed()
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("role", c.role).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		c.mu.Lock()
		fn := c.onTrack
		c.mu.Unlock()
		if fn != nil {
			fn(c.ctx, track, receiver)
		}
	})
}

// AddSendTracks adds one send-only transceiver per local track.
func (c *WebRTCConnection) AddSendTracks(tracks []webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tracks {
		tr, err := c.pc.AddTransceiverFromTrack(t, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendonly,
		})
		if err != nil {
			return err
		}
		c.senders[t.Kind()] = &sender{rtp: tr.Sender(), track: t, on: true}
		go drainRTCP(tr.Sender())
	}
	return nil
}

// drainRTCP keeps interceptors running for the sender.
func drainRTCP(s *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := s.Read(buf); err != nil {
			return
		}
	}
}

func (c *WebRTCConnection) CreateOffer(ctx context.Context) (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	return c.setLocalAndGather(ctx, offer)
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(answer)
}

func (c *WebRTCConnection) ApplyOfferAndCreateAnswer(ctx context.Context, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	return c.setLocalAndGather(ctx, answer)
}

func (c *WebRTCConnection) setLocalAndGather(ctx context.Context, desc webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(desc); err != nil {
		return nil, err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.pc.LocalDescription(), nil
}

// SetSending swaps the sender track with nil to stop sending that kind.
func (c *WebRTCConnection) SetSending(kind webrtc.RTPCodecType, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.senders[kind]
	if !ok {
		return ErrNoSender
	}
	if s.on == on {
		return nil
	}
	var t webrtc.TrackLocal
	if on {
		t = s.track
	}
	if err := s.rtp.ReplaceTrack(t); err != nil {
		return err
	}
	s.on = on
	log.Info().Str("module", "webrtc").Str("role", c.role).Str("kind", kind.String()).Bool("on", on).Msg("sending toggled")
	return nil
}

func (c *WebRTCConnection) Close() {
	c.cancel()
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("role", c.role).Msg("close error")
	} else {
		log.Info().Str("module", "webrtc").Str("role", c.role).Msg("closed")
	}
	c.fireClosed()
}

func (c *WebRTCConnection) fireClosed() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		fn := c.onClosed
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (c *WebRTCConnection) LocalDescription() *webrtc.SessionDescription {
	return c.pc.LocalDescription()
}

// OnTrack sets application-level callback for remote tracks.
func (c *WebRTCConnection) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

// OnClosed sets application-level callback for cleanup tracks
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

var _ core.MediaConnection = (*WebRTCConnection)(nil)
