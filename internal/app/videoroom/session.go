// Package videoroom drives a room visit against the SFU videoroom plugin:
// join as publisher, publish local media, subscribe to every remote feed.
package videoroom

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Duet/internal/core"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const plugin = "janus.plugin.videoroom"

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateJoined
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StatePublishing:
		return "publishing"
	}
	return "unknown"
}

type Options struct {
	Room        uint64
	Display     string
	Publishers  int
	Bitrate     int
	FIRFreq     int
	Description string

	// RequestTimeout bounds each signaling round trip and every release.
	RequestTimeout time.Duration
}

func (o *Options) defaults() {
	if o.Publishers == 0 {
		o.Publishers = 6
	}
	if o.Bitrate == 0 {
		o.Bitrate = 128000
	}
	if o.FIRFreq == 0 {
		o.FIRFreq = 10
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 10 * time.Second
	}
}

// TrackSink receives inbound tracks of feeds.
type TrackSink interface {
	StartTrack(ctx context.Context, feed uint64, track *webrtc.TrackRemote)
	StopFeed(feed uint64)
}

// Snapshot is an immutable copy of the observable session state.
type Snapshot struct {
	State       State    `json:"state"`
	Err         error    `json:"-"`
	PublisherID uint64   `json:"publisherId,omitempty"`
	Muted       bool     `json:"muted"`
	CameraOff   bool     `json:"cameraOff"`
	Members     []Member `json:"members"`
	Feeds       []uint64 `json:"feeds"`
	// Handles counts the gateway session and every plugin handle still held.
	Handles int `json:"handles"`
}

// Error is Err as text, empty when there is none.
func (s Snapshot) Error() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

type Session struct {
	gw      core.Gateway
	media   core.MediaFactory
	capture core.Capturer
	sink    TrackSink
	opts    Options
	logger  zerolog.Logger

	events  chan Event
	stopped chan struct{}
	running chan struct{}

	// loop-owned
	runCtx     context.Context
	connCtx    context.Context
	connCancel context.CancelFunc
	epoch      uint64
	state      State
	err        error
	gs         core.GatewaySession
	pub        core.PluginHandle
	pubConn    core.MediaConnection
	local      core.LocalMedia
	capturing  bool
	id         uint64
	privateID  uint64
	muted      bool
	cameraOff  bool
	feeds      *FeedRegistry

	mu        sync.RWMutex
	snap      Snapshot
	observers map[int]func(Snapshot)
	nextObs   int
}

func New(gw core.Gateway, media core.MediaFactory, capture core.Capturer, sink TrackSink, opts Options) *Session {
	opts.defaults()
	return &Session{
		gw:        gw,
		media:     media,
		capture:   capture,
		sink:      sink,
		opts:      opts,
		logger:    log.With().Str("module", "videoroom").Uint64("room", opts.Room).Logger(),
		events:    make(chan Event, 64),
		stopped:   make(chan struct{}),
		running:   make(chan struct{}),
		feeds:     NewFeedRegistry(),
		observers: make(map[int]func(Snapshot)),
	}
}

// Run owns all session state until ctx is done; it tears everything down
// before returning.
func (s *Session) Run(ctx context.Context) {
	s.runCtx = ctx
	s.connCtx, s.connCancel = context.WithCancel(ctx)
	close(s.running)
	defer close(s.stopped)

	for {
		select {
		case <-ctx.Done():
			s.teardown()()
			s.publish()
			s.logger.Info().Msg("session loop stopped")
			return
		case ev := <-s.events:
			h, ok := dispatch[ev.Kind]
			if !ok {
				s.logger.Warn().Str("event", ev.Kind.String()).Msg("no handler")
				continue
			}
			h(s, ev)
			s.publish()
		}
	}
}

// Connect starts joining the room; no-op unless idle.
func (s *Session) Connect() error {
	return s.post(Event{Kind: EventConnect})
}

// Disconnect tears the session down and waits for every handle to be released.
func (s *Session) Disconnect(ctx context.Context) error {
	done := make(chan struct{})
	if err := s.post(Event{Kind: EventDisconnect, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) ToggleMute() error   { return s.post(Event{Kind: EventToggleMute}) }
func (s *Session) ToggleCamera() error { return s.post(Event{Kind: EventToggleCamera}) }

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Session) Members() []Member {
	return s.Snapshot().Members
}

// Subscribe registers fn for snapshot changes and returns its cancel func.
// fn runs on the session loop and must not block.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Done is closed when Run has returned.
func (s *Session) Done() <-chan struct{} { return s.stopped }

func (s *Session) post(ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.stopped:
		go release(ev, s.opts.RequestTimeout)
		return ErrStopped
	}
}

// spawn runs blocking work off the loop; fn returns the event to post.
func (s *Session) spawn(fn func(ctx context.Context) Event) {
	ctx := s.connCtx
	timeout := s.opts.RequestTimeout
	go func() {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		_ = s.post(fn(tctx))
	}()
}

// forward feeds a handle's events into the loop. feed and gen are zero
// for the publisher.
func (s *Session) forward(epoch, feed, gen uint64, h core.PluginHandle) {
	go func() {
		for hev := range h.Events() {
			ev, ok := ingress(epoch, feed, hev)
			if !ok {
				continue
			}
			ev.Gen = gen
			if s.post(ev) != nil {
				return
			}
		}
	}()
}

func (s *Session) stale(ev Event) bool {
	return ev.Epoch != s.epoch
}

func (s *Session) publish() {
	next := Snapshot{
		State:       s.state,
		Err:         s.err,
		PublisherID: s.id,
		Muted:       s.muted,
		CameraOff:   s.cameraOff,
		Members:     deriveMembers(s.opts.Display, s.local, s.muted, s.cameraOff, s.feeds),
		Feeds:       s.feeds.IDs(),
		Handles:     s.handleCount(),
	}

	s.mu.Lock()
	prev := s.snap
	s.snap = next
	var fns []func(Snapshot)
	if changed(prev, next) {
		fns = make([]func(Snapshot), 0, len(s.observers))
		for _, fn := range s.observers {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

func changed(a, b Snapshot) bool {
	return a.State != b.State || a.Err != b.Err || a.Muted != b.Muted ||
		a.CameraOff != b.CameraOff || !sameMembers(a.Members, b.Members)
}

func (s *Session) handleCount() int {
	n := 0
	if s.gs != nil {
		n++
	}
	if s.pub != nil {
		n++
	}
	s.feeds.Each(func(f *Feed) {
		if f.handle != nil {
			n++
		}
	})
	return n
}

// teardown takes every resource out of loop state and resets to idle.
// The returned func releases them (feeds in parallel) and blocks until done.
func (s *Session) teardown() func() {
	s.epoch++
	if s.connCancel != nil {
		s.connCancel()
	}
	s.connCtx, s.connCancel = context.WithCancel(s.runCtx)

	feeds := s.feeds.Clear()
	pub, pubConn, local, gs := s.pub, s.pubConn, s.local, s.gs
	s.pub, s.pubConn, s.local, s.gs = nil, nil, nil, nil
	s.state = StateIdle
	s.capturing = false
	s.id, s.privateID = 0, 0
	s.muted, s.cameraOff = false, false

	if s.sink != nil {
		for _, f := range feeds {
			s.sink.StopFeed(f.ID)
		}
	}

	timeout := s.opts.RequestTimeout
	logger := s.logger
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		p := pool.New()
		for _, f := range feeds {
			p.Go(func() { releaseFeed(ctx, logger, f) })
		}
		if pub != nil {
			p.Go(func() {
				if err := pub.Detach(ctx); err != nil {
					logger.Warn().Err(err).Uint64("handle", pub.ID()).Msg("publisher detach failed")
				}
			})
		}
		if pubConn != nil {
			p.Go(pubConn.Close)
		}
		if local != nil {
			p.Go(func() {
				if err := local.Close(); err != nil {
					logger.Warn().Err(err).Msg("release local media failed")
				}
			})
		}
		p.Wait()

		if gs != nil {
			if err := gs.Destroy(ctx); err != nil {
				logger.Warn().Err(err).Msg("destroy session failed")
			}
		}
	}
}

func releaseFeed(ctx context.Context, logger zerolog.Logger, f *Feed) {
	if f.conn != nil {
		f.conn.Close()
	}
	if f.handle != nil {
		if err := f.handle.Detach(ctx); err != nil {
			logger.Warn().Err(err).Uint64("feed", f.ID).Msg("feed detach failed")
		}
	}
}

// fail aborts the current connection and records err.
func (s *Session) fail(err error) {
	s.logger.Error().Err(err).Str("state", s.state.String()).Msg("session failed")
	releaseAll := s.teardown()
	go releaseAll()
	s.err = err
}

// release frees whatever a dropped or stale event carries.
func release(ev Event, timeout time.Duration) {
	if ev.Handle == nil && ev.Session == nil && ev.Media == nil && ev.Conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if ev.Conn != nil {
		ev.Conn.Close()
	}
	if ev.Media != nil {
		_ = ev.Media.Close()
	}
	if ev.Handle != nil {
		_ = ev.Handle.Detach(ctx)
	}
	if ev.Session != nil {
		_ = ev.Session.Destroy(ctx)
	}
}

func opaqueID(role string) string {
	return "videoroom-" + role + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
