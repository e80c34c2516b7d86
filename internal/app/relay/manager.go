// Package relay reads the inbound tracks of remote feeds and fans their
// packets out to local sinks.
package relay

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Manager holds the relays of every feed in a visit. It is safe for
// concurrent use.
type Manager struct {
	mu     sync.RWMutex
	relays map[uint64]map[string]*Relay
	sinks  map[string]SinkFactory
}

func NewManager() *Manager {
	return &Manager{
		relays: make(map[uint64]map[string]*Relay),
		sinks:  make(map[string]SinkFactory),
	}
}

// StartTrack relays a remote track of feed.
func (m *Manager) StartTrack(ctx context.Context, feed uint64, track *webrtc.TrackRemote) {
	m.Start(ctx, TrackInfo{
		Feed:     feed,
		TrackID:  track.ID(),
		Kind:     track.Kind().String(),
		MimeType: track.Codec().MimeType,
	}, track)
}

// Start creates the relay for info's track and runs its loop. A relay
// already running for the same track is replaced.
func (m *Manager) Start(ctx context.Context, info TrackInfo, src Source) *Relay {
	logger := log.With().
		Str("module", "relay").
		Uint64("feed", info.Feed).
		Str("track", info.TrackID).
		Str("kind", info.Kind).
		Logger()

	rctx, cancel := context.WithCancel(ctx)
	r := newRelay(info, src, cancel)

	m.mu.Lock()
	tracks, ok := m.relays[info.Feed]
	if !ok {
		tracks = make(map[string]*Relay)
		m.relays[info.Feed] = tracks
	}
	if old, ok := tracks[info.TrackID]; ok {
		logger.Info().Msg("replacing existing relay for track")
		old.stop()
	}
	tracks[info.TrackID] = r
	for name, mk := range m.sinks {
		if s := mk(info); s != nil {
			r.Add(name, s)
		}
	}
	m.mu.Unlock()

	logger.Info().Msg("starting relay loop")
	go r.loop(rctx, &logger)
	return r
}

// StopFeed stops every relay of feed.
func (m *Manager) StopFeed(feed uint64) {
	m.mu.Lock()
	tracks := m.relays[feed]
	delete(m.relays, feed)
	m.mu.Unlock()
	for _, r := range tracks {
		r.stop()
	}
	if len(tracks) > 0 {
		log.Info().Str("module", "relay").Uint64("feed", feed).Int("tracks", len(tracks)).Msg("stopped feed relays")
	}
}

// StopAll stops every relay.
func (m *Manager) StopAll() {
	m.mu.Lock()
	all := m.relays
	m.relays = make(map[uint64]map[string]*Relay)
	m.mu.Unlock()
	for _, tracks := range all {
		for _, r := range tracks {
			r.stop()
		}
	}
}

// Attach registers a sink factory under name; every current and future
// relay gets a sink from mk. mk returning nil skips that relay.
func (m *Manager) Attach(name string, mk SinkFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks[name] = mk
	m.each(func(r *Relay) {
		if s := mk(r.TrackInfo); s != nil {
			r.Add(name, s)
		}
	})
}

// Detach marks the named outlet of every relay for deletion. Sinks are
// closed once their relay next forwards or ends.
func (m *Manager) Detach(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sinks, name)
	m.each(func(r *Relay) {
		if o, ok := r.Outlet(name); ok {
			o.MarkDelete()
		}
	})
}

// SetMuted pauses or resumes the named outlet on all relays of feed.
func (m *Manager) SetMuted(feed uint64, name string, muted bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.relays[feed] {
		o, ok := r.Outlet(name)
		if !ok || o.State() == SinkDelete {
			continue
		}
		if muted {
			o.MarkMuted()
		} else {
			o.MarkOk()
		}
	}
}

// HasFeed reports whether any track of feed is being relayed.
func (m *Manager) HasFeed(feed uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relays[feed]) > 0
}

// Stats lists relay counters ordered by feed then track id.
func (m *Manager) Stats() []TrackStats {
	m.mu.RLock()
	var out []TrackStats
	m.each(func(r *Relay) { out = append(out, r.Stats()) })
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b TrackStats) int {
		if c := cmp.Compare(a.Feed, b.Feed); c != 0 {
			return c
		}
		return cmp.Compare(a.TrackID, b.TrackID)
	})
	return out
}

// each must be called with mu held.
func (m *Manager) each(fn func(*Relay)) {
	for _, tracks := range m.relays {
		for _, r := range tracks {
			fn(r)
		}
	}
}
