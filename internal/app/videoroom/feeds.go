package videoroom

import (
	"fmt"

	"github.com/dkeye/Duet/internal/core"
	"github.com/pion/webrtc/v4"
)

// Feed is one remote publisher we subscribe to.
type Feed struct {
	ID      uint64
	Display string

	// gen tells apart successive inserts of the same id.
	gen    uint64
	handle core.PluginHandle
	conn   core.MediaConnection
	stream *RemoteStream
}

// RemoteStream is the inbound media of a feed. A new value is built for
// every track change, so published snapshots never see mutation.
type RemoteStream struct {
	id     string
	tracks []*webrtc.TrackRemote
}

func (r *RemoteStream) StreamID() string { return r.id }

func (r *RemoteStream) Tracks() []*webrtc.TrackRemote {
	out := make([]*webrtc.TrackRemote, len(r.tracks))
	copy(out, r.tracks)
	return out
}

func (r *RemoteStream) with(feed uint64, t *webrtc.TrackRemote) *RemoteStream {
	next := &RemoteStream{id: fmt.Sprintf("feed-%d", feed)}
	if r != nil {
		next.id = r.id
		next.tracks = append(next.tracks, r.tracks...)
	}
	if t != nil && t.StreamID() != "" && len(next.tracks) == 0 {
		next.id = t.StreamID()
	}
	next.tracks = append(next.tracks, t)
	return next
}

// FeedRegistry holds at most one Feed per remote id, in insertion order.
// It is owned by the session loop.
type FeedRegistry struct {
	order   []uint64
	byID    map[uint64]*Feed
	nextGen uint64
}

func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{byID: make(map[uint64]*Feed)}
}

// Insert adds a feed; false if the id is already present.
func (r *FeedRegistry) Insert(id uint64, display string) (*Feed, bool) {
	if _, ok := r.byID[id]; ok {
		return nil, false
	}
	r.nextGen++
	f := &Feed{ID: id, Display: display, gen: r.nextGen}
	r.byID[id] = f
	r.order = append(r.order, id)
	return f, true
}

func (r *FeedRegistry) Get(id uint64) (*Feed, bool) {
	f, ok := r.byID[id]
	return f, ok
}

// Lookup returns the feed only if it is still the insert gen refers to.
func (r *FeedRegistry) Lookup(id, gen uint64) (*Feed, bool) {
	f, ok := r.byID[id]
	if !ok || f.gen != gen {
		return nil, false
	}
	return f, true
}

// Delete removes and returns the feed, nil if unknown.
func (r *FeedRegistry) Delete(id uint64) *Feed {
	f, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return f
}

// Clear empties the registry and returns what it held.
func (r *FeedRegistry) Clear() []*Feed {
	out := make([]*Feed, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	r.order = nil
	r.byID = make(map[uint64]*Feed)
	return out
}

func (r *FeedRegistry) Len() int { return len(r.order) }

func (r *FeedRegistry) IDs() []uint64 {
	out := make([]uint64, len(r.order))
	copy(out, r.order)
	return out
}

func (r *FeedRegistry) Each(fn func(*Feed)) {
	for _, id := range r.order {
		fn(r.byID[id])
	}
}
