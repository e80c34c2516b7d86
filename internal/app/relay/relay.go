package relay

import (
	"context"
	"maps"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// Source yields inbound RTP. *webrtc.TrackRemote is one.
type Source interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Relay fans the packets of one inbound track out to its outlets.
type Relay struct {
	TrackInfo

	src   Source
	stats *StatsSink

	mu      sync.RWMutex
	outlets map[string]*Outlet

	cancel context.CancelFunc
	done   chan struct{}
}

func newRelay(info TrackInfo, src Source, cancel context.CancelFunc) *Relay {
	return &Relay{
		TrackInfo: info,
		src:       src,
		stats:     &StatsSink{},
		outlets:   make(map[string]*Outlet),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// loop reads packets from the source and forwards them until ctx is done
// or the source fails.
func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, closing all outlets")
			r.closeAll(logger)
			return
		default:
		}
		pkt, _, err := r.src.ReadRTP()
		if err != nil {
			logger.Debug().Err(err).Msg("relay source ended")
			r.closeAll(logger)
			return
		}
		_ = r.stats.WriteRTP(pkt)
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outlets)
	r.mu.RUnlock()

	var dirty []string
	for name, o := range snapshot {
		switch o.State() {
		case SinkDelete:
			dirty = append(dirty, name)
		case SinkMuted:
		case SinkOk:
			if err := o.Sink.WriteRTP(pkt); err != nil {
				logger.Warn().Err(err).Str("sink", name).Msg("relay write RTP error, marking outlet as delete")
				o.MarkDelete()
				dirty = append(dirty, name)
			}
		}
	}
	if len(dirty) > 0 {
		r.prune(dirty, logger)
	}
}

func (r *Relay) prune(names []string, logger *zerolog.Logger) {
	r.mu.Lock()
	var gone []*Outlet
	for _, n := range names {
		// Add may have replaced the outlet since the snapshot.
		if o, ok := r.outlets[n]; ok && o.State() == SinkDelete {
			delete(r.outlets, n)
			gone = append(gone, o)
		}
	}
	r.mu.Unlock()
	for _, o := range gone {
		if err := closeSink(o.Sink); err != nil {
			logger.Warn().Err(err).Msg("close sink")
		}
	}
}

// closeAll marks every outlet for delete and closes its sink.
func (r *Relay) closeAll(logger *zerolog.Logger) {
	r.mu.Lock()
	outlets := r.outlets
	r.outlets = make(map[string]*Outlet)
	r.mu.Unlock()
	for name, o := range outlets {
		o.MarkDelete()
		if err := closeSink(o.Sink); err != nil {
			logger.Warn().Err(err).Str("sink", name).Msg("close sink")
		}
	}
}

func (r *Relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.outlets {
		o.MarkDelete()
	}
}

// Add registers s under name, replacing any previous outlet of that name.
func (r *Relay) Add(name string, s Sink) *Outlet {
	o := NewOutlet(s)
	r.mu.Lock()
	old, replaced := r.outlets[name]
	r.outlets[name] = o
	r.mu.Unlock()
	if replaced {
		old.MarkDelete()
		_ = closeSink(old.Sink)
	}
	return o
}

func (r *Relay) Outlet(name string) (*Outlet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.outlets[name]
	return o, ok
}

func (r *Relay) Stats() TrackStats {
	st := r.stats.snapshot()
	st.Feed, st.TrackID, st.Kind = r.Feed, r.TrackID, r.Kind
	return st
}

// Done is closed when the relay loop has exited.
func (r *Relay) Done() <-chan struct{} { return r.done }

func (r *Relay) stop() {
	r.markAllDelete()
	if r.cancel != nil {
		r.cancel()
	}
}
