package relay

import (
	"io"
	"sync/atomic"

	"github.com/pion/rtp"
)

type SinkState int32

const (
	SinkOk SinkState = iota
	SinkMuted
	SinkDelete
)

func (s SinkState) String() string {
	switch s {
	case SinkOk:
		return "ok"
	case SinkMuted:
		return "muted"
	case SinkDelete:
		return "delete"
	}
	return "unknown"
}

// Sink consumes relayed packets. *webrtc.TrackLocalStaticRTP is one.
// A sink that is also an io.Closer is closed when its outlet goes away.
type Sink interface {
	WriteRTP(*rtp.Packet) error
}

// TrackInfo names one relayed track.
type TrackInfo struct {
	Feed     uint64
	TrackID  string
	Kind     string
	MimeType string
}

// SinkFactory builds the sink an attachment gets on a relay; nil skips it.
type SinkFactory func(TrackInfo) Sink

func closeSink(s Sink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Outlet is one registered sink of a relay.
type Outlet struct {
	Sink  Sink
	state atomic.Int32 // zero is SinkOk
}

func NewOutlet(s Sink) *Outlet {
	return &Outlet{Sink: s}
}

func (o *Outlet) State() SinkState { return SinkState(o.state.Load()) }

func (o *Outlet) MarkOk()     { o.state.Store(int32(SinkOk)) }
func (o *Outlet) MarkMuted()  { o.state.Store(int32(SinkMuted)) }
func (o *Outlet) MarkDelete() { o.state.Store(int32(SinkDelete)) }
