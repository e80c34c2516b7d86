package relay

import (
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
)

// TrackStats is a point-in-time copy of a relay's counters.
type TrackStats struct {
	Feed     uint64    `json:"feed"`
	TrackID  string    `json:"trackId"`
	Kind     string    `json:"kind"`
	Packets  uint64    `json:"packets"`
	Bytes    uint64    `json:"bytes"`
	LastSeq  uint16    `json:"lastSeq"`
	LastSeen time.Time `json:"lastSeen"`
}

// StatsSink counts what flows through a relay.
type StatsSink struct {
	packets  atomic.Uint64
	bytes    atomic.Uint64
	lastSeq  atomic.Uint32
	lastSeen atomic.Int64
}

func (s *StatsSink) WriteRTP(p *rtp.Packet) error {
	s.packets.Add(1)
	s.bytes.Add(uint64(len(p.Payload)))
	s.lastSeq.Store(uint32(p.SequenceNumber))
	s.lastSeen.Store(time.Now().UnixNano())
	return nil
}

func (s *StatsSink) snapshot() TrackStats {
	st := TrackStats{
		Packets: s.packets.Load(),
		Bytes:   s.bytes.Load(),
		LastSeq: uint16(s.lastSeq.Load()),
	}
	if ns := s.lastSeen.Load(); ns != 0 {
		st.LastSeen = time.Unix(0, ns)
	}
	return st
}
