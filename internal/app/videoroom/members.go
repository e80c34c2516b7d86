package videoroom

import (
	"strconv"

	"github.com/dkeye/Duet/internal/core"
)

// LocalMemberID identifies the local participant in the member list.
const LocalMemberID = "local"

// Member is the renderable projection of a participant. HasStream is
// false for a feed whose media has not arrived.
type Member struct {
	ID        string      `json:"id"`
	Display   string      `json:"display"`
	Local     bool        `json:"local"`
	Muted     bool        `json:"muted"`
	CameraOn  bool        `json:"cameraOn"`
	HasStream bool        `json:"hasStream"`
	Tracks    int         `json:"tracks"`
	Stream    core.Stream `json:"-"`
}

// deriveMembers lists the local member first, when capturing, then every
// feed in registry order.
func deriveMembers(display string, local core.LocalMedia, muted, cameraOff bool, feeds *FeedRegistry) []Member {
	out := make([]Member, 0, feeds.Len()+1)
	if local != nil {
		out = append(out, Member{
			ID:        LocalMemberID,
			Display:   display,
			Local:     true,
			Muted:     muted,
			CameraOn:  !cameraOff,
			HasStream: true,
			Tracks:    len(local.Tracks()),
			Stream:    local,
		})
	}
	feeds.Each(func(f *Feed) {
		m := Member{
			ID:       strconv.FormatUint(f.ID, 10),
			Display:  f.Display,
			CameraOn: true,
		}
		if f.stream != nil {
			m.HasStream = true
			m.Tracks = len(f.stream.tracks)
			m.Stream = f.stream
		}
		out = append(out, m)
	})
	return out
}

func sameMembers(a, b []Member) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Display != y.Display || x.Local != y.Local ||
			x.Muted != y.Muted || x.CameraOn != y.CameraOn || x.HasStream != y.HasStream || x.Tracks != y.Tracks {
			return false
		}
		if x.HasStream && x.Stream.StreamID() != y.Stream.StreamID() {
			return false
		}
	}
	return true
}
