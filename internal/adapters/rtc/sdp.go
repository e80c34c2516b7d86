package rtc

import (
	"github.com/pion/sdp/v3"
)

// MediaDirection is the negotiated direction of one m-line.
type MediaDirection struct {
	Kind      string
	Direction sdp.Direction
}

// Directions lists the direction attribute of every m-line in raw.
// An m-line without one defaults to sendrecv.
func Directions(raw string) ([]MediaDirection, error) {
	var sd sdp.SessionDescription
	if err := sd.UnmarshalString(raw); err != nil {
		return nil, err
	}
	out := make([]MediaDirection, 0, len(sd.MediaDescriptions))
	for _, md := range sd.MediaDescriptions {
		dir := sdp.DirectionSendRecv
		for _, a := range md.Attributes {
			if d, err := sdp.NewDirection(a.Key); err == nil {
				dir = d
				break
			}
		}
		out = append(out, MediaDirection{Kind: md.MediaName.Media, Direction: dir})
	}
	return out, nil
}
