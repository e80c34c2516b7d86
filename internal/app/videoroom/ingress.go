package videoroom

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/dkeye/Duet/internal/core"
	json "github.com/goccy/go-json"
)

// errRoomExists is returned by "create" when the room is already there.
const errRoomExists = 427

type publisherInfo struct {
	ID      uint64 `json:"id"`
	Display string `json:"display"`
}

// idOrOK is either a publisher id or the literal "ok" referring to ourselves.
type idOrOK struct {
	Set bool
	OK  bool
	ID  uint64
}

func (v *idOrOK) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "ok" {
			*v = idOrOK{Set: true, OK: true}
			return nil
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("videoroom: bad id %q", s)
		}
		*v = idOrOK{Set: true, ID: id}
		return nil
	}
	var id uint64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	*v = idOrOK{Set: true, ID: id}
	return nil
}

// roomData is the videoroom plugin payload.
type roomData struct {
	VideoRoom   string          `json:"videoroom"`
	ID          uint64          `json:"id"`
	PrivateID   uint64          `json:"private_id"`
	Publishers  []publisherInfo `json:"publishers"`
	Leaving     idOrOK          `json:"leaving"`
	Unpublished idOrOK          `json:"unpublished"`
	Configured  string          `json:"configured"`
	Started     string          `json:"started"`
	ErrorCode   int             `json:"error_code"`
	Error       string          `json:"error"`
}

func parseRoomData(raw json.RawMessage) (*roomData, error) {
	if len(raw) == 0 {
		return &roomData{}, nil
	}
	var d roomData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *roomData) failed() bool { return d.ErrorCode != 0 }

// ingress maps a handle event to a loop event. feed is zero for the
// publisher handle.
func ingress(epoch, feed uint64, hev core.HandleEvent) (Event, bool) {
	ev := Event{Epoch: epoch, Feed: feed, JSEP: hev.JSEP, Reason: hev.Reason}
	pub := feed == 0
	switch hev.Kind {
	case core.HandleEventPlugin:
		data, err := parseRoomData(hev.Data)
		if err != nil {
			ev.Err = err
		}
		ev.Data = data
		ev.Kind = pick(pub, EventPublisherMessage, EventFeedMessage)
	case core.HandleEventHangup:
		ev.Kind = pick(pub, EventPublisherHangup, EventFeedHangup)
	case core.HandleEventDetached:
		ev.Kind = pick(pub, EventPublisherDetached, EventFeedDetached)
	case core.HandleEventWebRTCUp, core.HandleEventMedia, core.HandleEventSlowLink:
		ev.Kind = EventMediaState
		ev.Reason = hev.Kind.String()
	default:
		return Event{}, false
	}
	return ev, true
}

func pick(pub bool, a, b EventKind) EventKind {
	if pub {
		return a
	}
	return b
}
