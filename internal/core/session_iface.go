package core

import (
	"context"

	json "github.com/goccy/go-json"
)

// JSEP is a session description exchanged through the SFU signaling channel.
type JSEP struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type HandleEventKind int

const (
	HandleEventPlugin HandleEventKind = iota
	HandleEventWebRTCUp
	HandleEventMedia
	HandleEventSlowLink
	HandleEventHangup
	HandleEventDetached
)

func (k HandleEventKind) String() string {
	switch k {
	case HandleEventPlugin:
		return "plugin"
	case HandleEventWebRTCUp:
		return "webrtcup"
	case HandleEventMedia:
		return "media"
	case HandleEventSlowLink:
		return "slowlink"
	case HandleEventHangup:
		return "hangup"
	case HandleEventDetached:
		return "detached"
	}
	return "unknown"
}

// HandleEvent is an asynchronous notification for one plugin handle.
// Data carries the plugin payload for HandleEventPlugin.
type HandleEvent struct {
	Kind   HandleEventKind
	Data   json.RawMessage
	JSEP   *JSEP
	Reason string
}

// Gateway opens signaling sessions against the SFU.
type Gateway interface {
	Open(ctx context.Context) (GatewaySession, error)
}

// GatewaySession is one signaling session; it owns its plugin handles.
type GatewaySession interface {
	Attach(ctx context.Context, plugin, opaqueID string) (PluginHandle, error)
	Destroy(ctx context.Context) error
}

// PluginHandle is a capability channel attached to a session.
// Send returns the synchronous plugin payload, or nil when the SFU
// acknowledged the request and will answer with an asynchronous event.
type PluginHandle interface {
	ID() uint64
	Send(ctx context.Context, body any, jsep *JSEP) (json.RawMessage, error)
	Events() <-chan HandleEvent
	Detach(ctx context.Context) error
}
