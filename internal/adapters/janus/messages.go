package janus

import (
	"errors"
	"fmt"

	"github.com/dkeye/Duet/internal/core"
	json "github.com/goccy/go-json"
)

// Subprotocol is the websocket subprotocol the gateway expects.
const Subprotocol = "janus-protocol"

var (
	ErrClosed   = errors.New("janus: connection closed")
	ErrBadReply = errors.New("janus: unexpected reply")
)

// Error is a gateway-level failure reported in an "error" reply.
type Error struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("janus error %d: %s", e.Code, e.Reason)
}

type request struct {
	Janus       string     `json:"janus"`
	Transaction string     `json:"transaction"`
	SessionID   uint64     `json:"session_id,omitempty"`
	HandleID    uint64     `json:"handle_id,omitempty"`
	Plugin      string     `json:"plugin,omitempty"`
	OpaqueID    string     `json:"opaque_id,omitempty"`
	Body        any        `json:"body,omitempty"`
	JSEP        *core.JSEP `json:"jsep,omitempty"`
}

type pluginData struct {
	Plugin string          `json:"plugin"`
	Data   json.RawMessage `json:"data"`
}

type message struct {
	Janus       string `json:"janus"`
	Transaction string `json:"transaction,omitempty"`
	SessionID   uint64 `json:"session_id,omitempty"`
	Sender      uint64 `json:"sender,omitempty"`
	Data        *struct {
		ID uint64 `json:"id"`
	} `json:"data,omitempty"`
	Error      *Error      `json:"error,omitempty"`
	PluginData *pluginData `json:"plugindata,omitempty"`
	JSEP       *core.JSEP  `json:"jsep,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

var eventKinds = map[string]core.HandleEventKind{
	"event":    core.HandleEventPlugin,
	"webrtcup": core.HandleEventWebRTCUp,
	"media":    core.HandleEventMedia,
	"slowlink": core.HandleEventSlowLink,
	"hangup":   core.HandleEventHangup,
	"detached": core.HandleEventDetached,
}

// toEvent maps an asynchronous gateway message to a handle event.
func (m *message) toEvent() (core.HandleEvent, bool) {
	kind, ok := eventKinds[m.Janus]
	if !ok {
		return core.HandleEvent{}, false
	}
	ev := core.HandleEvent{Kind: kind, JSEP: m.JSEP, Reason: m.Reason}
	if m.PluginData != nil {
		ev.Data = []byte(m.PluginData.Data)
	}
	return ev, true
}
