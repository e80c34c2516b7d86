package videoroom

import (
	"context"

	"github.com/dkeye/Duet/internal/core"
	"github.com/pion/webrtc/v4"
)

type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventToggleMute
	EventToggleCamera

	EventSessionOpened
	EventPublisherAttached
	EventRoomJoinSent
	EventPublisherMessage
	EventPublisherHangup
	EventPublisherDetached
	EventCaptured
	EventPublishSent

	EventFeedAttached
	EventFeedMessage
	EventFeedAnswered
	EventFeedTrack
	EventFeedHangup
	EventFeedDetached

	EventMediaState
)

var eventNames = map[EventKind]string{
	EventConnect:           "connect",
	EventDisconnect:        "disconnect",
	EventToggleMute:        "toggle_mute",
	EventToggleCamera:      "toggle_camera",
	EventSessionOpened:     "session_opened",
	EventPublisherAttached: "publisher_attached",
	EventRoomJoinSent:      "room_join_sent",
	EventPublisherMessage:  "publisher_message",
	EventPublisherHangup:   "publisher_hangup",
	EventPublisherDetached: "publisher_detached",
	EventCaptured:          "captured",
	EventPublishSent:       "publish_sent",
	EventFeedAttached:      "feed_attached",
	EventFeedMessage:       "feed_message",
	EventFeedAnswered:      "feed_answered",
	EventFeedTrack:         "feed_track",
	EventFeedHangup:        "feed_hangup",
	EventFeedDetached:      "feed_detached",
	EventMediaState:        "media_state",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return "unknown"
}

// Event is the only input of the session loop. Which fields are set
// depends on Kind; results of background work carry the Epoch they were
// started under.
type Event struct {
	Kind  EventKind
	Epoch uint64
	Feed  uint64
	Gen   uint64
	Err   error

	Session core.GatewaySession
	Handle  core.PluginHandle
	Media   core.LocalMedia
	Conn    core.MediaConnection

	Data   *roomData
	JSEP   *core.JSEP
	Reason string

	Track    *webrtc.TrackRemote
	TrackCtx context.Context

	done chan struct{}
}

type handler func(s *Session, ev Event)

var dispatch = map[EventKind]handler{
	EventConnect:           (*Session).onConnect,
	EventDisconnect:        (*Session).onDisconnect,
	EventToggleMute:        (*Session).onToggleMute,
	EventToggleCamera:      (*Session).onToggleCamera,
	EventSessionOpened:     (*Session).onSessionOpened,
	EventPublisherAttached: (*Session).onPublisherAttached,
	EventRoomJoinSent:      (*Session).onRoomJoinSent,
	EventPublisherMessage:  (*Session).onPublisherMessage,
	EventPublisherHangup:   (*Session).onPublisherHangup,
	EventPublisherDetached: (*Session).onPublisherDetached,
	EventCaptured:          (*Session).onCaptured,
	EventPublishSent:       (*Session).onPublishSent,
	EventFeedAttached:      (*Session).onFeedAttached,
	EventFeedMessage:       (*Session).onFeedMessage,
	EventFeedAnswered:      (*Session).onFeedAnswered,
	EventFeedTrack:         (*Session).onFeedTrack,
	EventFeedHangup:        (*Session).onFeedHangup,
	EventFeedDetached:      (*Session).onFeedDetached,
	EventMediaState:        (*Session).onMediaState,
}
