package core

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
)

var ErrCaptureDenied = errors.New("camera/microphone access denied")

// Stream is the media flowing for one member.
type Stream interface {
	StreamID() string
}

// LocalMedia is a captured camera/microphone stream.
// Owned by whoever captured it; Close releases the devices.
type LocalMedia interface {
	Stream
	Tracks() []webrtc.TrackLocal
	Close() error
}

type Capturer interface {
	Capture(ctx context.Context) (LocalMedia, error)
}

type MediaConnection interface {
	// CreateOffer returns a complete (gathered) offer for the local tracks.
	CreateOffer(ctx context.Context) (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	// ApplyOfferAndCreateAnswer returns a complete (gathered) answer.
	ApplyOfferAndCreateAnswer(ctx context.Context, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
	// OnClosed sets a callback for cleanup of the media session.
	OnClosed(func())
	// SetSending enables or disables the outgoing track of the given kind.
	SetSending(kind webrtc.RTPCodecType, on bool) error
	Close()
}

type MediaFactory interface {
	NewPublisher(local LocalMedia) (MediaConnection, error)
	NewSubscriber() (MediaConnection, error)
}
