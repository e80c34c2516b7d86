package videoroom

import "errors"

var (
	ErrSignalingUnreachable = errors.New("signaling server unreachable")
	ErrNegotiation          = errors.New("media negotiation failed")
	ErrStopped              = errors.New("session loop stopped")
)
