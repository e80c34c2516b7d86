package app

import "github.com/dkeye/Duet/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

func (a BackpressureAction) String() string {
	switch a {
	case NoAction:
		return "none"
	case MarkSlow:
		return "mark_slow"
	case KickMember:
		return "kick"
	case DropFrame:
		return "drop"
	}
	return "unknown"
}

// Policy decides what happens to a push observer whose queue is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, observer string, misses int) BackpressureAction
}

// SimplePolicy kicks a slow observer after Tolerance consecutive misses
// and drops the frame before that.
type SimplePolicy struct {
	Tolerance int
}

func (p SimplePolicy) OnBackPressure(_ domain.RoomID, _ string, misses int) BackpressureAction {
	if misses > p.Tolerance {
		return KickMember
	}
	return DropFrame
}
