package signal

import (
	"errors"

	"github.com/dkeye/Duet/internal/app/videoroom"
	"github.com/dkeye/Duet/internal/domain"
	"github.com/rs/zerolog/log"
)

type stateFrame struct {
	Type        string `json:"type"`
	State       string `json:"state"`
	Error       string `json:"error,omitempty"`
	PublisherID uint64 `json:"publisherId,omitempty"`
	Muted       bool   `json:"muted"`
	CameraOff   bool   `json:"cameraOff"`
}

type membersFrame struct {
	Type    string             `json:"type"`
	Members []videoroom.Member `json:"members"`
}

type chatFrame struct {
	Type     string               `json:"type"`
	Messages []domain.ChatMessage `json:"messages"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (ctl *PushController) pushSnapshot(cl *client, s videoroom.Snapshot) {
	ctl.sendJSON(cl, stateFrame{
		Type:        "state",
		State:       s.State.String(),
		Error:       s.Error(),
		PublisherID: s.PublisherID,
		Muted:       s.Muted,
		CameraOff:   s.CameraOff,
	})
	members := s.Members
	if members == nil {
		members = []videoroom.Member{}
	}
	ctl.sendJSON(cl, membersFrame{Type: "members", Members: members})
}

func (ctl *PushController) handlePing(cl *client) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(cl, resp)
}

func (ctl *PushController) handleToggle(cl *client, kind string, toggle func() error) {
	if err := toggle(); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("type", kind).Msg("toggle failed")
		ctl.sendError(cl, err.Error())
	}
}

func (ctl *PushController) handleChat(cl *client, content string) {
	if ctl.Limiter != nil && !ctl.Limiter.Allow(cl.id) {
		ctl.sendError(cl, "rate limited")
		return
	}
	if err := cl.visit.SendChat(content); err != nil {
		if !errors.Is(err, domain.ErrEmptyMessage) {
			log.Warn().Err(err).Str("module", "signal").Str("client", cl.id).Msg("chat send failed")
		}
		ctl.sendError(cl, err.Error())
	}
}

func (ctl *PushController) sendError(cl *client, msg string) {
	ctl.sendJSON(cl, errorFrame{Type: "error", Error: msg})
}
