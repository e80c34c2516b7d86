package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Duet/internal/app"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const pingInterval = 30 * time.Second

func (ctl *PushController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *PushController) readPump(ctx context.Context, cl *client) {
	defer func() {
		log.Info().Str("module", "signal").Str("client", cl.id).Msg("readPump closing")
		cl.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("client", cl.id).Msg("readPump ctx done")
			return
		default:
			_, data, err := cl.conn.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Str("module", "signal").Str("client", cl.id).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(cl, data)
		}
	}
}

func (ctl *PushController) handleSignal(cl *client, data []byte) {
	var env struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(cl, "bad json")
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(cl)
	case "toggle_mute":
		ctl.handleToggle(cl, env.Type, cl.visit.ToggleMute)
	case "toggle_camera":
		ctl.handleToggle(cl, env.Type, cl.visit.ToggleCamera)
	case "chat":
		ctl.handleChat(cl, env.Content)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(cl, "unknown type "+env.Type)
	}
}

// sendJSON queues v for cl and applies the backpressure policy when
// the queue is full.
func (ctl *PushController) sendJSON(cl *client, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	err = cl.conn.TrySend(b)
	switch {
	case err == nil:
		cl.misses.Store(0)
	case errors.Is(err, ErrBackpressure):
		misses := int(cl.misses.Add(1))
		action := app.KickMember
		if ctl.Policy != nil {
			action = ctl.Policy.OnBackPressure(cl.room, cl.id, misses)
		}
		logger := log.Warn().Str("module", "signal").Str("client", cl.id).Int("misses", misses).Str("action", action.String())
		switch action {
		case app.KickMember:
			logger.Msg("slow client kicked")
			cl.conn.Close()
		case app.MarkSlow:
			logger.Msg("slow client")
		default:
			logger.Msg("frame dropped")
		}
	}
}
