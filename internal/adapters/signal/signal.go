// Package signal pushes visit state to UI clients over WebSocket and
// accepts their controls.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Duet/internal/app"
	"github.com/dkeye/Duet/internal/app/videoroom"
	"github.com/dkeye/Duet/internal/core"
	"github.com/dkeye/Duet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Visit is what a push connection observes and controls.
type Visit interface {
	View() app.VisitView
	SubscribeSession(fn func(videoroom.Snapshot)) func()
	SubscribeChat(fn func([]domain.ChatMessage)) func()
	ToggleMute() error
	ToggleCamera() error
	SendChat(content string) error
	Done() <-chan struct{}
}

type PushController struct {
	Policy  app.Policy
	Limiter *RateLimiter
}

func NewPushController(policy app.Policy, limiter *RateLimiter) *PushController {
	return &PushController{Policy: policy, Limiter: limiter}
}

var _ core.PushConn = (*WsSignalConn)(nil)

// WsSignalConn queues frames for the write pump of one websocket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// client is one UI connection to a visit.
type client struct {
	id     string
	room   domain.RoomID
	conn   *WsSignalConn
	visit  Visit
	misses atomic.Int32
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleVisit upgrades the request and streams v until either side ends.
func (ctl *PushController) HandleVisit(ctx context.Context, c *gin.Context, room domain.RoomID, v Visit) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cl := &client{
		id:    c.GetString("client_token") + "/" + uuid.NewString()[:8],
		room:  room,
		conn:  &WsSignalConn{conn: ws, send: make(chan core.Frame, 32)},
		visit: v,
	}
	log.Info().Str("module", "signal").Str("client", cl.id).Int64("room", int64(room)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	view := v.View()
	ctl.pushSnapshot(cl, view.Session)
	ctl.sendJSON(cl, chatFrame{Type: "chat", Messages: view.Chat})
	unsubSession := v.SubscribeSession(func(s videoroom.Snapshot) { ctl.pushSnapshot(cl, s) })
	unsubChat := v.SubscribeChat(func(m []domain.ChatMessage) {
		ctl.sendJSON(cl, chatFrame{Type: "chat", Messages: m})
	})

	go ctl.writePump(ctx, cl.conn)
	go func() {
		select {
		case <-v.Done():
			log.Info().Str("module", "signal").Str("client", cl.id).Msg("visit ended, closing")
		case <-ctx.Done():
		}
		cl.conn.Close()
	}()
	go func() {
		defer cancel()
		if ctl.Limiter != nil {
			defer ctl.Limiter.Forget(cl.id)
		}
		defer unsubChat()
		defer unsubSession()
		ctl.readPump(ctx, cl)
	}()
}
