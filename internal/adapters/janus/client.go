package janus

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client is one websocket connection to the gateway.
// Replies are matched to requests by transaction, async events are routed
// by sender to the registered handle.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	pending map[string]chan *message
	handles map[uint64]*Handle
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{Subprotocol},
		HandshakeTimeout: 10 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		send:    make(chan []byte, 32),
		pending: make(map[string]chan *message),
		handles: make(map[uint64]*Handle),
		done:    make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	log.Info().Str("module", "janus").Str("url", url).Msg("connected")
	return c, nil
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		for tx, ch := range c.pending {
			close(ch)
			delete(c.pending, tx)
		}
		for id, h := range c.handles {
			h.close()
			delete(c.handles, id)
		}
		c.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "janus").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "janus").Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Warn().Err(err).Str("module", "janus").Msg("readPump read error")
			}
			return
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Error().Err(err).Str("module", "janus").Msg("bad json")
			continue
		}
		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *message) {
	if msg.Transaction != "" {
		c.mu.Lock()
		ch, ok := c.pending[msg.Transaction]
		if ok {
			delete(c.pending, msg.Transaction)
		}
		c.mu.Unlock()
		if ok {
			ch <- msg
			return
		}
	}

	if msg.Janus == "timeout" {
		log.Warn().Str("module", "janus").Uint64("session", msg.SessionID).Msg("session timed out")
		c.Close()
		return
	}
	ev, ok := msg.toEvent()
	if !ok {
		log.Debug().Str("module", "janus").Str("janus", msg.Janus).Msg("ignored message")
		return
	}
	c.mu.Lock()
	h, ok := c.handles[msg.Sender]
	c.mu.Unlock()
	if !ok {
		log.Debug().Str("module", "janus").Uint64("handle", msg.Sender).Str("janus", msg.Janus).Msg("event for unknown handle")
		return
	}
	h.deliver(ev, c.done)
}

// roundTrip sends req and waits for the first reply carrying its transaction.
func (c *Client) roundTrip(ctx context.Context, req request) (*message, error) {
	req.Transaction = uuid.NewString()
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan *message, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[req.Transaction] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, req.Transaction)
		c.mu.Unlock()
	}

	select {
	case c.send <- data:
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if msg.Janus == "error" {
			if msg.Error != nil {
				return nil, msg.Error
			}
			return nil, ErrBadReply
		}
		return msg, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

func (c *Client) register(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		h.close()
		return
	}
	c.handles[h.id] = h
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	h, ok := c.handles[id]
	delete(c.handles, id)
	c.mu.Unlock()
	if ok {
		h.close()
	}
}
