// Package socketio is a minimal Socket.IO v5 client over the websocket transport.
package socketio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed       = errors.New("socketio: connection closed")
	ErrConnectError = errors.New("socketio: namespace connect refused")
	ErrNotConnected = errors.New("socketio: not connected")
)

type Handler = func(payload json.RawMessage)

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

type Client struct {
	endpoint  string
	namespace string

	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool

	readTimeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient prepares a client for base (http/https/ws/wss) and namespace;
// query is appended to the handshake url.
func NewClient(base, namespace string, query url.Values) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("socketio: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	if namespace == "" {
		namespace = "/"
	}
	return &Client{
		endpoint:  u.String(),
		namespace: namespace,
		send:      make(chan []byte, 32),
		handlers:  make(map[string]Handler),
		done:      make(chan struct{}),
	}, nil
}

// On registers h for event. Handlers run on the read goroutine in arrival order.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

// Connect performs the Engine.IO handshake and joins the namespace.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	open, err := c.readOpen()
	if err != nil {
		_ = conn.Close()
		return err
	}
	c.readTimeout = time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond

	connect := Encode(Packet{Type: PacketConnect, Namespace: c.namespace})
	if err := conn.WriteMessage(websocket.TextMessage, connect); err != nil {
		_ = conn.Close()
		return err
	}
	if err := c.awaitConnect(); err != nil {
		_ = conn.Close()
		return err
	}
	_ = conn.SetReadDeadline(time.Time{})

	log.Info().Str("module", "socketio").Str("sid", open.SID).Str("namespace", c.namespace).Msg("connected")
	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Client) readOpen() (*openPacket, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[0] != engineOpen {
		return nil, ErrBadPacket
	}
	var open openPacket
	if err := json.Unmarshal(data[1:], &open); err != nil {
		return nil, err
	}
	return &open, nil
}

func (c *Client) awaitConnect() error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		if len(data) == 1 && data[0] == enginePing {
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte{enginePong}); err != nil {
				return err
			}
			continue
		}
		p, err := Decode(data)
		if err != nil || p.Namespace != c.namespace {
			continue
		}
		switch p.Type {
		case PacketConnect:
			return nil
		case PacketConnectError:
			return fmt.Errorf("%w: %s", ErrConnectError, string(p.Data))
		}
	}
}

// Emit sends event with payload on the namespace.
func (c *Client) Emit(event string, payload any) error {
	p, err := EventPacket(c.namespace, event, payload)
	if err != nil {
		return err
	}
	return c.write(Encode(p))
}

func (c *Client) write(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
		log.Info().Str("module", "socketio").Str("namespace", c.namespace).Msg("closed")
	})
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "socketio").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "socketio").Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		if c.readTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Warn().Err(err).Str("module", "socketio").Msg("readPump read error")
			}
			return
		}
		if len(data) == 0 {
			continue
		}
		switch data[0] {
		case enginePing:
			if err := c.write([]byte{enginePong}); err != nil {
				return
			}
		case engineClose:
			return
		case engineMessage:
			c.handleMessage(data)
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	p, err := Decode(data)
	if err != nil {
		log.Error().Err(err).Str("module", "socketio").Msg("bad packet")
		return
	}
	if p.Namespace != c.namespace {
		return
	}
	switch p.Type {
	case PacketDisconnect:
		log.Info().Str("module", "socketio").Str("namespace", c.namespace).Msg("server disconnect")
		go c.Close()
	case PacketEvent:
		name, payload, err := p.Event()
		if err != nil {
			log.Error().Err(err).Str("module", "socketio").Msg("bad event")
			return
		}
		c.mu.RLock()
		h := c.handlers[name]
		c.mu.RUnlock()
		if h == nil {
			log.Debug().Str("module", "socketio").Str("event", name).Msg("no handler")
			return
		}
		h(payload)
	}
}
