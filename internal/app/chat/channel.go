// Package chat keeps the chat log of one room visit in sync with the
// socket.io chat relay.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Duet/internal/adapters/translate"
	"github.com/dkeye/Duet/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	eventHistory = "chat-history"
	eventMessage = "chat-message"
)

var ErrDisconnected = errors.New("chat: relay disconnected")

// Transport is a connected socket.io namespace.
type Transport interface {
	On(event string, h func(payload json.RawMessage))
	Connect(ctx context.Context) error
	Emit(event string, payload any) error
	Done() <-chan struct{}
	Close()
}

// Dialer builds a fresh transport for each connection attempt.
type Dialer func() (Transport, error)

//go:generate mockgen -destination=mock_translator_test.go -package=chat . Translator
type Translator interface {
	Lookup(ctx context.Context, text, target, source string) (translate.Result, error)
}

type Options struct {
	RoomID   string
	SenderID string
	Nickname string
	// Language is stamped on outbound messages as originalLanguage.
	Language string
	// Target enables translation of inbound messages when set.
	Target  string
	Timeout time.Duration
	// Reconnect is the delay before the first redial after the relay is
	// lost; it doubles up to MaxReconnect. Zero runs a single connection.
	Reconnect    time.Duration
	MaxReconnect time.Duration
}

type frame struct {
	conn    uint64
	event   string
	payload json.RawMessage
}

// outbound is the chat-message payload the relay expects.
type outbound struct {
	RoomID  string             `json:"roomId"`
	Message domain.ChatMessage `json:"message"`
}

type Channel struct {
	dial       Dialer
	translator Translator
	opts       Options
	logger     zerolog.Logger
	now        func() time.Time

	inbound chan frame
	stopped chan struct{}

	// conn numbers connections; frames of earlier ones are dropped.
	conn uint64

	mu        sync.RWMutex
	tr        Transport
	log       []domain.ChatMessage
	history   bool
	connected bool
	observers map[int]func([]domain.ChatMessage)
	nextObs   int
}

// New builds a channel; translator may be nil.
func New(dial Dialer, translator Translator, opts Options) *Channel {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxReconnect < opts.Reconnect {
		opts.MaxReconnect = opts.Reconnect
	}
	return &Channel{
		dial:       dial,
		translator: translator,
		opts:       opts,
		logger:     log.With().Str("module", "chat").Str("room", opts.RoomID).Logger(),
		now:        time.Now,
		inbound:    make(chan frame, 64),
		stopped:    make(chan struct{}),
		observers:  make(map[int]func([]domain.ChatMessage)),
	}
}

// Run connects and applies inbound frames one at a time until ctx is done.
// A lost relay is redialed with backoff when Reconnect is set; otherwise the
// first connect error or ErrDisconnected is returned.
func (c *Channel) Run(ctx context.Context) error {
	defer close(c.stopped)

	delay := c.opts.Reconnect
	for {
		connected, err := c.serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if c.opts.Reconnect == 0 {
			return err
		}
		if connected {
			delay = c.opts.Reconnect
		}
		c.logger.Warn().Err(err).Dur("retry_in", delay).Msg("chat relay lost, redialing")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		delay = min(delay*2, c.opts.MaxReconnect)
	}
}

// serve runs one connection; connected reports whether Connect succeeded.
func (c *Channel) serve(ctx context.Context) (connected bool, err error) {
	tr, err := c.dial()
	if err != nil {
		return false, err
	}
	c.conn++
	conn := c.conn
	tr.On(eventHistory, c.enqueue(conn, eventHistory))
	tr.On(eventMessage, c.enqueue(conn, eventMessage))

	cctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	err = tr.Connect(cctx)
	cancel()
	if err != nil {
		tr.Close()
		return false, err
	}
	defer tr.Close()
	c.attach(tr)
	defer c.attach(nil)
	c.logger.Info().Str("sender", c.opts.SenderID).Uint64("conn", conn).Msg("chat connected")

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case <-tr.Done():
			c.logger.Warn().Uint64("conn", conn).Msg("chat relay disconnected")
			return true, ErrDisconnected
		case f := <-c.inbound:
			if f.conn != conn {
				continue
			}
			c.handle(ctx, f)
		}
	}
}

// attach makes tr the transport for Send; a new connection may replace
// the history once.
func (c *Channel) attach(tr Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tr = tr
	c.connected = tr != nil
	if tr != nil {
		c.history = false
	}
}

func (c *Channel) enqueue(conn uint64, event string) func(json.RawMessage) {
	return func(payload json.RawMessage) {
		select {
		case c.inbound <- frame{conn: conn, event: event, payload: payload}:
		case <-c.stopped:
		}
	}
}

func (c *Channel) handle(ctx context.Context, f frame) {
	switch f.event {
	case eventHistory:
		var history []domain.ChatMessage
		if err := json.Unmarshal(f.payload, &history); err != nil {
			c.logger.Warn().Err(err).Msg("bad chat history")
			return
		}
		c.replace(history)
	case eventMessage:
		var msg domain.ChatMessage
		if err := json.Unmarshal(f.payload, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("bad chat message")
			return
		}
		c.append(c.translate(ctx, msg))
	}
}

func (c *Channel) translate(ctx context.Context, msg domain.ChatMessage) domain.ChatMessage {
	if c.translator == nil || c.opts.Target == "" || msg.OriginalLanguage == "" {
		return msg
	}
	tctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	res, err := c.translator.Lookup(tctx, msg.Content, c.opts.Target, msg.OriginalLanguage)
	if err != nil {
		c.logger.Warn().Err(err).Str("id", msg.ID).Msg("translation failed")
		return msg
	}
	return msg.Translated(res.Text, c.opts.Target)
}

// replace applies only the first history of a connection.
func (c *Channel) replace(history []domain.ChatMessage) {
	c.mu.Lock()
	if c.history {
		c.mu.Unlock()
		c.logger.Debug().Int("messages", len(history)).Msg("repeated chat history ignored")
		return
	}
	c.history = true
	c.log = append([]domain.ChatMessage(nil), history...)
	c.mu.Unlock()
	c.notify()
}

func (c *Channel) append(msg domain.ChatMessage) {
	c.mu.Lock()
	c.log = append(c.log, msg)
	c.mu.Unlock()
	c.notify()
}

func (c *Channel) notify() {
	c.mu.RLock()
	msgs := append([]domain.ChatMessage(nil), c.log...)
	fns := make([]func([]domain.ChatMessage), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(msgs)
	}
}

// Send emits content as a new message. The relay echoes it back.
func (c *Channel) Send(content string) error {
	msg, err := domain.NewChatMessage(c.opts.SenderID, c.opts.Nickname, content, c.opts.Language, c.now())
	if err != nil {
		return err
	}
	c.mu.RLock()
	tr := c.tr
	c.mu.RUnlock()
	if tr == nil {
		return ErrDisconnected
	}
	if err := tr.Emit(eventMessage, outbound{RoomID: c.opts.RoomID, Message: msg}); err != nil {
		return err
	}
	c.logger.Debug().Str("id", msg.ID).Msg("chat sent")
	return nil
}

func (c *Channel) Messages() []domain.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.ChatMessage(nil), c.log...)
}

func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Subscribe registers fn for log changes and returns its cancel func.
// fn runs on the channel worker.
func (c *Channel) Subscribe(fn func([]domain.ChatMessage)) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Done is closed when Run has returned.
func (c *Channel) Done() <-chan struct{} { return c.stopped }
