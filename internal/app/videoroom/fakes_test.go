package videoroom

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Duet/internal/core"
	json "github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
)

type sentMsg struct {
	body map[string]any
	jsep *core.JSEP
}

type fakeHandle struct {
	id     uint64
	opaque string
	gw     *fakeGateway
	events chan core.HandleEvent

	mu       sync.Mutex
	sent     []sentMsg
	detached bool
}

func (h *fakeHandle) ID() uint64 { return h.id }

func (h *fakeHandle) Send(_ context.Context, body any, jsep *core.JSEP) (json.RawMessage, error) {
	b, _ := body.(map[string]any)
	h.mu.Lock()
	h.sent = append(h.sent, sentMsg{body: b, jsep: jsep})
	h.mu.Unlock()
	if h.gw.reply != nil {
		return h.gw.reply(h, b)
	}
	if b["request"] == "create" {
		return json.RawMessage(`{"videoroom":"created","room":1234}`), nil
	}
	return nil, nil
}

func (h *fakeHandle) Events() <-chan core.HandleEvent { return h.events }

func (h *fakeHandle) Detach(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detached {
		return nil
	}
	h.detached = true
	close(h.events)
	return nil
}

func (h *fakeHandle) isDetached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detached
}

func (h *fakeHandle) push(data string, jsep *core.JSEP) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detached {
		return
	}
	h.events <- core.HandleEvent{Kind: core.HandleEventPlugin, Data: json.RawMessage(data), JSEP: jsep}
}

func (h *fakeHandle) pushKind(kind core.HandleEventKind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detached {
		return
	}
	h.events <- core.HandleEvent{Kind: kind}
}

// request returns the first sent message whose request matches name.
func (h *fakeHandle) request(name string) (sentMsg, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.sent {
		if m.body["request"] == name {
			return m, true
		}
	}
	return sentMsg{}, false
}

type fakeSession struct {
	gw *fakeGateway

	mu        sync.Mutex
	destroyed bool
}

func (s *fakeSession) Attach(ctx context.Context, _ string, opaque string) (core.PluginHandle, error) {
	gw := s.gw
	if strings.Contains(opaque, "subscriber") && gw.subGate != nil {
		select {
		case <-gw.subGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if gw.attachErr != nil {
		return nil, gw.attachErr
	}
	h := &fakeHandle{
		id:     gw.nextID.Add(1),
		opaque: opaque,
		gw:     gw,
		events: make(chan core.HandleEvent, 16),
	}
	gw.mu.Lock()
	gw.all = append(gw.all, h)
	gw.mu.Unlock()
	gw.handles <- h
	return h, nil
}

func (s *fakeSession) Destroy(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	return nil
}

func (s *fakeSession) isDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

type fakeGateway struct {
	openErr   error
	attachErr error
	openGate  chan struct{}
	subGate   chan struct{}
	reply     func(h *fakeHandle, body map[string]any) (json.RawMessage, error)

	nextID  atomic.Uint64
	opens   atomic.Int32
	handles chan *fakeHandle

	mu       sync.Mutex
	sessions []*fakeSession
	all      []*fakeHandle
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{handles: make(chan *fakeHandle, 32)}
}

func (g *fakeGateway) Open(ctx context.Context) (core.GatewaySession, error) {
	g.opens.Add(1)
	if g.openGate != nil {
		select {
		case <-g.openGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.openErr != nil {
		return nil, g.openErr
	}
	s := &fakeSession{gw: g}
	g.mu.Lock()
	g.sessions = append(g.sessions, s)
	g.mu.Unlock()
	return s, nil
}

// live counts sessions not destroyed plus handles not detached.
func (g *fakeGateway) live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, s := range g.sessions {
		if !s.isDestroyed() {
			n++
		}
	}
	for _, h := range g.all {
		if !h.isDetached() {
			n++
		}
	}
	return n
}

func (g *fakeGateway) nextHandle(t *testing.T) *fakeHandle {
	t.Helper()
	select {
	case h := <-g.handles:
		return h
	case <-time.After(2 * time.Second):
		t.Fatal("no handle attached")
		return nil
	}
}

type fakeConn struct {
	role string

	mu      sync.Mutex
	onTrack func(context.Context, *webrtc.TrackRemote, *webrtc.RTPReceiver)
	answer  *webrtc.SessionDescription
	sending map[webrtc.RTPCodecType]bool
	closed  bool
}

func (c *fakeConn) CreateOffer(context.Context) (*webrtc.SessionDescription, error) {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: c.role + "-offer"}, nil
}

func (c *fakeConn) ApplyAnswer(a webrtc.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answer = &a
	return nil
}

func (c *fakeConn) ApplyOfferAndCreateAnswer(context.Context, webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: c.role + "-answer"}, nil
}

func (c *fakeConn) answered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answer == nil {
		return ""
	}
	return c.answer.SDP
}

func (c *fakeConn) OnTrack(fn func(context.Context, *webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTrack = fn
}

func (c *fakeConn) OnClosed(func()) {}

func (c *fakeConn) SetSending(kind webrtc.RTPCodecType, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending == nil {
		c.sending = make(map[webrtc.RTPCodecType]bool)
	}
	c.sending[kind] = on
	return nil
}

func (c *fakeConn) isSending(kind webrtc.RTPCodecType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	on, ok := c.sending[kind]
	return !ok || on
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) emitTrack() {
	c.mu.Lock()
	fn := c.onTrack
	c.mu.Unlock()
	if fn != nil {
		fn(context.Background(), &webrtc.TrackRemote{}, nil)
	}
}

type fakeFactory struct {
	mu   sync.Mutex
	pubs []*fakeConn
	subs chan *fakeConn
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{subs: make(chan *fakeConn, 16)}
}

func (f *fakeFactory) NewPublisher(core.LocalMedia) (core.MediaConnection, error) {
	c := &fakeConn{role: "pub"}
	f.mu.Lock()
	f.pubs = append(f.pubs, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeFactory) NewSubscriber() (core.MediaConnection, error) {
	c := &fakeConn{role: "sub"}
	f.subs <- c
	return c, nil
}

func (f *fakeFactory) publisher() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pubs) == 0 {
		return nil
	}
	return f.pubs[len(f.pubs)-1]
}

func (f *fakeFactory) nextSubscriber(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-f.subs:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no subscriber connection")
		return nil
	}
}

type fakeMedia struct {
	closed atomic.Bool
}

func (m *fakeMedia) StreamID() string            { return "local-stream" }
func (m *fakeMedia) Tracks() []webrtc.TrackLocal { return nil }
func (m *fakeMedia) Close() error                { m.closed.Store(true); return nil }

type fakeCapturer struct {
	err   error
	media *fakeMedia
}

func (c *fakeCapturer) Capture(ctx context.Context) (core.LocalMedia, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.media, nil
}
