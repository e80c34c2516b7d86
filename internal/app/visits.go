package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dkeye/Duet/internal/app/chat"
	"github.com/dkeye/Duet/internal/app/relay"
	"github.com/dkeye/Duet/internal/app/videoroom"
	"github.com/dkeye/Duet/internal/core"
	"github.com/dkeye/Duet/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoVisit           = errors.New("no live visit for room")
	ErrNoFeed            = errors.New("feed has no relayed media")
	ErrRecordingDisabled = errors.New("recording is not configured")
	ErrNotRecording      = errors.New("visit is not recording")
)

// recordingOutlet names the recorder's outlet on every relay.
const recordingOutlet = "recording"

// ChatDialer prepares the chat relay transport for user in room.
type ChatDialer func(room domain.RoomID, user domain.User) (chat.Transport, error)

type Deps struct {
	Gateway    core.Gateway
	Media      core.MediaFactory
	Capture    core.Capturer
	Chat       ChatDialer
	Translator chat.Translator

	// Room is the template for every visit's session; Room and Display
	// are filled per visit.
	Room videoroom.Options
	// Language is stamped on outbound chat, Target enables inbound translation.
	Language string
	Target   string
	// ChatReconnect and ChatMaxReconnect bound the chat redial backoff.
	ChatReconnect    time.Duration
	ChatMaxReconnect time.Duration
	// RecordDir enables recording; each recording gets a subdirectory.
	RecordDir string
}

// Visit is the live presence of the local user in one room.
type Visit struct {
	Room    domain.RoomID
	User    domain.User
	Session *videoroom.Session
	Chat    *chat.Channel
	Relays  *relay.Manager

	recordDir string
	mu        sync.Mutex
	recorder  *relay.Recorder
	paused    map[uint64]bool

	cancel context.CancelFunc
	done   chan struct{}
}

// RecordingView reports a running recording.
type RecordingView struct {
	Dir    string   `json:"dir"`
	Files  []string `json:"files"`
	Paused []uint64 `json:"paused"`
}

// VisitView is what the control API reports for a visit.
type VisitView struct {
	Room          domain.RoomID        `json:"roomId"`
	Session       videoroom.Snapshot   `json:"session"`
	Error         string               `json:"error,omitempty"`
	Chat          []domain.ChatMessage `json:"chat"`
	ChatConnected bool                 `json:"chatConnected"`
	Relays        []relay.TrackStats   `json:"relays"`
	Recording     *RecordingView       `json:"recording,omitempty"`
}

func (v *Visit) View() VisitView {
	snap := v.Session.Snapshot()
	return VisitView{
		Room:          v.Room,
		Session:       snap,
		Error:         snap.Error(),
		Chat:          v.Chat.Messages(),
		ChatConnected: v.Chat.Connected(),
		Relays:        v.Relays.Stats(),
		Recording:     v.Recording(),
	}
}

// StartRecording writes every relayed track of the visit to disk until
// StopRecording. Starting twice returns the running recording.
func (v *Visit) StartRecording() (*RecordingView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recordDir == "" {
		return nil, ErrRecordingDisabled
	}
	if v.recorder == nil {
		dir := filepath.Join(v.recordDir, fmt.Sprintf("room-%d-%s", v.Room, time.Now().UTC().Format("20060102T150405")))
		rec, err := relay.NewRecorder(dir)
		if err != nil {
			return nil, err
		}
		v.recorder = rec
		v.paused = make(map[uint64]bool)
		v.Relays.Attach(recordingOutlet, rec.Sink)
		log.Info().Str("module", "app.visits").Int64("room", int64(v.Room)).Str("dir", dir).Msg("recording started")
	}
	return v.recordingLocked(), nil
}

// StopRecording finalizes the recording and reports what it wrote.
func (v *Visit) StopRecording() (*RecordingView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recorder == nil {
		return nil, ErrNotRecording
	}
	view := v.recordingLocked()
	v.Relays.Detach(recordingOutlet)
	err := v.recorder.Close()
	v.recorder, v.paused = nil, nil
	log.Info().Str("module", "app.visits").Int64("room", int64(v.Room)).Int("files", len(view.Files)).Msg("recording stopped")
	return view, err
}

// PauseRecording stops or resumes recording one remote feed.
func (v *Visit) PauseRecording(feed uint64, paused bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recorder == nil {
		return ErrNotRecording
	}
	if !v.Relays.HasFeed(feed) {
		return ErrNoFeed
	}
	v.Relays.SetMuted(feed, recordingOutlet, paused)
	if paused {
		v.paused[feed] = true
	} else {
		delete(v.paused, feed)
	}
	return nil
}

// Recording is nil unless a recording is running.
func (v *Visit) Recording() *RecordingView {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recorder == nil {
		return nil
	}
	return v.recordingLocked()
}

func (v *Visit) recordingLocked() *RecordingView {
	paused := slices.Sorted(maps.Keys(v.paused))
	if paused == nil {
		paused = []uint64{}
	}
	return &RecordingView{Dir: v.recorder.Dir(), Files: v.recorder.Files(), Paused: paused}
}

func (v *Visit) ToggleMute() error             { return v.Session.ToggleMute() }
func (v *Visit) ToggleCamera() error           { return v.Session.ToggleCamera() }
func (v *Visit) SendChat(content string) error { return v.Chat.Send(content) }
func (v *Visit) Done() <-chan struct{}         { return v.done }

func (v *Visit) SubscribeSession(fn func(videoroom.Snapshot)) func() {
	return v.Session.Subscribe(fn)
}

func (v *Visit) SubscribeChat(fn func([]domain.ChatMessage)) func() {
	return v.Chat.Subscribe(fn)
}

// Visits keeps at most one live visit per room.
type Visits struct {
	ctx  context.Context
	deps Deps

	mu     sync.RWMutex
	visits map[domain.RoomID]*Visit
	wg     sync.WaitGroup
}

// NewVisits ties every visit's lifetime to ctx.
func NewVisits(ctx context.Context, deps Deps) *Visits {
	return &Visits{
		ctx:    ctx,
		deps:   deps,
		visits: make(map[domain.RoomID]*Visit),
	}
}

// Start begins a visit to room, or returns the live one.
func (r *Visits) Start(room domain.RoomID, user domain.User) (*Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.visits[room]; ok {
		select {
		case <-v.done:
		default:
			log.Info().Str("module", "app.visits").Int64("room", int64(room)).Msg("visit already live")
			return v, nil
		}
	}

	// The first transport is dialed here so a bad chat setup fails Start.
	first, err := r.deps.Chat(room, user)
	if err != nil {
		return nil, err
	}
	dial := func() (chat.Transport, error) {
		if tr := first; tr != nil {
			first = nil
			return tr, nil
		}
		return r.deps.Chat(room, user)
	}

	opts := r.deps.Room
	opts.Room = uint64(room)
	opts.Display = user.Nickname
	relays := relay.NewManager()

	ctx, cancel := context.WithCancel(r.ctx)
	v := &Visit{
		Room:    room,
		User:    user,
		Session: videoroom.New(r.deps.Gateway, r.deps.Media, r.deps.Capture, relays, opts),
		Chat: chat.New(dial, r.deps.Translator, chat.Options{
			RoomID:       strconv.FormatInt(int64(room), 10),
			SenderID:     strconv.FormatInt(int64(user.ID), 10),
			Nickname:     user.Nickname,
			Language:     r.deps.Language,
			Target:       r.deps.Target,
			Reconnect:    r.deps.ChatReconnect,
			MaxReconnect: r.deps.ChatMaxReconnect,
		}),
		Relays:    relays,
		recordDir: r.deps.RecordDir,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.visits[room] = v
	r.wg.Add(1)
	go r.run(ctx, v)

	if err := v.Session.Connect(); err != nil {
		log.Warn().Err(err).Str("module", "app.visits").Msg("connect not queued")
	}
	log.Info().Str("module", "app.visits").Int64("room", int64(room)).Int64("user", int64(user.ID)).Msg("visit started")
	return v, nil
}

func (r *Visits) run(ctx context.Context, v *Visit) {
	defer r.wg.Done()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		v.Session.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := v.Chat.Run(ctx); err != nil {
			log.Warn().Err(err).Str("module", "app.visits").Int64("room", int64(v.Room)).Msg("chat stopped")
		}
	}()
	wg.Wait()
	if _, err := v.StopRecording(); err != nil && !errors.Is(err, ErrNotRecording) {
		log.Warn().Err(err).Str("module", "app.visits").Int64("room", int64(v.Room)).Msg("finalize recording")
	}
	v.Relays.StopAll()

	r.mu.Lock()
	if r.visits[v.Room] == v {
		delete(r.visits, v.Room)
	}
	r.mu.Unlock()
	close(v.done)
	log.Info().Str("module", "app.visits").Int64("room", int64(v.Room)).Msg("visit ended")
}

func (r *Visits) Get(room domain.RoomID) (*Visit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.visits[room]
	return v, ok
}

// Stop disconnects the visit to room and waits for it to end.
func (r *Visits) Stop(ctx context.Context, room domain.RoomID) error {
	v, ok := r.Get(room)
	if !ok {
		return ErrNoVisit
	}
	if err := v.Session.Disconnect(ctx); err != nil && !errors.Is(err, videoroom.ErrStopped) {
		log.Warn().Err(err).Str("module", "app.visits").Msg("disconnect failed")
	}
	v.cancel()
	select {
	case <-v.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Visits) Rooms() []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(r.visits))
	for id := range r.visits {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Wait blocks until every visit has ended.
func (r *Visits) Wait() { r.wg.Wait() }
