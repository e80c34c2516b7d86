package videoroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Duet/internal/core"
	json "github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond

	joinedTanaka = `{"videoroom":"joined","room":1234,"id":1,"private_id":55,"publishers":[{"id":7,"display":"Tanaka"}]}`
)

type rig struct {
	gw      *fakeGateway
	factory *fakeFactory
	capture *fakeCapturer
	media   *fakeMedia
	sink    *recordingSink
	s       *Session
}

func newRig(t *testing.T) *rig {
	t.Helper()
	media := &fakeMedia{}
	return &rig{
		gw:      newFakeGateway(),
		factory: newFakeFactory(),
		capture: &fakeCapturer{media: media},
		media:   media,
		sink:    &recordingSink{},
	}
}

func (r *rig) start(t *testing.T) *Session {
	t.Helper()
	r.s = New(r.gw, r.factory, r.capture, r.sink, Options{
		Room:           1234,
		Display:        "Me",
		RequestTimeout: time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go r.s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-r.s.Done()
	})
	return r.s
}

func (r *rig) eventually(t *testing.T, cond func(Snapshot) bool, msg string) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(r.s.Snapshot()) }, waitFor, tick, msg)
}

func (r *rig) sent(t *testing.T, h *fakeHandle, request string) sentMsg {
	t.Helper()
	var m sentMsg
	require.Eventually(t, func() bool {
		var ok bool
		m, ok = h.request(request)
		return ok
	}, waitFor, tick, "no %q request", request)
	return m
}

// joinAndPublish drives the session to publishing with Tanaka subscribed.
func (r *rig) joinAndPublish(t *testing.T) (pub, sub *fakeHandle, subConn *fakeConn) {
	t.Helper()
	require.NoError(t, r.s.Connect())
	pub = r.gw.nextHandle(t)
	r.sent(t, pub, "join")

	pub.push(joinedTanaka, nil)
	sub = r.gw.nextHandle(t)
	r.sent(t, pub, "configure")
	pub.push(`{"videoroom":"event","configured":"ok"}`, &core.JSEP{Type: "answer", SDP: "pub-answer"})
	r.eventually(t, func(s Snapshot) bool { return s.State == StatePublishing }, "not publishing")

	r.sent(t, sub, "join")
	sub.push(`{"videoroom":"attached","room":1234,"id":7}`, &core.JSEP{Type: "offer", SDP: "sub-offer"})
	subConn = r.factory.nextSubscriber(t)
	r.sent(t, sub, "start")
	return pub, sub, subConn
}

type recordingSink struct {
	mu      sync.Mutex
	started []uint64
	stopped []uint64
}

func (k *recordingSink) StartTrack(_ context.Context, feed uint64, _ *webrtc.TrackRemote) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.started = append(k.started, feed)
}

func (k *recordingSink) StopFeed(feed uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = append(k.stopped, feed)
}

func (k *recordingSink) stops() []uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]uint64(nil), k.stopped...)
}

func TestSession_JoinPublishAndSubscribe(t *testing.T) {
	r := newRig(t)
	r.start(t)

	require.NoError(t, r.s.Connect())
	pub := r.gw.nextHandle(t)
	assert.Contains(t, pub.opaque, "publisher")

	create := r.sent(t, pub, "create")
	assert.Equal(t, uint64(1234), create.body["room"])
	assert.Equal(t, false, create.body["permanent"])
	assert.Equal(t, 6, create.body["publishers"])
	assert.Equal(t, 128000, create.body["bitrate"])
	assert.Equal(t, 10, create.body["fir_freq"])
	assert.Equal(t, false, create.body["is_private"])

	join := r.sent(t, pub, "join")
	assert.Equal(t, "publisher", join.body["ptype"])
	assert.Equal(t, "Me", join.body["display"])
	assert.Equal(t, StateConnecting, r.s.Snapshot().State)

	pub.push(joinedTanaka, nil)
	sub := r.gw.nextHandle(t)
	assert.Contains(t, sub.opaque, "subscriber")
	r.eventually(t, func(s Snapshot) bool {
		return len(s.Feeds) == 1 && s.Feeds[0] == 7 && s.PublisherID == 1
	}, "feed 7 not registered")

	subJoin := r.sent(t, sub, "join")
	assert.Equal(t, "subscriber", subJoin.body["ptype"])
	assert.Equal(t, uint64(7), subJoin.body["feed"])
	assert.Equal(t, uint64(55), subJoin.body["private_id"])

	configure := r.sent(t, pub, "configure")
	assert.Equal(t, true, configure.body["audio"])
	assert.Equal(t, true, configure.body["video"])
	require.NotNil(t, configure.jsep)
	assert.Equal(t, "offer", configure.jsep.Type)
	assert.Equal(t, "pub-offer", configure.jsep.SDP)

	// Remote member is listed before its media arrives, without a stream.
	r.eventually(t, func(s Snapshot) bool { return len(s.Members) == 2 }, "members not derived")
	members := r.s.Members()
	assert.True(t, members[0].Local)
	assert.Equal(t, LocalMemberID, members[0].ID)
	assert.Equal(t, "Me", members[0].Display)
	assert.Equal(t, "7", members[1].ID)
	assert.Equal(t, "Tanaka", members[1].Display)
	assert.False(t, members[1].HasStream)

	pub.push(`{"videoroom":"event","configured":"ok"}`, &core.JSEP{Type: "answer", SDP: "pub-answer"})
	r.eventually(t, func(s Snapshot) bool { return s.State == StatePublishing }, "not publishing")
	assert.Equal(t, "pub-answer", r.factory.publisher().answered())

	sub.push(`{"videoroom":"attached","room":1234,"id":7}`, &core.JSEP{Type: "offer", SDP: "sub-offer"})
	subConn := r.factory.nextSubscriber(t)
	start := r.sent(t, sub, "start")
	assert.Equal(t, uint64(1234), start.body["room"])
	require.NotNil(t, start.jsep)
	assert.Equal(t, "answer", start.jsep.Type)

	subConn.emitTrack()
	r.eventually(t, func(s Snapshot) bool {
		return len(s.Members) == 2 && s.Members[1].HasStream
	}, "remote stream not attached")
	assert.Equal(t, "feed-7", r.s.Members()[1].Stream.StreamID())
	assert.Equal(t, 3, r.s.Snapshot().Handles)
}

func TestSession_UnpublishedRemovesFeed(t *testing.T) {
	r := newRig(t)
	r.start(t)
	pub, sub, subConn := r.joinAndPublish(t)
	subConn.emitTrack()
	r.eventually(t, func(s Snapshot) bool { return len(s.Members) == 2 && s.Members[1].HasStream }, "no stream")

	pub.push(`{"videoroom":"event","room":1234,"unpublished":7}`, nil)
	r.eventually(t, func(s Snapshot) bool { return len(s.Feeds) == 0 && len(s.Members) == 1 }, "feed not removed")
	assert.True(t, r.s.Members()[0].Local)
	require.Eventually(t, sub.isDetached, waitFor, tick)
	require.Eventually(t, subConn.isClosed, waitFor, tick)
	assert.Contains(t, r.sink.stops(), uint64(7))

	// Removing again is a no-op.
	pub.push(`{"videoroom":"event","room":1234,"leaving":7}`, nil)
	pub.push(`{"videoroom":"event","room":1234,"unpublished":"7"}`, nil)
	r.eventually(t, func(s Snapshot) bool { return s.State == StatePublishing && len(s.Feeds) == 0 }, "state changed")
}

func TestSession_LeavingRemovesFeed(t *testing.T) {
	r := newRig(t)
	r.start(t)
	pub, sub, _ := r.joinAndPublish(t)

	pub.push(`{"videoroom":"event","room":1234,"leaving":7}`, nil)
	r.eventually(t, func(s Snapshot) bool { return len(s.Feeds) == 0 }, "feed not removed")
	require.Eventually(t, sub.isDetached, waitFor, tick)
}

func TestSession_RosterUpdateSubscribesOnce(t *testing.T) {
	r := newRig(t)
	r.start(t)
	pub, _, _ := r.joinAndPublish(t)

	roster := `{"videoroom":"event","room":1234,"publishers":[{"id":7,"display":"Tanaka"},{"id":9,"display":"Kim"},{"id":1,"display":"Me"}]}`
	pub.push(roster, nil)
	pub.push(roster, nil)

	nine := r.gw.nextHandle(t)
	r.eventually(t, func(s Snapshot) bool { return assert.ObjectsAreEqual([]uint64{7, 9}, s.Feeds) }, "feeds mismatch")
	assert.Equal(t, uint64(9), r.sent(t, nine, "join").body["feed"])

	select {
	case h := <-r.gw.handles:
		t.Fatalf("unexpected extra handle %d", h.id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSession_DisconnectIsIdempotentAndReleasesAll(t *testing.T) {
	r := newRig(t)
	r.start(t)
	pub, sub, subConn := r.joinAndPublish(t)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, r.s.Disconnect(ctx))

	snap := r.s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Zero(t, snap.Handles)
	assert.Empty(t, snap.Feeds)
	assert.Empty(t, snap.Members)
	assert.NoError(t, snap.Err)

	assert.Zero(t, r.gw.live())
	assert.True(t, pub.isDetached())
	assert.True(t, sub.isDetached())
	assert.True(t, subConn.isClosed())
	assert.True(t, r.factory.publisher().isClosed())
	assert.True(t, r.media.closed.Load())

	require.NoError(t, r.s.Disconnect(ctx))
	assert.Equal(t, StateIdle, r.s.Snapshot().State)
	assert.Zero(t, r.gw.live())
}

func TestSession_DisconnectBeforeOpenResolves(t *testing.T) {
	r := newRig(t)
	r.gw.openGate = make(chan struct{})
	r.start(t)

	require.NoError(t, r.s.Connect())
	r.eventually(t, func(s Snapshot) bool { return s.State == StateConnecting }, "not connecting")
	require.Eventually(t, func() bool { return r.gw.opens.Load() == 1 }, waitFor, tick)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, r.s.Disconnect(ctx))
	assert.Equal(t, StateIdle, r.s.Snapshot().State)
	assert.Zero(t, r.s.Snapshot().Handles)

	close(r.gw.openGate)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.gw.live())
	assert.Equal(t, StateIdle, r.s.Snapshot().State)
	assert.Zero(t, r.s.Snapshot().Handles)
}

func TestSession_ConnectWhileConnectingIsNoop(t *testing.T) {
	r := newRig(t)
	r.gw.openGate = make(chan struct{})
	r.start(t)

	require.NoError(t, r.s.Connect())
	require.NoError(t, r.s.Connect())
	r.eventually(t, func(s Snapshot) bool { return s.State == StateConnecting }, "not connecting")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), r.gw.opens.Load())
	close(r.gw.openGate)
}

func TestSession_Failures(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(r *rig)
		want    error
		joined  bool
	}{
		{
			name:    "gateway unreachable",
			prepare: func(r *rig) { r.gw.openErr = errors.New("dial tcp: connection refused") },
			want:    ErrSignalingUnreachable,
		},
		{
			name:    "attach rejected",
			prepare: func(r *rig) { r.gw.attachErr = errors.New("plugin not found") },
			want:    ErrNegotiation,
		},
		{
			name: "room create rejected",
			prepare: func(r *rig) {
				r.gw.reply = func(_ *fakeHandle, body map[string]any) (json.RawMessage, error) {
					if body["request"] == "create" {
						return json.RawMessage(`{"videoroom":"event","error_code":428,"error":"Invalid element"}`), nil
					}
					return nil, nil
				}
			},
			want: ErrNegotiation,
		},
		{
			name:    "capture denied",
			prepare: func(r *rig) { r.capture.err = errors.New("NotAllowedError") },
			want:    core.ErrCaptureDenied,
			joined:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			tt.prepare(r)
			r.start(t)

			require.NoError(t, r.s.Connect())
			if tt.joined {
				pub := r.gw.nextHandle(t)
				r.sent(t, pub, "join")
				pub.push(`{"videoroom":"joined","id":1,"private_id":55,"publishers":[]}`, nil)
			}
			r.eventually(t, func(s Snapshot) bool { return s.Err != nil }, "no error surfaced")

			snap := r.s.Snapshot()
			assert.ErrorIs(t, snap.Err, tt.want)
			for _, other := range []error{ErrSignalingUnreachable, ErrNegotiation, core.ErrCaptureDenied} {
				if other != tt.want {
					assert.NotErrorIs(t, snap.Err, other)
				}
			}
			assert.Equal(t, StateIdle, snap.State)
			assert.Zero(t, snap.Handles)
			assert.NotEmpty(t, snap.Error())
			require.Eventually(t, func() bool { return r.gw.live() == 0 }, waitFor, tick)
		})
	}
}

func TestSession_ReconnectAfterFailureClearsError(t *testing.T) {
	r := newRig(t)
	r.gw.openErr = errors.New("refused")
	r.start(t)

	require.NoError(t, r.s.Connect())
	r.eventually(t, func(s Snapshot) bool { return s.Err != nil }, "no error")

	r.gw.openErr = nil
	require.NoError(t, r.s.Connect())
	r.gw.nextHandle(t)
	r.eventually(t, func(s Snapshot) bool { return s.Err == nil && s.State == StateConnecting }, "error not cleared")
}

func TestSession_RoomExistsIsNotAnError(t *testing.T) {
	r := newRig(t)
	r.gw.reply = func(_ *fakeHandle, body map[string]any) (json.RawMessage, error) {
		if body["request"] == "create" {
			return json.RawMessage(`{"videoroom":"event","error_code":427,"error":"Room 1234 already exists"}`), nil
		}
		return nil, nil
	}
	r.start(t)

	require.NoError(t, r.s.Connect())
	pub := r.gw.nextHandle(t)
	r.sent(t, pub, "join")
	pub.push(`{"videoroom":"joined","id":1,"private_id":55}`, nil)
	r.eventually(t, func(s Snapshot) bool { return s.State == StateJoined }, "not joined")
	assert.NoError(t, r.s.Snapshot().Err)
}

func TestSession_AttachLandingForRemovedFeedIsReleased(t *testing.T) {
	r := newRig(t)
	r.gw.subGate = make(chan struct{})
	r.start(t)

	require.NoError(t, r.s.Connect())
	pub := r.gw.nextHandle(t)
	r.sent(t, pub, "join")
	pub.push(joinedTanaka, nil)
	r.eventually(t, func(s Snapshot) bool { return len(s.Feeds) == 1 }, "feed not registered")

	pub.push(`{"videoroom":"event","unpublished":7}`, nil)
	r.eventually(t, func(s Snapshot) bool { return len(s.Feeds) == 0 }, "feed not removed")

	close(r.gw.subGate)
	late := r.gw.nextHandle(t)
	require.Eventually(t, late.isDetached, waitFor, tick)
	_, joined := late.request("join")
	assert.False(t, joined)
	assert.Empty(t, r.s.Snapshot().Feeds)
}

func TestSession_ReaddedFeedOwnsOnlyItsOwnAttach(t *testing.T) {
	r := newRig(t)
	r.gw.subGate = make(chan struct{})
	r.start(t)

	require.NoError(t, r.s.Connect())
	pub := r.gw.nextHandle(t)
	r.sent(t, pub, "join")
	pub.push(joinedTanaka, nil)
	r.eventually(t, func(s Snapshot) bool { return len(s.Feeds) == 1 }, "feed not registered")

	pub.push(`{"videoroom":"event","unpublished":7}`, nil)
	r.eventually(t, func(s Snapshot) bool { return len(s.Feeds) == 0 }, "feed not removed")
	pub.push(`{"videoroom":"event","publishers":[{"id":7,"display":"Tanaka"}]}`, nil)
	r.eventually(t, func(s Snapshot) bool { return len(s.Feeds) == 1 }, "feed not re-added")

	close(r.gw.subGate)
	a, b := r.gw.nextHandle(t), r.gw.nextHandle(t)
	require.Eventually(t, func() bool { return a.isDetached() != b.isDetached() }, waitFor, tick,
		"exactly one subscriber handle must survive")
	kept := a
	if a.isDetached() {
		kept = b
	}
	r.sent(t, kept, "join")
	r.eventually(t, func(s Snapshot) bool { return s.Handles == 3 }, "session, publisher and one subscriber expected")

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, r.s.Disconnect(ctx))
	assert.Zero(t, r.gw.live())
	for _, h := range []*fakeHandle{a, b} {
		if h == kept {
			continue
		}
		_, joined := h.request("join")
		assert.False(t, joined, "released handle must not join")
	}
}

func TestSession_TogglesOnlyWhilePublishing(t *testing.T) {
	r := newRig(t)
	r.start(t)

	require.NoError(t, r.s.ToggleMute())
	require.NoError(t, r.s.ToggleCamera())
	time.Sleep(20 * time.Millisecond)
	assert.False(t, r.s.Snapshot().Muted)
	assert.False(t, r.s.Snapshot().CameraOff)

	r.joinAndPublish(t)
	conn := r.factory.publisher()

	require.NoError(t, r.s.ToggleMute())
	r.eventually(t, func(s Snapshot) bool { return s.Muted }, "not muted")
	assert.False(t, conn.isSending(webrtc.RTPCodecTypeAudio))
	assert.True(t, r.s.Members()[0].Muted)

	require.NoError(t, r.s.ToggleCamera())
	r.eventually(t, func(s Snapshot) bool { return s.CameraOff }, "camera still on")
	assert.False(t, conn.isSending(webrtc.RTPCodecTypeVideo))
	assert.False(t, r.s.Members()[0].CameraOn)

	require.NoError(t, r.s.ToggleMute())
	r.eventually(t, func(s Snapshot) bool { return !s.Muted }, "still muted")
	assert.True(t, conn.isSending(webrtc.RTPCodecTypeAudio))
}

func TestSession_UnpublishedOKDropsToJoined(t *testing.T) {
	r := newRig(t)
	r.start(t)
	pub, _, _ := r.joinAndPublish(t)
	conn := r.factory.publisher()

	pub.push(`{"videoroom":"event","unpublished":"ok"}`, nil)
	r.eventually(t, func(s Snapshot) bool { return s.State == StateJoined }, "still publishing")
	require.Eventually(t, conn.isClosed, waitFor, tick)
	assert.Equal(t, []uint64{7}, r.s.Snapshot().Feeds)
}

func TestSession_FeedHangupKeepsMember(t *testing.T) {
	r := newRig(t)
	r.start(t)
	_, sub, subConn := r.joinAndPublish(t)
	subConn.emitTrack()
	r.eventually(t, func(s Snapshot) bool { return len(s.Members) == 2 && s.Members[1].HasStream }, "no stream")

	sub.pushKind(core.HandleEventHangup)
	r.eventually(t, func(s Snapshot) bool { return len(s.Members) == 2 && !s.Members[1].HasStream }, "stream kept")
	require.Eventually(t, subConn.isClosed, waitFor, tick)
	assert.Equal(t, []uint64{7}, r.s.Snapshot().Feeds)
}

func TestSession_PublisherDetachedFails(t *testing.T) {
	r := newRig(t)
	r.start(t)
	pub, _, _ := r.joinAndPublish(t)

	pub.pushKind(core.HandleEventDetached)
	r.eventually(t, func(s Snapshot) bool { return s.Err != nil }, "no error")
	assert.ErrorIs(t, r.s.Snapshot().Err, ErrNegotiation)
	require.Eventually(t, func() bool { return r.gw.live() <= 1 }, waitFor, tick)
}

func TestSession_ObserversSeeChangesOnly(t *testing.T) {
	r := newRig(t)
	r.start(t)

	var mu sync.Mutex
	var states []State
	cancel := r.s.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	})

	require.NoError(t, r.s.ToggleMute())
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, states)
	mu.Unlock()

	require.NoError(t, r.s.Connect())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[0] == StateConnecting
	}, waitFor, tick)

	cancel()
	mu.Lock()
	n := len(states)
	mu.Unlock()

	ctx, done := context.WithTimeout(context.Background(), waitFor)
	defer done()
	require.NoError(t, r.s.Disconnect(ctx))
	mu.Lock()
	assert.Len(t, states, n)
	mu.Unlock()
}

func TestSession_EveryTrackArrivalIsPushed(t *testing.T) {
	r := newRig(t)
	r.start(t)
	_, _, subConn := r.joinAndPublish(t)

	var mu sync.Mutex
	var tracks []int
	cancel := r.s.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if len(s.Members) == 2 && s.Members[1].HasStream {
			tracks = append(tracks, s.Members[1].Tracks)
		}
	})
	defer cancel()

	subConn.emitTrack()
	subConn.emitTrack()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(tracks) == 2
	}, waitFor, tick, "audio and video arrivals must both notify")
	mu.Lock()
	assert.Equal(t, []int{1, 2}, tracks)
	mu.Unlock()
}

func TestSession_StoppedLoopRejectsCommands(t *testing.T) {
	r := newRig(t)
	s := New(r.gw, r.factory, r.capture, nil, Options{Room: 1})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()
	<-s.Done()

	assert.ErrorIs(t, s.Connect(), ErrStopped)
	assert.ErrorIs(t, s.Disconnect(context.Background()), ErrStopped)
	assert.Equal(t, StateIdle, s.Snapshot().State)
}
