package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/rtcbridge/internal/app/events"
	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/dkeye/rtcbridge/internal/domain"
)

// fakeEngine hands out fakePeerConnections. Func fields override behaviour per test.
type fakeEngine struct {
	mu      sync.Mutex
	created []*fakePeerConnection

	newErr   error
	newPanic bool
	setup    func(*fakePeerConnection)
}

func (e *fakeEngine) NewPeerConnection(cfg domain.Configuration, _ domain.Constraints, obs core.PeerObserver) (core.PeerConnection, error) {
	if e.newPanic {
		panic("engine exploded")
	}
	if e.newErr != nil {
		return nil, e.newErr
	}
	pc := &fakePeerConnection{cfg: cfg, obs: obs, signaling: domain.SignalingStateStable}
	if e.setup != nil {
		e.setup(pc)
	}
	e.mu.Lock()
	e.created = append(e.created, pc)
	e.mu.Unlock()
	return pc, nil
}

func (e *fakeEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.created)
}

func (e *fakeEngine) last() *fakePeerConnection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created[len(e.created)-1]
}

// fakePeerConnection follows the offer/answer state machine closely enough for round trips.
type fakePeerConnection struct {
	cfg domain.Configuration
	obs core.PeerObserver

	offerFn     func(ctx context.Context) (domain.SessionDescription, error)
	answerFn    func(ctx context.Context) (domain.SessionDescription, error)
	setLocalFn  func(ctx context.Context, d domain.SessionDescription) error
	setRemoteFn func(ctx context.Context, d domain.SessionDescription) error
	candidateFn func(c domain.ICECandidate) error

	mu         sync.Mutex
	signaling  domain.SignalingState
	closed     int
	candidates []domain.ICECandidate
	channels   []*fakeDataChannel
}

func (pc *fakePeerConnection) CreateOffer(ctx context.Context, _ domain.Constraints) (domain.SessionDescription, error) {
	if pc.offerFn != nil {
		return pc.offerFn(ctx)
	}
	return domain.NewSessionDescription(domain.SDPTypeOffer, "v=0\r\no=- offer\r\n")
}

func (pc *fakePeerConnection) CreateAnswer(ctx context.Context, _ domain.Constraints) (domain.SessionDescription, error) {
	if pc.answerFn != nil {
		return pc.answerFn(ctx)
	}
	pc.mu.Lock()
	s := pc.signaling
	pc.mu.Unlock()
	if s != domain.SignalingStateHaveRemoteOffer {
		return domain.SessionDescription{}, errors.New("no remote offer")
	}
	return domain.NewSessionDescription(domain.SDPTypeAnswer, "v=0\r\no=- answer\r\n")
}

func (pc *fakePeerConnection) SetLocalDescription(ctx context.Context, d domain.SessionDescription) error {
	if pc.setLocalFn != nil {
		return pc.setLocalFn(ctx, d)
	}
	switch d.Type() {
	case domain.SDPTypeOffer:
		pc.transition(domain.SignalingStateHaveLocalOffer)
	case domain.SDPTypeAnswer:
		pc.transition(domain.SignalingStateStable)
	}
	return nil
}

func (pc *fakePeerConnection) SetRemoteDescription(ctx context.Context, d domain.SessionDescription) error {
	if pc.setRemoteFn != nil {
		return pc.setRemoteFn(ctx, d)
	}
	switch d.Type() {
	case domain.SDPTypeOffer:
		pc.transition(domain.SignalingStateHaveRemoteOffer)
	case domain.SDPTypeAnswer:
		pc.transition(domain.SignalingStateStable)
	}
	return nil
}

func (pc *fakePeerConnection) transition(s domain.SignalingState) {
	pc.mu.Lock()
	pc.signaling = s
	pc.mu.Unlock()
	pc.obs.OnSignalingState(s)
}

func (pc *fakePeerConnection) AddICECandidate(c domain.ICECandidate) error {
	if pc.candidateFn != nil {
		return pc.candidateFn(c)
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.candidates = append(pc.candidates, c)
	return nil
}

func (pc *fakePeerConnection) CreateDataChannel(label string, _ domain.DataChannelInit, obs core.DataChannelObserver) (core.DataChannel, error) {
	dc := &fakeDataChannel{label: label, state: domain.DataChannelStateConnecting, obs: obs}
	pc.mu.Lock()
	pc.channels = append(pc.channels, dc)
	pc.mu.Unlock()
	return dc, nil
}

func (pc *fakePeerConnection) SignalingState() domain.SignalingState {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.signaling
}

func (pc *fakePeerConnection) ICEConnectionState() domain.ICEConnectionState {
	return domain.ICEConnectionStateNew
}

func (pc *fakePeerConnection) ICEGatheringState() domain.ICEGatheringState {
	return domain.ICEGatheringStateNew
}

func (pc *fakePeerConnection) ConnectionState() domain.PeerConnectionState {
	return domain.PeerConnectionStateNew
}

func (pc *fakePeerConnection) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.closed++
	pc.signaling = domain.SignalingStateClosed
	return nil
}

func (pc *fakePeerConnection) closeCount() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.closed
}

type fakeDataChannel struct {
	label string

	mu    sync.Mutex
	state domain.DataChannelState
	obs   core.DataChannelObserver
	sent  [][]byte
}

func (dc *fakeDataChannel) Label() string { return dc.label }

func (dc *fakeDataChannel) ReadyState() domain.DataChannelState {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.state
}

func (dc *fakeDataChannel) Send(data []byte, _ bool) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.sent = append(dc.sent, data)
	return nil
}

func (dc *fakeDataChannel) Close() error {
	dc.mu.Lock()
	dc.state = domain.DataChannelStateClosed
	dc.mu.Unlock()
	return nil
}

func (dc *fakeDataChannel) Observe(obs core.DataChannelObserver) {
	dc.mu.Lock()
	dc.obs = obs
	dc.mu.Unlock()
}

// open moves the channel to open and tells its observer, like the engine would.
func (dc *fakeDataChannel) open() {
	dc.mu.Lock()
	dc.state = domain.DataChannelStateOpen
	obs := dc.obs
	dc.mu.Unlock()
	obs.OnStateChange(domain.DataChannelStateOpen)
}

// collector is a listener that records events on a buffered channel.
type collector struct {
	ch chan events.Event
}

func newCollector() *collector {
	return &collector{ch: make(chan events.Event, 64)}
}

func (c *collector) Deliver(_ string, ev events.Event) error {
	c.ch <- ev
	return nil
}

func (c *collector) next(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-c.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

// nextOf skips events until one of kind arrives.
func (c *collector) nextOf(t *testing.T, kind events.Kind) events.Event {
	t.Helper()
	for {
		if ev := c.next(t); ev.Kind == kind {
			return ev
		}
	}
}

func (c *collector) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-c.ch:
		t.Fatalf("unexpected event %s", ev.Kind)
	case <-time.After(wait):
	}
}

func newTestRegistry(t *testing.T) (*Registry, *fakeEngine) {
	t.Helper()
	engine := &fakeEngine{}
	reg := NewRegistry(engine)
	t.Cleanup(reg.CloseAll)
	return reg, engine
}

func mustCreate(t *testing.T, reg *Registry) domain.ConnectionID {
	t.Helper()
	id, err := reg.Create(map[string]any{"iceServers": []any{}}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

type result[T any] struct {
	v   T
	err error
}

func completion[T any]() (*Completion[T], chan result[T]) {
	ch := make(chan result[T], 2)
	c := NewCompletion(
		func(v T) { ch <- result[T]{v: v} },
		func(err error) { ch <- result[T]{err: err} },
	)
	return c, ch
}

func await[T any](t *testing.T, ch chan result[T]) (T, error) {
	t.Helper()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
		var zero T
		return zero, nil
	}
}
