package app

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/rtcbridge/internal/app/events"
	"github.com/dkeye/rtcbridge/internal/domain"
)

func TestCreateReturnsFreshIDs(t *testing.T) {
	reg, _ := newTestRegistry(t)

	seen := make(map[domain.ConnectionID]bool)
	for i := 0; i < 50; i++ {
		id := mustCreate(t, reg)
		if seen[id] {
			t.Fatalf("id %s returned twice", id)
		}
		seen[id] = true
		if _, err := reg.Lookup(id); err != nil {
			t.Fatalf("Lookup(%s) right after create: %v", id, err)
		}
	}
	if got := len(reg.List()); got != 50 {
		t.Fatalf("List() has %d entries, want 50", got)
	}
}

func TestCreateEmptyICEServersDefaultConstraints(t *testing.T) {
	reg := NewRegistry(&fakeEngine{}, WithDefaultICEServers([]domain.ICEServer{{URLs: []string{"stun:stun.example.org"}}}))
	t.Cleanup(reg.CloseAll)

	id, err := reg.Create(map[string]any{"iceServers": []any{}}, map[string]any{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	conn, err := reg.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if n := len(conn.Configuration().ICEServers); n != 0 {
		t.Fatalf("explicit empty iceServers became %d servers", n)
	}
	if conn.EventChannel() != id.EventChannel() {
		t.Fatalf("event channel %q, want %q", conn.EventChannel(), id.EventChannel())
	}

	// Without the key the defaults apply.
	id2, err := reg.Create(nil, nil)
	if err != nil {
		t.Fatalf("Create with nil config: %v", err)
	}
	conn2, _ := reg.Lookup(id2)
	if n := len(conn2.Configuration().ICEServers); n != 1 {
		t.Fatalf("default iceServers: got %d, want 1", n)
	}
}

func TestCreateRejectsMalformedInputBeforeEngine(t *testing.T) {
	tests := []struct {
		name        string
		config      map[string]any
		constraints map[string]any
	}{
		{"bad policy", map[string]any{"iceTransportPolicy": "nearby"}, nil},
		{"server without urls", map[string]any{"iceServers": []any{map[string]any{}}}, nil},
		{"turn without credential", map[string]any{"iceServers": []any{map[string]any{"urls": "turn:turn.example.org"}}}, nil},
		{"iceServers not a list", map[string]any{"iceServers": 12}, nil},
		{"bad constraint flag", nil, map[string]any{"mandatory": map[string]any{"OfferToReceiveAudio": "maybe"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, engine := newTestRegistry(t)
			_, err := reg.Create(tt.config, tt.constraints)
			if !errors.Is(err, domain.ErrConfig) {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
			if engine.count() != 0 {
				t.Fatal("engine was called for malformed input")
			}
			if len(reg.List()) != 0 {
				t.Fatal("connection registered after failure")
			}
		})
	}
}

func TestCreateEngineFailureLeavesNothing(t *testing.T) {
	for name, engine := range map[string]*fakeEngine{
		"error": {newErr: errors.New("no sockets")},
		"panic": {newPanic: true},
	} {
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry(engine)
			_, err := reg.Create(nil, nil)
			if !errors.Is(err, domain.ErrEngineFault) {
				t.Fatalf("err = %v, want ErrEngineFault", err)
			}
			if len(reg.List()) != 0 {
				t.Fatal("partially created connection is visible")
			}
			reg.mu.RLock()
			subs := len(reg.subs)
			reg.mu.RUnlock()
			if subs != 0 {
				t.Fatalf("%d subscriptions leaked", subs)
			}
		})
	}
}

func TestCloseTwiceReturnsNotFound(t *testing.T) {
	reg, engine := newTestRegistry(t)
	id := mustCreate(t, reg)

	if err := reg.Close(id); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := reg.Close(id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second Close err = %v, want ErrNotFound", err)
	}
	if _, err := reg.Lookup(id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Lookup after close err = %v, want ErrNotFound", err)
	}
	if n := engine.last().closeCount(); n != 1 {
		t.Fatalf("engine closed %d times, want 1", n)
	}
	if err := reg.Cancel(id.EventChannel()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("subscription still registered after close: %v", err)
	}
}

func TestCloseUnknown(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if err := reg.Close("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEventsAfterCloseAreDropped(t *testing.T) {
	reg, engine := newTestRegistry(t)
	id := mustCreate(t, reg)
	obs := engine.last().obs

	c := newCollector()
	if _, err := reg.Listen(id.EventChannel(), c); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	obs.OnICEGatheringState(domain.ICEGatheringStateGathering)
	if ev := c.next(t); ev.State != "gathering" {
		t.Fatalf("got %+v", ev)
	}

	if err := reg.Close(id); err != nil {
		t.Fatalf("Close: %v", err)
	}
	obs.OnICEGatheringState(domain.ICEGatheringStateComplete)
	obs.OnRenegotiationNeeded()
	c.expectNone(t, 50*time.Millisecond)

	if _, err := reg.Listen(id.EventChannel(), c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Listen after close err = %v, want ErrNotFound", err)
	}
}

func TestEventsWithoutListenerAreNotReplayed(t *testing.T) {
	reg, engine := newTestRegistry(t)
	id := mustCreate(t, reg)
	obs := engine.last().obs

	obs.OnICEGatheringState(domain.ICEGatheringStateGathering)

	c := newCollector()
	if _, err := reg.Listen(id.EventChannel(), c); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	obs.OnICEGatheringState(domain.ICEGatheringStateComplete)
	if ev := c.next(t); ev.State != "complete" {
		t.Fatalf("first delivered event %+v, want the one raised after listening", ev)
	}
}

func TestEventsKeepEngineOrder(t *testing.T) {
	reg, engine := newTestRegistry(t)
	id := mustCreate(t, reg)
	obs := engine.last().obs

	c := newCollector()
	if _, err := reg.Listen(id.EventChannel(), c); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	obs.OnICEGatheringState(domain.ICEGatheringStateGathering)
	obs.OnICECandidate(domain.ICECandidate{SDPMid: "0", Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host"})
	obs.OnICEConnectionState(domain.ICEConnectionStateChecking)
	obs.OnICEGatheringState(domain.ICEGatheringStateComplete)

	want := []struct {
		kind  events.Kind
		state string
	}{
		{events.KindICEGatheringState, "gathering"},
		{events.KindCandidate, ""},
		{events.KindICEConnectionState, "checking"},
		{events.KindICEGatheringState, "complete"},
	}
	for i, w := range want {
		ev := c.next(t)
		if ev.Kind != w.kind || ev.State != w.state {
			t.Fatalf("event %d = %s/%q, want %s/%q", i, ev.Kind, ev.State, w.kind, w.state)
		}
	}
}

func TestReplacedListenerReceivesNothing(t *testing.T) {
	reg, engine := newTestRegistry(t)
	id := mustCreate(t, reg)
	obs := engine.last().obs

	first, second := newCollector(), newCollector()
	if _, err := reg.Listen(id.EventChannel(), first); err != nil {
		t.Fatalf("Listen first: %v", err)
	}
	if _, err := reg.Listen(id.EventChannel(), second); err != nil {
		t.Fatalf("Listen second: %v", err)
	}

	obs.OnSignalingState(domain.SignalingStateHaveLocalOffer)
	if ev := second.next(t); ev.Kind != events.KindSignalingState {
		t.Fatalf("second got %s", ev.Kind)
	}
	first.expectNone(t, 50*time.Millisecond)
}

func TestReleaseOnlyDetachesOwnGeneration(t *testing.T) {
	reg, engine := newTestRegistry(t)
	id := mustCreate(t, reg)
	obs := engine.last().obs

	first, second := newCollector(), newCollector()
	gen, _ := reg.Listen(id.EventChannel(), first)
	if _, err := reg.Listen(id.EventChannel(), second); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if reg.Release(id.EventChannel(), gen) {
		t.Fatal("stale generation detached the newer listener")
	}

	obs.OnRenegotiationNeeded()
	second.next(t)

	if err := reg.Cancel(id.EventChannel()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	obs.OnRenegotiationNeeded()
	second.expectNone(t, 50*time.Millisecond)
}

func TestCloseAll(t *testing.T) {
	reg, engine := newTestRegistry(t)
	for i := 0; i < 3; i++ {
		mustCreate(t, reg)
	}
	reg.CloseAll()
	if n := len(reg.List()); n != 0 {
		t.Fatalf("%d connections left", n)
	}
	for _, pc := range engine.created {
		if pc.closeCount() != 1 {
			t.Fatal("engine connection not closed")
		}
	}
}
