package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseConfiguration(t *testing.T) {
	defaults := []ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}}

	cfg, err := ParseConfiguration(map[string]any{
		"iceServers": []any{
			map[string]any{"url": "stun:one.example.org"},
			map[string]any{"urls": []any{"turn:two.example.org", "turns:two.example.org:443"}, "username": "u", "credential": "p"},
		},
		"iceTransportPolicy":   "relay",
		"bundlePolicy":         "max-bundle",
		"rtcpMuxPolicy":        "negotiate",
		"iceCandidatePoolSize": 4,
	}, defaults)
	if err != nil {
		t.Fatalf("ParseConfiguration: %v", err)
	}
	if len(cfg.ICEServers) != 2 {
		t.Fatalf("got %d servers", len(cfg.ICEServers))
	}
	if got := cfg.ICEServers[0].URLs; len(got) != 1 || got[0] != "stun:one.example.org" {
		t.Fatalf("legacy url not folded into urls: %v", got)
	}
	if cfg.ICETransportPolicy != ICETransportPolicyRelay || cfg.BundlePolicy != BundlePolicyMaxBundle ||
		cfg.RTCPMuxPolicy != RTCPMuxPolicyNegotiate || cfg.ICECandidatePoolSize != 4 {
		t.Fatalf("policies %+v", cfg)
	}

	cfg, err = ParseConfiguration(nil, defaults)
	if err != nil {
		t.Fatalf("ParseConfiguration(nil): %v", err)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICETransportPolicy != ICETransportPolicyAll || cfg.BundlePolicy != BundlePolicyBalanced {
		t.Fatalf("defaults %+v", cfg)
	}
	cfg.ICEServers[0].URLs = nil
	if defaults[0].URLs == nil {
		t.Fatal("parsed configuration aliases the default server list")
	}
}

func TestParseConfigurationRejects(t *testing.T) {
	tests := map[string]map[string]any{
		"unknown scheme":   {"iceServers": []any{map[string]any{"urls": "http://example.org"}}},
		"no scheme":        {"iceServers": []any{map[string]any{"urls": "example.org"}}},
		"turn no password": {"iceServers": []any{map[string]any{"urls": "turn:t.example.org", "username": "u"}}},
		"bundle policy":    {"bundlePolicy": "max-everything"},
		"rtcp mux policy":  {"rtcpMuxPolicy": "sometimes"},
		"pool size":        {"iceCandidatePoolSize": 300},
		"fractional pool":  {"iceCandidatePoolSize": 1.7},
		"wrong type":       {"iceTransportPolicy": []any{"all"}},
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseConfiguration(raw, nil); !errors.Is(err, ErrConfig) {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
		})
	}
}

func TestParseConfigurationTypedValues(t *testing.T) {
	cfg, err := ParseConfiguration(map[string]any{
		"iceServers":           []any{},
		"iceTransportPolicy":   ICETransportPolicyRelay,
		"bundlePolicy":         BundlePolicyMaxBundle,
		"iceCandidatePoolSize": 2.0,
	}, nil)
	if err != nil {
		t.Fatalf("ParseConfiguration: %v", err)
	}
	if cfg.ICETransportPolicy != ICETransportPolicyRelay || cfg.BundlePolicy != BundlePolicyMaxBundle || cfg.ICECandidatePoolSize != 2 {
		t.Fatalf("config %+v", cfg)
	}

	type label string
	init, err := ParseDataChannelInit(map[string]any{"protocol": label("json")})
	if err != nil {
		t.Fatalf("ParseDataChannelInit: %v", err)
	}
	if init.Protocol != "json" {
		t.Fatalf("init %+v", init)
	}
}

func TestParseConstraints(t *testing.T) {
	c, err := ParseConstraints(map[string]any{
		"mandatory": map[string]any{"OfferToReceiveAudio": true, "OfferToReceiveVideo": "false"},
		"optional":  []any{map[string]any{"DtlsSrtpKeyAgreement": true}},
	})
	if err != nil {
		t.Fatalf("ParseConstraints: %v", err)
	}
	if c.OfferToReceiveAudio == nil || !*c.OfferToReceiveAudio {
		t.Fatal("OfferToReceiveAudio not set")
	}
	if c.OfferToReceiveVideo == nil || *c.OfferToReceiveVideo {
		t.Fatal("OfferToReceiveVideo not parsed from string")
	}
	if c.Optional["DtlsSrtpKeyAgreement"] != true {
		t.Fatalf("optional %+v", c.Optional)
	}

	// Mandatory wins over flat keys.
	c, err = ParseConstraints(map[string]any{
		"iceRestart": false,
		"mandatory":  map[string]any{"IceRestart": true},
	})
	if err != nil {
		t.Fatalf("ParseConstraints: %v", err)
	}
	if !c.ICERestart {
		t.Fatal("mandatory iceRestart ignored")
	}

	c, err = ParseConstraints(nil)
	if err != nil || c.OfferToReceiveAudio != nil || c.ICERestart {
		t.Fatalf("nil constraints = %+v, %v", c, err)
	}

	if _, err := ParseConstraints(map[string]any{"optional": "yes"}); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestParseDataChannelInit(t *testing.T) {
	init, err := ParseDataChannelInit(map[string]any{"ordered": false, "maxRetransmitTime": 500, "protocol": "json"})
	if err != nil {
		t.Fatalf("ParseDataChannelInit: %v", err)
	}
	if init.Ordered == nil || *init.Ordered || init.Protocol != "json" {
		t.Fatalf("init %+v", init)
	}
	if init.MaxPacketLifeTime == nil || *init.MaxPacketLifeTime != 500 || init.MaxRetransmits != nil {
		t.Fatal("legacy maxRetransmitTime not mapped to maxPacketLifeTime")
	}

	init, err = ParseDataChannelInit(map[string]any{"maxRetransmits": -1, "maxPacketLifeTime": 10})
	if err != nil {
		t.Fatalf("-1 should mean unset: %v", err)
	}
	if init.MaxRetransmits != nil {
		t.Fatal("maxRetransmits -1 was kept")
	}

	for _, raw := range []map[string]any{
		{"maxRetransmits": 70000},
		{"maxPacketLifeTime": -5},
		{"maxRetransmits": 1, "maxPacketLifeTime": 1},
	} {
		if _, err := ParseDataChannelInit(raw); !errors.Is(err, ErrConfig) {
			t.Errorf("%v: err = %v, want ErrConfig", raw, err)
		}
	}
}

func TestNewSessionDescription(t *testing.T) {
	d, err := NewSessionDescription(SDPTypeAnswer, "v=0\r\n")
	if err != nil || d.Type() != SDPTypeAnswer || d.SDP() != "v=0\r\n" {
		t.Fatalf("got %+v, %v", d, err)
	}
	if _, err := NewSessionDescription(SDPTypeRollback, ""); err != nil {
		t.Fatalf("rollback without sdp: %v", err)
	}
	if _, err := NewSessionDescription("bogus", "v=0\r\n"); !errors.Is(err, ErrConfig) {
		t.Fatalf("unknown type err = %v", err)
	}
	if _, err := NewSessionDescription(SDPTypeOffer, ""); !errors.Is(err, ErrConfig) {
		t.Fatalf("empty offer err = %v", err)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{configErrorf("bad"), "configError"},
		{fmt.Errorf("%w: pc 1", ErrNotFound), "notFound"},
		{NewNegotiationError(ErrOfferFailed, errors.New("x")), "createOfferFailed"},
		{NewNegotiationError(ErrAnswerFailed, nil), "createAnswerFailed"},
		{NewNegotiationError(ErrSetLocalFailed, nil), "setLocalDescriptionFailed"},
		{NewNegotiationError(ErrSetRemoteFailed, nil), "setRemoteDescriptionFailed"},
		{ErrInvalidState, "invalidState"},
		{errors.New("segfault"), "engineFault"},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}

	ne := NewNegotiationError(ErrSetRemoteFailed, errors.New("bad fingerprint"))
	if !strings.Contains(ne.Error(), "bad fingerprint") || ne.Reason != "bad fingerprint" {
		t.Fatalf("reason lost: %v", ne)
	}
}

func TestIdentifiers(t *testing.T) {
	a, b := NewConnectionID(), NewConnectionID()
	if a == b || a == "" {
		t.Fatalf("ids %q %q", a, b)
	}
	if got := ConnectionID("pc1").EventChannel(); got != "rtcbridge/peerConnectionEvent/pc1" {
		t.Fatalf("EventChannel = %s", got)
	}
	if got := DataChannelEventChannel("pc1", 3); got != "rtcbridge/dataChannelEvent/pc1/3" {
		t.Fatalf("DataChannelEventChannel = %s", got)
	}
}

func TestStateStrings(t *testing.T) {
	tests := []struct {
		got  fmt.Stringer
		want string
	}{
		{SignalingStateHaveRemotePranswer, "have-remote-pranswer"},
		{SignalingStateUnknown, "unknown"},
		{ICEConnectionStateDisconnected, "disconnected"},
		{ICEGatheringStateComplete, "complete"},
		{PeerConnectionStateFailed, "failed"},
		{DataChannelStateClosing, "closing"},
	}
	for _, tt := range tests {
		if tt.got.String() != tt.want {
			t.Errorf("%v != %s", tt.got, tt.want)
		}
	}
}
