package rtc

import (
	"fmt"

	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/pion/webrtc/v4"
)

func toWebRTCConfig(cfg domain.Configuration) webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		servers = append(servers, srv)
	}
	return webrtc.Configuration{
		ICEServers:           servers,
		ICETransportPolicy:   iceTransportPolicies[cfg.ICETransportPolicy],
		BundlePolicy:         bundlePolicies[cfg.BundlePolicy],
		RTCPMuxPolicy:        rtcpMuxPolicies[cfg.RTCPMuxPolicy],
		ICECandidatePoolSize: cfg.ICECandidatePoolSize,
	}
}

var iceTransportPolicies = map[domain.ICETransportPolicy]webrtc.ICETransportPolicy{
	domain.ICETransportPolicyAll:   webrtc.ICETransportPolicyAll,
	domain.ICETransportPolicyRelay: webrtc.ICETransportPolicyRelay,
}

var bundlePolicies = map[domain.BundlePolicy]webrtc.BundlePolicy{
	domain.BundlePolicyBalanced:  webrtc.BundlePolicyBalanced,
	domain.BundlePolicyMaxCompat: webrtc.BundlePolicyMaxCompat,
	domain.BundlePolicyMaxBundle: webrtc.BundlePolicyMaxBundle,
}

var rtcpMuxPolicies = map[domain.RTCPMuxPolicy]webrtc.RTCPMuxPolicy{
	domain.RTCPMuxPolicyNegotiate: webrtc.RTCPMuxPolicyNegotiate,
	domain.RTCPMuxPolicyRequire:   webrtc.RTCPMuxPolicyRequire,
}

func toWebRTCDescription(d domain.SessionDescription) (webrtc.SessionDescription, error) {
	typ := webrtc.NewSDPType(string(d.Type()))
	if typ == webrtc.SDPTypeUnknown {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: sdp type %q", domain.ErrConfig, d.Type())
	}
	return webrtc.SessionDescription{Type: typ, SDP: d.SDP()}, nil
}

func fromWebRTCDescription(d webrtc.SessionDescription) (domain.SessionDescription, error) {
	return domain.NewSessionDescription(domain.SDPType(d.Type.String()), d.SDP)
}

func fromCandidateInit(ci webrtc.ICECandidateInit) domain.ICECandidate {
	c := domain.ICECandidate{Candidate: ci.Candidate}
	if ci.SDPMid != nil {
		c.SDPMid = *ci.SDPMid
	}
	if ci.SDPMLineIndex != nil {
		c.SDPMLineIndex = *ci.SDPMLineIndex
	}
	return c
}

func toCandidateInit(c domain.ICECandidate) webrtc.ICECandidateInit {
	ci := webrtc.ICECandidateInit{Candidate: c.Candidate}
	if c.SDPMid != "" {
		mid := c.SDPMid
		ci.SDPMid = &mid
	}
	idx := c.SDPMLineIndex
	ci.SDPMLineIndex = &idx
	return ci
}

func toDataChannelInit(init domain.DataChannelInit) *webrtc.DataChannelInit {
	out := &webrtc.DataChannelInit{
		Ordered:           init.Ordered,
		MaxRetransmits:    init.MaxRetransmits,
		MaxPacketLifeTime: init.MaxPacketLifeTime,
	}
	if init.Protocol != "" {
		protocol := init.Protocol
		out.Protocol = &protocol
	}
	return out
}

var signalingStates = map[webrtc.SignalingState]domain.SignalingState{
	webrtc.SignalingStateStable:             domain.SignalingStateStable,
	webrtc.SignalingStateHaveLocalOffer:     domain.SignalingStateHaveLocalOffer,
	webrtc.SignalingStateHaveLocalPranswer:  domain.SignalingStateHaveLocalPranswer,
	webrtc.SignalingStateHaveRemoteOffer:    domain.SignalingStateHaveRemoteOffer,
	webrtc.SignalingStateHaveRemotePranswer: domain.SignalingStateHaveRemotePranswer,
	webrtc.SignalingStateClosed:             domain.SignalingStateClosed,
}

var iceConnectionStates = map[webrtc.ICEConnectionState]domain.ICEConnectionState{
	webrtc.ICEConnectionStateNew:          domain.ICEConnectionStateNew,
	webrtc.ICEConnectionStateChecking:     domain.ICEConnectionStateChecking,
	webrtc.ICEConnectionStateConnected:    domain.ICEConnectionStateConnected,
	webrtc.ICEConnectionStateCompleted:    domain.ICEConnectionStateCompleted,
	webrtc.ICEConnectionStateFailed:       domain.ICEConnectionStateFailed,
	webrtc.ICEConnectionStateDisconnected: domain.ICEConnectionStateDisconnected,
	webrtc.ICEConnectionStateClosed:       domain.ICEConnectionStateClosed,
}

var iceGatheringStates = map[webrtc.ICEGatheringState]domain.ICEGatheringState{
	webrtc.ICEGatheringStateNew:       domain.ICEGatheringStateNew,
	webrtc.ICEGatheringStateGathering: domain.ICEGatheringStateGathering,
	webrtc.ICEGatheringStateComplete:  domain.ICEGatheringStateComplete,
}

var peerConnectionStates = map[webrtc.PeerConnectionState]domain.PeerConnectionState{
	webrtc.PeerConnectionStateNew:          domain.PeerConnectionStateNew,
	webrtc.PeerConnectionStateConnecting:   domain.PeerConnectionStateConnecting,
	webrtc.PeerConnectionStateConnected:    domain.PeerConnectionStateConnected,
	webrtc.PeerConnectionStateDisconnected: domain.PeerConnectionStateDisconnected,
	webrtc.PeerConnectionStateFailed:       domain.PeerConnectionStateFailed,
	webrtc.PeerConnectionStateClosed:       domain.PeerConnectionStateClosed,
}

var dataChannelStates = map[webrtc.DataChannelState]domain.DataChannelState{
	webrtc.DataChannelStateConnecting: domain.DataChannelStateConnecting,
	webrtc.DataChannelStateOpen:       domain.DataChannelStateOpen,
	webrtc.DataChannelStateClosing:    domain.DataChannelStateClosing,
	webrtc.DataChannelStateClosed:     domain.DataChannelStateClosed,
}
