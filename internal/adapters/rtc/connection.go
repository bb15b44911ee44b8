package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// WebRTCConnection implements core.PeerConnection on a pion PeerConnection.
// Signaling state is reported by the connection itself after each description
// change, so the observer sees transitions in the order they happened.
// pion dispatches connection-state callbacks on fresh goroutines; those are
// reported from the live state and deduplicated for the same reason.
type WebRTCConnection struct {
	pc  *webrtc.PeerConnection
	obs core.PeerObserver

	mu            sync.Mutex
	lastSignaling  domain.SignalingState
	lastConnection domain.PeerConnectionState
	closed         bool
}

var _ core.PeerConnection = (*WebRTCConnection)(nil)

func newWebRTCConnection(pc *webrtc.PeerConnection, obs core.PeerObserver) *WebRTCConnection {
	c := &WebRTCConnection{
		pc:             pc,
		obs:            obs,
		lastSignaling:  domain.SignalingStateStable,
		lastConnection: domain.PeerConnectionStateNew,
	}
	c.bind()
	return c
}

func (c *WebRTCConnection) bind() {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "webrtc").Str("ice_state", s.String()).Msg("ICE state")
		c.obs.OnICEConnectionState(iceConnectionStates[s])
	})

	c.pc.OnICEGatheringStateChange(func(s webrtc.ICEGatheringState) {
		c.obs.OnICEGatheringState(iceGatheringStates[s])
	})

	c.pc.OnConnectionStateChange(func(webrtc.PeerConnectionState) {
		c.reportConnection()
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		// nil marks the end of gathering, which iceGatheringState already reports.
		if cand != nil {
			c.obs.OnICECandidate(fromCandidateInit(cand.ToJSON()))
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		summary := domain.NewRemoteTrackSummary(track.ID(), track.Kind().String())
		c.obs.OnAddTrack(track.StreamID(), summary)
		go c.drainTrack(track, summary)
	})

	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		c.obs.OnDataChannel(newDataChannel(dc))
	})

	c.pc.OnNegotiationNeeded(func() {
		c.obs.OnRenegotiationNeeded()
	})
}

// drainTrack consumes the track until the engine ends it and then reports its removal.
func (c *WebRTCConnection) drainTrack(track *webrtc.TrackRemote, summary domain.TrackSummary) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			break
		}
	}
	c.obs.OnRemoveTrack(track.StreamID(), summary)
}

// reportSignaling notifies the observer if the signaling state moved since the last report.
func (c *WebRTCConnection) reportSignaling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := signalingStates[c.pc.SignalingState()]
	if s == c.lastSignaling {
		return
	}
	c.lastSignaling = s
	c.obs.OnSignalingState(s)
}

// reportConnection notifies the observer if the connection state moved since the last report.
func (c *WebRTCConnection) reportConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := peerConnectionStates[c.pc.ConnectionState()]
	if s == c.lastConnection {
		return
	}
	c.lastConnection = s
	c.obs.OnConnectionState(s)
}

func (c *WebRTCConnection) CreateOffer(ctx context.Context, constraints domain.Constraints) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	if err := c.ensureReceivers(constraints); err != nil {
		return domain.SessionDescription{}, err
	}
	offer, err := c.pc.CreateOffer(&webrtc.OfferOptions{ICERestart: constraints.ICERestart})
	if err != nil {
		return domain.SessionDescription{}, err
	}
	logDescription("createOffer", offer.SDP)
	return fromWebRTCDescription(offer)
}

// ensureReceivers adds recvonly transceivers for the kinds the constraints ask to receive.
func (c *WebRTCConnection) ensureReceivers(constraints domain.Constraints) error {
	want := map[webrtc.RTPCodecType]bool{}
	if constraints.OfferToReceiveAudio != nil && *constraints.OfferToReceiveAudio {
		want[webrtc.RTPCodecTypeAudio] = true
	}
	if constraints.OfferToReceiveVideo != nil && *constraints.OfferToReceiveVideo {
		want[webrtc.RTPCodecTypeVideo] = true
	}
	for _, t := range c.pc.GetTransceivers() {
		delete(want, t.Kind())
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		if !want[kind] {
			continue
		}
		if _, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *WebRTCConnection) CreateAnswer(ctx context.Context, _ domain.Constraints) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	logDescription("createAnswer", answer.SDP)
	return fromWebRTCDescription(answer)
}

func (c *WebRTCConnection) SetLocalDescription(ctx context.Context, d domain.SessionDescription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	desc, err := toWebRTCDescription(d)
	if err != nil {
		return err
	}
	defer c.reportSignaling()
	return c.pc.SetLocalDescription(desc)
}

func (c *WebRTCConnection) SetRemoteDescription(ctx context.Context, d domain.SessionDescription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	desc, err := toWebRTCDescription(d)
	if err != nil {
		return err
	}
	defer c.reportSignaling()
	return c.pc.SetRemoteDescription(desc)
}

func (c *WebRTCConnection) AddICECandidate(cand domain.ICECandidate) error {
	return c.pc.AddICECandidate(toCandidateInit(cand))
}

func (c *WebRTCConnection) CreateDataChannel(label string, init domain.DataChannelInit, obs core.DataChannelObserver) (core.DataChannel, error) {
	dc, err := c.pc.CreateDataChannel(label, toDataChannelInit(init))
	if err != nil {
		return nil, err
	}
	w := newDataChannel(dc)
	w.Observe(obs)
	return w, nil
}

func (c *WebRTCConnection) SignalingState() domain.SignalingState {
	return signalingStates[c.pc.SignalingState()]
}

func (c *WebRTCConnection) ICEConnectionState() domain.ICEConnectionState {
	return iceConnectionStates[c.pc.ICEConnectionState()]
}

func (c *WebRTCConnection) ICEGatheringState() domain.ICEGatheringState {
	return iceGatheringStates[c.pc.ICEGatheringState()]
}

func (c *WebRTCConnection) ConnectionState() domain.PeerConnectionState {
	return peerConnectionStates[c.pc.ConnectionState()]
}

func (c *WebRTCConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.pc.Close()
	if err != nil && !errors.Is(err, webrtc.ErrConnectionClosed) {
		log.Error().Err(err).Str("module", "webrtc").Msg("close error")
		return err
	}
	c.reportSignaling()
	c.reportConnection()
	log.Debug().Str("module", "webrtc").Msg("closed")
	return nil
}
