package domain

// SignalingState is the offer/answer phase of a connection.
type SignalingState int

const (
	SignalingStateUnknown SignalingState = iota
	SignalingStateStable
	SignalingStateHaveLocalOffer
	SignalingStateHaveLocalPranswer
	SignalingStateHaveRemoteOffer
	SignalingStateHaveRemotePranswer
	SignalingStateClosed
)

var signalingStateNames = map[SignalingState]string{
	SignalingStateStable:             "stable",
	SignalingStateHaveLocalOffer:     "have-local-offer",
	SignalingStateHaveLocalPranswer:  "have-local-pranswer",
	SignalingStateHaveRemoteOffer:    "have-remote-offer",
	SignalingStateHaveRemotePranswer: "have-remote-pranswer",
	SignalingStateClosed:             "closed",
}

func (s SignalingState) String() string {
	if name, ok := signalingStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ICEConnectionState describes connectivity checks of a connection.
type ICEConnectionState int

const (
	ICEConnectionStateUnknown ICEConnectionState = iota
	ICEConnectionStateNew
	ICEConnectionStateChecking
	ICEConnectionStateConnected
	ICEConnectionStateCompleted
	ICEConnectionStateFailed
	ICEConnectionStateDisconnected
	ICEConnectionStateClosed
)

var iceConnectionStateNames = map[ICEConnectionState]string{
	ICEConnectionStateNew:          "new",
	ICEConnectionStateChecking:     "checking",
	ICEConnectionStateConnected:    "connected",
	ICEConnectionStateCompleted:    "completed",
	ICEConnectionStateFailed:       "failed",
	ICEConnectionStateDisconnected: "disconnected",
	ICEConnectionStateClosed:       "closed",
}

func (s ICEConnectionState) String() string {
	if name, ok := iceConnectionStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ICEGatheringState describes local candidate gathering.
type ICEGatheringState int

const (
	ICEGatheringStateUnknown ICEGatheringState = iota
	ICEGatheringStateNew
	ICEGatheringStateGathering
	ICEGatheringStateComplete
)

var iceGatheringStateNames = map[ICEGatheringState]string{
	ICEGatheringStateNew:       "new",
	ICEGatheringStateGathering: "gathering",
	ICEGatheringStateComplete:  "complete",
}

func (s ICEGatheringState) String() string {
	if name, ok := iceGatheringStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// PeerConnectionState aggregates ICE and DTLS transport states.
type PeerConnectionState int

const (
	PeerConnectionStateUnknown PeerConnectionState = iota
	PeerConnectionStateNew
	PeerConnectionStateConnecting
	PeerConnectionStateConnected
	PeerConnectionStateDisconnected
	PeerConnectionStateFailed
	PeerConnectionStateClosed
)

var peerConnectionStateNames = map[PeerConnectionState]string{
	PeerConnectionStateNew:          "new",
	PeerConnectionStateConnecting:   "connecting",
	PeerConnectionStateConnected:    "connected",
	PeerConnectionStateDisconnected: "disconnected",
	PeerConnectionStateFailed:       "failed",
	PeerConnectionStateClosed:       "closed",
}

func (s PeerConnectionState) String() string {
	if name, ok := peerConnectionStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// DataChannelState is the ready state of a data channel.
type DataChannelState int

const (
	DataChannelStateUnknown DataChannelState = iota
	DataChannelStateConnecting
	DataChannelStateOpen
	DataChannelStateClosing
	DataChannelStateClosed
)

var dataChannelStateNames = map[DataChannelState]string{
	DataChannelStateConnecting: "connecting",
	DataChannelStateOpen:       "open",
	DataChannelStateClosing:    "closing",
	DataChannelStateClosed:     "closed",
}

func (s DataChannelState) String() string {
	if name, ok := dataChannelStateNames[s]; ok {
		return name
	}
	return "unknown"
}
