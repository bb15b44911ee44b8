package core

import "github.com/dkeye/rtcbridge/internal/domain"

// PeerObserver receives the engine's connection callbacks. Calls may arrive on any goroutine.
type PeerObserver interface {
	OnSignalingState(domain.SignalingState)
	OnICEConnectionState(domain.ICEConnectionState)
	OnICEGatheringState(domain.ICEGatheringState)
	OnConnectionState(domain.PeerConnectionState)
	OnICECandidate(domain.ICECandidate)
	OnAddTrack(stream string, track domain.TrackSummary)
	OnRemoveTrack(stream string, track domain.TrackSummary)
	OnDataChannel(RemoteDataChannel)
	OnRenegotiationNeeded()
}

// DataChannelObserver receives the callbacks of one data channel.
type DataChannelObserver interface {
	OnStateChange(domain.DataChannelState)
	OnMessage(data []byte, binary bool)
}
