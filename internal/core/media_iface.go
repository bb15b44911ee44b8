package core

import (
	"context"

	"github.com/dkeye/rtcbridge/internal/domain"
)

// Engine creates peer connections on the underlying transport/media stack.
type Engine interface {
	// NewPeerConnection creates a connection and registers obs for all of its callbacks
	// before returning, so no engine event can be raised without an observer.
	NewPeerConnection(cfg domain.Configuration, constraints domain.Constraints, obs PeerObserver) (PeerConnection, error)
}

// PeerConnection is the engine-level connection. Negotiation calls block until the engine
// has finished; callers that need asynchrony run them on their own goroutine.
type PeerConnection interface {
	CreateOffer(ctx context.Context, c domain.Constraints) (domain.SessionDescription, error)
	CreateAnswer(ctx context.Context, c domain.Constraints) (domain.SessionDescription, error)
	SetLocalDescription(ctx context.Context, d domain.SessionDescription) error
	SetRemoteDescription(ctx context.Context, d domain.SessionDescription) error
	// AddICECandidate applies a remote candidate.
	AddICECandidate(c domain.ICECandidate) error
	// CreateDataChannel opens a local data channel. obs is attached before the call returns.
	CreateDataChannel(label string, init domain.DataChannelInit, obs DataChannelObserver) (DataChannel, error)

	SignalingState() domain.SignalingState
	ICEConnectionState() domain.ICEConnectionState
	ICEGatheringState() domain.ICEGatheringState
	ConnectionState() domain.PeerConnectionState

	// Close must be idempotent.
	Close() error
}

// DataChannel is an engine data channel.
type DataChannel interface {
	Label() string
	ReadyState() domain.DataChannelState
	Send(data []byte, binary bool) error
	Close() error
}

// RemoteDataChannel is a channel opened by the peer. The observer is bound
// by whoever handles PeerObserver.OnDataChannel.
type RemoteDataChannel interface {
	DataChannel
	Observe(obs DataChannelObserver)
}
