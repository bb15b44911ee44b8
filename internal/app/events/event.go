// Package events holds the outbound event catalog and the single-listener subscriptions
// that carry it from engine callbacks to the transport.
package events

import (
	"encoding/base64"
	"encoding/json"

	"github.com/dkeye/rtcbridge/internal/domain"
)

// Kind is the event discriminator sent on the wire under "event".
type Kind string

const (
	KindSignalingState      Kind = "signalingState"
	KindICEConnectionState  Kind = "iceConnectionState"
	KindICEGatheringState   Kind = "iceGatheringState"
	KindPeerConnectionState Kind = "peerConnectionState"
	KindCandidate           Kind = "onCandidate"
	KindAddStream           Kind = "onAddStream"
	KindRemoveStream        Kind = "onRemoveStream"
	KindAddTrack            Kind = "onAddTrack"
	KindRemoveTrack         Kind = "onRemoveTrack"
	KindDataChannelOpened   Kind = "didOpenDataChannel"
	KindRenegotiationNeeded Kind = "onRenegotiationNeeded"

	KindDataChannelState   Kind = "dataChannelStateChanged"
	KindDataChannelMessage Kind = "dataChannelReceiveMessage"
)

// Event is one typed notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind

	State     string
	Candidate domain.ICECandidate

	StreamID    string
	Track       domain.TrackSummary
	AudioTracks []domain.TrackSummary
	VideoTracks []domain.TrackSummary

	ChannelID domain.DataChannelID
	Label     string
	Data      []byte
	Binary    bool
}

func SignalingStateEvent(s domain.SignalingState) Event {
	return Event{Kind: KindSignalingState, State: s.String()}
}

func ICEConnectionStateEvent(s domain.ICEConnectionState) Event {
	return Event{Kind: KindICEConnectionState, State: s.String()}
}

func ICEGatheringStateEvent(s domain.ICEGatheringState) Event {
	return Event{Kind: KindICEGatheringState, State: s.String()}
}

func PeerConnectionStateEvent(s domain.PeerConnectionState) Event {
	return Event{Kind: KindPeerConnectionState, State: s.String()}
}

func CandidateEvent(c domain.ICECandidate) Event {
	return Event{Kind: KindCandidate, Candidate: c}
}

func AddStreamEvent(s domain.MediaStream) Event {
	return Event{
		Kind:        KindAddStream,
		StreamID:    s.ID,
		AudioTracks: s.AudioTracks,
		VideoTracks: s.VideoTracks,
	}
}

func RemoveStreamEvent(streamID string) Event {
	return Event{Kind: KindRemoveStream, StreamID: streamID}
}

func AddTrackEvent(streamID string, t domain.TrackSummary) Event {
	return Event{Kind: KindAddTrack, StreamID: streamID, Track: t}
}

func RemoveTrackEvent(streamID string, t domain.TrackSummary) Event {
	return Event{Kind: KindRemoveTrack, StreamID: streamID, Track: t}
}

func DataChannelOpenedEvent(id domain.DataChannelID, label string) Event {
	return Event{Kind: KindDataChannelOpened, ChannelID: id, Label: label}
}

func RenegotiationNeededEvent() Event {
	return Event{Kind: KindRenegotiationNeeded}
}

func DataChannelStateEvent(id domain.DataChannelID, s domain.DataChannelState) Event {
	return Event{Kind: KindDataChannelState, ChannelID: id, State: s.String()}
}

func DataChannelMessageEvent(id domain.DataChannelID, data []byte, binary bool) Event {
	return Event{Kind: KindDataChannelMessage, ChannelID: id, Data: data, Binary: binary}
}

// Fields flattens the event into the generic key/value form sent to listeners.
func (e Event) Fields() map[string]any {
	f := map[string]any{"event": string(e.Kind)}
	switch e.Kind {
	case KindSignalingState, KindICEConnectionState, KindICEGatheringState, KindPeerConnectionState:
		f["state"] = e.State
	case KindCandidate:
		f["candidate"] = map[string]any{
			"candidate":     e.Candidate.Candidate,
			"sdpMid":        e.Candidate.SDPMid,
			"sdpMLineIndex": e.Candidate.SDPMLineIndex,
		}
	case KindAddStream:
		f["streamId"] = e.StreamID
		f["audioTracks"] = nonNil(e.AudioTracks)
		f["videoTracks"] = nonNil(e.VideoTracks)
	case KindRemoveStream:
		f["streamId"] = e.StreamID
	case KindAddTrack, KindRemoveTrack:
		f["streamId"] = e.StreamID
		f["trackId"] = e.Track.ID
		f["track"] = e.Track
	case KindDataChannelOpened:
		f["id"] = int(e.ChannelID)
		f["label"] = e.Label
	case KindDataChannelState:
		f["id"] = int(e.ChannelID)
		f["state"] = e.State
	case KindDataChannelMessage:
		f["id"] = int(e.ChannelID)
		if e.Binary {
			f["type"] = "binary"
			f["data"] = base64.StdEncoding.EncodeToString(e.Data)
		} else {
			f["type"] = "text"
			f["data"] = string(e.Data)
		}
	}
	return f
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields())
}

func nonNil(ts []domain.TrackSummary) []domain.TrackSummary {
	if ts == nil {
		return []domain.TrackSummary{}
	}
	return ts
}
