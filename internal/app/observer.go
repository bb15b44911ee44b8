package app

import (
	"sort"
	"sync"

	"github.com/dkeye/rtcbridge/internal/app/events"
	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/rs/zerolog/log"
)

// connectionObserver turns the engine callbacks of one connection into events on
// the connection's subscription. It also groups remote tracks into streams so that
// the first track of a stream is announced as onAddStream and the last one to end
// as onRemoveStream.
type connectionObserver struct {
	reg  *Registry
	conn *Connection

	mu      sync.Mutex
	streams map[string][]domain.TrackSummary
}

var _ core.PeerObserver = (*connectionObserver)(nil)

func newConnectionObserver(reg *Registry, conn *Connection) *connectionObserver {
	return &connectionObserver{
		reg:     reg,
		conn:    conn,
		streams: make(map[string][]domain.TrackSummary),
	}
}

func (o *connectionObserver) publish(ev events.Event) {
	o.conn.sub.Publish(ev)
}

func (o *connectionObserver) OnSignalingState(s domain.SignalingState) {
	o.publish(events.SignalingStateEvent(s))
}

func (o *connectionObserver) OnICEConnectionState(s domain.ICEConnectionState) {
	o.publish(events.ICEConnectionStateEvent(s))
}

func (o *connectionObserver) OnICEGatheringState(s domain.ICEGatheringState) {
	o.publish(events.ICEGatheringStateEvent(s))
}

func (o *connectionObserver) OnConnectionState(s domain.PeerConnectionState) {
	log.Info().Str("module", "app.observer").Str("pc", string(o.conn.id)).Str("peer_connection_state", s.String()).Msg("Peer state")
	o.publish(events.PeerConnectionStateEvent(s))
}

func (o *connectionObserver) OnICECandidate(c domain.ICECandidate) {
	o.publish(events.CandidateEvent(c))
}

func (o *connectionObserver) OnAddTrack(stream string, track domain.TrackSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tracks, known := o.streams[stream]
	o.streams[stream] = append(tracks, track)
	if known {
		o.publish(events.AddTrackEvent(stream, track))
		return
	}
	o.publish(events.AddStreamEvent(groupTracks(stream, o.streams[stream])))
}

func (o *connectionObserver) OnRemoveTrack(stream string, track domain.TrackSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tracks, known := o.streams[stream]
	if !known {
		return
	}
	kept := tracks[:0]
	for _, t := range tracks {
		if t.ID != track.ID {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(o.streams, stream)
		o.publish(events.RemoveStreamEvent(stream))
		return
	}
	o.streams[stream] = kept
	o.publish(events.RemoveTrackEvent(stream, track))
}

// OnDataChannel registers the channel's subscription before announcing it, so a
// listener reacting to didOpenDataChannel can attach to it right away.
func (o *connectionObserver) OnDataChannel(rdc core.RemoteDataChannel) {
	dc, err := o.reg.adoptRemoteChannel(o.conn, rdc)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.observer").Str("pc", string(o.conn.id)).Str("label", rdc.Label()).Msg("remote data channel dropped")
		_ = rdc.Close()
		return
	}
	o.publish(events.DataChannelOpenedEvent(dc.id, dc.label))
}

func (o *connectionObserver) OnRenegotiationNeeded() {
	o.publish(events.RenegotiationNeededEvent())
}

func (o *connectionObserver) streamsSnapshot() []domain.MediaStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.MediaStream, 0, len(o.streams))
	for id, tracks := range o.streams {
		out = append(out, groupTracks(id, tracks))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func groupTracks(id string, tracks []domain.TrackSummary) domain.MediaStream {
	s := domain.MediaStream{ID: id}
	for _, t := range tracks {
		switch t.Kind {
		case "audio":
			s.AudioTracks = append(s.AudioTracks, t)
		case "video":
			s.VideoTracks = append(s.VideoTracks, t)
		}
	}
	return s
}
