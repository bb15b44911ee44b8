package domain

// SDPType is the role of a session description in the offer/answer exchange.
type SDPType string

const (
	SDPTypeOffer    SDPType = "offer"
	SDPTypeAnswer   SDPType = "answer"
	SDPTypePranswer SDPType = "pranswer"
	SDPTypeRollback SDPType = "rollback"
)

func (t SDPType) valid() bool {
	switch t {
	case SDPTypeOffer, SDPTypeAnswer, SDPTypePranswer, SDPTypeRollback:
		return true
	}
	return false
}

// SessionDescription is an immutable {type, sdp} pair.
type SessionDescription struct {
	typ SDPType
	sdp string
}

// NewSessionDescription validates the type. The SDP text is left to the engine,
// except that everything but a rollback must carry some.
func NewSessionDescription(typ SDPType, sdp string) (SessionDescription, error) {
	if !typ.valid() {
		return SessionDescription{}, configErrorf("unknown sdp type %q", typ)
	}
	if sdp == "" && typ != SDPTypeRollback {
		return SessionDescription{}, configErrorf("empty sdp for %s", typ)
	}
	return SessionDescription{typ: typ, sdp: sdp}, nil
}

func (d SessionDescription) Type() SDPType { return d.typ }
func (d SessionDescription) SDP() string   { return d.sdp }

// ICECandidate is a candidate attribute bound to an m-line.
type ICECandidate struct {
	SDPMid        string `json:"sdpMid"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex"`
	Candidate     string `json:"candidate"`
}

// TrackSummary describes a remote media track in events.
type TrackSummary struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Kind       string `json:"kind"`
	Enabled    bool   `json:"enabled"`
	Remote     bool   `json:"remote"`
	ReadyState string `json:"readyState"`
}

// NewRemoteTrackSummary builds the summary reported for tracks received from the peer.
func NewRemoteTrackSummary(id, kind string) TrackSummary {
	return TrackSummary{
		ID:         id,
		Label:      id,
		Kind:       kind,
		Enabled:    true,
		Remote:     true,
		ReadyState: "live",
	}
}

// MediaStream groups remote tracks that share a stream id.
type MediaStream struct {
	ID          string
	AudioTracks []TrackSummary
	VideoTracks []TrackSummary
}
