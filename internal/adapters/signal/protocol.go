package signal

import (
	"encoding/json"

	"github.com/dkeye/rtcbridge/internal/app/events"
	"github.com/dkeye/rtcbridge/internal/domain"
)

// request is one method call from the client. ID is echoed back verbatim.
type request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type eventFrame struct {
	Type    string       `json:"type"`
	Channel string       `json:"channel"`
	Event   events.Event `json:"event"`
}

const (
	codeBadRequest    = "badRequest"
	codeUnknownMethod = "unknownMethod"
)

func errorFrom(err error) *wireError {
	return &wireError{Code: domain.ErrorCode(err), Message: err.Error()}
}

type connectionParams struct {
	PeerConnectionID domain.ConnectionID `json:"peerConnectionId"`
}

type createPeerConnectionParams struct {
	Configuration map[string]any `json:"configuration"`
	Constraints   map[string]any `json:"constraints"`
}

type createPeerConnectionResult struct {
	PeerConnectionID domain.ConnectionID `json:"peerConnectionId"`
}

type negotiateParams struct {
	PeerConnectionID domain.ConnectionID `json:"peerConnectionId"`
	Constraints      map[string]any      `json:"constraints"`
}

type descriptionParams struct {
	PeerConnectionID domain.ConnectionID `json:"peerConnectionId"`
	Description      struct {
		SDP  string `json:"sdp"`
		Type string `json:"type"`
	} `json:"description"`
}

type descriptionResult struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

type candidateParams struct {
	PeerConnectionID domain.ConnectionID `json:"peerConnectionId"`
	Candidate        domain.ICECandidate `json:"candidate"`
}

type createDataChannelParams struct {
	PeerConnectionID domain.ConnectionID `json:"peerConnectionId"`
	Label            string              `json:"label"`
	DataChannelDict  map[string]any      `json:"dataChannelDict"`
}

type createDataChannelResult struct {
	ID      domain.DataChannelID `json:"id"`
	Label   string               `json:"label"`
	Channel string               `json:"channel"`
}

type dataChannelParams struct {
	PeerConnectionID domain.ConnectionID  `json:"peerConnectionId"`
	DataChannelID    domain.DataChannelID `json:"dataChannelId"`
	Type             string               `json:"type"`
	Data             string               `json:"data"`
}

type channelParams struct {
	Channel string `json:"channel"`
}

type empty struct{}
