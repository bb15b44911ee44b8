package signal

import (
	"encoding/base64"
	"fmt"

	"github.com/dkeye/rtcbridge/internal/domain"
)

func (ctl *SignalWSController) handleCreateDataChannel(s *session, req request) {
	var p createDataChannelParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	dc, err := ctl.Orch.CreateDataChannel(p.PeerConnectionID, p.Label, p.DataChannelDict)
	if err != nil {
		ctl.replyErr(s, req.ID, err)
		return
	}
	ctl.reply(s, req.ID, createDataChannelResult{ID: dc.ID(), Label: dc.Label(), Channel: dc.EventChannel()})
}

func (ctl *SignalWSController) handleDataChannelSend(s *session, req request) {
	var p dataChannelParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	data := []byte(p.Data)
	if p.Type == "binary" {
		decoded, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			ctl.replyErr(s, req.ID, fmt.Errorf("%w: binary data must be base64: %v", domain.ErrConfig, err))
			return
		}
		data = decoded
	}
	if err := ctl.Orch.DataChannelSend(p.PeerConnectionID, p.DataChannelID, p.Type, data); err != nil {
		ctl.replyErr(s, req.ID, err)
		return
	}
	ctl.reply(s, req.ID, empty{})
}

func (ctl *SignalWSController) handleDataChannelClose(s *session, req request) {
	var p dataChannelParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	if err := ctl.Orch.DataChannelClose(p.PeerConnectionID, p.DataChannelID); err != nil {
		ctl.replyErr(s, req.ID, err)
		return
	}
	ctl.reply(s, req.ID, empty{})
}
