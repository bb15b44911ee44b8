package signal

import (
	"fmt"

	"github.com/dkeye/rtcbridge/internal/app"
	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleCreatePeerConnection(s *session, req request) {
	var p createPeerConnectionParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	if ctl.opts.Limiter != nil && !ctl.opts.Limiter.Allow(string(s.client)) {
		ctl.replyErr(s, req.ID, fmt.Errorf("%w: too many peer connections created, slow down", domain.ErrInvalidState))
		return
	}

	id, err := ctl.Orch.CreatePeerConnection(s.sid, p.Configuration, p.Constraints)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("create peer connection")
		ctl.replyErr(s, req.ID, err)
		return
	}
	ctl.reply(s, req.ID, createPeerConnectionResult{PeerConnectionID: id})
}

func (ctl *SignalWSController) handleClose(s *session, req request) {
	var p connectionParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	if err := ctl.Orch.ClosePeerConnection(p.PeerConnectionID); err != nil {
		ctl.replyErr(s, req.ID, err)
		return
	}
	s.untrack(p.PeerConnectionID.EventChannel())
	ctl.reply(s, req.ID, empty{})
}

func (ctl *SignalWSController) descriptionCompletion(s *session, req request) *app.Completion[domain.SessionDescription] {
	return app.NewCompletion(
		func(d domain.SessionDescription) {
			ctl.reply(s, req.ID, descriptionResult{SDP: d.SDP(), Type: string(d.Type())})
		},
		func(err error) { ctl.replyErr(s, req.ID, err) },
	)
}

func (ctl *SignalWSController) ackCompletion(s *session, req request) *app.Completion[struct{}] {
	return app.NewCompletion(
		func(struct{}) { ctl.reply(s, req.ID, empty{}) },
		func(err error) { ctl.replyErr(s, req.ID, err) },
	)
}

func (ctl *SignalWSController) handleCreateOffer(s *session, req request) {
	var p negotiateParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	ctl.Orch.CreateOffer(p.PeerConnectionID, p.Constraints, ctl.descriptionCompletion(s, req))
}

func (ctl *SignalWSController) handleCreateAnswer(s *session, req request) {
	var p negotiateParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	ctl.Orch.CreateAnswer(p.PeerConnectionID, p.Constraints, ctl.descriptionCompletion(s, req))
}

func (ctl *SignalWSController) handleSetLocalDescription(s *session, req request) {
	var p descriptionParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	ctl.Orch.SetLocalDescription(p.PeerConnectionID, p.Description.SDP, p.Description.Type, ctl.ackCompletion(s, req))
}

func (ctl *SignalWSController) handleSetRemoteDescription(s *session, req request) {
	var p descriptionParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	ctl.Orch.SetRemoteDescription(p.PeerConnectionID, p.Description.SDP, p.Description.Type, ctl.ackCompletion(s, req))
}

func (ctl *SignalWSController) handleCandidate(s *session, req request) {
	var p candidateParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	c := p.Candidate
	if err := ctl.Orch.AddICECandidate(p.PeerConnectionID, c.SDPMid, c.SDPMLineIndex, c.Candidate); err != nil {
		ctl.replyErr(s, req.ID, err)
		return
	}
	ctl.reply(s, req.ID, empty{})
}

func (ctl *SignalWSController) handleState(s *session, req request) {
	var p connectionParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	info, err := ctl.Orch.PeerConnectionState(p.PeerConnectionID)
	if err != nil {
		ctl.replyErr(s, req.ID, err)
		return
	}
	ctl.reply(s, req.ID, info)
}
