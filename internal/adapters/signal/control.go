package signal

func (ctl *SignalWSController) handlePing(s *session, req request) {
	resp := struct {
		Pong bool `json:"pong"`
	}{
		Pong: true,
	}
	ctl.reply(s, req.ID, resp)
}

// handleListen makes this socket the listener of a connection or data channel stream.
// Whoever listened before stops receiving events.
func (ctl *SignalWSController) handleListen(s *session, req request) {
	var p channelParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	l := &wsListener{ctl: ctl, sess: s}
	gen, err := ctl.Orch.Listen(p.Channel, l)
	if err != nil {
		ctl.replyErr(s, req.ID, err)
		return
	}
	l.gen.Store(gen)
	s.track(p.Channel, l)
	ctl.reply(s, req.ID, empty{})
}

func (ctl *SignalWSController) handleCancel(s *session, req request) {
	var p channelParams
	if !ctl.decodeParams(s, req, &p) {
		return
	}
	if err := ctl.Orch.Cancel(p.Channel); err != nil {
		ctl.replyErr(s, req.ID, err)
		return
	}
	s.untrack(p.Channel)
	ctl.reply(s, req.ID, empty{})
}
