package rtc

import (
	"github.com/pion/sdp/v3"
	"github.com/rs/zerolog/log"
)

// mediaKinds lists the m-line media of an SDP blob, in order.
func mediaKinds(raw string) ([]string, error) {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(raw)); err != nil {
		return nil, err
	}
	kinds := make([]string, 0, len(parsed.MediaDescriptions))
	for _, m := range parsed.MediaDescriptions {
		kinds = append(kinds, m.MediaName.Media)
	}
	return kinds, nil
}

func logDescription(op, raw string) {
	kinds, err := mediaKinds(raw)
	if err != nil {
		log.Warn().Err(err).Str("module", "webrtc").Str("op", op).Msg("unparsable sdp")
		return
	}
	log.Debug().Str("module", "webrtc").Str("op", op).Strs("media", kinds).Msg("session description")
}
