package domain

// Constraints are the media constraints accepted by create and negotiation calls.
type Constraints struct {
	OfferToReceiveAudio *bool
	OfferToReceiveVideo *bool
	ICERestart          bool
	// Optional keeps the flattened "optional" entries, e.g. DtlsSrtpKeyAgreement.
	Optional map[string]any
}

type rawConstraintFlags struct {
	OfferToReceiveAudio *bool `mapstructure:"offerToReceiveAudio"`
	OfferToReceiveVideo *bool `mapstructure:"offerToReceiveVideo"`
	ICERestart          *bool `mapstructure:"iceRestart"`
}

type rawConstraints struct {
	Flags     rawConstraintFlags `mapstructure:",squash"`
	Mandatory map[string]any     `mapstructure:"mandatory"`
	Optional  []map[string]any   `mapstructure:"optional"`
}

// ParseConstraints accepts both the legacy {mandatory, optional} shape and flat keys.
// Mandatory entries win over flat ones. A nil map yields default constraints.
func ParseConstraints(raw map[string]any) (Constraints, error) {
	var rc rawConstraints
	if err := decodeRaw(raw, &rc); err != nil {
		return Constraints{}, err
	}

	flags := rc.Flags
	if rc.Mandatory != nil {
		var m rawConstraintFlags
		if err := decodeRaw(rc.Mandatory, &m); err != nil {
			return Constraints{}, err
		}
		if m.OfferToReceiveAudio != nil {
			flags.OfferToReceiveAudio = m.OfferToReceiveAudio
		}
		if m.OfferToReceiveVideo != nil {
			flags.OfferToReceiveVideo = m.OfferToReceiveVideo
		}
		if m.ICERestart != nil {
			flags.ICERestart = m.ICERestart
		}
	}

	c := Constraints{
		OfferToReceiveAudio: flags.OfferToReceiveAudio,
		OfferToReceiveVideo: flags.OfferToReceiveVideo,
	}
	if flags.ICERestart != nil {
		c.ICERestart = *flags.ICERestart
	}
	if len(rc.Optional) > 0 {
		c.Optional = make(map[string]any)
		for _, entry := range rc.Optional {
			for k, v := range entry {
				c.Optional[k] = v
			}
		}
	}
	return c, nil
}

// DataChannelInit holds the options for a locally opened data channel.
type DataChannelInit struct {
	Ordered           *bool
	MaxRetransmits    *uint16
	MaxPacketLifeTime *uint16
	Protocol          string
}

type rawDataChannelInit struct {
	Ordered           *bool  `mapstructure:"ordered"`
	MaxRetransmits    *int   `mapstructure:"maxRetransmits"`
	MaxPacketLifeTime *int   `mapstructure:"maxPacketLifeTime"`
	MaxRetransmitTime *int   `mapstructure:"maxRetransmitTime"`
	Protocol          string `mapstructure:"protocol"`
}

// ParseDataChannelInit validates data channel options. -1 means unset.
func ParseDataChannelInit(raw map[string]any) (DataChannelInit, error) {
	var rd rawDataChannelInit
	if err := decodeRaw(raw, &rd); err != nil {
		return DataChannelInit{}, err
	}

	init := DataChannelInit{Ordered: rd.Ordered, Protocol: rd.Protocol}

	lifetime := rd.MaxPacketLifeTime
	if lifetime == nil {
		lifetime = rd.MaxRetransmitTime
	}

	var err error
	if init.MaxRetransmits, err = optionalUint16("maxRetransmits", rd.MaxRetransmits); err != nil {
		return DataChannelInit{}, err
	}
	if init.MaxPacketLifeTime, err = optionalUint16("maxPacketLifeTime", lifetime); err != nil {
		return DataChannelInit{}, err
	}
	if init.MaxRetransmits != nil && init.MaxPacketLifeTime != nil {
		return DataChannelInit{}, configErrorf("maxRetransmits and maxPacketLifeTime are mutually exclusive")
	}
	return init, nil
}

func optionalUint16(name string, v *int) (*uint16, error) {
	if v == nil || *v == -1 {
		return nil, nil
	}
	if *v < 0 || *v > 65535 {
		return nil, configErrorf("%s %d out of range", name, *v)
	}
	u := uint16(*v)
	return &u, nil
}
