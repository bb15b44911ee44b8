package domain

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ICEServer is a STUN or TURN server entry.
type ICEServer struct {
	URLs       []string `mapstructure:"urls" json:"urls"`
	Username   string   `mapstructure:"username" json:"username,omitempty"`
	Credential string   `mapstructure:"credential" json:"credential,omitempty"`
}

type ICETransportPolicy string

const (
	ICETransportPolicyAll   ICETransportPolicy = "all"
	ICETransportPolicyRelay ICETransportPolicy = "relay"
)

type BundlePolicy string

const (
	BundlePolicyBalanced  BundlePolicy = "balanced"
	BundlePolicyMaxCompat BundlePolicy = "max-compat"
	BundlePolicyMaxBundle BundlePolicy = "max-bundle"
)

type RTCPMuxPolicy string

const (
	RTCPMuxPolicyNegotiate RTCPMuxPolicy = "negotiate"
	RTCPMuxPolicyRequire   RTCPMuxPolicy = "require"
)

// Configuration is the engine-ready form of a connection configuration.
type Configuration struct {
	ICEServers           []ICEServer
	ICETransportPolicy   ICETransportPolicy
	BundlePolicy         BundlePolicy
	RTCPMuxPolicy        RTCPMuxPolicy
	ICECandidatePoolSize uint8
}

type rawICEServer struct {
	URLs       []string `mapstructure:"urls"`
	URL        string   `mapstructure:"url"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type rawConfiguration struct {
	ICEServers           *[]rawICEServer `mapstructure:"iceServers"`
	ICETransportPolicy   string          `mapstructure:"iceTransportPolicy"`
	BundlePolicy         string          `mapstructure:"bundlePolicy"`
	RTCPMuxPolicy        string          `mapstructure:"rtcpMuxPolicy"`
	ICECandidatePoolSize int             `mapstructure:"iceCandidatePoolSize"`
}

// lenientHook accepts a lone string where a string list is expected and
// "true"/"false" strings where a bool is expected. Fractional numbers are
// rejected for integer fields instead of being truncated.
func lenientHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		if !isInt(to.Kind()) {
			return data, nil
		}
		f := reflect.ValueOf(data).Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
		return data, nil
	case reflect.String:
	default:
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	switch {
	case to == reflect.TypeOf([]string(nil)):
		return []string{s}, nil
	case to.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return data, nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func decodeRaw(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: lenientHook,
		Result:     out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return configErrorf("%v", err)
	}
	return nil
}

// ParseConfiguration validates a raw configuration map. defaultServers apply only when the
// map has no iceServers key at all; an explicit empty list means no ICE servers.
func ParseConfiguration(raw map[string]any, defaultServers []ICEServer) (Configuration, error) {
	var rc rawConfiguration
	if err := decodeRaw(raw, &rc); err != nil {
		return Configuration{}, err
	}

	cfg := Configuration{
		ICETransportPolicy: ICETransportPolicyAll,
		BundlePolicy:       BundlePolicyBalanced,
		RTCPMuxPolicy:      RTCPMuxPolicyRequire,
	}

	if rc.ICEServers == nil {
		cfg.ICEServers = append([]ICEServer(nil), defaultServers...)
	} else {
		cfg.ICEServers = make([]ICEServer, 0, len(*rc.ICEServers))
		for i, rs := range *rc.ICEServers {
			s := ICEServer{URLs: rs.URLs, Username: rs.Username, Credential: rs.Credential}
			if len(s.URLs) == 0 && rs.URL != "" {
				s.URLs = []string{rs.URL}
			}
			if err := validateICEServer(s); err != nil {
				return Configuration{}, configErrorf("iceServers[%d]: %v", i, err)
			}
			cfg.ICEServers = append(cfg.ICEServers, s)
		}
	}

	switch p := ICETransportPolicy(rc.ICETransportPolicy); p {
	case "":
	case ICETransportPolicyAll, ICETransportPolicyRelay:
		cfg.ICETransportPolicy = p
	default:
		return Configuration{}, configErrorf("unknown iceTransportPolicy %q", p)
	}

	switch p := BundlePolicy(rc.BundlePolicy); p {
	case "":
	case BundlePolicyBalanced, BundlePolicyMaxCompat, BundlePolicyMaxBundle:
		cfg.BundlePolicy = p
	default:
		return Configuration{}, configErrorf("unknown bundlePolicy %q", p)
	}

	switch p := RTCPMuxPolicy(rc.RTCPMuxPolicy); p {
	case "":
	case RTCPMuxPolicyNegotiate, RTCPMuxPolicyRequire:
		cfg.RTCPMuxPolicy = p
	default:
		return Configuration{}, configErrorf("unknown rtcpMuxPolicy %q", p)
	}

	if rc.ICECandidatePoolSize < 0 || rc.ICECandidatePoolSize > 255 {
		return Configuration{}, configErrorf("iceCandidatePoolSize %d out of range", rc.ICECandidatePoolSize)
	}
	cfg.ICECandidatePoolSize = uint8(rc.ICECandidatePoolSize)

	return cfg, nil
}

func validateICEServer(s ICEServer) error {
	if len(s.URLs) == 0 {
		return configErrorf("no urls")
	}
	for _, u := range s.URLs {
		scheme, _, ok := strings.Cut(u, ":")
		if !ok {
			return configErrorf("malformed url %q", u)
		}
		switch scheme {
		case "stun", "stuns":
		case "turn", "turns":
			if s.Username == "" || s.Credential == "" {
				return configErrorf("%s requires username and credential", u)
			}
		default:
			return configErrorf("unsupported scheme in %q", u)
		}
	}
	return nil
}
