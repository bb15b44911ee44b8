package app

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropEvent
	DetachListener
	DisconnectClient
)

// Policy decides what happens to a listener whose transport cannot keep up.
type Policy interface {
	OnBackPressure(channel string, dropped int) BackpressureAction
}

// SimplePolicy drops events until MaxDropped consecutive ones were lost, then
// disconnects the client. MaxDropped <= 0 never disconnects.
type SimplePolicy struct {
	MaxDropped int
}

func (p SimplePolicy) OnBackPressure(channel string, dropped int) BackpressureAction {
	if p.MaxDropped > 0 && dropped >= p.MaxDropped {
		return DisconnectClient
	}
	return DropEvent
}
