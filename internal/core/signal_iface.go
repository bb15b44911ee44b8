package core

// SessionID identifies a signalling client (one browser cookie / WebSocket owner).
type SessionID string

// Frame is a serialized outbound message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
