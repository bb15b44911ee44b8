// Package domain contains the value types shared by the engine, the registry and the transports.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ConnectionID identifies a peer connection for the lifetime of the process.
type ConnectionID string

// DataChannelID identifies a data channel within its parent connection.
type DataChannelID int

const (
	peerConnectionChannelPrefix = "rtcbridge/peerConnectionEvent/"
	dataChannelChannelPrefix    = "rtcbridge/dataChannelEvent/"
)

// NewConnectionID mints a fresh opaque connection id.
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// EventChannel is the subscription name for the connection's event stream.
func (id ConnectionID) EventChannel() string {
	return peerConnectionChannelPrefix + string(id)
}

// DataChannelEventChannel is the subscription name for one data channel of a connection.
func DataChannelEventChannel(pc ConnectionID, id DataChannelID) string {
	return fmt.Sprintf("%s%s/%d", dataChannelChannelPrefix, pc, id)
}
