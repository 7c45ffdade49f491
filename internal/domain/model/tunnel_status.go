package model

import "fmt"

// TunnelStatus is a connectivity state reported by the native layer
type TunnelStatus int

const (
	// StatusConnected means the tunnel is up
	StatusConnected TunnelStatus = 0
	// StatusDisconnected means the tunnel is down
	StatusDisconnected TunnelStatus = 1
	// StatusReconnecting means the tunnel lost connectivity and is recovering
	StatusReconnecting TunnelStatus = 2
)

// String returns the wire name of the status
func (s TunnelStatus) String() string {
	switch s {
	case StatusConnected:
		return "CONNECTED"
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusReconnecting:
		return "RECONNECTING"
	default:
		return fmt.Sprintf("TunnelStatus(%d)", int(s))
	}
}

// Valid reports whether the status is part of the enumeration
func (s TunnelStatus) Valid() bool {
	return s >= StatusConnected && s <= StatusReconnecting
}
