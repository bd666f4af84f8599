package mqtt311

// ConnectionState is the lifecycle state of a client session.
type ConnectionState int32

const (
	// StateDisconnected is the initial and terminal state.
	StateDisconnected ConnectionState = iota
	// StateConnecting covers dialing and the CONNECT/CONNACK exchange.
	StateConnecting
	// StateConnected is an established session.
	StateConnected
	// StateDisconnecting covers graceful teardown.
	StateDisconnecting
)

// String returns the string representation of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}
