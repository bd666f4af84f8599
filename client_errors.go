package mqtt311

import "errors"

// EventHandler receives client lifecycle events. Events are errors so they
// can be inspected with errors.Is and errors.As.
type EventHandler func(client *Client, event error)

// Sentinel events for client lifecycle - check with errors.Is().
var (
	// ErrConnected is emitted when the client successfully connects.
	ErrConnected = errors.New("connected")

	// ErrDisconnected is emitted when the client disconnects gracefully.
	ErrDisconnected = errors.New("disconnected")

	// ErrConnectionLost is emitted when the connection is lost unexpectedly.
	ErrConnectionLost = errors.New("connection lost")

	// ErrServerDisconnect is emitted when the server closes the session
	// with a DISCONNECT packet.
	ErrServerDisconnect = errors.New("server disconnect")
)

// Sentinel errors for connection establishment - check with errors.Is().
var (
	// ErrConnectRefused is returned when the broker refuses the CONNECT.
	ErrConnectRefused = errors.New("connection refused")

	// ErrBrokerUnavailable is returned when the broker reports it cannot
	// accept connections right now.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrAuthFailed is returned when the broker rejects the credentials.
	ErrAuthFailed = errors.New("authentication failed")
)

// Sentinel errors for operations - check with errors.Is().
var (
	// ErrProtocolError is returned when the broker violates the protocol.
	ErrProtocolError = errors.New("protocol error")

	// ErrClientClosed is returned when an operation is attempted on a
	// closed client.
	ErrClientClosed = errors.New("client closed")

	// ErrNotConnected is returned when an operation requires an active
	// connection.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected is returned when Connect is called on a client
	// that is already connected or connecting.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrSubscriptionRejected is returned when the broker rejects a
	// subscription with the failure return code.
	ErrSubscriptionRejected = errors.New("subscription rejected")

	// ErrInvalidTopic is returned when a topic is invalid.
	ErrInvalidTopic = errors.New("invalid topic")
)

// ConnectedEvent contains details about a successful connection.
// Extract with errors.As().
type ConnectedEvent struct {
	err            error
	SessionPresent bool
}

func (e *ConnectedEvent) Error() string { return e.err.Error() }
func (e *ConnectedEvent) Unwrap() error { return e.err }

// NewConnectedEvent creates a new ConnectedEvent.
func NewConnectedEvent(sessionPresent bool) *ConnectedEvent {
	return &ConnectedEvent{
		err:            ErrConnected,
		SessionPresent: sessionPresent,
	}
}

// ConnectRefusedError contains the CONNACK return code the broker refused
// the connection with. Extract with errors.As().
type ConnectRefusedError struct {
	err  error
	Code ConnackReturnCode
}

func (e *ConnectRefusedError) Error() string {
	return "connection refused: " + e.Code.String()
}

func (e *ConnectRefusedError) Unwrap() error { return e.err }

// NewConnectRefusedError creates a ConnectRefusedError from a return code.
func NewConnectRefusedError(code ConnackReturnCode) *ConnectRefusedError {
	baseErr := ErrConnectRefused
	switch code {
	case ConnRefusedServerUnavailable:
		baseErr = ErrBrokerUnavailable
	case ConnRefusedBadCredentials, ConnRefusedNotAuthorized:
		baseErr = ErrAuthFailed
	}
	return &ConnectRefusedError{
		err:  baseErr,
		Code: code,
	}
}

// ConnectionLostError contains details about an unexpected disconnection.
// Extract with errors.As().
type ConnectionLostError struct {
	err   error
	Cause error
}

func (e *ConnectionLostError) Error() string {
	if e.Cause != nil {
		return "connection lost: " + e.Cause.Error()
	}
	return "connection lost"
}

func (e *ConnectionLostError) Unwrap() error { return e.err }

// NewConnectionLostError creates a new ConnectionLostError.
func NewConnectionLostError(cause error) *ConnectionLostError {
	return &ConnectionLostError{
		err:   ErrConnectionLost,
		Cause: cause,
	}
}

// SubscribeError reports a topic filter the broker rejected.
// Extract with errors.As().
type SubscribeError struct {
	err         error
	TopicFilter string
}

func (e *SubscribeError) Error() string {
	return "subscription rejected: " + e.TopicFilter
}

func (e *SubscribeError) Unwrap() error { return e.err }

// NewSubscribeError creates a new SubscribeError.
func NewSubscribeError(topicFilter string) *SubscribeError {
	return &SubscribeError{
		err:         ErrSubscriptionRejected,
		TopicFilter: topicFilter,
	}
}
