package mqtt311

// ConnackReturnCode is the connect return code carried in a CONNACK packet.
// MQTT 3.1.1 spec: Section 3.2.2.3
type ConnackReturnCode byte

const (
	// ConnectionAccepted means the connection was accepted by the broker.
	ConnectionAccepted ConnackReturnCode = 0x00

	// ConnRefusedProtocolVersion means the broker does not support the
	// protocol level requested by the client.
	ConnRefusedProtocolVersion ConnackReturnCode = 0x01

	// ConnRefusedIdentifierRejected means the client identifier is correct
	// UTF-8 but not allowed by the broker.
	ConnRefusedIdentifierRejected ConnackReturnCode = 0x02

	// ConnRefusedServerUnavailable means the network connection was made but
	// the MQTT service is unavailable.
	ConnRefusedServerUnavailable ConnackReturnCode = 0x03

	// ConnRefusedBadCredentials means the data in the user name or password
	// is malformed.
	ConnRefusedBadCredentials ConnackReturnCode = 0x04

	// ConnRefusedNotAuthorized means the client is not authorized to connect.
	ConnRefusedNotAuthorized ConnackReturnCode = 0x05
)

// String returns the string representation of the return code.
func (c ConnackReturnCode) String() string {
	switch c {
	case ConnectionAccepted:
		return "connection accepted"
	case ConnRefusedProtocolVersion:
		return "unacceptable protocol version"
	case ConnRefusedIdentifierRejected:
		return "identifier rejected"
	case ConnRefusedServerUnavailable:
		return "server unavailable"
	case ConnRefusedBadCredentials:
		return "bad user name or password"
	case ConnRefusedNotAuthorized:
		return "not authorized"
	default:
		return "unknown return code"
	}
}

// Accepted returns true if the return code indicates a successful connection.
func (c ConnackReturnCode) Accepted() bool {
	return c == ConnectionAccepted
}

// Valid returns true if the return code is defined by MQTT 3.1.1.
func (c ConnackReturnCode) Valid() bool {
	return c <= ConnRefusedNotAuthorized
}

// SubackFailure is the SUBACK return code for a rejected subscription.
// MQTT 3.1.1 spec: Section 3.9.3
const SubackFailure byte = 0x80
