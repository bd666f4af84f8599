package mqtt311

import (
	"crypto/tls"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// MessageHandler handles incoming MQTT messages.
type MessageHandler func(msg *Message)

// clientOptions holds configuration for a Client.
type clientOptions struct {
	// Connection settings
	clientID     string
	username     string
	password     []byte
	keepAlive    uint16
	cleanSession bool

	// TLS configuration
	tlsConfig *tls.Config

	// Transport
	dialer Dialer
	proxy  *ProxyConfig

	// Timeouts
	connectTimeout time.Duration
	requestTimeout time.Duration
	writeTimeout   time.Duration

	// Will message
	willTopic   string
	willPayload []byte
	willRetain  bool
	willQoS     byte

	// Outbound publish rate limit. Nil means unlimited.
	publishLimiter *rate.Limiter

	// Event handler
	onEvent EventHandler

	// Fallback handler for messages with no matching subscription.
	defaultHandler MessageHandler

	// Limits
	maxPacketSize uint32

	// Logging
	logger Logger
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() *clientOptions {
	return &clientOptions{
		clientID:       "mqtt311-" + uuid.NewString(),
		keepAlive:      60,
		cleanSession:   true,
		connectTimeout: 10 * time.Second,
		requestTimeout: 30 * time.Second,
		writeTimeout:   5 * time.Second,
		maxPacketSize:  MaxPacketSizeDefault,
		logger:         NewNoOpLogger(),
	}
}

// Option configures a Client.
type Option func(*clientOptions)

// WithClientID sets the client identifier. If not set, a random
// UUID-derived identifier is generated.
func WithClientID(id string) Option {
	return func(o *clientOptions) {
		o.clientID = id
	}
}

// WithCredentials sets the username and password for authentication.
func WithCredentials(username, password string) Option {
	return func(o *clientOptions) {
		o.username = username
		o.password = []byte(password)
	}
}

// WithKeepAlive sets the keep-alive interval in seconds.
// Zero disables keep-alive pings.
func WithKeepAlive(seconds uint16) Option {
	return func(o *clientOptions) {
		o.keepAlive = seconds
	}
}

// WithCleanSession sets whether to request a clean session.
func WithCleanSession(clean bool) Option {
	return func(o *clientOptions) {
		o.cleanSession = clean
	}
}

// WithTLS sets the TLS configuration for secure connections.
func WithTLS(config *tls.Config) Option {
	return func(o *clientOptions) {
		o.tlsConfig = config
	}
}

// WithDialer sets a custom transport dialer, overriding the one selected
// from the broker URL scheme.
func WithDialer(d Dialer) Option {
	return func(o *clientOptions) {
		o.dialer = d
	}
}

// WithProxy routes the connection through an HTTP CONNECT or SOCKS5 proxy.
func WithProxy(cfg ProxyConfig) Option {
	return func(o *clientOptions) {
		o.proxy = &cfg
	}
}

// WithConnectTimeout sets the timeout for the initial connection,
// including the CONNECT/CONNACK exchange.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.connectTimeout = d
	}
}

// WithRequestTimeout sets how long the client waits for broker
// acknowledgments (PUBACK, PUBREC, PUBCOMP, SUBACK, UNSUBACK).
func WithRequestTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.requestTimeout = d
	}
}

// WithWriteTimeout sets the timeout for write operations.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.writeTimeout = d
	}
}

// WithWill sets the Will message published by the broker if the client
// disconnects unexpectedly.
func WithWill(topic string, payload []byte, retain bool, qos byte) Option {
	return func(o *clientOptions) {
		o.willTopic = topic
		o.willPayload = payload
		o.willRetain = retain
		o.willQoS = qos
	}
}

// WithPublishRateLimit limits outbound publishes to r per second with the
// given burst. Publish blocks (respecting its context) when the limit is
// exceeded.
func WithPublishRateLimit(r float64, burst int) Option {
	return func(o *clientOptions) {
		o.publishLimiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithMaxPacketSize sets the maximum packet size the client will accept.
// This limits the size of incoming MQTT packets to prevent memory
// exhaustion. Values exceeding MaxPacketSizeProtocol are clamped.
func WithMaxPacketSize(size uint32) Option {
	return func(o *clientOptions) {
		if size > MaxPacketSizeProtocol {
			size = MaxPacketSizeProtocol
		}
		o.maxPacketSize = size
	}
}

// WithLogger sets the logger for client internals.
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDefaultHandler sets the handler for messages that match no
// registered subscription.
func WithDefaultHandler(handler MessageHandler) Option {
	return func(o *clientOptions) {
		o.defaultHandler = handler
	}
}

// OnEvent sets the event handler for client lifecycle events and errors.
func OnEvent(handler EventHandler) Option {
	return func(o *clientOptions) {
		o.onEvent = handler
	}
}

// applyOptions applies all options to the default options.
func applyOptions(opts ...Option) *clientOptions {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}
