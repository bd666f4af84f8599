package mqtt311

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Client is an MQTT 3.1.1 client. It owns one network connection for its
// lifetime: after Disconnect or connection loss the client is closed and a
// new one must be dialed.
//
// A single read goroutine owns all inbound dispatch. Operations that expect
// a broker acknowledgment register a waiter with the correlator and block
// until the read goroutine delivers the matching packet.
type Client struct {
	conn    Conn
	options *clientOptions
	logger  Logger

	// Session state
	allocator   *PacketIDAllocator
	correlator  *Correlator
	outbound    *OutboundTracker
	inboundQoS2 *InboundQoS2Tracker

	// Subscriptions with handlers
	subscriptions   map[string]MessageHandler
	subscriptionsMu sync.RWMutex

	// Lifecycle
	state    atomic.Int32
	closed   atomic.Bool
	teardown sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	readDone chan struct{}

	writeMu  sync.Mutex
	lastSent atomic.Int64 // Unix nano of last outbound packet
}

// Dial connects to an MQTT broker and returns a connected client.
// The address is a URL: tcp://host:port, tls://host:port, ws://host/path,
// wss://host/path, quic://host:port, or unix:///path/to/socket.
func Dial(address string, opts ...Option) (*Client, error) {
	return DialContext(context.Background(), address, opts...)
}

// DialContext connects to an MQTT broker with a context covering the dial
// and the CONNECT/CONNACK exchange.
func DialContext(ctx context.Context, address string, opts ...Option) (*Client, error) {
	options := applyOptions(opts...)

	c := &Client{
		options:       options,
		logger:        options.logger.WithFields(LogFields{LogFieldClientID: options.clientID}),
		allocator:     NewPacketIDAllocator(),
		correlator:    NewCorrelator(),
		outbound:      NewOutboundTracker(),
		inboundQoS2:   NewInboundQoS2Tracker(),
		subscriptions: make(map[string]MessageHandler),
		readDone:      make(chan struct{}),
	}

	if err := c.connect(ctx, address); err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials the transport and performs the CONNECT/CONNACK handshake.
func (c *Client) connect(ctx context.Context, address string) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	connectCtx := ctx
	if c.options.connectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, c.options.connectTimeout)
		defer cancel()
	}

	conn, err := c.dial(connectCtx, address)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}
	c.conn = conn
	c.ctx, c.cancel = context.WithCancel(context.Background())

	// The waiter must exist before the read loop can see the CONNACK.
	waiter, err := c.correlator.Register(PacketCONNACK, 0)
	if err != nil {
		c.close(err)
		return err
	}

	go c.readLoop()

	connectPkt := &ConnectPacket{
		ClientID:     c.options.clientID,
		CleanSession: c.options.cleanSession,
		KeepAlive:    c.options.keepAlive,
		Username:     c.options.username,
		Password:     c.options.password,
	}
	if c.options.willTopic != "" {
		connectPkt.WillFlag = true
		connectPkt.WillTopic = c.options.willTopic
		connectPkt.WillPayload = c.options.willPayload
		connectPkt.WillRetain = c.options.willRetain
		connectPkt.WillQoS = c.options.willQoS
	}

	if err := c.writePacket(connectPkt); err != nil {
		err = fmt.Errorf("%w: failed to send CONNECT: %w", ErrBrokerUnavailable, err)
		c.close(err)
		return err
	}

	pkt, err := waiter.Await(connectCtx, c.options.connectTimeout)
	if err != nil {
		// No CONNACK within the window: whatever answered the dial is not
		// serving MQTT right now.
		err = fmt.Errorf("%w: CONNECT handshake: %w", ErrBrokerUnavailable, err)
		c.close(err)
		return err
	}

	connack := pkt.(*ConnackPacket)
	if !connack.ReturnCode.Accepted() {
		refused := NewConnectRefusedError(connack.ReturnCode)
		c.close(refused)
		return refused
	}

	c.state.Store(int32(StateConnected))
	c.logger.Info("connected", LogFields{
		LogFieldRemoteAddr: c.conn.RemoteAddr().String(),
	})

	go c.keepAliveLoop()

	c.emit(NewConnectedEvent(connack.SessionPresent))
	return nil
}

// dial creates the network connection for the address URL.
func (c *Client) dial(ctx context.Context, address string) (Conn, error) {
	if c.options.dialer != nil {
		return c.options.dialer.Dial(ctx, address)
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "tcp", "mqtt":
			host = net.JoinHostPort(u.Hostname(), "1883")
		case "ssl", "tls", "mqtts", "quic":
			host = net.JoinHostPort(u.Hostname(), "8883")
		case "ws":
			host = net.JoinHostPort(u.Hostname(), "80")
		case "wss":
			host = net.JoinHostPort(u.Hostname(), "443")
		}
	}

	var proxyDialer *ProxyDialer
	if c.options.proxy != nil {
		proxyDialer, err = NewProxyDialer(
			c.options.proxy.URL,
			c.options.proxy.Username,
			c.options.proxy.Password,
		)
		if err != nil {
			return nil, fmt.Errorf("proxy configuration error: %w", err)
		}
	}

	switch u.Scheme {
	case "tcp", "mqtt":
		if proxyDialer != nil {
			return proxyDialer.DialContext(ctx, "tcp", host)
		}
		d := &TCPDialer{Timeout: c.options.connectTimeout}
		return d.Dial(ctx, host)

	case "ssl", "tls", "mqtts":
		tlsConfig := c.options.tlsConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		if proxyDialer != nil {
			raw, err := proxyDialer.DialContext(ctx, "tcp", host)
			if err != nil {
				return nil, err
			}
			tlsConn := tls.Client(raw, tlsConfig)
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				raw.Close()
				return nil, fmt.Errorf("TLS handshake failed: %w", err)
			}
			return tlsConn, nil
		}
		d := &TLSDialer{Config: tlsConfig, Timeout: c.options.connectTimeout}
		return d.Dial(ctx, host)

	case "ws", "wss":
		wsDialer := NewWSDialer()
		if c.options.tlsConfig != nil {
			wsDialer.Dialer.TLSClientConfig = c.options.tlsConfig
		}
		return wsDialer.Dial(ctx, address)

	case "quic":
		quicDialer := NewQUICDialer(c.options.tlsConfig)
		return quicDialer.Dial(ctx, host)

	case "unix":
		socketPath := u.Path
		if socketPath == "" {
			socketPath = u.Host + u.Path
		}
		return NewUnixDialer().Dial(ctx, socketPath)

	default:
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// IsConnected returns true if the client has an established session.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected && !c.closed.Load()
}

// ClientID returns the client identifier.
func (c *Client) ClientID() string {
	return c.options.clientID
}

// Disconnect sends DISCONNECT and closes the connection. It is idempotent:
// subsequent calls return nil without effect. In-flight operations fail
// with ErrClientClosed.
func (c *Client) Disconnect() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.state.Store(int32(StateDisconnecting))

	if c.conn != nil {
		// Best effort; the broker may already be gone.
		_ = c.writePacket(&DisconnectPacket{})
	}

	c.shutdown(ErrClientClosed)

	// Wait for the read goroutine so no dispatch runs after return. The
	// wait must stay bounded: handlers run on the read goroutine and may
	// call Disconnect themselves, in which case readDone cannot close
	// until this call returns.
	select {
	case <-c.readDone:
	case <-time.After(time.Second):
	}

	c.state.Store(int32(StateDisconnected))
	c.logger.Info("disconnected", nil)
	c.emit(ErrDisconnected)
	return nil
}

// close tears down a failed connection attempt, passing through
// Disconnecting like a graceful teardown does.
func (c *Client) close(cause error) {
	c.closed.Store(true)
	c.state.Store(int32(StateDisconnecting))
	c.shutdown(cause)
	c.state.Store(int32(StateDisconnected))
}

// shutdown cancels the read loop, closes the transport, and fails every
// pending waiter and in-flight publish exactly once.
func (c *Client) shutdown(cause error) {
	c.teardown.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.conn != nil {
			c.conn.Close()
		}

		c.correlator.Reset(cause)
		for _, pub := range c.outbound.Reset() {
			_ = c.allocator.Release(pub.PacketID)
		}
		c.inboundQoS2.Reset()
	})
}

// connectionLost handles an unexpected transport failure detected by the
// read loop.
func (c *Client) connectionLost(cause error) {
	if c.closed.Swap(true) {
		return
	}
	c.state.Store(int32(StateDisconnected))

	lost := NewConnectionLostError(cause)
	c.logger.Warn("connection lost", LogFields{LogFieldError: cause})
	c.shutdown(lost)
	c.emit(lost)
}

// protocolError tears the session down after the broker violated the
// protocol: an unknown packet type, invalid flags, or an oversized or
// otherwise malformed frame the transport delivered intact.
func (c *Client) protocolError(cause error) {
	if c.closed.Swap(true) {
		return
	}
	c.state.Store(int32(StateDisconnected))

	err := fmt.Errorf("%w: %w", ErrProtocolError, cause)
	c.logger.Error("protocol violation from broker", LogFields{LogFieldError: cause})
	c.shutdown(err)
	c.emit(err)
}

// isTransportError reports whether a read failure came from the transport
// itself rather than from decoding a frame the transport delivered.
func isTransportError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Publish sends a message and blocks until the QoS handshake completes.
// QoS 0 returns after the packet is written. QoS 1 waits for PUBACK.
// QoS 2 waits for PUBREC, sends PUBREL, then waits for PUBCOMP.
func (c *Client) Publish(ctx context.Context, msg *Message) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if msg.QoS > 2 {
		return ErrInvalidQoS
	}
	if err := ValidateTopicName(msg.Topic); err != nil {
		return err
	}

	if c.options.publishLimiter != nil {
		if err := c.options.publishLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	pkt := &PublishPacket{}
	pkt.FromMessage(msg)

	if msg.QoS == 0 {
		return c.writePacket(pkt)
	}

	packetID, err := c.allocator.Allocate()
	if err != nil {
		return err
	}
	pkt.PacketID = packetID
	c.outbound.Track(packetID, msg)

	defer func() {
		c.outbound.Complete(packetID)
		_ = c.allocator.Release(packetID)
	}()

	expect := PacketPUBACK
	if msg.QoS == 2 {
		expect = PacketPUBREC
	}
	waiter, err := c.correlator.Register(expect, packetID)
	if err != nil {
		return err
	}

	if err := c.writePacket(pkt); err != nil {
		c.correlator.Fail(expect, packetID, err)
		return err
	}

	if _, err := waiter.Await(ctx, c.options.requestTimeout); err != nil {
		return err
	}

	if msg.QoS == 1 {
		return nil
	}

	// QoS 2 second round trip: PUBREL, then PUBCOMP.
	if !c.outbound.MarkReceived(packetID) {
		return ErrProtocolError
	}

	compWaiter, err := c.correlator.Register(PacketPUBCOMP, packetID)
	if err != nil {
		return err
	}

	pubrel := &PubrelPacket{}
	pubrel.SetPacketID(packetID)
	if err := c.writePacket(pubrel); err != nil {
		c.correlator.Fail(PacketPUBCOMP, packetID, err)
		return err
	}

	if _, err := compWaiter.Await(ctx, c.options.requestTimeout); err != nil {
		return err
	}
	return nil
}

// Subscribe subscribes to a topic filter and blocks until SUBACK arrives.
// Returns the granted QoS. A broker rejection returns a SubscribeError.
func (c *Client) Subscribe(ctx context.Context, filter string, qos byte, handler MessageHandler) (byte, error) {
	granted, err := c.SubscribeMultiple(ctx, []Subscription{{TopicFilter: filter, QoS: qos}}, handler)
	if err != nil {
		return 0, err
	}
	return granted[0], nil
}

// SubscribeMultiple subscribes to several topic filters in one SUBSCRIBE
// packet with a shared handler. Returns the granted QoS per filter in
// order. If the broker rejects any filter, its handler is removed and a
// SubscribeError for the first rejected filter is returned alongside the
// granted codes.
func (c *Client) SubscribeMultiple(ctx context.Context, subs []Subscription, handler MessageHandler) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if len(subs) == 0 {
		return nil, ErrInvalidTopic
	}

	for _, sub := range subs {
		if err := ValidateTopicFilter(sub.TopicFilter); err != nil {
			return nil, err
		}
		if sub.QoS > 2 {
			return nil, ErrInvalidQoS
		}
	}

	packetID, err := c.allocator.Allocate()
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.allocator.Release(packetID) }()

	pkt := &SubscribePacket{
		PacketID:      packetID,
		Subscriptions: subs,
	}

	// Register handlers before sending so messages arriving ahead of the
	// SUBACK are not dropped.
	c.subscriptionsMu.Lock()
	for _, sub := range subs {
		c.subscriptions[sub.TopicFilter] = handler
	}
	c.subscriptionsMu.Unlock()

	removeHandlers := func(filters ...string) {
		c.subscriptionsMu.Lock()
		for _, f := range filters {
			delete(c.subscriptions, f)
		}
		c.subscriptionsMu.Unlock()
	}

	waiter, err := c.correlator.Register(PacketSUBACK, packetID)
	if err != nil {
		removeHandlers(filtersOf(subs)...)
		return nil, err
	}

	if err := c.writePacket(pkt); err != nil {
		c.correlator.Fail(PacketSUBACK, packetID, err)
		removeHandlers(filtersOf(subs)...)
		return nil, err
	}

	resp, err := waiter.Await(ctx, c.options.requestTimeout)
	if err != nil {
		removeHandlers(filtersOf(subs)...)
		return nil, err
	}

	suback := resp.(*SubackPacket)
	if len(suback.ReturnCodes) != len(subs) {
		removeHandlers(filtersOf(subs)...)
		return nil, ErrProtocolError
	}

	var firstRejected string
	for i, code := range suback.ReturnCodes {
		if code == SubackFailure {
			removeHandlers(subs[i].TopicFilter)
			if firstRejected == "" {
				firstRejected = subs[i].TopicFilter
			}
		}
	}
	if firstRejected != "" {
		return suback.ReturnCodes, NewSubscribeError(firstRejected)
	}
	return suback.ReturnCodes, nil
}

// Unsubscribe removes subscriptions and blocks until UNSUBACK arrives.
func (c *Client) Unsubscribe(ctx context.Context, filters ...string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(filters) == 0 {
		return ErrInvalidTopic
	}
	for _, filter := range filters {
		if err := ValidateTopicFilter(filter); err != nil {
			return err
		}
	}

	packetID, err := c.allocator.Allocate()
	if err != nil {
		return err
	}
	defer func() { _ = c.allocator.Release(packetID) }()

	pkt := &UnsubscribePacket{
		PacketID:     packetID,
		TopicFilters: filters,
	}

	waiter, err := c.correlator.Register(PacketUNSUBACK, packetID)
	if err != nil {
		return err
	}

	if err := c.writePacket(pkt); err != nil {
		c.correlator.Fail(PacketUNSUBACK, packetID, err)
		return err
	}

	if _, err := waiter.Await(ctx, c.options.requestTimeout); err != nil {
		return err
	}

	c.subscriptionsMu.Lock()
	for _, filter := range filters {
		delete(c.subscriptions, filter)
	}
	c.subscriptionsMu.Unlock()
	return nil
}

// Ping sends PINGREQ and blocks until PINGRESP arrives.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	waiter, err := c.correlator.Register(PacketPINGRESP, 0)
	if err != nil {
		return err
	}

	if err := c.writePacket(&PingreqPacket{}); err != nil {
		c.correlator.Fail(PacketPINGRESP, 0, err)
		return err
	}

	_, err = waiter.Await(ctx, c.options.requestTimeout)
	return err
}

// writePacket writes a packet to the connection with proper locking.
// All outbound traffic is serialized here.
func (c *Client) writePacket(pkt Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	if c.options.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.options.writeTimeout))
		defer c.conn.SetWriteDeadline(time.Time{})
	}

	if _, err := WritePacket(c.conn, pkt, c.options.maxPacketSize); err != nil {
		return err
	}

	c.lastSent.Store(time.Now().UnixNano())
	return nil
}

// emit sends an event to the event handler.
func (c *Client) emit(event error) {
	if c.options.onEvent != nil {
		c.options.onEvent(c, event)
	}
}

// readLoop reads packets from the connection and dispatches them. It is
// the only goroutine that touches inbound traffic.
func (c *Client) readLoop() {
	defer close(c.readDone)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		pkt, _, err := c.readOne()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if isTransportError(err) {
				c.connectionLost(err)
			} else {
				c.protocolError(err)
			}
			return
		}

		c.handlePacket(pkt)
	}
}

func (c *Client) readOne() (Packet, int, error) {
	if c.options.keepAlive > 0 {
		// Allow generous slack past the keep-alive interval before the
		// read is treated as dead.
		deadline := time.Duration(c.options.keepAlive) * time.Second * 2
		c.conn.SetReadDeadline(time.Now().Add(deadline))
	}
	return ReadPacket(c.conn, c.options.maxPacketSize)
}

// handlePacket processes an incoming packet.
func (c *Client) handlePacket(pkt Packet) {
	switch p := pkt.(type) {
	case *ConnackPacket:
		c.completeOrDrop(PacketCONNACK, 0, p)
	case *PublishPacket:
		c.handlePublish(p)
	case *PubackPacket:
		c.completeOrDrop(PacketPUBACK, p.GetPacketID(), p)
	case *PubrecPacket:
		c.completeOrDrop(PacketPUBREC, p.GetPacketID(), p)
	case *PubrelPacket:
		c.handlePubrel(p)
	case *PubcompPacket:
		c.completeOrDrop(PacketPUBCOMP, p.GetPacketID(), p)
	case *SubackPacket:
		c.completeOrDrop(PacketSUBACK, p.PacketID, p)
	case *UnsubackPacket:
		c.completeOrDrop(PacketUNSUBACK, p.GetPacketID(), p)
	case *PingrespPacket:
		c.completeOrDrop(PacketPINGRESP, 0, p)
	case *PingreqPacket:
		// Brokers normally don't ping clients, but answering is harmless.
		_ = c.writePacket(&PingrespPacket{})
	case *DisconnectPacket:
		c.handleServerDisconnect()
	default:
		c.logger.Debug("dropping unexpected packet", LogFields{
			LogFieldPacketType: pkt.Type().String(),
		})
	}
}

// completeOrDrop routes an acknowledgment to its waiter. Unmatched
// acknowledgments are dropped: a stale PUBCOMP for a timed-out flow or a
// duplicate SUBACK must not disturb unrelated waiters.
func (c *Client) completeOrDrop(kind PacketType, id uint16, pkt Packet) {
	if !c.correlator.Complete(kind, id, pkt) {
		c.logger.Debug("no waiter for packet", LogFields{
			LogFieldPacketType: kind.String(),
			LogFieldPacketID:   id,
		})
	}
}

// handlePublish processes an incoming PUBLISH packet.
func (c *Client) handlePublish(pkt *PublishPacket) {
	msg := pkt.ToMessage()

	switch pkt.QoS {
	case 0:
		c.deliverMessage(msg)

	case 1:
		// Deliver first, then acknowledge.
		c.deliverMessage(msg)
		puback := &PubackPacket{}
		puback.SetPacketID(pkt.PacketID)
		_ = c.writePacket(puback)

	case 2:
		// Hold the message until the broker releases it with PUBREL.
		// A duplicate PUBLISH for a held ID gets another PUBREC but is
		// never delivered twice.
		if !c.inboundQoS2.Store(pkt.PacketID, msg) {
			c.logger.Debug("duplicate qos 2 publish", LogFields{
				LogFieldPacketID: pkt.PacketID,
				LogFieldTopic:    pkt.Topic,
			})
		}
		pubrec := &PubrecPacket{}
		pubrec.SetPacketID(pkt.PacketID)
		_ = c.writePacket(pubrec)
	}
}

// handlePubrel completes an inbound QoS 2 flow: deliver the held message
// exactly once, then confirm with PUBCOMP. PUBCOMP is sent even when no
// message is held so a retransmitted PUBREL still terminates.
func (c *Client) handlePubrel(pkt *PubrelPacket) {
	if msg, ok := c.inboundQoS2.Release(pkt.GetPacketID()); ok {
		c.deliverMessage(msg)
	}

	pubcomp := &PubcompPacket{}
	pubcomp.SetPacketID(pkt.GetPacketID())
	_ = c.writePacket(pubcomp)
}

// handleServerDisconnect processes a DISCONNECT packet from the broker.
func (c *Client) handleServerDisconnect() {
	if c.closed.Swap(true) {
		return
	}
	c.state.Store(int32(StateDisconnected))
	c.logger.Warn("server disconnect", nil)
	c.shutdown(ErrServerDisconnect)
	c.emit(ErrServerDisconnect)
}

// deliverMessage delivers a message to matching subscription handlers.
// Handlers are copied to avoid holding the lock during callback
// invocation, which would deadlock if a handler calls Subscribe.
func (c *Client) deliverMessage(msg *Message) {
	c.subscriptionsMu.RLock()
	var handlers []MessageHandler
	for filter, handler := range c.subscriptions {
		if TopicMatch(filter, msg.Topic) {
			handlers = append(handlers, handler)
		}
	}
	c.subscriptionsMu.RUnlock()

	if len(handlers) == 0 && c.options.defaultHandler != nil {
		c.options.defaultHandler(msg)
		return
	}

	for _, handler := range handlers {
		handler(msg)
	}
}

// keepAliveLoop sends PINGREQ when the connection has been idle for half
// the keep-alive interval. A missing PINGRESP is not treated as fatal;
// the broker closing the connection surfaces through the read loop.
func (c *Client) keepAliveLoop() {
	if c.options.keepAlive == 0 {
		return
	}

	interval := time.Duration(c.options.keepAlive) * time.Second / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.IsConnected() {
				continue
			}

			lastSent := time.Unix(0, c.lastSent.Load())
			if time.Since(lastSent) >= interval {
				if err := c.writePacket(&PingreqPacket{}); err != nil {
					c.logger.Warn("keep-alive ping failed", LogFields{LogFieldError: err})
				}
			}
		}
	}
}

// filtersOf extracts the topic filters from a subscription list.
func filtersOf(subs []Subscription) []string {
	filters := make([]string, len(subs))
	for i, sub := range subs {
		filters[i] = sub.TopicFilter
	}
	return filters
}
