package mqtt311

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroker creates a TCP server that accepts one connection and runs a handler.
func mockBroker(t *testing.T, handler func(net.Conn)) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()

	cleanup := func() {
		listener.Close()
		wg.Wait()
	}

	return listener.Addr().String(), cleanup
}

// readConnect reads a CONNECT packet from the connection.
func readConnect(t *testing.T, conn net.Conn) *ConnectPacket {
	t.Helper()

	pkt, _, err := ReadPacket(conn, MaxPacketSizeDefault)
	require.NoError(t, err)

	connectPkt, ok := pkt.(*ConnectPacket)
	require.True(t, ok, "expected CONNECT packet, got %T", pkt)
	return connectPkt
}

// sendConnack sends a CONNACK packet to the connection.
func sendConnack(t *testing.T, conn net.Conn, sessionPresent bool, code ConnackReturnCode) {
	t.Helper()

	pkt := &ConnackPacket{
		SessionPresent: sessionPresent,
		ReturnCode:     code,
	}
	_, err := WritePacket(conn, pkt, MaxPacketSizeDefault)
	require.NoError(t, err)
}

// acceptConnection performs the broker side of the CONNECT handshake.
func acceptConnection(t *testing.T, conn net.Conn) {
	t.Helper()
	readConnect(t, conn)
	sendConnack(t, conn, false, ConnectionAccepted)
}

// readBrokerPacket reads one packet as the broker.
func readBrokerPacket(t *testing.T, conn net.Conn) Packet {
	t.Helper()

	pkt, _, err := ReadPacket(conn, MaxPacketSizeDefault)
	require.NoError(t, err)
	return pkt
}

// writeBrokerPacket writes one packet as the broker.
func writeBrokerPacket(t *testing.T, conn net.Conn, pkt Packet) {
	t.Helper()

	_, err := WritePacket(conn, pkt, MaxPacketSizeDefault)
	require.NoError(t, err)
}

func TestDialSuccess(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Disconnect()

	assert.True(t, client.IsConnected())
	assert.Equal(t, StateConnected, client.State())
	assert.Equal(t, "test-client", client.ClientID())
}

func TestDialWithCredentials(t *testing.T) {
	var receivedConnect *ConnectPacket

	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		receivedConnect = readConnect(t, conn)
		sendConnack(t, conn, false, ConnectionAccepted)
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		WithCredentials("user", "pass"),
	)
	require.NoError(t, err)
	defer client.Disconnect()

	assert.Equal(t, "user", receivedConnect.Username)
	assert.Equal(t, []byte("pass"), receivedConnect.Password)
}

func TestDialGeneratedClientID(t *testing.T) {
	var receivedConnect *ConnectPacket

	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		receivedConnect = readConnect(t, conn)
		sendConnack(t, conn, false, ConnectionAccepted)
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://" + addr)
	require.NoError(t, err)
	defer client.Disconnect()

	assert.NotEmpty(t, receivedConnect.ClientID)
	assert.Equal(t, receivedConnect.ClientID, client.ClientID())
}

func TestDialConnectionRefused(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		readConnect(t, conn)
		sendConnack(t, conn, false, ConnRefusedBadCredentials)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.Error(t, err)
	assert.Nil(t, client)

	var refused *ConnectRefusedError
	require.ErrorAs(t, err, &refused)
	assert.Equal(t, ConnRefusedBadCredentials, refused.Code)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDialBrokerUnavailable(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		readConnect(t, conn)
		sendConnack(t, conn, false, ConnRefusedServerUnavailable)
	})
	defer cleanup()

	_, err := Dial("tcp://"+addr, WithClientID("test-client"))
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
}

func TestDialUnsupportedScheme(t *testing.T) {
	_, err := Dial("ftp://localhost:21")
	assert.Error(t, err)
}

func TestDisconnectIdempotent(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		// Drain until the client goes away.
		for {
			if _, _, err := ReadPacket(conn, MaxPacketSizeDefault); err != nil {
				return
			}
		}
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)

	require.NoError(t, client.Disconnect())
	assert.False(t, client.IsConnected())
	assert.Equal(t, StateDisconnected, client.State())

	// Second call is a no-op.
	require.NoError(t, client.Disconnect())

	// Operations on a closed client fail fast.
	err = client.Publish(context.Background(), &Message{Topic: "t"})
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestPublishQoS0(t *testing.T) {
	received := make(chan *PublishPacket, 1)

	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		pkt := readBrokerPacket(t, conn)
		received <- pkt.(*PublishPacket)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	err = client.Publish(context.Background(), &Message{
		Topic:   "sensors/temp",
		Payload: []byte("21.5"),
		QoS:     0,
	})
	require.NoError(t, err)

	select {
	case pub := <-received:
		assert.Equal(t, "sensors/temp", pub.Topic)
		assert.Equal(t, []byte("21.5"), pub.Payload)
		assert.Equal(t, byte(0), pub.QoS)
		assert.Zero(t, pub.PacketID)
	case <-time.After(time.Second):
		t.Fatal("broker did not receive PUBLISH")
	}
}

func TestPublishQoS1(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		pub := readBrokerPacket(t, conn).(*PublishPacket)
		assert.Equal(t, byte(1), pub.QoS)
		assert.NotZero(t, pub.PacketID)

		puback := &PubackPacket{}
		puback.SetPacketID(pub.PacketID)
		writeBrokerPacket(t, conn, puback)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	err = client.Publish(context.Background(), &Message{
		Topic:   "sensors/temp",
		Payload: []byte("22"),
		QoS:     1,
	})
	require.NoError(t, err)

	// Handshake done: ID released, no tracked flows, no waiters.
	assert.Equal(t, 0, client.allocator.InUse())
	assert.Equal(t, 0, client.outbound.Count())
	assert.Equal(t, 0, client.correlator.Len())
}

func TestPublishQoS2(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		pub := readBrokerPacket(t, conn).(*PublishPacket)
		assert.Equal(t, byte(2), pub.QoS)

		pubrec := &PubrecPacket{}
		pubrec.SetPacketID(pub.PacketID)
		writeBrokerPacket(t, conn, pubrec)

		pubrel := readBrokerPacket(t, conn).(*PubrelPacket)
		assert.Equal(t, pub.PacketID, pubrel.GetPacketID())

		pubcomp := &PubcompPacket{}
		pubcomp.SetPacketID(pub.PacketID)
		writeBrokerPacket(t, conn, pubcomp)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	err = client.Publish(context.Background(), &Message{
		Topic:   "sensors/temp",
		Payload: []byte("23"),
		QoS:     2,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, client.allocator.InUse())
	assert.Equal(t, 0, client.outbound.Count())
}

func TestPublishQoS2PrematurePubcompIgnored(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		pub := readBrokerPacket(t, conn).(*PublishPacket)

		// Out-of-order PUBCOMP before PUBREC: the client must drop it
		// instead of completing the PUBREC wait.
		stray := &PubcompPacket{}
		stray.SetPacketID(pub.PacketID)
		writeBrokerPacket(t, conn, stray)

		pubrec := &PubrecPacket{}
		pubrec.SetPacketID(pub.PacketID)
		writeBrokerPacket(t, conn, pubrec)

		readBrokerPacket(t, conn) // PUBREL

		pubcomp := &PubcompPacket{}
		pubcomp.SetPacketID(pub.PacketID)
		writeBrokerPacket(t, conn, pubcomp)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	err = client.Publish(context.Background(), &Message{
		Topic: "t",
		QoS:   2,
	})
	require.NoError(t, err)
}

func TestPublishTimeout(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		// Swallow the PUBLISH and never acknowledge.
		readBrokerPacket(t, conn)
		time.Sleep(500 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		WithRequestTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)
	defer client.Disconnect()

	err = client.Publish(context.Background(), &Message{Topic: "t", QoS: 1})
	assert.ErrorIs(t, err, ErrRequestTimeout)

	// The abandoned flow leaks nothing.
	assert.Equal(t, 0, client.correlator.Len())
	assert.Equal(t, 0, client.outbound.Count())
	assert.Equal(t, 0, client.allocator.InUse())
}

func TestPublishContextCancelled(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		readBrokerPacket(t, conn)
		time.Sleep(500 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err = client.Publish(ctx, &Message{Topic: "t", QoS: 1})
	assert.ErrorIs(t, err, ErrRequestCancelled)
}

func TestPublishInvalid(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		time.Sleep(200 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	t.Run("wildcard topic", func(t *testing.T) {
		err := client.Publish(context.Background(), &Message{Topic: "a/+/b"})
		assert.ErrorIs(t, err, ErrInvalidTopicName)
	})

	t.Run("qos 3", func(t *testing.T) {
		err := client.Publish(context.Background(), &Message{Topic: "a", QoS: 3})
		assert.ErrorIs(t, err, ErrInvalidQoS)
	})
}

func TestSubscribe(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		sub := readBrokerPacket(t, conn).(*SubscribePacket)
		require.Len(t, sub.Subscriptions, 1)
		assert.Equal(t, "sensors/#", sub.Subscriptions[0].TopicFilter)

		suback := &SubackPacket{
			PacketID:    sub.PacketID,
			ReturnCodes: []byte{1},
		}
		writeBrokerPacket(t, conn, suback)

		// Deliver a message matching the subscription.
		pub := &PublishPacket{Topic: "sensors/temp", Payload: []byte("19")}
		writeBrokerPacket(t, conn, pub)

		time.Sleep(200 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	received := make(chan *Message, 1)
	granted, err := client.Subscribe(context.Background(), "sensors/#", 1, func(msg *Message) {
		received <- msg
	})
	require.NoError(t, err)
	assert.Equal(t, byte(1), granted)

	select {
	case msg := <-received:
		assert.Equal(t, "sensors/temp", msg.Topic)
		assert.Equal(t, []byte("19"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestSubscribeRejected(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		sub := readBrokerPacket(t, conn).(*SubscribePacket)
		suback := &SubackPacket{
			PacketID:    sub.PacketID,
			ReturnCodes: []byte{SubackFailure},
		}
		writeBrokerPacket(t, conn, suback)
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	_, err = client.Subscribe(context.Background(), "forbidden/#", 1, func(*Message) {})
	require.Error(t, err)

	var subErr *SubscribeError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "forbidden/#", subErr.TopicFilter)
	assert.ErrorIs(t, err, ErrSubscriptionRejected)

	// The rejected filter's handler is gone.
	client.subscriptionsMu.RLock()
	_, exists := client.subscriptions["forbidden/#"]
	client.subscriptionsMu.RUnlock()
	assert.False(t, exists)
}

func TestSubscribeMultipleGrantedQoS(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		sub := readBrokerPacket(t, conn).(*SubscribePacket)
		require.Len(t, sub.Subscriptions, 2)

		suback := &SubackPacket{
			PacketID:    sub.PacketID,
			ReturnCodes: []byte{2, 0},
		}
		writeBrokerPacket(t, conn, suback)
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	granted, err := client.SubscribeMultiple(context.Background(), []Subscription{
		{TopicFilter: "a/#", QoS: 2},
		{TopicFilter: "b", QoS: 1},
	}, func(*Message) {})
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0}, granted)
}

func TestUnsubscribe(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		sub := readBrokerPacket(t, conn).(*SubscribePacket)
		writeBrokerPacket(t, conn, &SubackPacket{
			PacketID:    sub.PacketID,
			ReturnCodes: []byte{0},
		})

		unsub := readBrokerPacket(t, conn).(*UnsubscribePacket)
		assert.Equal(t, []string{"a/b"}, unsub.TopicFilters)

		unsuback := &UnsubackPacket{}
		unsuback.SetPacketID(unsub.PacketID)
		writeBrokerPacket(t, conn, unsuback)
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	_, err = client.Subscribe(context.Background(), "a/b", 0, func(*Message) {})
	require.NoError(t, err)

	require.NoError(t, client.Unsubscribe(context.Background(), "a/b"))

	client.subscriptionsMu.RLock()
	_, exists := client.subscriptions["a/b"]
	client.subscriptionsMu.RUnlock()
	assert.False(t, exists)
}

func TestInboundQoS1Acknowledged(t *testing.T) {
	pubackCh := make(chan *PubackPacket, 1)

	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		sub := readBrokerPacket(t, conn).(*SubscribePacket)
		writeBrokerPacket(t, conn, &SubackPacket{
			PacketID:    sub.PacketID,
			ReturnCodes: []byte{1},
		})

		pub := &PublishPacket{Topic: "t", Payload: []byte("x"), QoS: 1, PacketID: 77}
		writeBrokerPacket(t, conn, pub)

		pubackCh <- readBrokerPacket(t, conn).(*PubackPacket)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	received := make(chan *Message, 1)
	_, err = client.Subscribe(context.Background(), "t", 1, func(msg *Message) {
		received <- msg
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, []byte("x"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	select {
	case puback := <-pubackCh:
		assert.Equal(t, uint16(77), puback.GetPacketID())
	case <-time.After(time.Second):
		t.Fatal("PUBACK not sent")
	}
}

func TestInboundQoS2DeliveredExactlyOnce(t *testing.T) {
	flowDone := make(chan struct{})

	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		sub := readBrokerPacket(t, conn).(*SubscribePacket)
		writeBrokerPacket(t, conn, &SubackPacket{
			PacketID:    sub.PacketID,
			ReturnCodes: []byte{2},
		})

		// First PUBLISH of the flow.
		pub := &PublishPacket{Topic: "t", Payload: []byte("once"), QoS: 2, PacketID: 9}
		writeBrokerPacket(t, conn, pub)

		pubrec := readBrokerPacket(t, conn).(*PubrecPacket)
		assert.Equal(t, uint16(9), pubrec.GetPacketID())

		// Retransmit before PUBREL: client answers PUBREC again but
		// must not deliver twice.
		dup := &PublishPacket{Topic: "t", Payload: []byte("once"), QoS: 2, PacketID: 9, DUP: true}
		writeBrokerPacket(t, conn, dup)

		pubrec = readBrokerPacket(t, conn).(*PubrecPacket)
		assert.Equal(t, uint16(9), pubrec.GetPacketID())

		pubrel := &PubrelPacket{}
		pubrel.SetPacketID(9)
		writeBrokerPacket(t, conn, pubrel)

		pubcomp := readBrokerPacket(t, conn).(*PubcompPacket)
		assert.Equal(t, uint16(9), pubcomp.GetPacketID())

		close(flowDone)
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	var deliveries atomic.Int32
	_, err = client.Subscribe(context.Background(), "t", 2, func(msg *Message) {
		deliveries.Add(1)
	})
	require.NoError(t, err)

	select {
	case <-flowDone:
	case <-time.After(2 * time.Second):
		t.Fatal("QoS 2 flow did not complete")
	}

	// Delivery happened on PUBREL, exactly once.
	assert.Eventually(t, func() bool {
		return deliveries.Load() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, client.inboundQoS2.Count())
}

func TestConnectionLostFailsPendingPublish(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		// Read the PUBLISH, then drop the connection without acking.
		readBrokerPacket(t, conn)
		conn.Close()
	})
	defer cleanup()

	events := make(chan error, 10)
	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		OnEvent(func(_ *Client, event error) {
			events <- event
		}),
	)
	require.NoError(t, err)

	err = client.Publish(context.Background(), &Message{Topic: "t", QoS: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionLost)

	var lost *ConnectionLostError
	assert.ErrorAs(t, err, &lost)

	assert.Eventually(t, func() bool {
		return !client.IsConnected()
	}, time.Second, 10*time.Millisecond)

	// The lost event reached the handler.
	assert.Eventually(t, func() bool {
		for len(events) > 0 {
			if errors.Is(<-events, ErrConnectionLost) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestServerDisconnect(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		writeBrokerPacket(t, conn, &DisconnectPacket{})
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	events := make(chan error, 10)
	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		OnEvent(func(_ *Client, event error) {
			events <- event
		}),
	)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !client.IsConnected()
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		for len(events) > 0 {
			if errors.Is(<-events, ErrServerDisconnect) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestPing(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		pkt := readBrokerPacket(t, conn)
		require.IsType(t, &PingreqPacket{}, pkt)
		writeBrokerPacket(t, conn, &PingrespPacket{})
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	require.NoError(t, client.Ping(context.Background()))
}

func TestDialConnackTimeout(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		// Accept the TCP connection and read CONNECT, but never answer.
		readConnect(t, conn)
		time.Sleep(500 * time.Millisecond)
	})
	defer cleanup()

	_, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		WithConnectTimeout(100*time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
}

func TestMalformedPacketIsProtocolError(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		// SUBSCRIBE packet type with flags 0x00: invalid framing.
		conn.Write([]byte{0x80, 0x00})
		time.Sleep(200 * time.Millisecond)
	})
	defer cleanup()

	events := make(chan error, 10)
	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		OnEvent(func(_ *Client, event error) {
			events <- event
		}),
	)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for len(events) > 0 {
			if errors.Is(<-events, ErrProtocolError) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
	assert.False(t, client.IsConnected())
}

// closeRecorderConn is a net.Conn stub whose Close reports back to the test.
type closeRecorderConn struct {
	onClose func()
}

func (c *closeRecorderConn) Read([]byte) (int, error)       { return 0, net.ErrClosed }
func (c *closeRecorderConn) Write(b []byte) (int, error)    { return len(b), nil }
func (c *closeRecorderConn) Close() error                   { c.onClose(); return nil }
func (c *closeRecorderConn) LocalAddr() net.Addr            { return &net.TCPAddr{} }
func (c *closeRecorderConn) RemoteAddr() net.Addr           { return &net.TCPAddr{} }
func (c *closeRecorderConn) SetDeadline(time.Time) error    { return nil }
func (c *closeRecorderConn) SetReadDeadline(time.Time) error { return nil }
func (c *closeRecorderConn) SetWriteDeadline(time.Time) error { return nil }

func TestFailedConnectPassesThroughDisconnecting(t *testing.T) {
	c := &Client{
		options:       applyOptions(),
		logger:        NewNoOpLogger(),
		allocator:     NewPacketIDAllocator(),
		correlator:    NewCorrelator(),
		outbound:      NewOutboundTracker(),
		inboundQoS2:   NewInboundQoS2Tracker(),
		subscriptions: make(map[string]MessageHandler),
		readDone:      make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))

	var observed ConnectionState
	c.conn = &closeRecorderConn{onClose: func() { observed = c.State() }}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.close(NewConnectRefusedError(ConnRefusedNotAuthorized))

	// Teardown ran while the state showed Disconnecting, like Disconnect.
	assert.Equal(t, StateDisconnecting, observed)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestDisconnectFromMessageHandler(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		sub := readBrokerPacket(t, conn).(*SubscribePacket)
		writeBrokerPacket(t, conn, &SubackPacket{
			PacketID:    sub.PacketID,
			ReturnCodes: []byte{0},
		})
		writeBrokerPacket(t, conn, &PublishPacket{Topic: "t", Payload: []byte("x")})

		// Hold the connection until the client tears it down.
		for {
			if _, _, err := ReadPacket(conn, MaxPacketSizeDefault); err != nil {
				return
			}
		}
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)

	// Disconnect called on the read goroutine must return instead of
	// deadlocking on its own dispatch.
	done := make(chan struct{})
	_, err = client.Subscribe(context.Background(), "t", 0, func(*Message) {
		assert.NoError(t, client.Disconnect())
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Disconnect blocked inside a message handler")
	}
	assert.False(t, client.IsConnected())
}

func TestDialBrokerUnreachable(t *testing.T) {
	// Port from the TEST-NET-1 range; nothing listens there.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := DialContext(ctx, "tcp://192.0.2.1:1883")
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
}

func TestServerPingreqAnswered(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		writeBrokerPacket(t, conn, &PingreqPacket{})

		pkt := readBrokerPacket(t, conn)
		assert.IsType(t, &PingrespPacket{}, pkt)
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr, WithClientID("test-client"))
	require.NoError(t, err)
	defer client.Disconnect()

	// Give the read loop time to answer.
	time.Sleep(100 * time.Millisecond)
}

func TestKeepAlivePing(t *testing.T) {
	gotPing := make(chan struct{}, 1)

	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)

		for {
			pkt, _, err := ReadPacket(conn, MaxPacketSizeDefault)
			if err != nil {
				return
			}
			if _, ok := pkt.(*PingreqPacket); ok {
				select {
				case gotPing <- struct{}{}:
				default:
				}
				if _, err := WritePacket(conn, &PingrespPacket{}, MaxPacketSizeDefault); err != nil {
					return
				}
			}
		}
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		WithKeepAlive(1),
	)
	require.NoError(t, err)
	defer client.Disconnect()

	select {
	case <-gotPing:
	case <-time.After(3 * time.Second):
		t.Fatal("no PINGREQ within keep-alive window")
	}
}

func TestConnectedEvent(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		readConnect(t, conn)
		sendConnack(t, conn, true, ConnectionAccepted)
		time.Sleep(100 * time.Millisecond)
	})
	defer cleanup()

	events := make(chan error, 1)
	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		WithCleanSession(false),
		OnEvent(func(_ *Client, event error) {
			events <- event
		}),
	)
	require.NoError(t, err)
	defer client.Disconnect()

	select {
	case event := <-events:
		assert.ErrorIs(t, event, ErrConnected)
		var connected *ConnectedEvent
		require.ErrorAs(t, event, &connected)
		assert.True(t, connected.SessionPresent)
	case <-time.After(time.Second):
		t.Fatal("no connected event")
	}
}

func TestDefaultHandler(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		// Message with no matching subscription.
		pub := &PublishPacket{Topic: "orphan", Payload: []byte("?")}
		writeBrokerPacket(t, conn, pub)
		time.Sleep(200 * time.Millisecond)
	})
	defer cleanup()

	received := make(chan *Message, 1)
	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		WithDefaultHandler(func(msg *Message) {
			received <- msg
		}),
	)
	require.NoError(t, err)
	defer client.Disconnect()

	select {
	case msg := <-received:
		assert.Equal(t, "orphan", msg.Topic)
	case <-time.After(time.Second):
		t.Fatal("default handler not invoked")
	}
}

func TestPublishRateLimit(t *testing.T) {
	addr, cleanup := mockBroker(t, func(conn net.Conn) {
		acceptConnection(t, conn)
		for {
			if _, _, err := ReadPacket(conn, MaxPacketSizeDefault); err != nil {
				return
			}
		}
	})
	defer cleanup()

	client, err := Dial("tcp://"+addr,
		WithClientID("test-client"),
		WithPublishRateLimit(100, 1),
	)
	require.NoError(t, err)
	defer client.Disconnect()

	// Burst of 1: the later publishes wait for tokens.
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, client.Publish(context.Background(), &Message{Topic: "t"}))
	}
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
