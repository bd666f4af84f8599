// Package mqtt311 implements an MQTT 3.1.1 client.
//
// This package implements the client side of the MQTT Version 3.1.1 OASIS
// Standard: https://docs.oasis-open.org/mqtt/mqtt/v3.1.1/mqtt-v3.1.1.html
//
// # Features
//
//   - All 14 MQTT 3.1.1 control packet types
//   - QoS 0, 1, 2 message flows with blocking acknowledgment handshakes
//   - Topic matching with wildcard support (+, #)
//   - Transport: TCP, TLS, WebSocket, WSS, QUIC, Unix sockets
//   - HTTP CONNECT and SOCKS5 proxy support
//
// # Packet Types
//
// The package provides structs for all MQTT 3.1.1 control packets:
//
//   - ConnectPacket, ConnackPacket: Connection establishment
//   - PublishPacket, PubackPacket, PubrecPacket, PubrelPacket, PubcompPacket: Message delivery
//   - SubscribePacket, SubackPacket: Topic subscription
//   - UnsubscribePacket, UnsubackPacket: Topic unsubscription
//   - PingreqPacket, PingrespPacket: Keep-alive
//   - DisconnectPacket: Connection termination
//
// Use ReadPacket and WritePacket to read/write packets from/to connections:
//
//	// Read a packet
//	pkt, n, err := mqtt311.ReadPacket(conn, maxPacketSize)
//
//	// Write a packet
//	n, err := mqtt311.WritePacket(conn, packet, maxPacketSize)
//
// # Client
//
// Use the high-level Client API for connecting to MQTT brokers:
//
//	client, err := mqtt311.Dial("tcp://localhost:1883",
//	    mqtt311.WithClientID("my-client"),
//	    mqtt311.WithKeepAlive(60),
//	)
//	defer client.Disconnect()
//
// Publishing blocks until the QoS handshake completes:
//
//	err = client.Publish(ctx, &mqtt311.Message{
//	    Topic:   "sensors/temp",
//	    Payload: []byte("21.5"),
//	    QoS:     1,
//	})
//
// Subscriptions deliver messages to a handler and return the granted QoS:
//
//	granted, err := client.Subscribe(ctx, "sensors/#", 1, func(msg *mqtt311.Message) {
//	    log.Printf("%s: %s", msg.Topic, msg.Payload)
//	})
//
// TLS connections:
//
//	client, err := mqtt311.Dial("tls://localhost:8883",
//	    mqtt311.WithTLS(&tls.Config{}),
//	)
//
// WebSocket connections:
//
//	client, err := mqtt311.Dial("ws://localhost:8080/mqtt")
package mqtt311
