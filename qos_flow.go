package mqtt311

import (
	"sync"
	"time"
)

// PublishState represents the state of an outbound publish flow.
// MQTT 3.1.1 spec: Sections 4.3.2 and 4.3.3
type PublishState int

const (
	// PublishAwaitingPuback is a QoS 1 publish waiting for PUBACK.
	PublishAwaitingPuback PublishState = iota
	// PublishAwaitingPubrec is a QoS 2 publish waiting for PUBREC.
	PublishAwaitingPubrec
	// PublishAwaitingPubcomp is a QoS 2 publish that has been PUBREC'd and
	// is waiting for PUBCOMP after the client sent PUBREL.
	PublishAwaitingPubcomp
)

// String returns the string representation of the publish state.
func (s PublishState) String() string {
	switch s {
	case PublishAwaitingPuback:
		return "awaiting-puback"
	case PublishAwaitingPubrec:
		return "awaiting-pubrec"
	case PublishAwaitingPubcomp:
		return "awaiting-pubcomp"
	default:
		return "unknown"
	}
}

// OutboundPublish is an in-flight outbound QoS 1 or QoS 2 publish.
type OutboundPublish struct {
	PacketID uint16
	Message  *Message
	State    PublishState
	SentAt   time.Time
}

// OutboundTracker records outbound publishes from first send until the
// acknowledgment handshake finishes. Its packet IDs stay reserved in the
// allocator for exactly as long as they appear here.
type OutboundTracker struct {
	mu       sync.RWMutex
	messages map[uint16]*OutboundPublish
}

// NewOutboundTracker creates a new outbound publish tracker.
func NewOutboundTracker() *OutboundTracker {
	return &OutboundTracker{
		messages: make(map[uint16]*OutboundPublish),
	}
}

// Track starts tracking an outbound publish. QoS 1 flows start in
// PublishAwaitingPuback, QoS 2 flows in PublishAwaitingPubrec.
func (t *OutboundTracker) Track(packetID uint16, msg *Message) {
	state := PublishAwaitingPuback
	if msg.QoS == 2 {
		state = PublishAwaitingPubrec
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages[packetID] = &OutboundPublish{
		PacketID: packetID,
		Message:  msg,
		State:    state,
		SentAt:   time.Now(),
	}
}

// MarkReceived transitions a QoS 2 flow from PublishAwaitingPubrec to
// PublishAwaitingPubcomp after PUBREC arrives. Returns false if the flow
// is unknown or not in the expected state.
func (t *OutboundTracker) MarkReceived(packetID uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg, ok := t.messages[packetID]
	if !ok || msg.State != PublishAwaitingPubrec {
		return false
	}
	msg.State = PublishAwaitingPubcomp
	return true
}

// Complete finishes a flow and removes it. For QoS 1 this is the PUBACK,
// for QoS 2 the PUBCOMP. Returns false if the flow is unknown.
func (t *OutboundTracker) Complete(packetID uint16) (*OutboundPublish, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg, ok := t.messages[packetID]
	if !ok {
		return nil, false
	}
	delete(t.messages, packetID)
	return msg, true
}

// Get returns a tracked publish.
func (t *OutboundTracker) Get(packetID uint16) (*OutboundPublish, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	msg, ok := t.messages[packetID]
	return msg, ok
}

// Count returns the number of in-flight publishes.
func (t *OutboundTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Reset drains all in-flight publishes and returns them. Called on
// connection teardown so the owner can release their packet IDs.
func (t *OutboundTracker) Reset() []*OutboundPublish {
	t.mu.Lock()
	defer t.mu.Unlock()

	drained := make([]*OutboundPublish, 0, len(t.messages))
	for _, msg := range t.messages {
		drained = append(drained, msg)
	}
	t.messages = make(map[uint16]*OutboundPublish)
	return drained
}

// InboundQoS2Tracker holds inbound QoS 2 messages between PUBLISH and
// PUBREL. The message is delivered to the application exactly once, when
// the broker releases it; duplicate PUBLISH packets for a held ID are
// answered with PUBREC but never re-delivered.
// MQTT 3.1.1 spec: Section 4.3.3
type InboundQoS2Tracker struct {
	mu   sync.Mutex
	held map[uint16]*Message
}

// NewInboundQoS2Tracker creates a new inbound QoS 2 tracker.
func NewInboundQoS2Tracker() *InboundQoS2Tracker {
	return &InboundQoS2Tracker{
		held: make(map[uint16]*Message),
	}
}

// Store holds a message under its packet ID until release. Returns false
// if the ID is already held, meaning this PUBLISH is a duplicate.
func (t *InboundQoS2Tracker) Store(packetID uint16, msg *Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.held[packetID]; ok {
		return false
	}
	t.held[packetID] = msg
	return true
}

// Release removes and returns the held message for delivery. Returns false
// if no message is held under this ID, which happens when the broker
// retransmits PUBREL after the flow already completed.
func (t *InboundQoS2Tracker) Release(packetID uint16) (*Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg, ok := t.held[packetID]
	if !ok {
		return nil, false
	}
	delete(t.held, packetID)
	return msg, true
}

// Count returns the number of held messages.
func (t *InboundQoS2Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.held)
}

// Reset discards all held messages.
func (t *InboundQoS2Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held = make(map[uint16]*Message)
}
