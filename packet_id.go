package mqtt311

import (
	"errors"
	"sync"
)

var (
	ErrPacketIDExhausted = errors.New("no available packet IDs")
	ErrPacketIDNotFound  = errors.New("packet ID not found")
)

// PacketIDAllocator manages allocation and release of packet IDs (1-65535).
// An allocated ID stays reserved until the flow that owns it completes and
// releases it, so retransmissions and responses always refer to a live flow.
// MQTT 3.1.1 spec: Section 2.3.1
type PacketIDAllocator struct {
	mu   sync.Mutex
	used map[uint16]struct{}
	next uint16
}

// NewPacketIDAllocator creates a new packet ID allocator.
func NewPacketIDAllocator() *PacketIDAllocator {
	return &PacketIDAllocator{
		used: make(map[uint16]struct{}),
		next: 1,
	}
}

// Allocate returns the next available packet ID. The ID is never zero and
// never one that is currently in use. Returns ErrPacketIDExhausted when all
// 65535 IDs are in flight.
func (a *PacketIDAllocator) Allocate() (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.used) >= 65535 {
		return 0, ErrPacketIDExhausted
	}

	start := a.next
	for {
		if _, ok := a.used[a.next]; !ok {
			id := a.next
			a.used[id] = struct{}{}
			a.next++
			if a.next == 0 {
				a.next = 1
			}
			return id, nil
		}
		a.next++
		if a.next == 0 {
			a.next = 1
		}
		if a.next == start {
			return 0, ErrPacketIDExhausted
		}
	}
}

// Release releases a packet ID for reuse.
func (a *PacketIDAllocator) Release(id uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.used[id]; !ok {
		return ErrPacketIDNotFound
	}
	delete(a.used, id)
	return nil
}

// IsUsed returns true if the packet ID is currently in use.
func (a *PacketIDAllocator) IsUsed(id uint16) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.used[id]
	return ok
}

// InUse returns the count of packet IDs currently in use.
func (a *PacketIDAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

// Reset releases all packet IDs and restarts the allocation cursor.
// Used when a session is discarded.
func (a *PacketIDAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used = make(map[uint16]struct{})
	a.next = 1
}
