package mqtt311

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrRequestTimeout   = errors.New("request timed out waiting for response")
	ErrRequestCancelled = errors.New("request cancelled")
	ErrPendingExists    = errors.New("a request with this packet ID is already pending")
)

// replyKey identifies an expected inbound packet by type and packet ID.
// CONNACK and PINGRESP carry no packet ID and use id 0.
type replyKey struct {
	kind PacketType
	id   uint16
}

// PendingReply is a single-use handle for one expected broker response.
// It is completed at most once: by the read loop delivering the matching
// packet, by connection teardown, or by the waiter timing out or being
// cancelled. Whichever happens first wins; later completions are no-ops.
type PendingReply struct {
	c    *Correlator
	key  replyKey
	done chan struct{}
	once sync.Once

	pkt Packet
	err error
}

func (p *PendingReply) complete(pkt Packet, err error) {
	p.once.Do(func() {
		p.pkt = pkt
		p.err = err
		close(p.done)
	})
}

// Await blocks until the response arrives, the timeout elapses, or ctx is
// cancelled. The entry is always removed from the correlator before Await
// returns, so abandoned waits never leak.
func (p *PendingReply) Await(ctx context.Context, timeout time.Duration) (Packet, error) {
	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-p.done:
		return p.pkt, p.err

	case <-ctx.Done():
		p.c.remove(p.key, p)
		p.complete(nil, ErrRequestCancelled)
		<-p.done
		return p.pkt, p.err

	case <-timeoutCh:
		// Cancellation takes precedence when it races the deadline.
		select {
		case <-ctx.Done():
			p.c.remove(p.key, p)
			p.complete(nil, ErrRequestCancelled)
		case <-p.done:
		default:
			p.c.remove(p.key, p)
			p.complete(nil, ErrRequestTimeout)
		}
		<-p.done
		return p.pkt, p.err
	}
}

// Correlator matches inbound broker responses to the requests that are
// waiting for them. Each pending entry is keyed by the expected packet type
// and packet ID, so a PUBCOMP can never satisfy a waiter expecting PUBREC.
type Correlator struct {
	mu      sync.Mutex
	pending map[replyKey]*PendingReply
}

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{
		pending: make(map[replyKey]*PendingReply),
	}
}

// Register records that a response of the given type and packet ID is
// expected. Returns ErrPendingExists if an entry with the same key is
// already registered.
func (c *Correlator) Register(kind PacketType, id uint16) (*PendingReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := replyKey{kind: kind, id: id}
	if _, ok := c.pending[key]; ok {
		return nil, ErrPendingExists
	}

	p := &PendingReply{
		c:    c,
		key:  key,
		done: make(chan struct{}),
	}
	c.pending[key] = p
	return p, nil
}

// Complete delivers an inbound packet to the waiter expecting it.
// Returns false if no matching waiter exists; the caller decides whether
// that is a protocol violation or an ignorable stray.
func (c *Correlator) Complete(kind PacketType, id uint16, pkt Packet) bool {
	c.mu.Lock()
	key := replyKey{kind: kind, id: id}
	p, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	p.complete(pkt, nil)
	return true
}

// Fail completes the waiter for the given key with an error.
func (c *Correlator) Fail(kind PacketType, id uint16, err error) bool {
	c.mu.Lock()
	key := replyKey{kind: kind, id: id}
	p, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	p.complete(nil, err)
	return true
}

// Reset fails every pending waiter with err and empties the correlator.
// Called on connection loss and on disconnect.
func (c *Correlator) Reset(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[replyKey]*PendingReply)
	c.mu.Unlock()

	for _, p := range pending {
		p.complete(nil, err)
	}
}

// Len returns the number of pending waiters.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// remove deletes the entry only if it still maps to p. A waiter that timed
// out must not remove a successor registered under the same key.
func (c *Correlator) remove(key replyKey, p *PendingReply) {
	c.mu.Lock()
	if cur, ok := c.pending[key]; ok && cur == p {
		delete(c.pending, key)
	}
	c.mu.Unlock()
}
