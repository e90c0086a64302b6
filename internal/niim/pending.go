package niim

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout is the response deadline for commands.
const DefaultTimeout = 5 * time.Second

// Expectation describes which packets a pending request accepts.
type Expectation struct {
	Code         Code
	HasCode      bool // false: catch-all, takes any packet nobody else claims
	DeviceErrors bool // also accept CmdNotImplemented / CmdValueError
}

// AnyPacket accepts the next packet no code-specific request claims.
func AnyPacket() Expectation { return Expectation{} }

// ExpectCode accepts packets with exactly code c.
func ExpectCode(c Code) Expectation { return Expectation{Code: c, HasCode: true} }

// ExpectResponse accepts code c or a device error sentinel answering it.
func ExpectResponse(c Code) Expectation {
	return Expectation{Code: c, HasCode: true, DeviceErrors: true}
}

func (e Expectation) String() string {
	if !e.HasCode {
		return "any"
	}
	return e.Code.String()
}

type result struct {
	pkt Packet
	err error
}

// Pending is an outstanding request registered with a Registry.
type Pending struct {
	reg    *Registry
	expect Expectation
	timer  *time.Timer
	done   chan result
}

// Registry correlates incoming packets with outstanding requests in FIFO order.
type Registry struct {
	mu      sync.Mutex
	pending []*Pending
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a request and arms its timeout. A timeout <= 0 uses DefaultTimeout.
func (r *Registry) Register(expect Expectation, timeout time.Duration) *Pending {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Pending{reg: r, expect: expect, done: make(chan result, 1)}

	r.mu.Lock()
	r.pending = append(r.pending, p)
	p.timer = time.AfterFunc(timeout, func() {
		if r.remove(p) {
			p.done <- result{err: fmt.Errorf("%w (%s after %s)", ErrTimeout, expect, timeout)}
		}
	})
	r.mu.Unlock()
	return p
}

// Resolve hands pkt to at most one request: the oldest waiting for its code,
// else (for device error sentinels) the oldest command awaiting a response,
// else the oldest catch-all. It reports whether a request took the packet.
func (r *Registry) Resolve(pkt Packet) bool {
	r.mu.Lock()
	idx := r.match(pkt.Code)
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	p := r.pending[idx]
	r.pending = append(r.pending[:idx], r.pending[idx+1:]...)
	r.mu.Unlock()

	p.timer.Stop()
	p.done <- result{pkt: pkt}
	return true
}

func (r *Registry) match(code Code) int {
	for i, p := range r.pending {
		if p.expect.HasCode && p.expect.Code == code {
			return i
		}
	}
	if code.IsDeviceError() {
		for i, p := range r.pending {
			if p.expect.DeviceErrors {
				return i
			}
		}
	}
	for i, p := range r.pending {
		if !p.expect.HasCode {
			return i
		}
	}
	return -1
}

// FailAll rejects every outstanding request with err.
func (r *Registry) FailAll(err error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		p.done <- result{err: err}
	}
}

// Len returns the number of outstanding requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// remove drops p and reports whether it was still registered. Whoever
// removes p is the one allowed to complete it.
func (r *Registry) remove(p *Pending) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.pending {
		if q == p {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Wait blocks until the request is resolved, times out, is failed, or ctx
// ends. On ctx cancellation the request is withdrawn.
func (p *Pending) Wait(ctx context.Context) (Packet, error) {
	select {
	case res := <-p.done:
		return res.pkt, res.err
	case <-ctx.Done():
		p.Cancel()
		// Resolve may have won the race.
		select {
		case res := <-p.done:
			return res.pkt, res.err
		default:
			return Packet{}, ctx.Err()
		}
	}
}

// Cancel withdraws the request without completing it.
func (p *Pending) Cancel() {
	if p.reg.remove(p) {
		p.timer.Stop()
	}
}

// Expect returns what the request is waiting for.
func (p *Pending) Expect() Expectation { return p.expect }
