package transport

import (
	"fmt"
	"sync"

	"github.com/zcached/zcached-go/common"
)

var poolLogger = common.GetLogger("pool")

// Factory creates a fresh, not yet connected Connection for the pool
type Factory func() (*Connection, error)

// slot is one pool seat. A nil conn means the seat has never been filled;
// connections are created lazily on first demand.
type slot struct {
	conn *Connection
}

// Pool is a fixed-capacity set of Connections to a single endpoint. Acquire
// hands out connections, preferring idle healthy ones; when every member is
// already loaded it shares the least-loaded Connected one rather than
// refusing, since round trips on a shared connection queue safely. Exhaustion
// is reported only when no member is Connected and revival failed.
type Pool struct {
	mu      sync.Mutex
	slots   []slot
	factory Factory
}

// NewPool creates a pool with the given capacity. The factory is invoked
// lazily, once per seat. A capacity below one is a programming error.
func NewPool(size int, factory Factory) *Pool {
	if size < 1 {
		panic(fmt.Sprintf("pool size must be at least 1, got %d", size))
	}
	return &Pool{
		slots:   make([]slot, size),
		factory: factory,
	}
}

// --------------------------------------------------------------------------
// Setup / teardown
// --------------------------------------------------------------------------

// Setup eagerly fills every empty seat and connects all members in
// parallel. It returns the number of connections that ended up Connected.
// A partially connected pool is usable; callers decide whether the count
// is acceptable.
func (p *Pool) Setup() int {
	p.mu.Lock()
	for i := range p.slots {
		if p.slots[i].conn != nil {
			continue
		}
		conn, err := p.factory()
		if err != nil {
			poolLogger.Errorf("creating pool connection: %v", err)
			continue
		}
		p.slots[i].conn = conn
	}
	conns := p.membersLocked()
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		if conn.State() == StateConnected {
			continue
		}
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			if err := c.Connect(); err != nil {
				poolLogger.Warningf("[%s] setup connect failed: %v", c.ID(), err)
			}
		}(conn)
	}
	wg.Wait()

	connected := p.ConnectedCount()
	poolLogger.Infof("pool ready: %d/%d connections established", connected, p.Size())
	return connected
}

// Close terminates every connection and empties all seats. The pool keeps
// its capacity and can be set up again.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		if p.slots[i].conn != nil {
			_ = p.slots[i].conn.Close()
			p.slots[i].conn = nil
		}
	}
}

// --------------------------------------------------------------------------
// Acquire / Release
// --------------------------------------------------------------------------

// Acquire returns a connection for one logical operation. It prefers an
// idle Connected seat, then fills an empty seat, then revives a dead one.
// When every Connected member is busy it hands out the least-loaded one;
// ErrNoAvailableConnections is reserved for a pool with no Connected member
// left after revival attempts. Acquire never blocks.
func (p *Pool) Acquire() (*Connection, error) {
	if conn := p.acquireIdle(); conn != nil {
		return conn, nil
	}
	if conn, err := p.acquireEmpty(); conn != nil || err != nil {
		return conn, err
	}
	if conn := p.acquireDead(); conn != nil {
		return conn, nil
	}
	if conn := p.acquireShared(); conn != nil {
		return conn, nil
	}
	return nil, common.ErrNoAvailableConnections
}

// acquireIdle claims a Connected seat with no pending operations
func (p *Pool) acquireIdle() *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		conn := p.slots[i].conn
		if conn != nil && conn.State() == StateConnected && conn.Pending() == 0 {
			return p.claimLocked(i)
		}
	}
	return nil
}

// acquireEmpty fills the first never-used seat, dialing outside the pool
// lock. The seat is claimed before the dial so concurrent acquires do not
// race onto it; a failed dial releases the seat and reports no connection
// so the caller can fall through to the remaining strategies.
func (p *Pool) acquireEmpty() (*Connection, error) {
	p.mu.Lock()
	seat := -1
	for i := range p.slots {
		if p.slots[i].conn == nil {
			seat = i
			break
		}
	}
	if seat == -1 {
		p.mu.Unlock()
		return nil, nil
	}
	conn, err := p.factory()
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.slots[seat].conn = conn
	claimed := p.claimLocked(seat)
	p.mu.Unlock()

	if err := claimed.Connect(); err != nil {
		poolLogger.Warningf("[%s] lazy connect failed: %v", claimed.ID(), err)
		p.Release(claimed)
		return nil, nil
	}
	return claimed, nil
}

// acquireDead revives an unloaded Broken or Disconnected seat
func (p *Pool) acquireDead() *Connection {
	p.mu.Lock()
	seat := -1
	for i := range p.slots {
		conn := p.slots[i].conn
		if conn != nil && conn.State() != StateConnected && conn.Pending() == 0 {
			seat = i
			break
		}
	}
	if seat == -1 {
		p.mu.Unlock()
		return nil
	}
	claimed := p.claimLocked(seat)
	p.mu.Unlock()

	if err := claimed.TryReconnect(); err != nil {
		poolLogger.Warningf("[%s] revival failed: %v", claimed.ID(), err)
		p.Release(claimed)
		return nil
	}
	return claimed
}

// acquireShared hands out the least-loaded Connected member even though it
// already carries operations; Connection.RoundTrip serializes them
func (p *Pool) acquireShared() *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	best := -1
	for i := range p.slots {
		conn := p.slots[i].conn
		if conn == nil || conn.State() != StateConnected {
			continue
		}
		if best == -1 || conn.Pending() < p.slots[best].conn.Pending() {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	return p.claimLocked(best)
}

func (p *Pool) claimLocked(i int) *Connection {
	p.slots[i].conn.pending.Inc()
	return p.slots[i].conn
}

// Release returns a connection obtained from Acquire. Releasing a
// connection the pool does not own is a no-op.
func (p *Pool) Release(conn *Connection) {
	if conn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		if p.slots[i].conn == conn {
			conn.pending.Dec()
			return
		}
	}
}

// --------------------------------------------------------------------------
// Maintenance
// --------------------------------------------------------------------------

// Reconnect re-dials every member that is not currently Connected, in
// parallel, and returns the number of Connected members afterwards. Members
// another goroutine restores first are left alone.
func (p *Pool) Reconnect() int {
	p.mu.Lock()
	var stale []*Connection
	for i := range p.slots {
		conn := p.slots[i].conn
		if conn != nil && conn.State() != StateConnected {
			stale = append(stale, conn)
		}
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range stale {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			if err := c.TryReconnect(); err != nil {
				poolLogger.Warningf("[%s] reconnect failed: %v", c.ID(), err)
			}
		}(conn)
	}
	wg.Wait()

	return p.ConnectedCount()
}

// CleanupBroken closes and empties every unloaded Broken seat so later
// Acquires start from a fresh dial. It returns the number of seats cleaned.
func (p *Pool) CleanupBroken() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cleaned := 0
	for i := range p.slots {
		conn := p.slots[i].conn
		if conn != nil && conn.State() == StateBroken && conn.Pending() == 0 {
			_ = conn.Close()
			p.slots[i].conn = nil
			cleaned++
		}
	}
	return cleaned
}

// ExtendBySize grows the pool capacity by n empty seats
func (p *Pool) ExtendBySize(n int) error {
	if n < 1 {
		return fmt.Errorf("extend size must be positive, got %d", n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots = append(p.slots, make([]slot, n)...)
	return nil
}

// Reduce shrinks the pool capacity by n seats, discarding broken and empty
// seats first, then idle connected ones. It fails when that many seats are
// loaded or when the pool would drop below one seat.
func (p *Pool) Reduce(n int) error {
	if n < 1 {
		return fmt.Errorf("reduce size must be positive, got %d", n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.slots)-n < 1 {
		return fmt.Errorf("cannot reduce pool of %d by %d", len(p.slots), n)
	}

	// rank seats by how cheap they are to discard
	discard := func(keepConnected bool) {
		for i := 0; i < len(p.slots) && n > 0; i++ {
			conn := p.slots[i].conn
			if conn != nil && conn.Pending() > 0 {
				continue
			}
			if !keepConnected && conn != nil && conn.State() == StateConnected {
				continue
			}
			if conn != nil {
				_ = conn.Close()
			}
			p.slots = append(p.slots[:i], p.slots[i+1:]...)
			i--
			n--
		}
	}
	discard(false) // empty and broken seats
	discard(true)  // then idle connected ones

	if n > 0 {
		return fmt.Errorf("%d connections still in use, cannot reduce further", n)
	}
	return nil
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

func (p *Pool) membersLocked() []*Connection {
	conns := make([]*Connection, 0, len(p.slots))
	for i := range p.slots {
		if p.slots[i].conn != nil {
			conns = append(conns, p.slots[i].conn)
		}
	}
	return conns
}

// Size returns the pool capacity
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// ConnectedCount returns the number of members in the Connected state
func (p *Pool) ConnectedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for i := range p.slots {
		if p.slots[i].conn != nil && p.slots[i].conn.State() == StateConnected {
			count++
		}
	}
	return count
}

// BrokenCount returns the number of members in the Broken state
func (p *Pool) BrokenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for i := range p.slots {
		if p.slots[i].conn != nil && p.slots[i].conn.State() == StateBroken {
			count++
		}
	}
	return count
}

// IsWorking reports whether at least one member is Connected
func (p *Pool) IsWorking() bool {
	return p.ConnectedCount() > 0
}

// IsEmpty reports whether no seat holds a connection yet
func (p *Pool) IsEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		if p.slots[i].conn != nil {
			return false
		}
	}
	return true
}

// IsFull reports whether every seat holds a Connected member
func (p *Pool) IsFull() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		if p.slots[i].conn == nil || p.slots[i].conn.State() != StateConnected {
			return false
		}
	}
	return true
}
