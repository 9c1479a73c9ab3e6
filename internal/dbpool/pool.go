// Package dbpool implements the connection pool: pop/push/close/size/
// available, atomic slot-claim, lazy connection creation, and
// stale-connection revalidation.
//
// The slot-claim and idle-set logic is implemented explicitly atop
// *sql.DB.Conn rather than handed off to driver-level pooling, so the
// pool's concurrency properties stay directly testable.
package dbpool

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/semitexa/semitexa/internal/errs"
)

// Connection is a claimed pool slot wrapping one *sql.Conn.
type Connection struct {
	Conn *sql.Conn
	pool *Pool
}

// Pool is a fixed-upper-bound, lazily-growing connection pool.
type Pool struct {
	db      *sql.DB
	limit   int32
	created atomic.Int32
	idle    chan *Connection
	closed  atomic.Bool
}

// New returns a pool bounded at limit connections. No connections are
// opened until the first Pop.
func New(db *sql.DB, limit int) *Pool {
	return &Pool{db: db, limit: int32(limit), idle: make(chan *Connection, limit)}
}

func (p *Pool) Size() int      { return int(p.limit) }
func (p *Pool) Available() int { return len(p.idle) }

// DB exposes the underlying *sql.DB for one-off, non-suspension-point
// operations that must run outside the pool contract (schema introspection
// at sync startup, matching the teacher's plain db.Query usage in
// source_mysql.go).
func (p *Pool) DB() *sql.DB { return p.db }

// Pop acquires a connection, waiting up to timeout if the pool is at
// capacity and none are idle. Stale idle connections are revalidated with
// SELECT 1 and silently replaced; the slot count is not incremented on
// replacement.
func (p *Pool) Pop(ctx context.Context, timeout time.Duration) (*Connection, error) {
	if p.closed.Load() {
		return nil, errs.New(errs.PoolTimeout, "pool is closed")
	}

	// Fast path: an idle connection is immediately available.
	select {
	case c, ok := <-p.idle:
		if !ok {
			return nil, errs.New(errs.PoolTimeout, "pool is closed")
		}
		return p.revalidateOrReplace(ctx, c)
	default:
	}

	// Slot claim must be atomic: CAS the created counter against the limit
	// before creating, so two concurrent Pops cannot both cross the bound.
	if p.tryClaimSlot() {
		conn, err := p.openConnection(ctx)
		if err != nil {
			p.created.Add(-1) // release the claimed slot on open failure
			return nil, err
		}
		return conn, nil
	}

	// At capacity: wait for a push, bounded by timeout.
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case c, ok := <-p.idle:
		if !ok {
			return nil, errs.New(errs.PoolTimeout, "pool is closed")
		}
		return p.revalidateOrReplace(ctx, c)
	case <-deadline.C:
		return nil, errs.New(errs.PoolTimeout, "timed out waiting for a connection")
	case <-ctx.Done():
		return nil, errs.Wrap(errs.PoolTimeout, "context cancelled waiting for a connection", ctx.Err())
	}
}

func (p *Pool) tryClaimSlot() bool {
	for {
		cur := p.created.Load()
		if cur >= p.limit {
			return false
		}
		if p.created.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (p *Pool) openConnection(ctx context.Context) (*Connection, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ConnLost, "open connection", err)
	}
	return &Connection{Conn: conn, pool: p}, nil
}

// revalidateOrReplace validates a previously-idle connection with SELECT 1
// and transparently replaces it on failure, without touching the slot count.
// If no replacement connection can be opened, the slot is released.
func (p *Pool) revalidateOrReplace(ctx context.Context, c *Connection) (*Connection, error) {
	if _, err := c.Conn.ExecContext(ctx, "SELECT 1"); err != nil {
		_ = c.Conn.Close()
		fresh, openErr := p.db.Conn(ctx)
		if openErr != nil {
			p.created.Add(-1) // the stale slot could not be replaced; release it
			return nil, errs.Wrap(errs.ConnLost, "replace stale connection", openErr)
		}
		return &Connection{Conn: fresh, pool: p}, nil
	}
	return c, nil
}

// Push returns a connection to the idle set. Pushing into a closed pool
// discards the connection.
func (p *Pool) Push(c *Connection) {
	if p.closed.Load() {
		_ = c.Conn.Close()
		return
	}
	select {
	case p.idle <- c:
	default:
		// idle set is already at capacity (shouldn't happen under the
		// created<=limit invariant); drop rather than block the caller.
		_ = c.Conn.Close()
		p.created.Add(-1)
	}
}

// Close discards all idle connections and fails all future Pops.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.idle)
	for c := range p.idle {
		_ = c.Conn.Close()
	}
	return nil
}
