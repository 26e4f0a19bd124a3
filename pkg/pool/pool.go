package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"skycast/pkg/core"
)

// Conn is one checked-out handle to the backing store. It belongs to exactly
// one caller between Acquire and Release.
type Conn struct {
	id     int64
	conn   *sql.Conn
	broken bool
}

func (c *Conn) ID() int64 { return c.id }

// MarkBroken tells the pool to discard this handle on release instead of
// returning it to the free set.
func (c *Conn) MarkBroken() { c.broken = true }

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

// Pool hands out a fixed number of dedicated connections. The free + in-use
// total stays constant for the life of the pool: a broken handle is replaced,
// never silently dropped.
type Pool struct {
	db             *sql.DB
	size           int
	free           chan *Conn
	acquireTimeout time.Duration

	nextID atomic.Int64
	inUse  atomic.Int64
	closed atomic.Bool
	stop   chan struct{}
}

func New(db *sql.DB, size int, acquireTimeout time.Duration) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool: size must be positive, got %d", size)
	}
	p := &Pool{
		db:             db,
		size:           size,
		free:           make(chan *Conn, size),
		acquireTimeout: acquireTimeout,
		stop:           make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := 0; i < size; i++ {
		c, err := p.dial(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: opening connection %d: %w", i, err)
		}
		p.free <- c
	}
	return p, nil
}

func (p *Pool) dial(ctx context.Context) (*Conn, error) {
	sc, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &Conn{id: p.nextID.Add(1), conn: sc}, nil
}

// Acquire blocks until a connection frees up or the context deadline fires.
// If the context carries no deadline, the pool's configured timeout applies.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.closed.Load() {
		return nil, core.ErrPoolClosed
	}

	if _, ok := ctx.Deadline(); !ok && p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	select {
	case c := <-p.free:
		p.inUse.Add(1)
		return c, nil
	case <-p.stop:
		return nil, core.ErrPoolClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", core.ErrAcquireTimeout, ctx.Err())
	}
}

// Release returns a handle to the free set. Must be called exactly once per
// successful Acquire; WithConn is the preferred way to guarantee that.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}
	p.inUse.Add(-1)

	if p.closed.Load() {
		c.conn.Close()
		return
	}
	if c.broken {
		go p.replace(c)
		return
	}
	p.free <- c
}

// replace discards a broken handle and dials a fresh one so the pool's total
// never shrinks. Runs off the caller's path; retries until the store answers.
func (p *Pool) replace(old *Conn) {
	old.conn.Close()
	log.Printf("[POOL] discarded broken connection id=%d", old.id)

	for {
		if p.closed.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c, err := p.dial(ctx)
		cancel()
		if err == nil {
			log.Printf("[POOL] replacement connection id=%d ready", c.id)
			select {
			case p.free <- c:
			case <-p.stop:
				c.conn.Close()
			}
			return
		}
		log.Printf("[POOL] replacement dial failed: %v", err)
		select {
		case <-time.After(time.Second):
		case <-p.stop:
			return
		}
	}
}

// WithConn runs fn with an acquired connection and releases it on every exit
// path. Driver-level connection failures mark the handle broken so it gets
// replaced instead of poisoning the free set.
func (p *Pool) WithConn(ctx context.Context, fn func(*Conn) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(c)

	if err := fn(c); err != nil {
		if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
			c.MarkBroken()
		}
		return err
	}
	return nil
}

// Stats reports free and in-use counts for telemetry.
func (p *Pool) Stats() (free, inUse int) {
	return len(p.free), int(p.inUse.Load())
}

func (p *Pool) Size() int { return p.size }

func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.stop)
	for {
		select {
		case c := <-p.free:
			c.conn.Close()
		default:
			return
		}
	}
}
