package pool

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"skycast/pkg/core"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestPool(t *testing.T, size int) (*Pool, *sql.DB) {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p, err := New(db, size, time.Second)
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	t.Cleanup(p.Close)
	return p, db
}

func TestAcquireReleaseInvariant(t *testing.T) {
	p, _ := newTestPool(t, 2)

	free, inUse := p.Stats()
	if free != 2 || inUse != 0 {
		t.Fatalf("initial stats free=%d inUse=%d, want 2/0", free, inUse)
	}

	a, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	b, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	free, inUse = p.Stats()
	if free != 0 || inUse != 2 {
		t.Fatalf("stats after acquires free=%d inUse=%d, want 0/2", free, inUse)
	}
	if free+inUse != p.Size() {
		t.Fatalf("free+inUse = %d, want constant %d", free+inUse, p.Size())
	}

	p.Release(a)
	p.Release(b)

	free, inUse = p.Stats()
	if free != 2 || inUse != 0 {
		t.Fatalf("stats after releases free=%d inUse=%d, want 2/0", free, inUse)
	}
}

func TestAcquireTimesOutAtDeadline(t *testing.T) {
	p, _ := newTestPool(t, 1)

	c, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer p.Release(c)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = p.Acquire(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, core.ErrAcquireTimeout) {
		t.Fatalf("expected ErrAcquireTimeout, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("Acquire blocked %v past its deadline", elapsed)
	}
}

func TestWithConnReleasesOnEveryPath(t *testing.T) {
	p, _ := newTestPool(t, 1)

	if err := p.WithConn(context.Background(), func(*Conn) error { return nil }); err != nil {
		t.Fatalf("WithConn: %v", err)
	}

	wantErr := errors.New("query exploded")
	if err := p.WithConn(context.Background(), func(*Conn) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("WithConn error = %v, want %v", err, wantErr)
	}

	free, inUse := p.Stats()
	if free != 1 || inUse != 0 {
		t.Fatalf("stats free=%d inUse=%d after error path, want 1/0", free, inUse)
	}
}

func TestBrokenConnectionIsReplaced(t *testing.T) {
	p, _ := newTestPool(t, 2)

	c, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	oldID := c.ID()
	c.MarkBroken()
	p.Release(c)

	// Replacement happens off the release path; wait for the total to
	// recover.
	deadline := time.Now().Add(2 * time.Second)
	for {
		free, inUse := p.Stats()
		if free+inUse == p.Size() && inUse == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pool never recovered: free=%d inUse=%d", free, inUse)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The replacement is a fresh handle, not the discarded one.
	seen := map[int64]bool{}
	for i := 0; i < p.Size(); i++ {
		c, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire after replacement: %v", err)
		}
		seen[c.ID()] = true
		defer p.Release(c)
	}
	if seen[oldID] {
		t.Fatal("discarded connection came back")
	}
}

func TestAcquireAfterClose(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	p, err := New(db, 1, time.Second)
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	p.Close()

	if _, err := p.Acquire(context.Background()); !errors.Is(err, core.ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	p, _ := newTestPool(t, 4)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				err := p.WithConn(context.Background(), func(*Conn) error {
					time.Sleep(time.Millisecond)
					return nil
				})
				if err != nil {
					t.Errorf("WithConn: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	free, inUse := p.Stats()
	if free != p.Size() || inUse != 0 {
		t.Fatalf("stats free=%d inUse=%d after stress, want %d/0", free, inUse, p.Size())
	}
}
