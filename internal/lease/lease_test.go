package lease

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestAcquireIsExclusive(t *testing.T) {
	m, err := NewManager("", nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	l, err := m.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := m.Acquire(context.Background(), 1); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	other, err := m.Acquire(context.Background(), 2)
	if err != nil {
		t.Fatalf("other session should be free: %v", err)
	}
	other.Release()

	l.Release()
	l.Release() // idempotent
	if m.Held(1) {
		t.Fatal("lease still held after release")
	}
	again, err := m.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	again.Release()
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	m, _ := NewManager("", nil)
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Acquire(context.Background(), 7); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestCancelStopsHolder(t *testing.T) {
	m, _ := NewManager("", nil)
	if m.Cancel(3) {
		t.Fatal("cancel without lease should report false")
	}
	l, err := m.Acquire(context.Background(), 3)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !m.Cancel(3) {
		t.Fatal("cancel should report true")
	}
	select {
	case <-l.Ctx.Done():
	default:
		t.Fatal("lease context not canceled")
	}
	l.Release()
}

func TestFileLockAcrossManagers(t *testing.T) {
	dir := t.TempDir()
	a, err := NewManager(dir, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	b, _ := NewManager(dir, nil)

	l, err := a.Acquire(context.Background(), 9)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := b.Acquire(context.Background(), 9); !errors.Is(err, ErrBusy) {
		t.Fatalf("second manager should see the file lock, got %v", err)
	}
	l.Release()
	l2, err := b.Acquire(context.Background(), 9)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	l2.Release()
}
