package ocr

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

type countingEngine struct {
	closed *atomic.Int32
}

func (e *countingEngine) Recognize(image.Image, geometry.Box, float64) ([]Word, error) {
	return nil, nil
}

func (e *countingEngine) Close() error {
	e.closed.Add(1)
	return nil
}

func TestNewPool_BuildsAllEngines(t *testing.T) {
	var built, closed atomic.Int32
	p, err := NewPool(3, func() (Engine, error) {
		built.Add(1)
		return &countingEngine{closed: &closed}, nil
	})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	if p.Size() != 3 || built.Load() != 3 {
		t.Fatalf("expected 3 engines, size=%d built=%d", p.Size(), built.Load())
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if closed.Load() != 3 {
		t.Errorf("expected 3 engines closed, got %d", closed.Load())
	}
}

func TestNewPool_ConstructionFailureClosesBuiltEngines(t *testing.T) {
	var n, closed atomic.Int32
	_, err := NewPool(3, func() (Engine, error) {
		if n.Add(1) == 3 {
			return nil, ErrEngineInit
		}
		return &countingEngine{closed: &closed}, nil
	})
	if !errors.Is(err, ErrEngineInit) {
		t.Fatalf("expected ErrEngineInit, got %v", err)
	}
	if closed.Load() != 2 {
		t.Errorf("expected 2 engines closed after failure, got %d", closed.Load())
	}
}

func TestNewPool_InvalidArgs(t *testing.T) {
	if _, err := NewPool(0, func() (Engine, error) { return nil, nil }); err == nil {
		t.Error("expected error for size 0")
	}
	if _, err := NewPool(1, nil); err == nil {
		t.Error("expected error for nil factory")
	}
}

func TestPool_AcquireIsExclusive(t *testing.T) {
	var closed atomic.Int32
	p, err := NewPool(2, func() (Engine, error) { return &countingEngine{closed: &closed}, nil })
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer p.Close()

	var inUse, maxInUse atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := p.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			cur := inUse.Add(1)
			for {
				prev := maxInUse.Load()
				if cur <= prev || maxInUse.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inUse.Add(-1)
			p.Release(e)
		}()
	}
	wg.Wait()

	if maxInUse.Load() > 2 {
		t.Errorf("more engines in use than the pool owns: %d", maxInUse.Load())
	}
}

func TestPool_AcquireHonorsContext(t *testing.T) {
	var closed atomic.Int32
	p, err := NewPool(1, func() (Engine, error) { return &countingEngine{closed: &closed}, nil })
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer p.Close()

	held, _ := p.Acquire(context.Background())
	defer p.Release(held)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}
