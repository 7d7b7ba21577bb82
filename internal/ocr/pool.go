package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Pool owns a fixed set of engines and lends each one to a single caller at a time.
//
// All engines are constructed up front by NewPool so that construction errors
// surface before any image is processed.
type Pool struct {
	idle chan Engine
	all  []Engine
}

// NewPool builds size engines with factory. If any construction fails, the
// engines built so far are closed and the error is returned.
func NewPool(size int, factory Factory) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}
	if factory == nil {
		return nil, errors.New("pool factory is nil")
	}

	p := &Pool{
		idle: make(chan Engine, size),
		all:  make([]Engine, 0, size),
	}
	for i := 0; i < size; i++ {
		e, err := factory()
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("create engine %d of %d: %w", i+1, size, err)
		}
		p.all = append(p.all, e)
		p.idle <- e
	}
	return p, nil
}

// Size returns the number of engines owned by the pool.
func (p *Pool) Size() int {
	return len(p.all)
}

// Acquire blocks until an engine is idle or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (Engine, error) {
	select {
	case e := <-p.idle:
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns an engine obtained from Acquire.
func (p *Pool) Release(e Engine) {
	p.idle <- e
}

// Close closes every engine. The pool must not be used afterwards.
func (p *Pool) Close() error {
	var errs []error
	for _, e := range p.all {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.all = nil
	return errors.Join(errs...)
}
