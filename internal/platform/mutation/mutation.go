// Package mutation drives remote mutations and form submissions and keeps
// their observable state.
//
// Every attempt gets a generation number. Starting a new attempt, or
// resetting, cancels the context of the attempt in flight and bumps the
// generation, so a superseded attempt never writes state or fires callbacks.
package mutation

import (
	"context"
	"sync"
)

// Func performs one mutation.
type Func[P, R any] func(ctx context.Context, params P) (R, error)

// Options configures a Mutation.
type Options[P, R any] struct {
	Mutate    Func[P, R]
	OnSuccess func(R)
	OnError   func(error)
	// OnChange receives a snapshot after every state change.
	OnChange func(State[R])
}

// State is a snapshot of a mutation. Data is nil until an attempt succeeds.
type State[R any] struct {
	Loading bool
	Data    *R
}

// Mutation tracks the loading flag and last result of a mutation function.
type Mutation[P, R any] struct {
	opts Options[P, R]

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	loading bool
	data    *R
}

// New returns an idle mutation.
func New[P, R any](opts Options[P, R]) *Mutation[P, R] {
	return &Mutation[P, R]{opts: opts}
}

// Mutate runs the mutation function and returns its result. The state is
// updated only while this call is the latest attempt.
func (m *Mutation[P, R]) Mutate(ctx context.Context, params P) (R, error) {
	ctx, gen, cancel := m.start(ctx, nil)
	defer cancel()
	return m.run(ctx, gen, params)
}

// Reset cancels any attempt in flight and returns to the idle state.
func (m *Mutation[P, R]) Reset() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
	m.notify()
}

// State returns a snapshot of the current state.
func (m *Mutation[P, R]) State() State[R] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Mutation[P, R]) stateLocked() State[R] {
	s := State[R]{Loading: m.loading}
	if m.data != nil {
		data := *m.data
		s.Data = &data
	}
	return s
}

func (m *Mutation[P, R]) resetLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	m.loading = false
	m.data = nil
}

// start supersedes the current attempt. clear runs under the lock after the
// reset so callers can clear state they own in the same step.
func (m *Mutation[P, R]) start(parent context.Context, clear func()) (context.Context, uint64, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	m.resetLocked()
	if clear != nil {
		clear()
	}
	m.cancel = cancel
	gen := m.gen
	m.mu.Unlock()

	return ctx, gen, cancel
}

// update runs fn under the lock when gen is still the latest attempt.
func (m *Mutation[P, R]) update(gen uint64, fn func()) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	fn()
	m.mu.Unlock()
	m.notify()
	return true
}

func (m *Mutation[P, R]) run(ctx context.Context, gen uint64, params P) (R, error) {
	m.update(gen, func() { m.loading = true })

	result, err := m.opts.Mutate(ctx, params)

	current := m.update(gen, func() {
		m.loading = false
		if err == nil {
			m.data = &result
		}
	})
	if !current {
		return result, err
	}
	if err != nil {
		if m.opts.OnError != nil {
			m.opts.OnError(err)
		}
		return result, err
	}
	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(result)
	}
	return result, nil
}

func (m *Mutation[P, R]) notify() {
	if m.opts.OnChange != nil {
		m.opts.OnChange(m.State())
	}
}
