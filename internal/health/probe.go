package health

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/xerrors"
)

// Probe reports nil when healthy, otherwise an error whose message is the
// reason shown to the caller.
type Probe interface{ Check(context.Context) error }

type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	err := xerrors.New(reason)
	return func(context.Context) error { return err }
}

// All passes when every non-nil probe passes and returns the first failure.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Any passes when at least one non-nil probe passes. With none passing it
// returns the last failure.
func Any(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		var last error
		for _, p := range ps {
			if p == nil {
				continue
			}
			err := p.Check(ctx)
			if err == nil {
				return nil
			}
			last = err
		}
		if last == nil {
			return xerrors.New("no healthy probes")
		}
		return last
	}
}

// ShutdownGate is open until Set is called. The zero value is ready to use.
type ShutdownGate struct {
	draining atomic.Bool
	mu       sync.Mutex
	reason   string
}

// Set starts draining with reason.
func (g *ShutdownGate) Set(reason string) {
	g.mu.Lock()
	g.reason = reason
	g.mu.Unlock()
	g.draining.Store(true)
}

func (g *ShutdownGate) Clear() {
	g.draining.Store(false)
	g.mu.Lock()
	g.reason = ""
	g.mu.Unlock()
}

func (g *ShutdownGate) Draining() bool { return g.draining.Load() }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if !g.draining.Load() {
			return nil
		}
		g.mu.Lock()
		r := g.reason
		g.mu.Unlock()
		if r == "" {
			r = "draining"
		}
		return xerrors.New(r)
	}
}
