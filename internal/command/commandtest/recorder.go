// Package commandtest provides a recording command.Runner for tests.
package commandtest

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/deploybuilder/internal/command"
)

// Recorder is a command.Runner that records invocations and returns
// preconfigured results instead of spawning processes.
type Recorder struct {
	mu      sync.Mutex
	calls   []command.Spec
	results map[string]error
	hooks   map[string]func(command.Spec)
}

// NewRecorder returns a Recorder where every command succeeds.
func NewRecorder() *Recorder {
	return &Recorder{
		results: make(map[string]error),
		hooks:   make(map[string]func(command.Spec)),
	}
}

// FailWith makes every invocation of name return err.
func (r *Recorder) FailWith(name string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[name] = err
	return r
}

// OnRun registers a side effect (e.g. writing output files) for name.
func (r *Recorder) OnRun(name string, fn func(command.Spec)) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = fn
	return r
}

// Run implements command.Runner.
func (r *Recorder) Run(_ context.Context, spec command.Spec) error {
	r.mu.Lock()
	r.calls = append(r.calls, spec)
	hook := r.hooks[spec.Name]
	err := r.results[spec.Name]
	r.mu.Unlock()

	if hook != nil && err == nil {
		hook(spec)
	}
	return err
}

// Calls returns a copy of the recorded invocations.
func (r *Recorder) Calls() []command.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]command.Spec, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many times name was invoked.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}
