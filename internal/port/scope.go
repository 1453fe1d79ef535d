// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package port

import (
	"sync"

	"github.com/ManuGH/msgport/internal/transport"
)

// Factory returns a function that builds a dispatcher over getTarget() on
// first call and returns that same dispatcher afterwards.
func Factory(getTarget func() transport.Target, opts ...Option) func() *Dispatcher {
	return sync.OnceValue(func() *Dispatcher {
		return New(getTarget(), opts...)
	})
}

type scopeRole int

const (
	roleSelf scopeRole = iota
	roleParent
	roleTop
	roleCount
)

// scope holds the process-wide targets and their memoized dispatchers.
type scope struct {
	mu        sync.Mutex
	targets   [roleCount]transport.Target
	instances [roleCount]*Dispatcher
	loopback  *transport.Loopback
}

var processScope scope

// Self returns the dispatcher bound to this process's own scope.
func Self() *Dispatcher { return processScope.get(roleSelf) }

// Parent returns the dispatcher bound to the parent scope. A top-level
// process is its own parent.
func Parent() *Dispatcher { return processScope.get(roleParent) }

// Top returns the dispatcher bound to the top-level scope.
func Top() *Dispatcher { return processScope.get(roleTop) }

// SetScopeTargets installs the targets used by Self, Parent and Top and
// drops dispatchers built for the previous ones. A nil target falls back
// to the process loopback.
func SetScopeTargets(self, parent, top transport.Target) {
	processScope.reset([roleCount]transport.Target{self, parent, top})
}

// ResetScope drops memoized dispatchers and restores the default targets.
func ResetScope() {
	processScope.reset([roleCount]transport.Target{})
}

func (s *scope) get(role scopeRole) *Dispatcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := s.instances[role]; d != nil {
		return d
	}
	target := s.targets[role]
	if target == nil {
		if s.loopback == nil {
			s.loopback = transport.NewLoopback(0)
		}
		target = s.loopback
	}
	d := New(target)
	s.instances[role] = d
	return d
}

// reset swaps in the new targets under the lock and closes the old
// dispatchers after releasing it, so a listener of one of them may reset.
func (s *scope) reset(targets [roleCount]transport.Target) {
	s.mu.Lock()
	old := s.instances
	lb := s.loopback
	s.instances = [roleCount]*Dispatcher{}
	s.loopback = nil
	s.targets = targets
	s.mu.Unlock()

	for _, d := range old {
		if d != nil {
			_ = d.Close()
		}
	}
	if lb != nil {
		_ = lb.Close()
	}
}
