// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// PingChecker reports unhealthy when ping fails.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker wraps a ping function such as a Redis client's.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// FuncChecker adapts a function to Checker.
type FuncChecker struct {
	name  string
	check func(ctx context.Context) CheckResult
}

func NewFuncChecker(name string, check func(ctx context.Context) CheckResult) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult { return c.check(ctx) }
