// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"

	"github.com/jllopis/colloquy/pkg/archive"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/persona"
	"github.com/jllopis/colloquy/pkg/resilience"
)

// RegistryChecker reports the persona registry as healthy when it can run a
// session.
func RegistryChecker(reg *persona.Registry) core.HealthChecker {
	return core.NewFunctionHealthChecker(func(context.Context) core.HealthResult {
		if reg == nil || len(reg.Personas()) == 0 {
			return core.HealthResult{Status: core.HealthUnhealthy, Message: "no personas registered"}
		}
		return core.HealthResult{
			Status:  core.HealthHealthy,
			Message: fmt.Sprintf("%d personas and a moderator", len(reg.Personas())),
		}
	})
}

// BreakerChecker reports the live generator as degraded while its circuit
// breaker is not closed. A half-open breaker lets the next call through.
func BreakerChecker(cb *resilience.CircuitBreaker) core.HealthChecker {
	return core.NewFunctionHealthChecker(func(context.Context) core.HealthResult {
		switch st := cb.State(); st {
		case resilience.StateClosed:
			return core.HealthResult{Status: core.HealthHealthy, Message: "circuit closed"}
		case resilience.StateHalfOpen:
			return core.HealthResult{Status: core.HealthDegraded, Message: "circuit half-open, next call is a trial"}
		default:
			return core.HealthResult{Status: core.HealthDegraded, Message: "circuit " + string(st)}
		}
	})
}

// ArchiveChecker checks the archive with a one-row listing.
func ArchiveChecker(store archive.Store) core.HealthChecker {
	return core.NewFunctionHealthChecker(func(ctx context.Context) core.HealthResult {
		if _, err := store.List(ctx, archive.Filter{Limit: 1}); err != nil {
			return core.HealthResult{Status: core.HealthUnhealthy, Message: "archive unavailable", Error: err.Error()}
		}
		return core.HealthResult{Status: core.HealthHealthy, Message: "archive reachable"}
	})
}
