// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jllopis/colloquy/pkg/core"
)

// Result pairs a query with its session outcome.
type Result struct {
	Query   string
	Session *core.Session
	Err     error
}

// RunMany runs independent sessions with at most concurrency in flight.
// Results keep the order of queries. One failing session does not stop the
// others.
func (o *Orchestrator) RunMany(ctx context.Context, queries []string, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(queries))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, q := range queries {
		g.Go(func() error {
			s, err := o.Run(ctx, q)
			results[i] = Result{Query: q, Session: s, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
