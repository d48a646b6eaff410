// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package renderpool runs independent render jobs with bounded parallelism.
//
// Every (variant, assignment) render is independent of every other, so the
// pool imposes no ordering on execution -- callers get determinism by indexing
// results into a pre-allocated slice, and error reporting is deterministic
// because Run returns the failure with the lowest job index.
package renderpool

import (
	"runtime"
	"sync"
)

// Pool bounds how many render jobs run concurrently.
type Pool struct {
	maxParallelism int
}

// New returns a Pool running up to maxParallelism jobs at once. Values <= 0
// select runtime.NumCPU().
func New(maxParallelism int) *Pool {
	if maxParallelism <= 0 {
		maxParallelism = runtime.NumCPU()
	}
	return &Pool{maxParallelism: maxParallelism}
}

// MaxParallelism this pool was configured with.
func (p *Pool) MaxParallelism() int { return p.maxParallelism }

// Run executes job(0) .. job(n-1) across the pool's workers and waits for all
// of them. Jobs keep running even after one fails -- each is a bounded,
// in-memory computation, so draining is cheaper than cancellation machinery.
//
// If any jobs failed, Run returns the error of the failed job with the lowest
// index, so repeated runs over the same input report the same error.
func (p *Pool) Run(n int, job func(ii int) error) error {
	if n <= 0 {
		return nil
	}
	goroutines := p.maxParallelism
	if goroutines > n {
		goroutines = n
	}
	if goroutines == 1 {
		for ii := 0; ii < n; ii++ {
			if err := job(ii); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, n)
	indices := make(chan int, goroutines)
	var wg sync.WaitGroup
	for ii := 0; ii < goroutines; ii++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jj := range indices {
				errs[jj] = job(jj)
			}
		}()
	}
	for ii := 0; ii < n; ii++ {
		indices <- ii
	}
	close(indices)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
