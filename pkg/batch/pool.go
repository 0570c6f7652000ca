// Package batch runs invertibility-condition queries across a pool of
// workers and cross-checks each against the brute-force oracle, recording
// disagreements: a buffered task channel, a fixed goroutine pool draining
// it, atomic progress counters, and a ticker-driven progress reporter.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oisee/z80-optimizer/internal/brute"
	"github.com/oisee/z80-optimizer/pkg/domain"
	"github.com/oisee/z80-optimizer/pkg/invert"
	"github.com/oisee/z80-optimizer/pkg/result"
)

// Query is one invertibility check to run and verify.
type Query struct {
	invert.Query
	Width uint32
	Const bool // true to check the const-bit IC, false for the plain IC
}

// Pool manages parallel verification workers.
type Pool struct {
	NumWorkers int
	Results    *result.Table
	checked    atomic.Int64
	mismatches atomic.Int64
}

// NewPool creates a pool with the given number of workers (0 selects
// runtime.NumCPU()).
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{
		NumWorkers: numWorkers,
		Results:    result.NewTable(),
	}
}

// Stats returns progress counters.
func (p *Pool) Stats() (checked, mismatches int64) {
	return p.checked.Load(), p.mismatches.Load()
}

// RunQueries verifies every query against the brute-force oracle,
// distributing work across the pool's workers. Returns early (leaving
// remaining queries unprocessed) if ctx is cancelled. verbose enables a
// periodic progress line.
func (p *Pool) RunQueries(ctx context.Context, queries []Query, verbose bool) {
	total := int64(len(queries))
	ch := make(chan Query, len(queries))
	for _, q := range queries {
		ch <- q
	}
	close(ch)

	done := make(chan struct{})
	startTime := time.Now()
	if verbose {
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					checked := p.checked.Load()
					mismatches := p.mismatches.Load()
					elapsed := time.Since(startTime)
					pct := float64(checked) / float64(total) * 100
					fmt.Printf("  [%s] %d/%d queries (%.1f%%) | %d mismatches\n",
						elapsed.Round(time.Second), checked, total, pct, mismatches)
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range ch {
				select {
				case <-ctx.Done():
					return
				default:
				}
				p.processQuery(q)
			}
		}()
	}
	wg.Wait()
	close(done)
}

func (p *Pool) processQuery(q Query) {
	p.checked.Add(1)
	p.Results.IncChecked(1)

	var got, want bool
	if q.Const {
		got = invert.IsInvConst(q.Query)
		domStr := ""
		if q.X != nil {
			domStr = domain.ToChar(*q.X)
			want = brute.InvertibleConst(q.Op, q.PosX, q.T, q.S, *q.X, q.Width)
		}
		if got == want {
			return
		}
		p.mismatches.Add(1)
		p.Results.Add(result.Mismatch{
			Op: q.Op.String(), PosX: q.PosX, Const: true,
			Domain: domStr, T: q.T.String(), S: q.S.String(), Width: q.Width,
			Got: got, Expected: want,
		})
		return
	}

	got = invert.IsInv(q.Query)
	want = brute.Invertible(q.Op, q.PosX, q.T, q.S, q.Width)
	if got == want {
		return
	}
	p.mismatches.Add(1)
	p.Results.Add(result.Mismatch{
		Op: q.Op.String(), PosX: q.PosX, Const: false,
		T: q.T.String(), S: q.S.String(), Width: q.Width,
		Got: got, Expected: want,
	})
}
