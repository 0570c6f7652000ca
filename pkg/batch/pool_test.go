package batch

import (
	"context"
	"testing"

	"github.com/oisee/z80-optimizer/pkg/bv"
	"github.com/oisee/z80-optimizer/pkg/domain"
	"github.com/oisee/z80-optimizer/pkg/invert"
)

func TestRunQueriesNoMismatchesForSoundOps(t *testing.T) {
	var queries []Query
	for sv := uint64(0); sv < 8; sv++ {
		for tv := uint64(0); tv < 8; tv++ {
			s := bv.FromUint64(sv, 3)
			tt := bv.FromUint64(tv, 3)
			queries = append(queries, Query{
				Query: invert.Query{Op: invert.OpAnd, T: tt, S: s},
				Width: 3,
			})
		}
	}
	p := NewPool(2)
	p.RunQueries(context.Background(), queries, false)
	if got := p.Results.Len(); got != 0 {
		t.Errorf("expected 0 mismatches for the sound 'and' IC, got %d: %+v", got, p.Results.Mismatches())
	}
	checked, mismatches := p.Stats()
	if checked != int64(len(queries)) {
		t.Errorf("checked: got %d, want %d", checked, len(queries))
	}
	if mismatches != 0 {
		t.Errorf("mismatches: got %d, want 0", mismatches)
	}
}

func TestRunQueriesDetectsUdivConstStub(t *testing.T) {
	d := domain.NewFixedUint64(0, 3)
	s := bv.FromUint64(0, 3)
	tt := bv.FromUint64(5, 3) // 0/0 cannot equal 5 under any domain-consistent x
	q := Query{
		Query: invert.Query{Op: invert.OpUdiv, T: tt, S: s, X: &d},
		Width: 3,
		Const: true,
	}
	p := NewPool(1)
	p.RunQueries(context.Background(), []Query{q}, false)
	if p.Results.Len() != 1 {
		t.Fatalf("expected the known-unsound udiv_const stub to be flagged, got %d mismatches", p.Results.Len())
	}
}

func TestRunQueriesRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var queries []Query
	for i := 0; i < 100; i++ {
		queries = append(queries, Query{
			Query: invert.Query{Op: invert.OpAdd, T: bv.Zero(4), S: bv.Zero(4)},
			Width: 4,
		})
	}
	p := NewPool(2)
	p.RunQueries(ctx, queries, false)
	checked, _ := p.Stats()
	if checked >= int64(len(queries)) {
		t.Errorf("expected cancellation to short-circuit processing, but all %d queries ran", checked)
	}
}
