// Package wheel implements mod-30 wheel trial division, used to find
// prime factors of a bit-vector value (and, via GetFactor, a divisor
// consistent with a target domain). The invertibility checks in
// pkg/invert do not call this package.
package wheel

import (
	"github.com/oisee/z80-optimizer/pkg/bv"
	"github.com/oisee/z80-optimizer/pkg/domain"
)

// wheelIncrements are the mod-30 wheel's successive trial-divisor deltas,
// skipping multiples of 2, 3 and 5 after the initial pass.
var wheelIncrements = [11]uint64{1, 2, 2, 4, 2, 4, 2, 4, 6, 2, 6}

// Factorizer produces successive prime factors of a residual numerator
// via mod-30 wheel trial division, starting at 2.
type Factorizer struct {
	num   bv.BV
	fact  bv.BV
	pos   int
	limit uint64
	done  bool
}

// NewFactorizer begins factoring n, stopping after limit trial-division
// iterations (0 means unbounded).
func NewFactorizer(n bv.BV, limit uint64) *Factorizer {
	w := n.Width()
	return &Factorizer{
		num:   n,
		fact:  bv.FromUint64(2, w),
		pos:   0,
		limit: limit,
	}
}

// Next returns the next factor of the residual numerator, or (zero, false)
// once factoring is complete (the numerator has been fully reduced, the
// iteration limit was hit, or trial-divisor arithmetic overflowed).
func (wf *Factorizer) Next() (bv.BV, bool) {
	if wf.done {
		return bv.BV{}, false
	}

	w := wf.num.Width()
	var iterations uint64
	for {
		iterations++
		if wf.limit != 0 && iterations > wf.limit {
			wf.done = true
			return bv.BV{}, false
		}

		// sqrt(num) is the largest factor worth trying; beyond it the
		// residual numerator is itself prime (or 1).
		if wf.fact.Mul(wf.fact).Compare(wf.num) > 0 {
			res := wf.num
			wf.done = true
			return res, true
		}

		quot, rem := wf.num.UdivURem(wf.fact)
		if rem.IsZero() {
			res := wf.fact
			wf.num = quot
			return res, true
		}

		next := wf.fact.Add(bv.FromUint64(wheelIncrements[wf.pos], w))
		overflowed := next.Compare(wf.fact) <= 0
		wf.fact = next
		if wf.pos == 10 {
			wf.pos = 3
		} else {
			wf.pos++
		}
		if overflowed {
			wf.done = true
			return bv.BV{}, false
		}
	}
}

// GetFactor drives a Factorizer over num looking for a factor that is
// strictly greater than exclMin (if given) and consistent with x's fixed
// bits (if given). Returns (zero, false) if no such factor is found
// within limit iterations.
func GetFactor(num bv.BV, x *domain.Domain, exclMin *bv.BV, limit uint64) (bv.BV, bool) {
	wf := NewFactorizer(num, limit)
	for {
		f, ok := wf.Next()
		if !ok {
			return bv.BV{}, false
		}
		if exclMin != nil && f.Compare(*exclMin) <= 0 {
			continue
		}
		if x != nil && !domain.CheckFixedBits(*x, f) {
			continue
		}
		return f, true
	}
}
