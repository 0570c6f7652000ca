package invert

import (
	"github.com/oisee/z80-optimizer/pkg/bv"
	"github.com/oisee/z80-optimizer/pkg/domain"
)

// checkConstDomainBits reports whether the bits both d1 and d2 fix agree
// between the two domains.
func checkConstDomainBits(d1, d2 domain.Domain) bool {
	common := domain.FixedMask(d1).And(domain.FixedMask(d2))
	return common.And(d1.Lo).Eq(common.And(d2.Lo))
}

// IsInvAddConst matches the plain add IC: x = t - s must be consistent
// with x's fixed bits.
func IsInvAddConst(x domain.Domain, t, s bv.BV) bool {
	return domain.CheckFixedBits(x, t.Sub(s))
}

// IsInvAndConst refines IsInvAnd: the choice of x & s = t must also agree
// with x's fixed bits on the bits that s observes.
func IsInvAndConst(x domain.Domain, t, s bv.BV) bool {
	if !IsInvAnd(t, s) {
		return false
	}
	mask := domain.FixedMask(x)
	return s.And(x.Hi).And(mask).Eq(t.And(mask))
}

// IsInvConcatConst refines IsInvConcat for the operand that is the unknown
// concat target, requiring the known half to match t and the other half to
// be consistent with x's fixed bits.
func IsInvConcatConst(x domain.Domain, t, s bv.BV, posX uint8) bool {
	bwT := t.Width()
	bwX := domain.Width(x)
	if posX == 0 {
		th := t.Slice(bwT-1, bwT-bwX)
		tl := t.Slice(bwT-bwX-1, 0)
		return domain.CheckFixedBits(x, th) && s.Eq(tl)
	}
	th := t.Slice(bwT-1, bwX)
	tl := t.Slice(bwX-1, 0)
	return domain.CheckFixedBits(x, tl) && s.Eq(th)
}

// IsInvEqConst refines IsInvEq: when t is true, x must equal s and that
// must be consistent with x's fixed bits; when t is false, x must be able
// to differ from s, which fails only when x is fully fixed to s.
func IsInvEqConst(x domain.Domain, t, s bv.BV) bool {
	if t.IsTrue() {
		return domain.CheckFixedBits(x, s)
	}
	return !domain.IsFixed(x) || !x.Lo.Eq(s)
}

// IsInvMulConst refines IsInvMul. When s is odd the unique solution
// x = s^-1 * t must be consistent with x's fixed bits. When s is even,
// trailing zero bits of s must not exceed those of t; the low width-tz(s)
// bits are pinned via the odd quotient and the high tz(s) bits are free.
func IsInvMulConst(x domain.Domain, t, s bv.BV) bool {
	if !IsInvMul(t, s) {
		return false
	}
	if s.IsZero() || !domain.HasFixedBits(x) {
		return true
	}
	if domain.IsFixed(x) {
		return x.Lo.Mul(s).Eq(t)
	}
	if s.IsOdd() {
		return domain.CheckFixedBits(x, s.ModInverse().Mul(t))
	}
	tz := s.TrailingZeros()
	if tz > t.TrailingZeros() {
		return false
	}
	w := s.Width()
	tmpS := s.SrlUint64(uint64(tz))
	tmpT := t.SrlUint64(uint64(tz))
	tmpX := tmpS.ModInverse().Mul(tmpT)
	maskLo := bv.Ones(w).SrlUint64(uint64(tz))
	maskHi := maskLo.Not()
	dTmp := domain.New(maskLo.And(tmpX), maskHi.Or(tmpX))
	return checkConstDomainBits(dTmp, x)
}

// IsInvSllConst refines IsInvSll. For posX == 0 both the high and low bits
// of a shift by s's known amount must be consistent with x's fixed bits.
// For posX == 1 (x is the shift amount), any shift in [0, width] that both
// reproduces t and is consistent with x's domain suffices.
func IsInvSllConst(x domain.Domain, t, s bv.BV, posX uint8) bool {
	w := t.Width()
	if posX == 0 {
		if !IsInvSll(t, s, posX) {
			return false
		}
		return x.Hi.Sll(s).And(t).Eq(t) && x.Lo.Sll(s).Or(t).Eq(t)
	}
	if x.Hi.Compare(bv.FromUint64(uint64(w), domain.Width(x))) >= 0 && t.IsZero() {
		return true
	}
	for i := uint64(0); i <= uint64(w); i++ {
		iv := bv.FromUint64(i, domain.Width(x))
		if !domain.CheckFixedBits(x, iv) {
			continue
		}
		if s.SllUint64(i).Eq(t) {
			return true
		}
	}
	return false
}

// IsInvSrlConst mirrors IsInvSllConst for the logical right shift.
func IsInvSrlConst(x domain.Domain, t, s bv.BV, posX uint8) bool {
	w := t.Width()
	if posX == 0 {
		if !IsInvSrl(t, s, posX) {
			return false
		}
		return x.Hi.Srl(s).And(t).Eq(t) && x.Lo.Srl(s).Or(t).Eq(t)
	}
	if x.Hi.Compare(bv.FromUint64(uint64(w), domain.Width(x))) >= 0 && t.IsZero() {
		return true
	}
	for i := uint64(0); i <= uint64(w); i++ {
		iv := bv.FromUint64(i, domain.Width(x))
		if !domain.CheckFixedBits(x, iv) {
			continue
		}
		if s.SrlUint64(i).Eq(t) {
			return true
		}
	}
	return false
}

// IsInvUdivConst is an unconditional stub inherited from the reference
// algorithm: it always returns true, regardless of t, s, x, or posX,
// without even falling back to the plain IC. See DESIGN.md.
func IsInvUdivConst(x domain.Domain, t, s bv.BV, posX uint8) bool {
	return true
}

// IsInvUltConst refines IsInvUlt using x's bounds instead of its full
// value space.
func IsInvUltConst(x domain.Domain, t, s bv.BV, posX uint8) bool {
	if posX == 0 {
		if t.IsTrue() {
			return !s.IsZero() && x.Lo.Ult(s)
		}
		return x.Hi.Compare(s) >= 0
	}
	if t.IsTrue() {
		return !s.IsOnes() && x.Hi.Compare(s) > 0
	}
	return x.Lo.Compare(s) <= 0
}

// IsInvUremConst refines IsInvUrem.
//
// For posX == 1 (s % x = t) it enumerates the divisor count n, not x
// itself, over the bounded range the equation permits, deriving each
// candidate x = (s-t)/n and accepting the first consistent with x's
// domain that reproduces t. See isInvUremConstPosX1 and DESIGN.md.
//
// For posX == 0 (x % s = t), the case s == 0 || t == ones reduces to
// x == t. Otherwise, if t itself is a domain-consistent solution it is
// used; failing that, this resolves an incompletely specified branch of
// the reference algorithm (see DESIGN.md): rather than silently reporting
// invertible, it enumerates x = s*n + t for increasing n, bounded by
// limit, until a domain-consistent witness is found or the sum would
// overflow the bit width.
func IsInvUremConst(x domain.Domain, t, s bv.BV, posX uint8, limit uint64) bool {
	if posX == 1 {
		return isInvUremConstPosX1(x, t, s)
	}
	return isInvUremConstPosX0(x, t, s, limit)
}

func isInvUremConstPosX1(x domain.Domain, t, s bv.BV) bool {
	if !IsInvUrem(t, s, 1) {
		return false
	}
	w := t.Width()
	if t.IsOnes() {
		return domain.CheckFixedBits(x, bv.Zero(w))
	}
	cmp := s.Compare(t)
	if cmp < 0 {
		return false
	}
	if cmp == 0 {
		// s % x = s holds for x = 0 or any x > s.
		return domain.CheckFixedBits(x, bv.Zero(w)) || x.Hi.Compare(t) > 0
	}
	// x = (s - t) / n for some n with 1 <= n <= hi; hi bounds n, not x, so
	// the candidate witnesses are the (large) divisors of (s - t), not the
	// small range [1, hi] itself.
	sub := s.Sub(t)
	var hi bv.BV
	if t.IsZero() {
		hi = sub
	} else {
		div, rem := sub.UdivURem(t)
		if rem.IsZero() {
			hi = div.Dec()
		} else {
			hi = div
		}
	}
	lo := bv.One(w)
	if lo.Compare(hi) > 0 {
		return false
	}
	for n := lo; ; n = n.Inc() {
		cand, _ := sub.UdivURem(n)
		if domain.CheckFixedBits(x, cand) && s.Urem(cand).Eq(t) {
			return true
		}
		if n.Compare(hi) >= 0 {
			break
		}
	}
	return false
}

func isInvUremConstPosX0(x domain.Domain, t, s bv.BV, limit uint64) bool {
	if !IsInvUrem(t, s, 0) {
		return false
	}
	if s.IsZero() || t.IsOnes() {
		return domain.CheckFixedBits(x, t)
	}
	if domain.CheckFixedBits(x, t) {
		return true
	}
	sub := s.Not() // ones - s == ~s
	if sub.Compare(t) < 0 {
		return false
	}
	cur := s
	for i := uint64(0); i < limit; i++ {
		if cur.Compare(t.Not()) > 0 { // cur + t would overflow
			return false
		}
		candidate := cur.Add(t)
		if domain.CheckFixedBits(x, candidate) {
			return true
		}
		next := cur.Add(s)
		if next.Compare(cur) <= 0 {
			return false
		}
		cur = next
	}
	return false
}

// IsInvSliceConst refines IsInvSlice: slicing always succeeds in the
// abstract, but the extracted bits must agree with x's fixed bits over the
// sliced range.
func IsInvSliceConst(x domain.Domain, t bv.BV, upper, lower uint32) bool {
	mask := domain.FixedMask(x).Slice(upper, lower)
	xLo := x.Lo.Slice(upper, lower)
	return xLo.Eq(mask.And(t))
}
