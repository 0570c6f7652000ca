package invert

import "github.com/oisee/z80-optimizer/pkg/bv"

// IsInvAdd: x + s = t is always solvable (x = t - s).
func IsInvAdd(t, s bv.BV) bool {
	return true
}

// IsInvAnd: x & s = t is solvable iff t's bits are a subset of s's.
func IsInvAnd(t, s bv.BV) bool {
	return t.And(s).Eq(t)
}

// IsInvConcat: for posX == 0, x ++ s = t requires s to match t's low bits;
// for posX == 1, s ++ x = t requires s to match t's high bits.
func IsInvConcat(t, s bv.BV, posX uint8) bool {
	bwS := s.Width()
	bwT := t.Width()
	if posX == 0 {
		return s.Eq(t.Slice(bwS-1, 0))
	}
	return s.Eq(t.Slice(bwT-1, bwT-bwS))
}

// IsInvEq: x == s = t is always solvable (x = s when t is true, any x != s
// otherwise, which exists whenever the width allows more than one value or
// t is false).
func IsInvEq(t, s bv.BV) bool {
	return true
}

// IsInvMul: x * s = t is solvable iff t is a multiple of gcd(s, 2^w),
// captured bitwise as (-s | s) & t == t.
func IsInvMul(t, s bv.BV) bool {
	r := s.Neg().Or(s)
	return r.And(t).Eq(t)
}

// IsInvSll: for posX == 0, x << s = t requires t's low s bits to be zero and
// the remaining bits to round-trip; for posX == 1, s << x = t is solvable
// iff some shift amount in [0, width] produces t.
func IsInvSll(t, s bv.BV, posX uint8) bool {
	w := t.Width()
	if posX == 0 {
		return t.Srl(s).Sll(s).Eq(t)
	}
	for i := uint64(0); i <= uint64(w); i++ {
		if s.SllUint64(i).Eq(t) {
			return true
		}
	}
	return false
}

// IsInvSrl mirrors IsInvSll for the logical right shift.
func IsInvSrl(t, s bv.BV, posX uint8) bool {
	w := t.Width()
	if posX == 0 {
		return t.Sll(s).Srl(s).Eq(t)
	}
	for i := uint64(0); i <= uint64(w); i++ {
		if s.SrlUint64(i).Eq(t) {
			return true
		}
	}
	return false
}

// IsInvUlt: for posX == 0, x < s = t; for posX == 1, s < x = t.
func IsInvUlt(t, s bv.BV, posX uint8) bool {
	if posX == 0 {
		return !t.IsTrue() || !s.IsZero()
	}
	return !t.IsTrue() || !s.IsOnes()
}

// IsInvUdiv: for posX == 0, x / s = t; for posX == 1, s / x = t.
func IsInvUdiv(t, s bv.BV, posX uint8) bool {
	if posX == 0 {
		q, _ := s.Mul(t).UdivURem(s)
		return q.Eq(t)
	}
	q1, _ := s.UdivURem(t)
	q2, _ := s.UdivURem(q1)
	return q2.Eq(t)
}

// IsInvUrem: for posX == 0, x % s = t; for posX == 1, s % x = t.
func IsInvUrem(t, s bv.BV, posX uint8) bool {
	if posX == 0 {
		return t.Compare(s.Neg().Not()) <= 0
	}
	sum := t.Add(t).Sub(s)
	return t.Compare(sum.And(s)) <= 0
}

// IsInvSlice: extracting a slice of x is always invertible.
func IsInvSlice() bool {
	return true
}
