// Package brute provides an exhaustive oracle for invertibility queries,
// used as a ground truth to cross-check pkg/invert's conditions at widths
// small enough to enumerate fully: answer a semantic question by sweeping
// every concrete input rather than reasoning about it symbolically, the
// same shape as an exhaustive equivalence sweep over a small state space.
package brute

import (
	"github.com/oisee/z80-optimizer/pkg/bv"
	"github.com/oisee/z80-optimizer/pkg/domain"
	"github.com/oisee/z80-optimizer/pkg/invert"
)

// MaxWidth bounds the widths this package will enumerate; 2^MaxWidth
// concrete values must be feasible to sweep.
const MaxWidth = 20

// apply evaluates op(x, s) (or its posX-swapped form) for the operators
// that take two bit-vector operands. Slice is handled separately by its
// caller since it has no second bit-vector operand.
func apply(op invert.OpKind, posX uint8, x, s bv.BV) (bv.BV, bool) {
	switch op {
	case invert.OpAdd:
		return x.Add(s), true
	case invert.OpAnd:
		return x.And(s), true
	case invert.OpMul:
		return x.Mul(s), true
	case invert.OpEq:
		if x.Eq(s) {
			return bv.One(1), true
		}
		return bv.Zero(1), true
	case invert.OpSll:
		if posX == 0 {
			return x.Sll(s), true
		}
		return s.Sll(x), true
	case invert.OpSrl:
		if posX == 0 {
			return x.Srl(s), true
		}
		return s.Srl(x), true
	case invert.OpUlt:
		var lt bool
		if posX == 0 {
			lt = x.Ult(s)
		} else {
			lt = s.Ult(x)
		}
		if lt {
			return bv.One(1), true
		}
		return bv.Zero(1), true
	case invert.OpUdiv:
		if posX == 0 {
			return x.Udiv(s), true
		}
		return s.Udiv(x), true
	case invert.OpUrem:
		if posX == 0 {
			return x.Urem(s), true
		}
		return s.Urem(x), true
	default:
		return bv.BV{}, false
	}
}

// Invertible reports, by exhaustive search over all width-bit values of x,
// whether op(x, s) = t (or its posX-swapped form) has a solution. Panics
// if width exceeds MaxWidth.
func Invertible(op invert.OpKind, posX uint8, t, s bv.BV, width uint32) bool {
	if width > MaxWidth {
		panic("brute: width exceeds MaxWidth")
	}
	if op == invert.OpSlice {
		return true // slicing never fails to admit some x
	}
	for v := uint64(0); v < (uint64(1) << width); v++ {
		x := bv.FromUint64(v, width)
		got, ok := apply(op, posX, x, s)
		if !ok {
			continue
		}
		if got.Eq(t) {
			return true
		}
	}
	return false
}

// InvertibleConst is Invertible restricted to x values consistent with d's
// fixed bits.
func InvertibleConst(op invert.OpKind, posX uint8, t, s bv.BV, d domain.Domain, width uint32) bool {
	if width > MaxWidth {
		panic("brute: width exceeds MaxWidth")
	}
	if op == invert.OpSlice {
		for v := uint64(0); v < (uint64(1) << width); v++ {
			x := bv.FromUint64(v, width)
			if !domain.CheckFixedBits(d, x) {
				continue
			}
			return true
		}
		return false
	}
	for v := uint64(0); v < (uint64(1) << width); v++ {
		x := bv.FromUint64(v, width)
		if !domain.CheckFixedBits(d, x) {
			continue
		}
		got, ok := apply(op, posX, x, s)
		if !ok {
			continue
		}
		if got.Eq(t) {
			return true
		}
	}
	return false
}
