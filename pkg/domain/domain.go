// Package domain implements the three-valued bit-vector domain: a compact
// representation of a set of equal-width bit-vectors as a pair of bounds
// (Lo, Hi) such that the set equals { v : Lo bitwise-entails v entails Hi }.
package domain

import (
	"fmt"
	"strings"

	"github.com/oisee/z80-optimizer/pkg/bv"
)

// maxDisplayWidth bounds the length of String()'s output before truncation,
// mirroring the original C library's fixed-size display buffer without
// sharing any global state across calls.
const maxDisplayWidth = 64

// Domain is a ternary-valued bit-vector: Lo and Hi must share a width.
// A bit i is fixed when Lo[i] == Hi[i]; free when Lo[i]=0, Hi[i]=1; invalid
// when Lo[i]=1, Hi[i]=0 (makes the whole domain's set empty).
type Domain struct {
	Lo bv.BV
	Hi bv.BV
}

// NewInit returns the fully unconstrained domain of width w.
func NewInit(w uint32) Domain {
	return Domain{Lo: bv.Zero(w), Hi: bv.Ones(w)}
}

// New builds a domain from explicit bounds. Panics if widths differ.
func New(lo, hi bv.BV) Domain {
	if lo.Width() != hi.Width() {
		panic(fmt.Sprintf("domain: width mismatch lo=%d hi=%d", lo.Width(), hi.Width()))
	}
	return Domain{Lo: lo, Hi: hi}
}

// NewFixed returns the domain containing exactly v.
func NewFixed(v bv.BV) Domain {
	return Domain{Lo: v, Hi: v}
}

// NewFixedUint64 returns the domain containing exactly the value v at width w.
func NewFixedUint64(v uint64, w uint32) Domain {
	b := bv.FromUint64(v, w)
	return Domain{Lo: b, Hi: b}
}

// NewFromChar parses a ternary string (MSB first) over {'0','1','x','?'}.
// 'x' denotes a free bit, '?' an invalid bit (legal to construct, but the
// resulting domain is not valid — see IsValid).
func NewFromChar(s string) (Domain, error) {
	if len(s) == 0 {
		return Domain{}, fmt.Errorf("domain: empty ternary string")
	}
	if len(s) > bv.MaxWidth {
		return Domain{}, fmt.Errorf("domain: ternary string of length %d exceeds max width %d", len(s), bv.MaxWidth)
	}
	w := uint32(len(s))
	lo := bv.Zero(w)
	hi := bv.Zero(w)
	for idx, c := range s {
		i := w - 1 - uint32(idx)
		switch c {
		case '0':
			// lo bit 0, hi bit 0: both already zero.
		case '1':
			lo = lo.SetBit(i, true)
			hi = hi.SetBit(i, true)
		case 'x':
			hi = hi.SetBit(i, true)
		case '?':
			lo = lo.SetBit(i, true)
		default:
			return Domain{}, fmt.Errorf("domain: invalid ternary character %q in %q", c, s)
		}
	}
	return Domain{Lo: lo, Hi: hi}, nil
}

// Copy returns a copy of d. Provided for API parity with callers porting
// code shaped around the original library's explicit copy function; Go's
// assignment already copies Domain by value.
func Copy(d Domain) Domain { return d }

// Width returns the domain's bit width.
func Width(d Domain) uint32 { return d.Lo.Width() }

// IsValid reports whether d's set is non-empty, i.e. Lo bitwise-entails Hi
// (no bit has Lo[i]=1, Hi[i]=0).
func IsValid(d Domain) bool {
	// lo ⊑ hi  <=>  lo & ~hi == 0
	return d.Lo.And(d.Hi.Not()).IsZero()
}

// IsFixed reports whether every bit of d is fixed (the set is a singleton).
func IsFixed(d Domain) bool {
	return d.Lo.Eq(d.Hi)
}

// HasFixedBits reports whether at least one bit of d is fixed.
func HasFixedBits(d Domain) bool {
	w := Width(d)
	for i := uint32(0); i < w; i++ {
		if IsFixedBit(d, i) {
			return true
		}
	}
	return false
}

// IsFixedBit reports whether bit i is fixed.
func IsFixedBit(d Domain, i uint32) bool {
	return d.Lo.GetBit(i) == d.Hi.GetBit(i)
}

// IsFixedBitTrue reports whether bit i is fixed to 1.
func IsFixedBitTrue(d Domain, i uint32) bool {
	return d.Lo.GetBit(i) && d.Hi.GetBit(i)
}

// IsFixedBitFalse reports whether bit i is fixed to 0.
func IsFixedBitFalse(d Domain, i uint32) bool {
	return !d.Lo.GetBit(i) && !d.Hi.GetBit(i)
}

// CheckFixedBits reports whether v agrees with d on every fixed bit:
// (v & Hi) | Lo == v.
func CheckFixedBits(d Domain, v bv.BV) bool {
	return v.And(d.Hi).Or(d.Lo).Eq(v)
}

// IsConsistent is semantically equivalent to CheckFixedBits, implemented by
// the per-bit definition directly (kept distinct to exercise both
// formulations in tests, per the universal invariant that they agree).
func IsConsistent(d Domain, v bv.BV) bool {
	w := Width(d)
	for i := uint32(0); i < w; i++ {
		if IsFixedBit(d, i) && d.Lo.GetBit(i) != v.GetBit(i) {
			return false
		}
	}
	return true
}

// IsEqual reports whether a and b denote the same domain.
func IsEqual(a, b Domain) bool {
	return a.Lo.Eq(b.Lo) && a.Hi.Eq(b.Hi)
}

// FixBit returns a copy of d with bit i fixed to v.
func FixBit(d Domain, i uint32, v bool) Domain {
	if i >= Width(d) {
		panic(fmt.Sprintf("domain: bit index %d out of range for width %d", i, Width(d)))
	}
	return Domain{Lo: d.Lo.SetBit(i, v), Hi: d.Hi.SetBit(i, v)}
}

// Slice extracts bits [hi:lo] of d as a new, narrower domain.
func Slice(d Domain, hi, lo uint32) Domain {
	return Domain{Lo: d.Lo.Slice(hi, lo), Hi: d.Hi.Slice(hi, lo)}
}

// Not returns the domain of bitwise-negated values of d.
func Not(d Domain) Domain {
	return Domain{Lo: d.Hi.Not(), Hi: d.Lo.Not()}
}

// FixedMask returns a bit-vector with a 1 in every fixed-bit position.
func FixedMask(d Domain) bv.BV {
	return d.Lo.Xnor(d.Hi)
}

// ToChar renders d as an MSB-first ternary string over {'0','1','x','?'}.
func ToChar(d Domain) string {
	w := Width(d)
	var sb strings.Builder
	sb.Grow(int(w))
	for idx := uint32(0); idx < w; idx++ {
		i := w - 1 - idx
		lo := d.Lo.GetBit(i)
		hi := d.Hi.GetBit(i)
		switch {
		case !lo && !hi:
			sb.WriteByte('0')
		case lo && hi:
			sb.WriteByte('1')
		case !lo && hi:
			sb.WriteByte('x')
		default: // lo && !hi
			sb.WriteByte('?')
		}
	}
	return sb.String()
}

// String implements fmt.Stringer, truncating long domains for display.
func (d Domain) String() string {
	s := ToChar(d)
	if len(s) > maxDisplayWidth {
		return s[:maxDisplayWidth] + "..."
	}
	return s
}
