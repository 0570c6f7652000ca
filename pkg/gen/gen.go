// Package gen implements ordered and random enumeration of the values
// contained in a bit-vector domain, optionally intersected with an
// unsigned range [min, max]. Enumeration walks a compressed counter over
// only the domain's free bits rather than rejection-sampling the full
// value space.
package gen

import (
	"math/rand/v2"

	"github.com/oisee/z80-optimizer/pkg/bv"
	"github.com/oisee/z80-optimizer/pkg/domain"
)

// Generator produces successive values of a domain, optionally bounded to
// an unsigned range. The zero value is not usable; construct with Init or
// InitRange.
type Generator struct {
	d    domain.Domain
	rng  *rand.Rand
	min  bv.BV
	max  bv.BV

	freeBits []uint32 // domain bit positions that are free, ascending

	empty     bool
	singleton bool // cnt == 0: the domain is a single fixed value
	consumed  bool // singleton already produced once

	bits      bv.BV
	bitsMin   bv.BV
	bitsMax   bv.BV
	exhausted bool

	cur    bv.BV
	curSet bool
}

// Init constructs a generator over the full set of values in d.
func Init(rng *rand.Rand, d domain.Domain) *Generator {
	return InitRange(rng, d, nil, nil)
}

// InitRange constructs a generator over the values of d intersected with
// the inclusive unsigned range [min, max]. A nil bound means unbounded on
// that side.
func InitRange(rng *rand.Rand, d domain.Domain, min, max *bv.BV) *Generator {
	w := domain.Width(d)
	g := &Generator{d: d, rng: rng}

	effMin := d.Lo
	if min != nil && min.Compare(d.Lo) > 0 {
		effMin = *min
	}
	effMax := d.Hi
	if max != nil && max.Compare(d.Hi) < 0 {
		effMax = *max
	}
	g.min, g.max = effMin, effMax

	if effMin.Compare(effMax) > 0 {
		g.empty = true
		return g
	}

	for i := uint32(0); i < w; i++ {
		if !domain.IsFixedBit(d, i) {
			g.freeBits = append(g.freeBits, i)
		}
	}
	cnt := uint32(len(g.freeBits))

	if cnt == 0 {
		g.singleton = true
		return g
	}

	g.bitsMin = computeBitsBound(d, g.freeBits, effMin, true)
	g.bitsMax = computeBitsBound(d, g.freeBits, effMax, false)
	if g.bitsMin.Compare(g.bitsMax) > 0 {
		g.empty = true
		return g
	}
	g.bits = g.bitsMin
	return g
}

// computeBitsBound scans domain bit positions from MSB to LSB, tracking a
// "still matching target exactly" prefix. For roundUp (computing bitsMin)
// the counter starts at all-zero and a mismatch where the domain forces a
// bit below target rounds up at the most recent free bit where target had
// a 0, zeroing everything less significant. For roundDown (computing
// bitsMax) the counter starts at all-one and mismatches round down
// symmetrically.
func computeBitsBound(d domain.Domain, freeBits []uint32, target bv.BV, roundUp bool) bv.BV {
	w := domain.Width(d)
	cnt := uint32(len(freeBits))

	var bits bv.BV
	if roundUp {
		bits = bv.Zero(cnt)
	} else {
		bits = bv.Ones(cnt)
	}

	tight := true
	lastOpportunity := int64(-1) // counter index of the most recent rounding opportunity
	fi := int64(cnt) - 1         // pointer into freeBits, scanning from the end (highest domain position)

	for p := int64(w) - 1; p >= 0 && tight; p-- {
		targetBit := target.GetBit(uint32(p))

		isFree := fi >= 0 && freeBits[fi] == uint32(p)
		if isFree {
			k := uint32(fi)
			fi--
			bits = bits.SetBit(k, targetBit)
			if roundUp && !targetBit {
				lastOpportunity = int64(k)
			}
			if !roundUp && targetBit {
				lastOpportunity = int64(k)
			}
			continue // tight remains true
		}

		fixedVal := domain.IsFixedBitTrue(d, uint32(p))
		switch {
		case fixedVal == targetBit:
			// still tight, continue
		case roundUp && !fixedVal && targetBit:
			// domain forces 0 where target wants 1: must round up.
			if lastOpportunity >= 0 {
				bits = bits.SetBit(uint32(lastOpportunity), true)
				for idx := uint32(0); idx < uint32(lastOpportunity); idx++ {
					bits = bits.SetBit(idx, false)
				}
			}
			tight = false
		case roundUp && fixedVal && !targetBit:
			// domain forces 1 where target wants 0: already exceeds target,
			// remaining (lower, unprocessed) free bits stay at their
			// zero-initialized minimum.
			tight = false
		case !roundUp && fixedVal && !targetBit:
			// domain forces 1 where target wants 0: must round down.
			if lastOpportunity >= 0 {
				bits = bits.SetBit(uint32(lastOpportunity), false)
				for idx := uint32(0); idx < uint32(lastOpportunity); idx++ {
					bits = bits.SetBit(idx, true)
				}
			}
			tight = false
		default: // !roundUp && !fixedVal && targetBit
			// domain forces 0 where target wants 1: already below target,
			// remaining free bits stay at their one-initialized maximum.
			tight = false
		}
	}
	return bits
}

// splice combines the domain's fixed bits with the current free-bit
// counter into a concrete value.
func (g *Generator) splice(bits bv.BV) bv.BV {
	v := g.d.Lo
	for k, pos := range g.freeBits {
		v = v.SetBit(pos, bits.GetBit(uint32(k)))
	}
	return v
}

// HasNext reports whether Next would produce another value.
func (g *Generator) HasNext() bool {
	if g.empty {
		return false
	}
	if g.singleton {
		return !g.consumed
	}
	return !g.exhausted
}

// Next returns the next value in ascending unsigned order. Panics if
// HasNext is false.
func (g *Generator) Next() bv.BV {
	if !g.HasNext() {
		panic("gen: Next called with no values remaining")
	}
	if g.singleton {
		g.consumed = true
		g.cur, g.curSet = g.d.Lo, true
		return g.cur
	}
	v := g.splice(g.bits)
	if g.bits.Eq(g.bitsMax) {
		g.exhausted = true
	} else {
		g.bits = g.bits.Inc()
	}
	g.cur, g.curSet = v, true
	return v
}

// Random returns a uniformly random value from the same set Next would
// enumerate. Requires a non-nil rng (panics otherwise). Never terminates
// the generator — HasNext is unaffected by Random calls.
func (g *Generator) Random() bv.BV {
	if g.rng == nil {
		panic("gen: Random requires a non-nil rng")
	}
	if g.empty {
		panic("gen: Random called on an empty generator")
	}
	if g.singleton {
		g.cur, g.curSet = g.d.Lo, true
		return g.cur
	}
	bits := bv.NewRandomRange(g.rng, uint32(len(g.freeBits)), g.bitsMin, g.bitsMax)
	v := g.splice(bits)
	g.cur, g.curSet = v, true
	return v
}

// Cur returns the most recently produced value and whether one has been
// produced yet.
func (g *Generator) Cur() (bv.BV, bool) {
	return g.cur, g.curSet
}

// Close releases any resources held by the generator. Currently a no-op;
// kept so future non-trivial cleanup (e.g. a shared scratch arena) is not
// a breaking API change.
func (g *Generator) Close() {}
