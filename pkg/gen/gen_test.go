package gen

import (
	"math/rand/v2"
	"testing"

	"github.com/oisee/z80-optimizer/pkg/bv"
	"github.com/oisee/z80-optimizer/pkg/domain"
)

// bruteMembers returns every concrete value of d (width <= 8) in ascending
// unsigned order, optionally filtered to [min, max].
func bruteMembers(d domain.Domain, min, max *bv.BV) []uint64 {
	w := domain.Width(d)
	var out []uint64
	for v := uint64(0); v < (uint64(1) << w); v++ {
		bvv := bv.FromUint64(v, w)
		if !domain.CheckFixedBits(d, bvv) {
			continue
		}
		if min != nil && bvv.Compare(*min) < 0 {
			continue
		}
		if max != nil && bvv.Compare(*max) > 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

func TestGeneratorSoundAndComplete(t *testing.T) {
	patterns := []string{"xxxx", "x10x", "1xx0", "xxx1", "0xxx", "1010", "xxxxxxxx"}
	for _, p := range patterns {
		d, err := domain.NewFromChar(p)
		if err != nil {
			t.Fatalf("NewFromChar(%q): %v", p, err)
		}
		want := bruteMembers(d, nil, nil)
		g := Init(nil, d)
		var got []uint64
		for g.HasNext() {
			got = append(got, g.Next().Uint64())
		}
		if len(got) != len(want) {
			t.Fatalf("pattern %q: got %d values, want %d (got=%v want=%v)", p, len(got), len(want), got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("pattern %q index %d: got %d, want %d", p, i, got[i], want[i])
			}
			if i > 0 && got[i] <= got[i-1] {
				t.Errorf("pattern %q: not strictly increasing at index %d", p, i)
			}
		}
	}
}

func TestGeneratorRangeBounds(t *testing.T) {
	d, _ := domain.NewFromChar("1xx0")
	min := bv.FromUint64(0b1010, 4)
	max := bv.FromUint64(0b1110, 4)
	want := bruteMembers(d, &min, &max)

	g := InitRange(nil, d, &min, &max)
	var got []uint64
	for g.HasNext() {
		got = append(got, g.Next().Uint64())
	}
	if len(got) != len(want) {
		t.Fatalf("got %d values %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestGeneratorEmptyRange(t *testing.T) {
	d := domain.NewInit(4)
	min := bv.FromUint64(10, 4)
	max := bv.FromUint64(5, 4)
	g := InitRange(nil, d, &min, &max)
	if g.HasNext() {
		t.Error("expected empty generator for min > max")
	}
}

func TestGeneratorSingletonDomain(t *testing.T) {
	d := domain.NewFixedUint64(7, 4)
	g := Init(nil, d)
	if !g.HasNext() {
		t.Fatal("singleton domain should produce one value")
	}
	v := g.Next()
	if v.Uint64() != 7 {
		t.Errorf("got %d, want 7", v.Uint64())
	}
	if g.HasNext() {
		t.Error("singleton domain should be exhausted after one value")
	}
}

func TestGeneratorRandomStaysInDomain(t *testing.T) {
	d, _ := domain.NewFromChar("x10x")
	rng := rand.New(rand.NewPCG(1, 2))
	g := Init(rng, d)
	seen := map[uint64]bool{}
	for i := 0; i < 500; i++ {
		v := g.Random()
		if !domain.CheckFixedBits(d, v) {
			t.Fatalf("Random produced value outside domain: %v", v)
		}
		seen[v.Uint64()] = true
	}
	want := bruteMembers(d, nil, nil)
	for _, w := range want {
		if !seen[w] {
			t.Errorf("value %d never produced by Random in 500 samples", w)
		}
	}
}

func TestGeneratorRandomRequiresRNG(t *testing.T) {
	d := domain.NewInit(4)
	g := Init(nil, d)
	defer func() {
		if recover() == nil {
			t.Error("expected panic calling Random without an rng")
		}
	}()
	g.Random()
}
