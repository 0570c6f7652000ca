// Package invert implements invertibility-condition checks for bit-vector
// operators: given a ground equation x ∘ s = t (or its operand-swapped
// form), decide whether some value of x exists, optionally restricted to a
// three-valued domain. Checks come in two flavors per operator: the plain
// form ignores any fixed bits x might carry, the const-bit form respects
// them.
package invert

import (
	"fmt"

	"github.com/oisee/z80-optimizer/pkg/bv"
	"github.com/oisee/z80-optimizer/pkg/domain"
)

// OpKind names a supported bit-vector operator.
type OpKind uint8

const (
	OpAdd OpKind = iota
	OpAnd
	OpConcat
	OpEq
	OpMul
	OpSll
	OpSrl
	OpUlt
	OpUdiv
	OpUrem
	OpSlice
)

func (op OpKind) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpAnd:
		return "and"
	case OpConcat:
		return "concat"
	case OpEq:
		return "eq"
	case OpMul:
		return "mul"
	case OpSll:
		return "sll"
	case OpSrl:
		return "srl"
	case OpUlt:
		return "ult"
	case OpUdiv:
		return "udiv"
	case OpUrem:
		return "urem"
	case OpSlice:
		return "slice"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(op))
	}
}

// ParseOpKind parses an operator name as printed by OpKind.String.
func ParseOpKind(s string) (OpKind, error) {
	for op := OpAdd; op <= OpSlice; op++ {
		if op.String() == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("invert: unknown operator %q", s)
}

// defaultUremSearchLimit bounds the n-enumeration used by IsInvUremConst's
// pos_x=0 resolution, a search with no domain-bounded termination of its
// own (see DESIGN.md).
const defaultUremSearchLimit = 1 << 16

// Query bundles the arguments shared by every invertibility check. T and S
// are the target and the known operand; X is required only for *Const
// checks. OpSlice uses Upper/Lower in place of S.
// Limit bounds the internal search used by the urem pos_x=0 const-bit
// check; zero selects a default.
type Query struct {
	Op    OpKind
	PosX  uint8
	T     bv.BV
	S     bv.BV
	Upper uint32
	Lower uint32
	X     *domain.Domain
	Limit uint64
}

// IsInv evaluates the plain invertibility condition for q, ignoring any
// fixed bits in q.X.
func IsInv(q Query) bool {
	switch q.Op {
	case OpAdd:
		return IsInvAdd(q.T, q.S)
	case OpAnd:
		return IsInvAnd(q.T, q.S)
	case OpConcat:
		return IsInvConcat(q.T, q.S, q.PosX)
	case OpEq:
		return IsInvEq(q.T, q.S)
	case OpMul:
		return IsInvMul(q.T, q.S)
	case OpSll:
		return IsInvSll(q.T, q.S, q.PosX)
	case OpSrl:
		return IsInvSrl(q.T, q.S, q.PosX)
	case OpUlt:
		return IsInvUlt(q.T, q.S, q.PosX)
	case OpUdiv:
		return IsInvUdiv(q.T, q.S, q.PosX)
	case OpUrem:
		return IsInvUrem(q.T, q.S, q.PosX)
	case OpSlice:
		return IsInvSlice()
	default:
		panic(fmt.Sprintf("invert: unsupported op %v", q.Op))
	}
}

// IsInvConst evaluates the const-bit invertibility condition for q.
// Panics if q.X is nil.
func IsInvConst(q Query) bool {
	if q.X == nil {
		panic("invert: IsInvConst requires a non-nil domain")
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultUremSearchLimit
	}
	switch q.Op {
	case OpAdd:
		return IsInvAddConst(*q.X, q.T, q.S)
	case OpAnd:
		return IsInvAndConst(*q.X, q.T, q.S)
	case OpConcat:
		return IsInvConcatConst(*q.X, q.T, q.S, q.PosX)
	case OpEq:
		return IsInvEqConst(*q.X, q.T, q.S)
	case OpMul:
		return IsInvMulConst(*q.X, q.T, q.S)
	case OpSll:
		return IsInvSllConst(*q.X, q.T, q.S, q.PosX)
	case OpSrl:
		return IsInvSrlConst(*q.X, q.T, q.S, q.PosX)
	case OpUlt:
		return IsInvUltConst(*q.X, q.T, q.S, q.PosX)
	case OpUdiv:
		return IsInvUdivConst(*q.X, q.T, q.S, q.PosX)
	case OpUrem:
		return IsInvUremConst(*q.X, q.T, q.S, q.PosX, limit)
	case OpSlice:
		return IsInvSliceConst(*q.X, q.T, q.Upper, q.Lower)
	default:
		panic(fmt.Sprintf("invert: unsupported op %v", q.Op))
	}
}
