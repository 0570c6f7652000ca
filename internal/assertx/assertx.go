// Package assertx provides lightweight, panic-based invariant checks in
// the same spirit as the width-mismatch panics in pkg/bv and pkg/domain:
// a violated invariant is a programmer error, not a recoverable runtime
// condition, so it panics rather than returning an error.
package assertx

import "fmt"

// Debug gates expensive invariant checks that are only worth paying for
// while developing or testing this module. Tests may flip it on; it
// defaults to off so release builds skip the extra verification work.
var Debug = false

// Require panics with a formatted message if cond is false. Intended for
// invariants that must always hold, regardless of Debug.
func Require(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// RequireDebug is Require gated behind Debug, for checks expensive enough
// that they should not run by default (e.g. brute-force cross-checks).
func RequireDebug(cond bool, format string, args ...any) {
	if Debug && !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
