// Package debug holds development-time consistency checks and one-time warnings.
//
// Assertions are compiled in only with the simdebug build tag; release builds
// evaluate nothing but the condition expression at the call site.
package debug

import "fmt"

// Assert panics with a formatted message when cond is false and assertions are enabled.
func Assert(cond bool, format string, args ...any) {
	if !assertionsEnabled || cond {
		return
	}
	panic(fmt.Sprintf("assertion failed: "+format, args...))
}

// Enabled reports whether this binary was built with assertions.
func Enabled() bool { return assertionsEnabled }
