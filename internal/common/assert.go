package common

import "fmt"

// Assert panics if cond is false. It is reserved for invariant violations
// that indicate a bug in a caller — memo corruption, committing a nonzero
// record mtr under a no-log mode, releasing a latch twice — never for
// conditions a correct caller can trigger in normal operation.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
