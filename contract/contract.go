// Package contract implements the precondition checks guarding the
// performance critical query and build paths. Violations signal a caller bug
// and panic with a *Violation; building with the nochecks tag compiles the
// checks out, leaving the behavior of a violated precondition undefined.
package contract

import "fmt"

// A Violation describes a broken caller precondition.
type Violation struct {
	Op     string
	Reason string
}

// Error implements error.
func (v *Violation) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", v.Op, v.Reason)
}

// Enabled reports whether checks are compiled in.
func Enabled() bool {
	return checksEnabled
}

// Require panics with a *Violation if cond is false.
func Require(cond bool, op, format string, args ...interface{}) {
	if checksEnabled && !cond {
		panic(&Violation{Op: op, Reason: fmt.Sprintf(format, args...)})
	}
}

// Index checks that 0 <= index < size.
func Index(index, size int, op string) {
	if checksEnabled && (index < 0 || index >= size) {
		panic(&Violation{Op: op, Reason: fmt.Sprintf("index %d out of range [0, %d)", index, size)})
	}
}
