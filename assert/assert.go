// Package assert provides debug-mode precondition checks for the coupler.
//
// These catch preconditions (nbRanks > 0, stride consistency, id-in-range)
// that should never fail given a correctly built TransferPlan, and are
// fatal when they do.
package assert

import (
	"fmt"
	"os"
	"runtime"
)

func perror(name, loc string) {
	fmt.Fprintf(os.Stderr, "%s failed at %s\n", name, loc)
}

// OK terminates the process if err is non-nil, reporting the call site.
func OK(err error) {
	if err != nil {
		_, fn, line, _ := runtime.Caller(1)
		loc := fmt.Sprintf("%s:%d", fn, line)
		perror(fmt.Sprintf("assert.OK(%v)", err), loc)
		os.Exit(1)
	}
}

// True terminates the process if ok is false, reporting the call site and
// the supplied message.
func True(ok bool, msg string) {
	if !ok {
		_, fn, line, _ := runtime.Caller(1)
		loc := fmt.Sprintf("%s:%d", fn, line)
		perror("assert.True: "+msg, loc)
		os.Exit(1)
	}
}
