// panic_recovery.go: panic recovery around driver and module code
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"fmt"
	"runtime"
)

// RecoveryHandler receives a recovered panic value and the stack of the
// goroutine that panicked.
type RecoveryHandler func(recovered interface{}, stack []byte)

// withStackRecover returns a RecoveryHandler logging the panic and its stack
// at debug level under msg.
func withStackRecover(logger Logger, msg string, args ...any) RecoveryHandler {
	return func(recovered interface{}, stack []byte) {
		kv := append([]any{}, args...)
		logger.Debug(msg, append(kv, "panic", recovered, "stack", string(stack))...)
	}
}

// withDriverPanicRecover returns a recovery function for code the loader
// does not own. A recovered panic is handed to handler and stored in *errp.
//
//	func call() (err error) {
//	    defer withDriverPanicRecover(&err, handler)()
//	    // driver code
//	}
//
// The returned function must be deferred directly.
func withDriverPanicRecover(errp *error, handler RecoveryHandler) func() {
	return func() {
		r := recover()
		if r == nil {
			return
		}
		buf := make([]byte, 64<<10)
		n := runtime.Stack(buf, false)
		if handler != nil {
			handler(r, buf[:n])
		}
		*errp = fmt.Errorf("driver code panicked: %v", r)
	}
}
