// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"time"

	"github.com/gogama/netsession/transient"
)

// An Execution represents the state of a task's attempt loop.
//
// Each task owns exactly one Execution. It is updated as attempts are
// made and is passed to the pluggable parts of the session: retriers,
// timeout policies, and event handlers. Those parts run on the attempt
// loop one at a time, so they may read the Execution freely, but they
// should treat its exported fields as read-only.
//
// Event handlers may attach their own data with SetValue and read it
// back with Value.
type Execution struct {
	// Source is the request source the task was created from. It is
	// never nil.
	Source Source

	// Original is the request resolved from Source, before any
	// adaptation. It is nil if resolution failed.
	Original *http.Request

	// Request is the adapted request sent in the current attempt, or
	// already sent in the most recent attempt. It is nil until the
	// first attempt has been adapted.
	Request *http.Request

	// Outcome is the Container produced by the most recent attempt. It
	// is nil while an attempt is underway. Once the execution has ended
	// it is the final outcome delivered to serializers, which differs
	// from the last attempt's if adaptation or the retry decision
	// failed.
	Outcome *Container

	// Start is the time the attempt loop started.
	Start time.Time

	// End is the time the attempt loop delivered its final outcome. It
	// is the zero time until then, and stays zero if the task was
	// cancelled.
	End time.Time

	// Attempt is the zero-based number of the current attempt: zero on
	// the initial attempt, one on the first retry, and so on.
	Attempt int

	// AttemptTimeouts is the number of attempts which timed out.
	AttemptTimeouts int

	data map[interface{}]interface{}
}

// StatusCode returns the status code of the most recent attempt's HTTP
// response, or 0 if there is none.
func (e *Execution) StatusCode() int {
	return e.Outcome.StatusCode()
}

// Header returns the headers of the most recent attempt's HTTP
// response, or a nil header if there is none.
func (e *Execution) Header() http.Header {
	return e.Outcome.Header()
}

// Body returns the buffered body of the most recent attempt, or nil.
func (e *Execution) Body() []byte {
	return e.Outcome.Body()
}

// Err returns the error which ended the most recent attempt, or nil.
func (e *Execution) Err() error {
	return e.Outcome.Err()
}

// Duration returns the duration of the execution. It is zero before
// the execution starts, grows while it runs, and is fixed at End minus
// Start once it has ended.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended indicates whether the execution has delivered its final outcome.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout indicates whether the most recent attempt ended in a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err()) == transient.Timeout
}

// SetValue stores arbitrary data in the execution, replacing any value
// previously stored under key. Storing a nil value removes key.
//
// The key may not be nil and must be comparable. It should not be of a
// built-in type.
func (e *Execution) SetValue(key, value interface{}) {
	if key == nil {
		panic("netsession/request: nil key")
	}
	if value == nil {
		delete(e.data, key)
		return
	}
	if e.data == nil {
		e.data = make(map[interface{}]interface{})
	}

	e.data[key] = value
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	return e.data[key]
}
