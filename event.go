// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package netsession

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Session to extend it with
// custom functionality.
//
// All events fire on the goroutine running the task's attempt loop, so
// handlers for one task never run concurrently with each other.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs once the
	// task's request source has been resolved, before the first attempt
	// is adapted.
	//
	// When Session fires BeforeExecutionStart, the execution's Source
	// and Original fields are set. Original is nil if resolution failed.
	BeforeExecutionStart Event = iota
	// BeforeAttempt identifies the event that occurs before each
	// individual HTTP request attempt, after the adapter has run.
	//
	// When Session fires BeforeAttempt, the execution's Request field
	// is set to the HTTP request that WILL BE sent after all
	// BeforeAttempt handlers have finished, and its Outcome is nil.
	BeforeAttempt
	// AfterAttemptTimeout identifies the event that occurs after an
	// HTTP request attempt failed because of a timeout error.
	//
	// When Session fires AfterAttemptTimeout, the execution's Outcome
	// holds the timeout error, and its attempt timeout counter has been
	// incremented.
	AfterAttemptTimeout
	// AfterAttempt identifies the event that occurs after an HTTP
	// request attempt is concluded, regardless of whether it concluded
	// successfully or not.
	//
	// When Session fires AfterAttempt, the execution's Outcome holds
	// the container produced by the attempt. AfterAttempt runs before
	// the retrier is consulted. Neither AfterAttempt nor
	// AfterAttemptTimeout fires for an attempt interrupted by
	// cancellation of the task.
	AfterAttempt
	// AfterExecutionEnd identifies the event that occurs after the
	// task's final outcome has been delivered to its serializers.
	//
	// When Session fires AfterExecutionEnd, the execution's End time is
	// set and its Outcome is the final outcome. AfterExecutionEnd does not fire for a task that ends by
	// cancellation.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur in a
// task execution by Session, in the order in which they would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeAttempt,
		AfterAttemptTimeout,
		AfterAttempt,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
