// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/netsession/request"
)

// A Policy decides the timeout of the next request attempt of a task.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on the next request attempt.
	// Parameter e holds the state of the task's attempt loop; on the
	// initial attempt its Outcome is nil.
	Timeout(e *request.Execution) time.Duration
}

// DefaultPolicy is the default timeout policy. It sets a fixed timeout
// of 5 seconds on each attempt.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite is a built-in timeout policy which never times out.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed constructs a timeout policy that always returns d.
func Fixed(d time.Duration) Policy {
	if d <= 0 {
		panic("netsession/timeout: timeout must be positive")
	}
	return policy([]time.Duration{d})
}

// Adaptive constructs a timeout policy that lengthens the timeout after
// an attempt times out.
//
// Parameter usual is returned for the initial attempt and for any retry
// whose preceding attempt did not time out. Parameter after holds the
// timeouts used when the preceding attempt did time out: after[0] after
// the first timeout of the task, after[1] after the second, and so on,
// with the last element reused once the list runs out.
//
// For example:
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// uses 200ms normally, 1s after the first timeout, and 10s after every
// later timeout.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make([]time.Duration, 1, 1+len(after))
	p[0] = usual
	p = append(p, after...)
	for _, d := range p {
		if d <= 0 {
			panic("netsession/timeout: timeout must be positive")
		}
	}
	return policy(p)
}

type policy []time.Duration

func (p policy) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() {
		return p[0]
	}

	i := e.AttemptTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
