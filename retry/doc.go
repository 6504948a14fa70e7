// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides flexible policies for deciding whether a
// session task should retry after an attempt, and how long to wait
// before retrying.
//
// A Policy is made of a Decider and a Waiter. Both have constructors
// for common use cases, so that a useful policy can be quickly
// assembled:
//
//	decider := retry.Times(3).
//	               And(retry.Idempotent).
//	               And(retry.StatusCode(503).Or(retry.TransientErr))
//	waiter := retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now())
//	policy := retry.NewPolicy(decider, waiter)
//
// NewRetrier turns a Policy into a retrier that can be installed on a
// session:
//
//	s := netsession.New(netsession.WithRetrier(retry.NewRetrier(policy)))
//
// The retrier sleeps for the wait period itself, and gives up early if
// the task is cancelled while it waits.
package retry
