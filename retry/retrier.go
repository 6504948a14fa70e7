// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/netsession/request"
)

// A Retrier drives a Policy on behalf of a session. It satisfies the
// session's retrier interface.
type Retrier struct {
	policy Policy
}

// NewRetrier returns a Retrier following policy p.
func NewRetrier(p Policy) *Retrier {
	if p == nil {
		panic("netsession/retry: nil policy")
	}
	return &Retrier{policy: p}
}

// DefaultRetrier follows DefaultPolicy.
var DefaultRetrier = NewRetrier(DefaultPolicy)

// Retry consults the policy about the attempt described by e. If the
// policy declines, Retry returns a nil request and a nil error. If it
// agrees, Retry sleeps for the policy's wait time and then returns the
// task's original (unadapted) request, so the session adapts it afresh
// for the next attempt.
//
// If ctx is done before the wait is over, Retry returns ctx.Err().
func (r *Retrier) Retry(ctx context.Context, e *request.Execution) (*http.Request, error) {
	if !r.policy.Decide(e) {
		return nil, nil
	}

	next := e.Original
	if next == nil {
		next = e.Request
	}
	if next == nil {
		return nil, nil
	}

	wait := r.policy.Wait(e)
	if wait <= 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return next, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return next, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
