// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package netsession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrCanceled is the error delivered to the serializers of a cancelled
// task. It wraps context.Canceled.
//
// If a task is cancelled because the context it was created with is
// done, the delivered error wraps both ErrCanceled and the context's
// cause, so errors.Is reports true for either.
var ErrCanceled = fmt.Errorf("netsession: task canceled: %w", context.Canceled)

var (
	errNilAdapted  = errors.New("netsession: adapter returned nil request")
	errBodyRewind  = errors.New("netsession: request body cannot be rewound for retry")
	errNilResolved = errors.New("netsession: source resolved to nil request")
)

// A ResolveError is delivered when a task's request source could not be
// resolved into a request. Nothing is sent and no retry is attempted.
type ResolveError struct {
	Err error
}

func (e *ResolveError) Error() string {
	return "netsession: resolve request: " + e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// An AdaptError is delivered when the session's adapter fails. Nothing
// is sent and no retry is attempted.
type AdaptError struct {
	Err error
}

func (e *AdaptError) Error() string {
	return "netsession: adapt request: " + e.Err.Error()
}

func (e *AdaptError) Unwrap() error {
	return e.Err
}

// A RetryError is delivered when the session's retrier fails while
// deciding whether to retry an attempt. It replaces the attempt's own
// error, if any, but the attempt's response and body are kept.
type RetryError struct {
	// Attempt is the zero-based attempt the retrier was deciding on.
	Attempt int
	Err     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("netsession: retry decision after attempt %d: %s", e.Attempt, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// A SerializePanicError is returned from a Result whose serializer
// panicked. The panic does not affect any other serializer.
type SerializePanicError struct {
	Value interface{}
}

func (e *SerializePanicError) Error() string {
	return fmt.Sprintf("netsession: serializer panic: %v", e.Value)
}

func urlErrorWrap(r *http.Request, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	var u string
	if r.URL != nil {
		u = r.URL.String()
	}

	return &url.Error{
		Op:  urlErrorOp(r.Method),
		URL: u,
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}

func canceledBy(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
}
