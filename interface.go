// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package netsession

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gogama/netsession/request"
)

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
//
// The HTTPDoer is the session's transport. A session cancels an
// outstanding Do call by cancelling the request's context, so the Do
// method must honor request context cancellation.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// An Adapter mutates a request before each attempt is sent, for
// example to add an authorization header.
//
// Adapt is called before every attempt, including retries, and is
// given the task's context and the session's HTTPDoer. The doer is
// provided for reference only (for example to send a token refresh
// request) and must not be retained after Adapt returns. Adapt may
// block, but should return promptly once ctx is done.
//
// If Adapt returns an error, the task ends without sending anything
// and its serializers receive an *AdaptError. Adaptation errors are
// never retried.
//
// Implementations of Adapter must be safe for concurrent use by
// multiple goroutines.
type Adapter interface {
	Adapt(ctx context.Context, r *http.Request, doer HTTPDoer) (*http.Request, error)
}

// The AdapterFunc type is an adapter to allow the use of ordinary
// functions as request adapters.
type AdapterFunc func(ctx context.Context, r *http.Request, doer HTTPDoer) (*http.Request, error)

// Adapt calls f(ctx, r, doer).
func (f AdapterFunc) Adapt(ctx context.Context, r *http.Request, doer HTTPDoer) (*http.Request, error) {
	return f(ctx, r, doer)
}

// A Retrier decides, after every attempt, whether a task should be
// re-issued.
//
// Retry receives the task's context and its execution state, whose
// Outcome holds the container produced by the attempt which just
// ended. To retry, return the request to send next; it is adapted
// afresh before it is sent. To stop, return a nil request and a nil
// error. A non-nil error also stops the task, and serializers see an
// *RetryError in place of the attempt's own error.
//
// Retry may block, for example to back off or to refresh credentials,
// but should return promptly once ctx is done. Package retry provides
// a ready-made Retrier.
//
// Implementations of Retrier must be safe for concurrent use by
// multiple goroutines.
type Retrier interface {
	Retry(ctx context.Context, e *request.Execution) (*http.Request, error)
}

// The RetrierFunc type is an adapter to allow the use of ordinary
// functions as retriers.
type RetrierFunc func(ctx context.Context, e *request.Execution) (*http.Request, error)

// Retry calls f(ctx, e).
func (f RetrierFunc) Retry(ctx context.Context, e *request.Execution) (*http.Request, error) {
	return f(ctx, e)
}

// TaskCreator is the interface that wraps the basic CreateTask method.
//
// CreateTask returns a new, unstarted Task for the given request
// source. Session implements TaskCreator.
//
// Any TaskCreator can be used to create GET, HEAD, and POST tasks via
// the Get, Head, Post, and PostForm functions.
type TaskCreator interface {
	CreateTask(src request.Source) *Task
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any idle which were previously connected from previous
// requests but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
type IdleCloser interface {
	CloseIdleConnections()
}

// Get uses tc to create a task which issues a GET to the specified
// URL. The task is not started.
//
// An invalid URL does not cause an immediate error. Instead the task's
// serializers receive a *ResolveError.
func Get(tc TaskCreator, url string) *Task {
	return tc.CreateTask(request.Deferred(context.Background(), "GET", url, nil))
}

// Head uses tc to create a task which issues a HEAD to the specified
// URL. The task is not started.
func Head(tc TaskCreator, url string) *Task {
	return tc.CreateTask(request.Deferred(context.Background(), "HEAD", url, nil))
}

// Post uses tc to create a task which issues a POST to the specified
// URL. The task is not started.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.NewPlan and request.BodyBytes, namely:
// string; []byte; io.Reader; and io.ReadCloser. A reader is not read
// until the task starts.
func Post(tc TaskCreator, url, contentType string, body interface{}) *Task {
	return tc.CreateTask(request.SourceFunc(func() (*http.Request, error) {
		p, err := request.NewPlan("POST", url, body)
		if err != nil {
			return nil, err
		}
		p.Header.Set("Content-Type", contentType)
		return p.Resolve()
	}))
}

// PostForm uses tc to create a task which issues a POST to the
// specified URL, with data's keys and values URL-encoded as the request
// body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
func PostForm(tc TaskCreator, url string, data url.Values) *Task {
	return Post(tc, url, "application/x-www-form-urlencoded", data.Encode())
}
