// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package netsession

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/gogama/netsession/request"
	"github.com/gogama/netsession/timeout"
	"github.com/rs/zerolog"
)

// A Session creates tasks and runs their attempt loops. Its
// configuration is fixed at construction, and it keeps no per-task
// state, so one Session may be shared by any number of concurrently
// running tasks.
//
// A Session is higher-level than an HTTPDoer. The HTTPDoer is
// responsible for all details of sending the HTTP request and receiving
// the response (redirects, cookies, connection pooling, TLS), while
// Session builds on top of it:
//
// • Session adapts each attempt's request with an optional Adapter;
//
// • Session sets individual attempt timeouts using a customizable
// timeout policy;
//
// • Session reads and buffers the entire HTTP response body;
//
// • Session asks an optional Retrier whether to re-issue the request
// after every attempt; and
//
// • Session hands the final outcome of each task to every serializer
// registered on it.
type Session struct {
	doer     HTTPDoer
	adapter  Adapter
	retrier  Retrier
	timeouts timeout.Policy
	handlers *HandlerGroup
	logger   zerolog.Logger
}

// An Option configures a Session created by New.
type Option func(*Session)

// WithDoer sets the session's transport. The default is
// http.DefaultClient from the standard net/http package.
func WithDoer(d HTTPDoer) Option {
	if d == nil {
		panic("netsession: nil doer")
	}
	return func(s *Session) {
		s.doer = d
	}
}

// WithAdapter sets the adapter applied to the request before every
// attempt. By default requests are sent as resolved.
func WithAdapter(a Adapter) Option {
	if a == nil {
		panic("netsession: nil adapter")
	}
	return func(s *Session) {
		s.adapter = a
	}
}

// WithRetrier sets the retrier consulted after every attempt. By default
// there is no retrier and every task makes exactly one attempt.
//
// The session does not bound the number of attempts itself. A retrier
// that always retries keeps a task going until it is cancelled.
func WithRetrier(r Retrier) Option {
	if r == nil {
		panic("netsession: nil retrier")
	}
	return func(s *Session) {
		s.retrier = r
	}
}

// WithTimeoutPolicy sets the per-attempt timeout policy. The default is
// timeout.DefaultPolicy.
func WithTimeoutPolicy(p timeout.Policy) Option {
	if p == nil {
		panic("netsession: nil timeout policy")
	}
	return func(s *Session) {
		s.timeouts = p
	}
}

// WithHandlers installs event handlers. The group must not be modified
// afterward.
func WithHandlers(g *HandlerGroup) Option {
	if g == nil {
		panic("netsession: nil handler group")
	}
	return func(s *Session) {
		s.handlers = g
	}
}

// WithLogger sets the logger the session writes debug events to. The
// default logger discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New returns a Session configured by opts.
func New(opts ...Option) *Session {
	s := &Session{
		doer:     http.DefaultClient,
		timeouts: timeout.DefaultPolicy,
		handlers: &emptyHandlers,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	sharedOnce    sync.Once
	sharedSession *Session
)

// Shared returns the process-wide default Session, creating it on first
// use. It uses the default configuration of New: http.DefaultClient,
// no adapter, and no retrier.
func Shared() *Session {
	sharedOnce.Do(func() {
		sharedSession = New()
	})
	return sharedSession
}

// CreateTask returns a new, unstarted Task for src. It is equivalent to
// CreateTaskContext with the background context.
func (s *Session) CreateTask(src request.Source) *Task {
	return s.CreateTaskContext(context.Background(), src)
}

// CreateTaskContext returns a new, unstarted Task for src. When ctx is
// done, the task is cancelled, and its serializers receive an error
// wrapping both ErrCanceled and the context's cause.
//
// Creating a task has no side effects beyond allocation.
func (s *Session) CreateTaskContext(ctx context.Context, src request.Source) *Task {
	if ctx == nil {
		panic("netsession: nil context")
	}
	if src == nil {
		panic("netsession: nil source")
	}
	return newTask(ctx, s, src, s.retrier, s.handlers, s.logger)
}

// Get creates an unstarted task which issues a GET to the specified
// URL.
func (s *Session) Get(url string) *Task {
	return Get(s, url)
}

// Head creates an unstarted task which issues a HEAD to the specified
// URL.
func (s *Session) Head(url string) *Task {
	return Head(s, url)
}

// Post creates an unstarted task which issues a POST to the specified
// URL. See the package function Post for the accepted body types.
func (s *Session) Post(url, contentType string, body interface{}) *Task {
	return Post(s, url, contentType, body)
}

// PostForm creates an unstarted task which issues a POST of the
// URL-encoded form data to the specified URL.
func (s *Session) PostForm(url string, data url.Values) *Task {
	return PostForm(s, url, data)
}

// CloseIdleConnections invokes the same method on the session's
// HTTPDoer. If the HTTPDoer has no CloseIdleConnections method, this
// method does nothing.
func (s *Session) CloseIdleConnections() {
	if ic, ok := s.doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (s *Session) readyToExecute(t *Task) {
	r, err := t.resolved()
	if err != nil {
		t.logger.Debug().Err(err).Msg("request resolution failed")
		t.complete(request.NewContainer(nil, nil, &ResolveError{Err: err}))
		return
	}

	s.start(r, t)
}

func (s *Session) restartRequested(r *http.Request, t *Task) {
	s.start(r, t)
}

func (s *Session) start(r *http.Request, t *Task) {
	if s.adapter != nil {
		adapted, err := s.adapter.Adapt(t.ctx, r, s.doer)
		if err == nil && adapted == nil {
			err = errNilAdapted
		}
		if err != nil {
			t.logger.Debug().Err(err).Msg("request adaptation failed")
			t.complete(request.NewContainer(nil, nil, &AdaptError{Err: err}))
			return
		}
		r = adapted
	}

	s.execute(r, t)
}

func (s *Session) execute(r *http.Request, t *Task) {
	e := &t.exec
	ctx, cancel := context.WithTimeout(t.ctx, s.timeouts.Timeout(e))
	e.Outcome = nil
	if !t.beginAttempt(cancel) {
		cancel()
		return
	}

	req, err := prepare(ctx, r, e.Attempt)
	if err != nil {
		cancel()
		e.Request = r
		e.Outcome = request.NewContainer(nil, nil, urlErrorWrap(r, err))
		s.attemptEnded(t)
		return
	}

	e.Request = req
	s.handlers.run(BeforeAttempt, e)
	t.logger.Debug().
		Int("attempt", e.Attempt).
		Str("method", req.Method).
		Stringer("url", req.URL).
		Msg("sending attempt")

	resp, err := s.doer.Do(req)
	var body []byte
	if err != nil {
		err = urlErrorWrap(req, err)
	} else {
		body, err = readBody(resp)
		if err != nil {
			err = urlErrorWrap(req, err)
		}
	}
	cancel()

	e.Outcome = request.NewContainer(resp, body, err)
	s.attemptEnded(t)
}

func (s *Session) attemptEnded(t *Task) {
	if t.ctx.Err() != nil {
		// Cancelled. The final outcome is already fixed or about to be.
		return
	}
	e := &t.exec
	if e.Timeout() {
		e.AttemptTimeouts++
		s.handlers.run(AfterAttemptTimeout, e)
	}
	s.handlers.run(AfterAttempt, e)
	t.executeResponseSerializers(e.Outcome)
}

// prepare returns a copy of r bound to ctx with a fresh body. Only the
// first attempt may consume a body which cannot be rewound.
func prepare(ctx context.Context, r *http.Request, attempt int) (*http.Request, error) {
	req := r.Clone(ctx)
	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	if r.GetBody != nil {
		body, err := r.GetBody()
		if err != nil {
			return nil, err
		}
		req.Body = body
	} else if attempt > 0 {
		return nil, errBodyRewind
	}
	return req, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return io.ReadAll(resp.Body)
}
