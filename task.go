// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package netsession

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/gogama/netsession/request"
	"github.com/rs/zerolog"
)

// A State is a stage in the lifecycle of a Task.
type State int

const (
	// Created is the state of a task which has not been started.
	Created State = iota
	// Ready is the state of a task whose request has been resolved (or
	// failed to resolve) and which is about to be adapted and sent,
	// either for the first time or as a retry.
	Ready
	// Executing is the state of a task with an attempt in flight.
	Executing
	// Deciding is the state of a task whose retrier is deciding whether
	// to retry the attempt which just ended.
	Deciding
	// Terminal is the state of a task whose final outcome is fixed,
	// either because it was delivered or because the task was
	// cancelled.
	Terminal
)

var stateNames = []string{
	"Created",
	"Ready",
	"Executing",
	"Deciding",
	"Terminal",
}

// String returns the name of the state.
func (s State) String() string {
	return stateNames[int(s)]
}

// delegate is the part of a Session that a Task calls back into.
type delegate interface {
	// readyToExecute is called once the task's request source has been
	// resolved, or has failed to resolve.
	readyToExecute(t *Task)
	// restartRequested is called from the attempt loop when the retrier
	// has asked for r to be sent as the task's next attempt.
	restartRequested(r *http.Request, t *Task)
}

type deliverer interface {
	deliver(r *http.Request, c *request.Container)
}

// A Task owns the lifecycle of one logical request: resolving it,
// sending it (possibly several times, as the retrier decides), and
// delivering the final outcome to every serializer registered with
// AddSerializer.
//
// Create tasks with Session.CreateTask. A Task does nothing until it is
// started, either explicitly with Resume or implicitly by the first call
// to AddSerializer. All methods of Task are safe for concurrent use by
// multiple goroutines.
type Task struct {
	delegate delegate
	source   request.Source
	retrier  Retrier
	handlers *HandlerGroup
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool

	lock          sync.Mutex
	state         State
	started       bool
	request       *http.Request
	resolveErr    error
	attempts      int
	cancelAttempt context.CancelFunc
	pending       *queue.Queue
	final         *request.Container
	done          chan struct{}

	// exec and retry are owned by the goroutine running the attempt
	// loop. retry is the request the retrier asked to send next.
	exec  request.Execution
	retry *http.Request
}

func newTask(ctx context.Context, d delegate, src request.Source, retrier Retrier, handlers *HandlerGroup, logger zerolog.Logger) *Task {
	t := &Task{
		delegate: d,
		source:   src,
		retrier:  retrier,
		handlers: handlers,
		logger:   logger,
		pending:  queue.New(),
		done:     make(chan struct{}),
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.stop = context.AfterFunc(ctx, func() {
		t.cancelWith(canceledBy(ctx))
	})
	t.exec.Source = src
	return t
}

// Resume starts the task if it has not been started. It returns
// immediately; the attempt loop runs on its own goroutine.
//
// Calling Resume on a started or terminal task does nothing.
func (t *Task) Resume() {
	t.lock.Lock()
	if t.started || t.state == Terminal {
		t.lock.Unlock()
		return
	}
	t.started = true
	t.lock.Unlock()

	go t.run()
}

// Cancel ends the task with an error wrapping ErrCanceled, unless its
// final outcome has already been fixed. Any adaptation, attempt, or
// retry decision in progress is interrupted through the task context
// and no further attempts are made. Every serializer already
// registered, and every serializer registered later, receives the
// cancellation error exactly once.
func (t *Task) Cancel() {
	t.cancelWith(ErrCanceled)
}

// Done returns a channel that is closed when the task becomes
// terminal.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// State returns the current lifecycle state of the task.
func (t *Task) State() State {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state
}

// Attempts returns the number of HTTP request attempts sent so far.
func (t *Task) Attempts() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.attempts
}

// Request returns the request the task's source resolved to. It is nil
// until resolution has happened, and stays nil if resolution failed.
// The returned request is the one before adaptation.
func (t *Task) Request() *http.Request {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.request
}

// Context returns the task context. It is done once the task is
// terminal.
func (t *Task) Context() context.Context {
	return t.ctx
}

func (t *Task) subscribe(d deliverer) {
	t.lock.Lock()
	if t.state == Terminal {
		r, c := t.request, t.final
		t.lock.Unlock()
		d.deliver(r, c)
		return
	}
	t.pending.Add(d)
	t.lock.Unlock()

	t.Resume()
}

func (t *Task) run() {
	r, err := t.source.Resolve()
	if err == nil && r == nil {
		err = errNilResolved
	}

	t.lock.Lock()
	if t.state == Terminal {
		t.lock.Unlock()
		return
	}
	t.state = Ready
	if err != nil {
		t.resolveErr = err
	} else {
		t.request = r
	}
	t.lock.Unlock()

	t.exec.Original = r
	t.handlers.run(BeforeExecutionStart, &t.exec)
	t.exec.Start = time.Now()
	t.delegate.readyToExecute(t)
	for t.retry != nil {
		r := t.retry
		t.retry = nil
		t.delegate.restartRequested(r, t)
	}
}

func (t *Task) resolved() (*http.Request, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.request, t.resolveErr
}

// beginAttempt records cancel as the way to abort the attempt about to
// be sent. It returns false, and records nothing, if the task is
// terminal.
func (t *Task) beginAttempt(cancel context.CancelFunc) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.state == Terminal {
		return false
	}
	t.state = Executing
	t.attempts++
	t.cancelAttempt = cancel
	return true
}

func (t *Task) transition(s State) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.state == Terminal {
		return false
	}
	t.state = s
	t.cancelAttempt = nil
	return true
}

// executeResponseSerializers is called by the session once an attempt
// has produced c. It asks the retrier whether to go again and either
// queues the next request for the attempt loop or delivers c.
func (t *Task) executeResponseSerializers(c *request.Container) {
	if !t.transition(Deciding) {
		return
	}

	if t.retrier == nil {
		t.complete(c)
		return
	}

	next, err := t.retrier.Retry(t.ctx, &t.exec)
	if t.ctx.Err() != nil {
		return
	}

	switch {
	case err != nil:
		t.logger.Debug().Int("attempt", t.exec.Attempt).Err(err).Msg("retry decision failed")
		t.complete(c.WithErr(&RetryError{Attempt: t.exec.Attempt, Err: err}))
	case next == nil:
		t.complete(c)
	default:
		if !t.transition(Ready) {
			return
		}
		t.exec.Attempt++
		t.logger.Debug().Int("attempt", t.exec.Attempt).Msg("retrying")
		t.retry = next
	}
}

// complete delivers c as the task's final outcome from the attempt
// loop. A task whose context is done is left for the cancellation path
// to finish.
func (t *Task) complete(c *request.Container) {
	if t.ctx.Err() != nil {
		return
	}
	if !t.finish(c) {
		return
	}
	t.exec.Outcome = c
	t.exec.End = time.Now()
	t.logger.Debug().
		Int("attempts", t.exec.Attempt+1).
		Int("status", c.StatusCode()).
		Err(c.Err()).
		Dur("duration", t.exec.Duration()).
		Msg("task delivered")
	t.handlers.run(AfterExecutionEnd, &t.exec)
}

func (t *Task) cancelWith(err error) {
	if t.finish(request.NewContainer(nil, nil, err)) {
		t.logger.Debug().Err(err).Msg("task canceled")
	}
}

// finish fixes c as the final outcome and hands it to every pending
// serializer. It returns false if the outcome was already fixed.
func (t *Task) finish(c *request.Container) bool {
	t.lock.Lock()
	if t.state == Terminal {
		t.lock.Unlock()
		return false
	}
	t.state = Terminal
	t.final = c
	if t.cancelAttempt != nil {
		t.cancelAttempt()
		t.cancelAttempt = nil
	}
	pending := make([]deliverer, 0, t.pending.Length())
	for t.pending.Length() > 0 {
		pending = append(pending, t.pending.Remove().(deliverer))
	}
	r := t.request
	t.lock.Unlock()

	t.stop()
	t.cancel()
	close(t.done)
	for _, d := range pending {
		d.deliver(r, c)
	}
	return true
}
