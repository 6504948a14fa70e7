// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package netsession

import (
	"context"
	"net/http"

	"github.com/gogama/netsession/request"
)

// A Serializer turns the final outcome of a task into a typed value.
//
// Serialize receives the task's resolved request (nil if resolution
// failed) and the three parts of the final request.Container: the
// response, the buffered body, and the error. Any of these may be nil.
// Serialize should be a pure function of its inputs. It must not
// modify body, which is shared with the task's other serializers.
//
// Package serializer provides ready-made implementations.
type Serializer[T any] interface {
	Serialize(r *http.Request, resp *http.Response, body []byte, err error) (T, error)
}

// The SerializerFunc type is an adapter to allow the use of ordinary
// functions as serializers.
type SerializerFunc[T any] func(r *http.Request, resp *http.Response, body []byte, err error) (T, error)

// Serialize calls f(r, resp, body, err).
func (f SerializerFunc[T]) Serialize(r *http.Request, resp *http.Response, body []byte, err error) (T, error) {
	return f(r, resp, body, err)
}

// A Result is the pending output of one serializer registered on a
// task. It resolves exactly once.
type Result[T any] struct {
	serializer Serializer[T]
	done       chan struct{}
	value      T
	err        error
}

// AddSerializer registers s on t and returns the Result s will produce.
//
// If t has not started, AddSerializer starts it. If t has already
// finished, s is applied to the cached final outcome and nothing is
// re-sent. If t is cancelled, the Result resolves with an error
// wrapping ErrCanceled.
//
// Serializers registered on one task are started in registration
// order, each on its own goroutine, so they may complete in any order.
// A serializer's error or panic affects only its own Result.
func AddSerializer[T any](t *Task, s Serializer[T]) *Result[T] {
	if s == nil {
		panic("netsession: nil serializer")
	}
	r := &Result[T]{
		serializer: s,
		done:       make(chan struct{}),
	}
	t.subscribe(r)
	return r
}

// Done returns a channel that is closed when the Result is available.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the Result is available or ctx is done. In the
// latter case it returns the zero value of T and ctx.Err(); the task
// itself is not cancelled.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the Result is available and returns it.
func (r *Result[T]) Get() (T, error) {
	<-r.done
	return r.value, r.err
}

func (r *Result[T]) deliver(req *http.Request, c *request.Container) {
	go func() {
		defer close(r.done)
		r.value, r.err = serialize(r.serializer, req, c)
	}()
}

func serialize[T any](s Serializer[T], req *http.Request, c *request.Container) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, err = zero, &SerializePanicError{Value: p}
		}
	}()
	return s.Serialize(req, c.Response(), c.Body(), c.Err())
}
