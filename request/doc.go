// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the types a netsession task is built from and
reports through: Source (anything that resolves to an HTTP request),
Container (the immutable outcome of one request attempt), and Execution
(the state of a task's attempt loop).

The first core type is Source. A Source is consulted once, when a task
starts, to produce the concrete *http.Request the task will send.
Resolution may fail, in which case the task never touches the network
and every serializer on the task observes the resolution error.

A Plan is the most common Source. It is a stripped-down http.Request
with a pre-buffered body, so the same logical request can be sent as
many times as the retry policy demands:

	p, err := request.NewPlan("GET", "https://example.com", nil)
	...
	task := session.CreateTask(p)
	...

When the request parameters come from untrusted input and you would
rather see parse errors through the task than up front, use Deferred:

	task := session.CreateTask(request.Deferred(ctx, "GET", rawURL, nil))

The second core type is Container, an immutable snapshot of one
completed attempt: the HTTP response (if any), the fully-buffered body
(if any), and the error (if any). Exactly one Container is produced per
attempt, and the Container from the final attempt is handed to every
serializer registered on the task.

The third core type is Execution, which carries the attempt loop state
(attempt number, timings, request sent, most recent Container) to the
pluggable parts of a session: retriers, timeout policies, and event
handlers. You will typically not allocate Execution instances yourself.
*/
package request
