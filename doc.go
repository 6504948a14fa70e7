// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package netsession provides a programmable HTTP request pipeline. A
Session turns a request source into a Task; the task resolves the
request, lets an optional Adapter modify it, sends it, lets an optional
Retrier send it again, and finally hands the outcome to any number of
typed serializers.

Use the shared session for simple requests:

	task := netsession.Shared().Get("https://www.example.com")
	page := netsession.AddSerializer(task, serializer.String())
	s, err := page.Get()

Create a Session to plug in a transport, an adapter, and a retrier:

	s := netsession.New(
		netsession.WithDoer(&http.Client{}),
		netsession.WithAdapter(adapt.Bearer(tokens.Current)),
		netsession.WithRetrier(retry.NewRetrier(retry.DefaultPolicy)),
	)

Several serializers may be registered on one task. All of them see the
same final outcome from a single series of attempts, and each produces
its own Result:

	task := s.Get("https://api.example.com/users/42")
	user := netsession.AddSerializer(task, serializer.JSON[User]())
	raw := netsession.AddSerializer(task, serializer.Data())

Failures never panic or get lost. A request which cannot be resolved
yields a *ResolveError, a failing adapter yields an *AdaptError, a
failing retrier yields a *RetryError, transport failures are *url.Error
values, and a cancelled task yields an error wrapping ErrCanceled. Each
of these is returned from every Result of the task.

To hook into the fine-grained details of the attempt loop, install a
handler into the appropriate handler chain:

	handlers := &netsession.HandlerGroup{}
	handlers.PushBack(netsession.BeforeAttempt, netsession.HandlerFunc(
		func(_ netsession.Event, e *request.Execution) {
			log.Printf("Attempt %d to %s", e.Attempt, e.Request.URL)
		}),
	)
	s := netsession.New(netsession.WithHandlers(handlers))
*/
package netsession
