// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"net/http"
)

const nilRequestMsg = "netsession/request: nil request"

// A Source is anything which can be resolved into a concrete HTTP
// request.
//
// Resolve is called once per task, when the task starts. If it returns
// an error, the task ends without sending anything and the error is
// delivered to the task's serializers.
//
// Implementations of Source need not be safe for concurrent use unless
// the same Source is shared between tasks.
type Source interface {
	Resolve() (*http.Request, error)
}

// The SourceFunc type is an adapter to allow the use of ordinary
// functions as request sources.
type SourceFunc func() (*http.Request, error)

// Resolve calls f().
func (f SourceFunc) Resolve() (*http.Request, error) {
	return f()
}

// FromRequest returns a Source which always resolves to r.
//
// If r has a body, r.GetBody should be set (http.NewRequest does this
// for the common in-memory body types) or the body cannot be re-sent
// on retry.
func FromRequest(r *http.Request) Source {
	if r == nil {
		panic(nilRequestMsg)
	}
	return fixed{r}
}

type fixed struct {
	r *http.Request
}

func (f fixed) Resolve() (*http.Request, error) {
	return f.r, nil
}

// Deferred returns a Source which builds a Plan from the given
// parameters only when resolved. Any error NewPlanWithContext would
// have returned is instead returned from Resolve.
//
// The body parameter accepts the same types as NewPlan. If body is an
// io.Reader it is not read until Resolve is called.
func Deferred(ctx context.Context, method, url string, body interface{}) Source {
	return SourceFunc(func() (*http.Request, error) {
		p, err := NewPlanWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		return p.Resolve()
	})
}

// Failed returns a Source whose Resolve always returns err, which must
// not be nil. It is mostly useful for propagating an error discovered
// while building a request through the normal task delivery path.
func Failed(err error) Source {
	if err == nil {
		panic("netsession/request: nil error")
	}
	return SourceFunc(func() (*http.Request, error) {
		return nil, err
	})
}

var errNoURL = errors.New("netsession/request: plan has no URL")
