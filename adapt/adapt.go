// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package adapt provides stock request adapters for a netsession
// Session.
//
// An adapter runs before every attempt, including retries, and always
// receives the unadapted request. The adapters in this package never
// modify the request they are given; they return a modified copy.
//
// Compose several adapters with Chain:
//
//	s := netsession.New(netsession.WithAdapter(adapt.Chain(
//		adapt.Header("User-Agent", "netfetch/1.0"),
//		adapt.Bearer(tokens.Fetch),
//	)))
package adapt

import (
	"context"
	"errors"
	"net/http"

	"github.com/gogama/netsession"
	"github.com/gogama/netsession/request"
)

// ErrEmptyToken is returned by a Bearer adapter whose token function
// returned an empty token and no error.
var ErrEmptyToken = errors.New("netsession/adapt: empty bearer token")

// Chain returns an adapter which applies as in order, passing the output
// of each to the next. If any adapter fails, Chain stops and returns its
// error.
//
// Chain with no adapters returns the request unchanged.
func Chain(as ...netsession.Adapter) netsession.Adapter {
	chain := make([]netsession.Adapter, len(as))
	for i, a := range as {
		if a == nil {
			panic("netsession/adapt: nil adapter")
		}
		chain[i] = a
	}
	return netsession.AdapterFunc(func(ctx context.Context, r *http.Request, doer netsession.HTTPDoer) (*http.Request, error) {
		var err error
		for _, a := range chain {
			r, err = a.Adapt(ctx, r, doer)
			if err != nil {
				return nil, err
			}
		}
		return r, nil
	})
}

// Header returns an adapter which sets the named header to value,
// replacing any values the request already has for it.
func Header(key, value string) netsession.Adapter {
	return netsession.AdapterFunc(func(_ context.Context, r *http.Request, _ netsession.HTTPDoer) (*http.Request, error) {
		r2 := r.Clone(r.Context())
		r2.Header.Set(key, value)
		return r2, nil
	})
}

// BasicAuth returns an adapter which sets the Authorization header for
// HTTP Basic Authentication with the given credentials.
func BasicAuth(username, password string) netsession.Adapter {
	return Header("Authorization", "Basic "+request.BasicAuth(username, password))
}

// Bearer returns an adapter which calls token before every attempt and
// sets the Authorization header to the bearer token it returns.
//
// The token function receives the task context and may block, for
// example to refresh an expired token. If the task is cancelled, the
// context passed to token is done.
func Bearer(token func(ctx context.Context) (string, error)) netsession.Adapter {
	if token == nil {
		panic("netsession/adapt: nil token func")
	}
	return netsession.AdapterFunc(func(ctx context.Context, r *http.Request, _ netsession.HTTPDoer) (*http.Request, error) {
		tok, err := token(ctx)
		if err != nil {
			return nil, err
		}
		if tok == "" {
			return nil, ErrEmptyToken
		}
		r2 := r.Clone(r.Context())
		r2.Header.Set("Authorization", "Bearer "+tok)
		return r2, nil
	})
}
