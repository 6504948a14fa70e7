// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package serializer

import (
	"fmt"
	"net/http"

	"github.com/gogama/netsession"
)

// A StatusError is returned by a Status serializer when the response
// status code is not one it accepts.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("netsession/serializer: unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// A DecodeError is returned when a response body cannot be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "netsession/serializer: decode body: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// An UnsupportedContentTypeError is returned by a Negotiate serializer
// when the response has a content type it does not decode.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("netsession/serializer: unsupported content type %q", e.ContentType)
}

// Status wraps s so that it is only called for responses whose status
// code is in accept. If accept is empty, any 2XX status is accepted.
// Other responses fail with a *StatusError carrying the status code and
// body.
func Status[T any](s netsession.Serializer[T], accept ...int) netsession.Serializer[T] {
	if s == nil {
		panic("netsession/serializer: nil serializer")
	}
	codes := make(map[int]bool, len(accept))
	for _, code := range accept {
		codes[code] = true
	}
	ok := func(code int) bool {
		if len(codes) == 0 {
			return code >= 200 && code < 300
		}
		return codes[code]
	}
	return netsession.SerializerFunc[T](func(r *http.Request, resp *http.Response, body []byte, err error) (T, error) {
		if err == nil && resp != nil && !ok(resp.StatusCode) {
			var zero T
			return zero, &StatusError{StatusCode: resp.StatusCode, Body: body}
		}
		return s.Serialize(r, resp, body, err)
	})
}
