// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import "net/http"

// A Container is an immutable snapshot of one completed request
// attempt.
//
// Each of its three parts is independently optional. An attempt which
// failed before any response arrived has only an error. A successful
// attempt has a response and a body but no error. An attempt whose
// body could not be fully read has a response and an error.
//
// A nil *Container is valid and behaves like an empty one.
//
// The response body stream has always been drained and closed by the
// time a Container exists; use Body to get the buffered bytes. Callers
// must not modify the byte slice returned by Body, as the same slice is
// handed to every serializer.
type Container struct {
	response *http.Response
	body     []byte
	err      error
}

// NewContainer returns a Container holding the given response, body,
// and error, any of which may be nil.
func NewContainer(resp *http.Response, body []byte, err error) *Container {
	return &Container{
		response: resp,
		body:     body,
		err:      err,
	}
}

// Response returns the HTTP response metadata, or nil.
func (c *Container) Response() *http.Response {
	if c == nil {
		return nil
	}
	return c.response
}

// Body returns the buffered response body, or nil.
func (c *Container) Body() []byte {
	if c == nil {
		return nil
	}
	return c.body
}

// Err returns the error that ended the attempt, or nil.
func (c *Container) Err() error {
	if c == nil {
		return nil
	}
	return c.err
}

// StatusCode returns the HTTP response status code, or 0 if there is
// no response.
func (c *Container) StatusCode() int {
	if r := c.Response(); r != nil {
		return r.StatusCode
	}
	return 0
}

// Header returns the HTTP response headers, or a nil header if there
// is no response. The nil header is safe for read-only use.
func (c *Container) Header() http.Header {
	if r := c.Response(); r != nil {
		return r.Header
	}
	return nil
}

// WithErr returns a copy of c whose error is replaced by err. The
// response and body are shared with c.
func (c *Container) WithErr(err error) *Container {
	return NewContainer(c.Response(), c.Body(), err)
}
