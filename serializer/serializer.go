// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package serializer provides stock serializers which turn the final
// outcome of a netsession Task into a typed value.
//
// Every serializer in this package passes a transport or pipeline error
// through unchanged and returns the zero value of its type alongside
// it. Decoding serializers only look at the response body, so combine
// them with Status to reject unsuccessful responses before decoding:
//
//	users := netsession.AddSerializer(task, serializer.Status(serializer.JSON[[]User]()))
//	raw := netsession.AddSerializer(task, serializer.Data())
package serializer

import (
	"net/http"

	"github.com/gogama/netsession"
)

// Data returns a serializer which yields the raw response body.
func Data() netsession.Serializer[[]byte] {
	return netsession.SerializerFunc[[]byte](func(_ *http.Request, _ *http.Response, body []byte, err error) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return body, nil
	})
}

// String returns a serializer which yields the response body as a
// string.
func String() netsession.Serializer[string] {
	return netsession.SerializerFunc[string](func(_ *http.Request, _ *http.Response, body []byte, err error) (string, error) {
		if err != nil {
			return "", err
		}
		return string(body), nil
	})
}

// Response returns a serializer which yields the final HTTP response.
// The response body has already been consumed; use the other
// serializers for the content.
func Response() netsession.Serializer[*http.Response] {
	return netsession.SerializerFunc[*http.Response](func(_ *http.Request, resp *http.Response, _ []byte, err error) (*http.Response, error) {
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// decoder adapts a decode function into a serializer of T.
func decoder[T any](decode func(body []byte, v *T) error) netsession.Serializer[T] {
	return netsession.SerializerFunc[T](func(_ *http.Request, _ *http.Response, body []byte, err error) (T, error) {
		var v T
		if err != nil {
			return v, err
		}
		if err = decode(body, &v); err != nil {
			var zero T
			return zero, &DecodeError{Err: err}
		}
		return v, nil
	})
}
