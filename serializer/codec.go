// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package serializer

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/gogama/netsession"
	"google.golang.org/protobuf/proto"
)

// Content types understood by Negotiate.
const (
	ContentTypeJSON     = "application/json"
	ContentTypeCBOR     = "application/cbor"
	ContentTypeProtobuf = "application/x-protobuf"
)

// cborDec decodes CBOR maps held in interface values as
// map[string]interface{}, matching encoding/json.
var cborDec = mustDecMode(cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
})

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("netsession/serializer: cbor decode mode: %v", err))
	}
	return dm
}

// JSON returns a serializer which decodes the response body as JSON
// into a value of type T.
func JSON[T any]() netsession.Serializer[T] {
	return decoder(func(body []byte, v *T) error {
		return json.Unmarshal(body, v)
	})
}

// CBOR returns a serializer which decodes the response body as CBOR
// (RFC 8949) into a value of type T.
func CBOR[T any]() netsession.Serializer[T] {
	return CBORMode[T](cborDec)
}

// CBORMode is like CBOR but decodes with the given decoding mode, for
// example one built from cbor.DecOptions with tighter limits.
func CBORMode[T any](dm cbor.DecMode) netsession.Serializer[T] {
	if dm == nil {
		panic("netsession/serializer: nil cbor decode mode")
	}
	return decoder(func(body []byte, v *T) error {
		return dm.Unmarshal(body, v)
	})
}

// Proto returns a serializer which decodes the response body as a
// Protocol Buffers message. T must be a pointer to a generated message
// type, such as *structpb.Struct.
func Proto[T proto.Message]() netsession.Serializer[T] {
	uo := proto.UnmarshalOptions{}
	return netsession.SerializerFunc[T](func(_ *http.Request, _ *http.Response, body []byte, err error) (T, error) {
		var zero T
		if err != nil {
			return zero, err
		}
		msg := zero.ProtoReflect().Type().New().Interface().(T)
		if err = uo.Unmarshal(body, msg); err != nil {
			return zero, &DecodeError{Err: err}
		}
		return msg, nil
	})
}

// Negotiate returns a serializer which picks JSON or CBOR decoding
// based on the response's Content-Type header. A response with no
// Content-Type is decoded as JSON. Any other content type fails with an
// *UnsupportedContentTypeError.
func Negotiate[T any]() netsession.Serializer[T] {
	codecs := map[string]netsession.Serializer[T]{
		ContentTypeJSON: JSON[T](),
		ContentTypeCBOR: CBOR[T](),
	}
	return netsession.SerializerFunc[T](func(r *http.Request, resp *http.Response, body []byte, err error) (T, error) {
		var zero T
		if err != nil {
			return zero, err
		}
		mediaType := ContentTypeJSON
		if ct := contentType(resp); ct != "" {
			if mediaType, _, err = mime.ParseMediaType(ct); err != nil {
				return zero, &UnsupportedContentTypeError{ContentType: ct}
			}
		}
		s, ok := codecs[mediaType]
		if !ok {
			return zero, &UnsupportedContentTypeError{ContentType: mediaType}
		}
		return s.Serialize(r, resp, body, nil)
	})
}

func contentType(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Header.Get("Content-Type")
}
