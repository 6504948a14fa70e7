// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package serializer

import (
	"net/http"

	"github.com/gogama/netsession"
	"github.com/rs/zerolog"
)

// Debug wraps s so that every outcome it receives is logged to logger at
// debug level before s runs. Failures of s itself are logged at warn
// level.
func Debug[T any](logger zerolog.Logger, s netsession.Serializer[T]) netsession.Serializer[T] {
	if s == nil {
		panic("netsession/serializer: nil serializer")
	}
	return netsession.SerializerFunc[T](func(r *http.Request, resp *http.Response, body []byte, err error) (T, error) {
		evt := logger.Debug().Int("body_bytes", len(body)).Err(err)
		if r != nil {
			evt = evt.Str("method", r.Method).Stringer("url", r.URL)
		}
		if resp != nil {
			evt = evt.Int("status", resp.StatusCode)
		}
		evt.Msg("serializing outcome")

		v, serr := s.Serialize(r, resp, body, err)
		if serr != nil && serr != err {
			logger.Warn().Err(serr).Msg("serializer failed")
		}
		return v, serr
	})
}
