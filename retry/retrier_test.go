// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gogama/netsession/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetrier(t *testing.T) {
	assert.PanicsWithValue(t, "netsession/retry: nil policy", func() { NewRetrier(nil) })
	assert.NotNil(t, DefaultRetrier)
}

func TestRetrier_Retry(t *testing.T) {
	original, err := http.NewRequest("GET", "http://example.com/", nil)
	require.NoError(t, err)
	adapted := original.Clone(context.Background())
	adapted.Header.Set("Authorization", "Bearer x")

	t.Run("declines", func(t *testing.T) {
		r := NewRetrier(Never)
		next, err := r.Retry(context.Background(), &request.Execution{Original: original, Outcome: withStatus(503)})
		assert.Nil(t, next)
		assert.NoError(t, err)
	})
	t.Run("returns original", func(t *testing.T) {
		r := NewRetrier(NewPolicy(Times(1), NewFixedWaiter(0)))
		next, err := r.Retry(context.Background(), &request.Execution{Original: original, Request: adapted})
		assert.NoError(t, err)
		assert.Same(t, original, next)
	})
	t.Run("falls back to request", func(t *testing.T) {
		r := NewRetrier(NewPolicy(Times(1), NewFixedWaiter(0)))
		next, err := r.Retry(context.Background(), &request.Execution{Request: adapted})
		assert.NoError(t, err)
		assert.Same(t, adapted, next)
	})
	t.Run("no request", func(t *testing.T) {
		r := NewRetrier(NewPolicy(Times(1), NewFixedWaiter(0)))
		next, err := r.Retry(context.Background(), &request.Execution{})
		assert.Nil(t, next)
		assert.NoError(t, err)
	})
	t.Run("waits", func(t *testing.T) {
		r := NewRetrier(NewPolicy(Times(1), NewFixedWaiter(20*time.Millisecond)))
		start := time.Now()
		next, err := r.Retry(context.Background(), &request.Execution{Original: original})
		assert.NoError(t, err)
		assert.Same(t, original, next)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})
	t.Run("context cancelled during wait", func(t *testing.T) {
		r := NewRetrier(NewPolicy(Times(1), NewFixedWaiter(time.Hour)))
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		next, err := r.Retry(ctx, &request.Execution{Original: original})
		assert.Nil(t, next)
		assert.ErrorIs(t, err, context.Canceled)
	})
	t.Run("context already done", func(t *testing.T) {
		r := NewRetrier(NewPolicy(Times(1), NewFixedWaiter(0)))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		next, err := r.Retry(ctx, &request.Execution{Original: original})
		assert.Nil(t, next)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
