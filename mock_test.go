// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package netsession

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gogama/netsession/request"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHTTPDoer struct {
	mock.Mock
}

func newMockHTTPDoer(t *testing.T) *mockHTTPDoer {
	m := &mockHTTPDoer{}
	m.Test(t)
	return m
}

func (m *mockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	err := args.Error(1)
	if resp, ok := args.Get(0).(*http.Response); ok {
		return resp, err
	}
	return nil, err
}

type mockHTTPDoerWithCloseIdleConnections struct {
	mockHTTPDoer
}

func newMockHTTPDoerWithCloseIdleConnections(t *testing.T) *mockHTTPDoerWithCloseIdleConnections {
	m := &mockHTTPDoerWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockHTTPDoerWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}

type mockAdapter struct {
	mock.Mock
}

func newMockAdapter(t *testing.T) *mockAdapter {
	m := &mockAdapter{}
	m.Test(t)
	return m
}

func (m *mockAdapter) Adapt(ctx context.Context, r *http.Request, doer HTTPDoer) (*http.Request, error) {
	args := m.Called(ctx, r, doer)
	err := args.Error(1)
	if req, ok := args.Get(0).(*http.Request); ok {
		return req, err
	}
	return nil, err
}

type mockRetrier struct {
	mock.Mock
}

func newMockRetrier(t *testing.T) *mockRetrier {
	m := &mockRetrier{}
	m.Test(t)
	return m
}

func (m *mockRetrier) Retry(ctx context.Context, e *request.Execution) (*http.Request, error) {
	args := m.Called(ctx, e)
	err := args.Error(1)
	if req, ok := args.Get(0).(*http.Request); ok {
		return req, err
	}
	return nil, err
}

type mockTimeoutPolicy struct {
	mock.Mock
}

func newMockTimeoutPolicy(t *testing.T) *mockTimeoutPolicy {
	m := &mockTimeoutPolicy{}
	m.Test(t)
	return m
}

func (m *mockTimeoutPolicy) Timeout(e *request.Execution) time.Duration {
	args := m.Called(e)
	return args.Get(0).(time.Duration)
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newRequest(t *testing.T, method, url string, body io.Reader) *http.Request {
	r, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	return r
}

// blockUntilDone makes a mocked call block until the context found at
// argument index i is done, closing entered first.
func blockUntilDone(i int, entered chan<- struct{}) func(mock.Arguments) {
	return func(args mock.Arguments) {
		var ctx context.Context
		switch v := args.Get(i).(type) {
		case context.Context:
			ctx = v
		case *http.Request:
			ctx = v.Context()
		}
		close(entered)
		<-ctx.Done()
	}
}

func waitResult[T any](t *testing.T, r *Result[T]) (T, error) {
	waitClosed(t, r.Done())
	return r.Get()
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for channel to close")
	}
}

var (
	bodySerializer = SerializerFunc[[]byte](func(_ *http.Request, _ *http.Response, body []byte, err error) ([]byte, error) {
		return body, err
	})
	statusSerializer = SerializerFunc[int](func(_ *http.Request, resp *http.Response, _ []byte, err error) (int, error) {
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	})
)
