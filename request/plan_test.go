// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewPlanWithContext(t *testing.T) {
	for _, testCase := range newPlanTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			p, err := NewPlan(testCase.method, testCase.url, resolveBody(t, testCase.body))
			testCase.asserts(t, p, err)
			if p != nil {
				assert.Equal(t, context.Background(), p.Context())
			}
		})
		type foo struct{}
		ctx := context.WithValue(context.Background(), foo{}, "bar")
		t.Run(testCase.name+" with special context", func(t *testing.T) {
			p, err := NewPlanWithContext(ctx, testCase.method, testCase.url, resolveBody(t, testCase.body))
			testCase.asserts(t, p, err)
			if p != nil {
				assert.Same(t, ctx, p.Context())
			}
		})
	}
	t.Run("nil context", func(t *testing.T) {
		p, err := NewPlanWithContext(nil, "GET", "http://example.com", nil)
		assert.Nil(t, p)
		assert.EqualError(t, err, nilCtxMsg)
	})
}

var newPlanTestCases = []struct {
	name    string
	method  string
	url     string
	body    interface{}
	asserts func(*testing.T, *Plan, error)
}{
	{
		name: "empty method means GET",
		url:  "https://foo.com",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "GET", p.Method)
			assert.Equal(t, "https://foo.com", p.URL.String())
			assert.Nil(t, p.Body)
		},
	},
	{
		name:   "extension method",
		method: "PURGE",
		url:    "http://baz.com",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "PURGE", p.Method)
		},
	},
	{
		name:   "remove empty port",
		method: "GET",
		url:    "http://ham:",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "ham", p.Host)
			assert.Equal(t, "ham", p.URL.Host)
		},
	},
	{
		name: "body io.Reader",
		body: func(_ *testing.T) interface{} {
			return strings.NewReader("io.Reader")
		},
		url: "io.Reader",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, []byte("io.Reader"), p.Body)
		},
	},
	{
		name:   "error invalid method",
		method: "\tGET",
		url:    "eggs",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.EqualError(t, err, `netsession/request: invalid method "\tGET"`)
		},
	},
	{
		name:   "error invalid URL",
		method: "GET",
		url:    ":::",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.Error(t, err)
		},
	},
	{
		name:   "error invalid body type",
		method: "POST",
		url:    "spam",
		body:   map[string]int{},
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.EqualError(t, err, badBodyTypeMsg)
		},
	},
	{
		name:   "error body read",
		method: "PUT",
		url:    "hello",
		body: func(t *testing.T) interface{} {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.AnythingOfType("[]uint8")).
				Return(5, errors.New("problematic")).
				Once()
			return m
		},
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.EqualError(t, err, "problematic")
		},
	},
}

func resolveBody(t *testing.T, body interface{}) interface{} {
	if f, ok := body.(func(*testing.T) interface{}); ok {
		body = f(t)
	}
	return body
}

func TestPlan_Resolve(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p, err := NewPlanWithContext(ctx, "POST", "http://example.com/users", "foo")
		require.NoError(t, err)
		p.Header.Set("Content-Type", "text/plain")
		r, err := p.Resolve()
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "http://example.com/users", r.URL.String())
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		assert.Same(t, ctx, r.Context())
		assert.Equal(t, int64(3), r.ContentLength)
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "foo", string(b))
		rc, err := r.GetBody()
		require.NoError(t, err)
		b, err = io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "foo", string(b), "GetBody must rewind to the full body")
	})
	t.Run("blank method", func(t *testing.T) {
		p, err := NewPlan("", "http://example.com", nil)
		require.NoError(t, err)
		p.Method = ""
		r, err := p.Resolve()
		require.NoError(t, err)
		assert.Equal(t, "GET", r.Method)
		assert.Nil(t, r.Body)
		assert.Nil(t, r.GetBody)
	})
	t.Run("errors", func(t *testing.T) {
		testCases := []struct {
			name   string
			mutate func(p *Plan)
			errMsg string
		}{
			{
				name:   "no URL",
				mutate: func(p *Plan) { p.URL = nil },
				errMsg: errNoURL.Error(),
			},
			{
				name:   "bad method",
				mutate: func(p *Plan) { p.Method = "G ET" },
				errMsg: `netsession/request: invalid method "G ET"`,
			},
			{
				name:   "bad header name",
				mutate: func(p *Plan) { p.Header["Bad Name"] = []string{"x"} },
				errMsg: `netsession/request: invalid header field name "Bad Name"`,
			},
			{
				name:   "bad header value",
				mutate: func(p *Plan) { p.Header["X-Ok"] = []string{"a\r\nb"} },
				errMsg: `netsession/request: invalid header field value for "X-Ok"`,
			},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				p, err := NewPlan("GET", "http://example.com", nil)
				require.NoError(t, err)
				testCase.mutate(p)
				r, err := p.Resolve()
				assert.Nil(t, r)
				assert.EqualError(t, err, testCase.errMsg)
			})
		}
	})
}

func TestPlan_SetBasicAuth(t *testing.T) {
	p, err := NewPlan("", "http://superdoopersecure.com", nil)
	require.NoError(t, err)
	r, err := http.NewRequest("", "http://superdoopersecure.com", nil)
	require.NoError(t, err)
	p.SetBasicAuth("patsy", "password")
	r.SetBasicAuth("patsy", "password")
	assert.Equal(t, "Basic cGF0c3k6cGFzc3dvcmQ=", p.Header.Get("Authorization"))
	assert.Equal(t, r.Header["Authorization"], p.Header["Authorization"])
}

func TestPlan_WithContext(t *testing.T) {
	p, err := NewPlan("PATCH", "test", "body")
	require.NoError(t, err)
	t.Run("nil context", func(t *testing.T) {
		assert.PanicsWithValue(t, nilCtxMsg, func() {
			p.WithContext(nil)
		})
	})
	t.Run("valid context", func(t *testing.T) {
		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, p)
		q := p.WithContext(ctx)
		assert.NotSame(t, p, q)
		assert.Equal(t, context.Background(), p.Context())
		assert.Same(t, ctx, q.Context())
		assert.Equal(t, p.Body, q.Body)
	})
}
