// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package netsession

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gogama/netsession/request"
	"github.com/gogama/netsession/retry"
	"github.com/gogama/netsession/timeout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var httpServer = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var httpsServer = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var http2Server = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var servers = []*httptest.Server{httpServer, httpsServer, http2Server}

func TestMain(m *testing.M) {
	httpServer.Start()
	httpsServer.StartTLS()
	http2Server.EnableHTTP2 = true
	http2Server.StartTLS()
	for _, server := range servers {
		waitForServerStart(server)
	}
	code := m.Run()
	for _, server := range servers {
		server.Close()
	}
	os.Exit(code)
}

func waitForServerStart(server *httptest.Server) {
	s := New(
		WithDoer(server.Client()),
		WithRetrier(retry.NewRetrier(retry.NewPolicy(retry.Before(10*time.Second).And(retry.TransientErr), retry.DefaultWaiter))),
		WithTimeoutPolicy(timeout.Fixed(2*time.Second)),
	)
	task := s.CreateTask((&serverInstruction{StatusCode: 200}).toPlan(context.Background(), server))
	status, err := AddSerializer(task, statusSerializer).Wait(context.Background())
	if status != 200 {
		panic(fmt.Sprintf("test server startup failed with status %d and error %v", status, err))
	}
}

func serverName(server *httptest.Server) string {
	switch server {
	case httpServer:
		return "http"
	case httpsServer:
		return "https"
	case http2Server:
		return "http2"
	default:
		panic("unknown server")
	}
}

type bodyChunk struct {
	Pause time.Duration
	Data  []byte
}

// A serverInstruction tells serverHandler how to respond. It travels as
// the JSON body of the request.
type serverInstruction struct {
	HeaderPause time.Duration
	StatusCode  int
	Body        []bodyChunk
}

func (i *serverInstruction) toPlan(ctx context.Context, server *httptest.Server) *request.Plan {
	b, err := json.Marshal(i)
	if err != nil {
		panic(err)
	}
	p, err := request.NewPlanWithContext(ctx, "POST", server.URL, b)
	if err != nil {
		panic(err)
	}
	return p
}

func serverHandler(w http.ResponseWriter, req *http.Request) {
	var i serverInstruction
	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err == nil {
		err = json.Unmarshal(b, &i)
	}
	if err != nil {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("failed to read instruction: %s", err.Error()))
		return
	}
	if i.StatusCode == 0 {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("bad StatusCode in instruction: %v", i))
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		panic("w does not implement Flusher")
	}

	contentLength := 0
	for _, chunk := range i.Body {
		contentLength += len(chunk.Data)
	}
	w.Header().Set("Content-Length", strconv.Itoa(contentLength))

	time.Sleep(i.HeaderPause)
	w.WriteHeader(i.StatusCode)
	f.Flush()

	for _, chunk := range i.Body {
		time.Sleep(chunk.Pause)
		if _, err = w.Write(chunk.Data); err != nil {
			return
		}
		f.Flush()
	}
}

func TestSession_Servers(t *testing.T) {
	for _, server := range servers {
		t.Run(serverName(server), func(t *testing.T) {
			t.Run("body", func(t *testing.T) {
				testServerBody(t, server)
			})
			t.Run("status", func(t *testing.T) {
				testServerStatus(t, server)
			})
			t.Run("header timeout", func(t *testing.T) {
				testServerTimeout(t, server, serverInstruction{
					HeaderPause: 500 * time.Millisecond,
					StatusCode:  200,
				})
			})
			t.Run("body timeout", func(t *testing.T) {
				testServerTimeout(t, server, serverInstruction{
					StatusCode: 200,
					Body: []bodyChunk{
						{Data: []byte("a")},
						{Pause: 500 * time.Millisecond, Data: []byte("b")},
					},
				})
			})
			t.Run("retry", func(t *testing.T) {
				testServerRetry(t, server)
			})
			t.Run("retrier replaces request", func(t *testing.T) {
				testServerRetrierReplaces(t, server)
			})
			t.Run("concurrent tasks", func(t *testing.T) {
				testServerConcurrent(t, server)
			})
			t.Run("cancel", func(t *testing.T) {
				testServerCancel(t, server)
			})
		})
	}
}

func testServerBody(t *testing.T, server *httptest.Server) {
	s := New(WithDoer(server.Client()))
	i := serverInstruction{
		StatusCode: 200,
		Body: []bodyChunk{
			{Data: []byte("hello, ")},
			{Pause: 10 * time.Millisecond, Data: []byte("world")},
		},
	}
	task := s.CreateTask(i.toPlan(context.Background(), server))
	body := AddSerializer(task, bodySerializer)
	status := AddSerializer(task, statusSerializer)

	b, err := waitResult(t, body)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(b))
	code, err := waitResult(t, status)
	require.NoError(t, err)
	assert.Equal(t, 200, code)
	assert.Equal(t, 1, task.Attempts())
}

func testServerStatus(t *testing.T, server *httptest.Server) {
	s := New(WithDoer(server.Client()))
	for _, code := range []int{201, 204, 404, 500} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			i := serverInstruction{StatusCode: code}
			task := s.CreateTask(i.toPlan(context.Background(), server))
			status, err := waitResult(t, AddSerializer(task, statusSerializer))
			require.NoError(t, err)
			assert.Equal(t, code, status)
		})
	}
}

func testServerTimeout(t *testing.T, server *httptest.Server, i serverInstruction) {
	var timeouts int
	handlers := &HandlerGroup{}
	handlers.PushBack(AfterAttemptTimeout, HandlerFunc(func(_ Event, e *request.Execution) {
		timeouts = e.AttemptTimeouts
	}))
	s := New(
		WithDoer(server.Client()),
		WithHandlers(handlers),
		WithTimeoutPolicy(timeout.Fixed(100*time.Millisecond)),
	)
	task := s.CreateTask(i.toPlan(context.Background(), server))
	snap, err := waitResult(t, AddSerializer(task, snapshotSerializer))
	require.NoError(t, err)
	var urlErr *url.Error
	require.ErrorAs(t, snap.err, &urlErr)
	assert.True(t, urlErr.Timeout())
	assert.NotErrorIs(t, snap.err, ErrCanceled)
	assert.Equal(t, 1, timeouts)
}

func testServerRetry(t *testing.T, server *httptest.Server) {
	var attempts int
	handlers := &HandlerGroup{}
	handlers.PushBack(AfterAttempt, HandlerFunc(func(_ Event, e *request.Execution) {
		attempts++
		assert.Equal(t, 503, e.StatusCode())
	}))
	s := New(
		WithDoer(server.Client()),
		WithHandlers(handlers),
		WithRetrier(retry.NewRetrier(retry.NewPolicy(
			retry.Times(2).And(retry.StatusCode(503)),
			retry.NewFixedWaiter(5*time.Millisecond),
		))),
	)
	i := serverInstruction{StatusCode: 503, Body: []bodyChunk{{Data: []byte("busy")}}}
	task := s.CreateTask(i.toPlan(context.Background(), server))
	snap, err := waitResult(t, AddSerializer(task, snapshotSerializer))
	require.NoError(t, err)
	assert.Equal(t, snapshot{status: 503, body: "busy"}, snap)
	assert.Equal(t, 3, task.Attempts())
	assert.Equal(t, 3, attempts)
}

func testServerRetrierReplaces(t *testing.T, server *httptest.Server) {
	ok := serverInstruction{StatusCode: 200, Body: []bodyChunk{{Data: []byte("recovered")}}}
	retrier := RetrierFunc(func(ctx context.Context, e *request.Execution) (*http.Request, error) {
		if e.StatusCode() != 500 {
			return nil, nil
		}
		return ok.toPlan(ctx, server).Resolve()
	})
	s := New(WithDoer(server.Client()), WithRetrier(retrier))
	i := serverInstruction{StatusCode: 500}
	task := s.CreateTask(i.toPlan(context.Background(), server))
	snap, err := waitResult(t, AddSerializer(task, snapshotSerializer))
	require.NoError(t, err)
	assert.Equal(t, snapshot{status: 200, body: "recovered"}, snap)
	assert.Equal(t, 2, task.Attempts())
}

func testServerConcurrent(t *testing.T, server *httptest.Server) {
	s := New(WithDoer(server.Client()), WithRetrier(retry.DefaultRetrier))
	const n = 20
	var wg sync.WaitGroup
	results := make([]*Result[[]byte], n)
	for k := 0; k < n; k++ {
		i := serverInstruction{
			StatusCode: 200,
			Body:       []bodyChunk{{Pause: time.Duration(k%4) * time.Millisecond, Data: []byte(strconv.Itoa(k))}},
		}
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			results[k] = AddSerializer(s.CreateTask(i.toPlan(context.Background(), server)), bodySerializer)
		}(k)
	}
	wg.Wait()
	for k, r := range results {
		b, err := waitResult(t, r)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(k), string(b))
	}
}

func testServerCancel(t *testing.T, server *httptest.Server) {
	i := serverInstruction{HeaderPause: 2 * time.Second, StatusCode: 200}
	entered := make(chan struct{})
	handlers := &HandlerGroup{}
	handlers.PushBack(BeforeAttempt, HandlerFunc(func(Event, *request.Execution) { close(entered) }))
	s := New(WithDoer(server.Client()), WithHandlers(handlers))
	task := s.CreateTask(i.toPlan(context.Background(), server))
	r := AddSerializer(task, statusSerializer)
	waitClosed(t, entered)
	start := time.Now()
	task.Cancel()
	_, err := waitResult(t, r)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Less(t, time.Since(start), time.Second)
}
