// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics records Prometheus metrics for netsession tasks.
//
// A Collector is an event handler. Install it into the HandlerGroup
// given to the session:
//
//	handlers := &netsession.HandlerGroup{}
//	metrics.MustNew(prometheus.DefaultRegisterer, "myapp").Install(handlers)
//	s := netsession.New(netsession.WithHandlers(handlers))
package metrics

import (
	"strconv"
	"time"

	"github.com/gogama/netsession"
	"github.com/gogama/netsession/request"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "netsession"

// NoResponse is the status label of an attempt or task which ended
// without an HTTP response.
const NoResponse = "none"

type attemptStartKey struct{}

// A Collector counts attempts, timeouts, retries and delivered tasks, and
// observes attempt latency.
type Collector struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	timeouts *prometheus.CounterVec
	retries  *prometheus.CounterVec
	tasks    *prometheus.CounterVec
}

// New creates a Collector whose metrics are named with the given
// namespace and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "attempts_total",
				Help:      "HTTP request attempts sent, by method and response status.",
			},
			[]string{"method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "attempt_duration_seconds",
				Help:      "HTTP request attempt duration in seconds, including reading the body.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
		timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "attempt_timeouts_total",
				Help:      "HTTP request attempts which timed out.",
			},
			[]string{"method"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "retries_total",
				Help:      "HTTP request attempts which were retries.",
			},
			[]string{"method"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_total",
				Help:      "Tasks which delivered a final outcome, by method and final status.",
			},
			[]string{"method", "status"},
		),
	}
	for _, col := range []prometheus.Collector{c.attempts, c.duration, c.timeouts, c.retries, c.tasks} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics if the metrics cannot be registered.
func MustNew(reg prometheus.Registerer, namespace string) *Collector {
	c, err := New(reg, namespace)
	if err != nil {
		panic(err)
	}
	return c
}

// Install adds c to g for every event it records.
func (c *Collector) Install(g *netsession.HandlerGroup) {
	g.PushBack(netsession.BeforeAttempt, c)
	g.PushBack(netsession.AfterAttemptTimeout, c)
	g.PushBack(netsession.AfterAttempt, c)
	g.PushBack(netsession.AfterExecutionEnd, c)
}

// Handle records evt. It satisfies netsession.Handler.
func (c *Collector) Handle(evt netsession.Event, e *request.Execution) {
	method := methodOf(e)
	switch evt {
	case netsession.BeforeAttempt:
		e.SetValue(attemptStartKey{}, time.Now())
		if e.Attempt > 0 {
			c.retries.WithLabelValues(method).Inc()
		}
	case netsession.AfterAttemptTimeout:
		c.timeouts.WithLabelValues(method).Inc()
	case netsession.AfterAttempt:
		status := statusOf(e)
		c.attempts.WithLabelValues(method, status).Inc()
		if start, ok := e.Value(attemptStartKey{}).(time.Time); ok {
			c.duration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
			e.SetValue(attemptStartKey{}, nil)
		}
	case netsession.AfterExecutionEnd:
		c.tasks.WithLabelValues(method, statusOf(e)).Inc()
	}
}

func methodOf(e *request.Execution) string {
	r := e.Request
	if r == nil {
		r = e.Original
	}
	if r == nil {
		return "unknown"
	}
	if r.Method == "" {
		return "GET"
	}
	return r.Method
}

func statusOf(e *request.Execution) string {
	if code := e.StatusCode(); code != 0 {
		return strconv.Itoa(code)
	}
	return NoResponse
}
