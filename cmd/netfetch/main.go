// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command netfetch fetches one URL through a netsession Session and
// prints the result.
//
// Usage:
//
//	netfetch [flags] URL
//
// The request is retried on transient failures and on 429, 502, 503 and
// 504 responses, honoring Retry-After. A response outside the 2XX range
// is an error. Flags override the optional TOML config file, and the
// NETSESSION_LOG_* environment variables override both for logging.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gogama/netsession"
	"github.com/gogama/netsession/adapt"
	"github.com/gogama/netsession/internal/config"
	"github.com/gogama/netsession/internal/logging"
	"github.com/gogama/netsession/metrics"
	"github.com/gogama/netsession/request"
	"github.com/gogama/netsession/retry"
	"github.com/gogama/netsession/serializer"
	"github.com/gogama/netsession/timeout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/quic-go/quic-go/http3"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// maxRetryAfter caps how long a Retry-After header may make netfetch
// wait between attempts.
const maxRetryAfter = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "netfetch: %v\n", err)
		os.Exit(1)
	}
}

type headerFlags []string

func (h *headerFlags) String() string {
	return strings.Join(*h, ", ")
}

func (h *headerFlags) Set(v string) error {
	if !strings.Contains(v, ":") {
		return fmt.Errorf("header %q is not in Name: value form", v)
	}
	*h = append(*h, v)
	return nil
}

type options struct {
	configPath string
	method     string
	headers    headerFlags
	data       string
	timeout    time.Duration
	retries    int
	http3      bool
	output     string
	metrics    bool
	verbose    bool
	url        string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("netfetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to TOML config file")
	fs.StringVar(&o.method, "X", "", "HTTP method (default from config, else GET)")
	fs.Var(&o.headers, "H", "request header in Name: value form (repeatable)")
	fs.StringVar(&o.data, "d", "", "request body, or @file to read it from a file")
	fs.DurationVar(&o.timeout, "timeout", 0, "per-attempt timeout (default from config)")
	fs.IntVar(&o.retries, "retries", -1, "maximum number of retries (default from config)")
	fs.BoolVar(&o.http3, "http3", false, "send the request over HTTP/3")
	fs.StringVar(&o.output, "o", "body", "output: body, json, or status")
	fs.BoolVar(&o.metrics, "metrics", false, "print Prometheus metrics to stderr when done")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		return options{}, errors.New("expected exactly one URL")
	}
	o.url = fs.Arg(0)
	switch o.output {
	case "body", "json", "status":
	default:
		return options{}, fmt.Errorf("unknown output %q", o.output)
	}
	return o, nil
}

func resolveConfig(o options, getenv func(string) string) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}
	logging.ApplyEnv(&cfg.Log, getenv)
	if o.method != "" {
		cfg.Method = strings.ToUpper(o.method)
	}
	for _, h := range o.headers {
		k, v, _ := strings.Cut(h, ":")
		cfg.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if o.timeout > 0 {
		cfg.Timeout = o.timeout
	}
	if o.retries >= 0 {
		cfg.Retries = o.retries
	}
	if o.http3 {
		cfg.HTTP3 = true
	}
	if o.verbose {
		cfg.Log.Level = zerolog.DebugLevel
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(o, getenv)
	if err != nil {
		return err
	}

	logger, closer := logging.New("netfetch", stderr, cfg.Log)
	defer closer.Close()

	var body interface{}
	if o.data != "" {
		if path, ok := strings.CutPrefix(o.data, "@"); ok {
			if body, err = os.ReadFile(path); err != nil {
				return err
			}
		} else {
			body = o.data
		}
	}
	plan, err := request.NewPlanWithContext(ctx, cfg.Method, o.url, body)
	if err != nil {
		return err
	}

	doer, err := newDoer(cfg.HTTP3)
	if err != nil {
		return err
	}
	defer closeDoer(doer)

	reg := prometheus.NewRegistry()
	handlers := &netsession.HandlerGroup{}
	metrics.MustNew(reg, "netfetch").Install(handlers)
	handlers.PushBack(netsession.AfterAttempt, netsession.HandlerFunc(func(_ netsession.Event, e *request.Execution) {
		logger.Info().Int("attempt", e.Attempt).Int("status", e.StatusCode()).Err(e.Err()).Msg("attempt finished")
	}))

	s := netsession.New(
		netsession.WithDoer(doer),
		netsession.WithAdapter(newAdapter(cfg)),
		netsession.WithRetrier(newRetrier(cfg)),
		netsession.WithTimeoutPolicy(timeout.Fixed(cfg.Timeout)),
		netsession.WithHandlers(handlers),
		netsession.WithLogger(logger),
	)
	task := s.CreateTaskContext(ctx, plan)

	switch o.output {
	case "json":
		err = printJSON(ctx, task, stdout)
	case "status":
		err = printStatus(ctx, task, stdout)
	default:
		err = printBody(ctx, task, stdout)
	}

	if o.metrics {
		if merr := writeMetrics(reg, stderr); merr != nil && err == nil {
			err = merr
		}
	}
	return err
}

func newDoer(useHTTP3 bool) (*http.Client, error) {
	if useHTTP3 {
		return &http.Client{Transport: &http3.RoundTripper{}}, nil
	}
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(t); err != nil {
		return nil, err
	}
	return &http.Client{Transport: t}, nil
}

func closeDoer(c *http.Client) {
	c.CloseIdleConnections()
	if rt, ok := c.Transport.(io.Closer); ok {
		_ = rt.Close()
	}
}

func newAdapter(cfg config.Config) netsession.Adapter {
	var as []netsession.Adapter
	for k, v := range cfg.Headers {
		as = append(as, adapt.Header(k, v))
	}
	if cfg.BearerToken != "" {
		token := cfg.BearerToken
		as = append(as, adapt.Bearer(func(context.Context) (string, error) {
			return token, nil
		}))
	}
	return adapt.Chain(as...)
}

func newRetrier(cfg config.Config) netsession.Retrier {
	var w retry.Waiter = retry.NewFixedWaiter(0)
	if cfg.RetryWait > 0 {
		w = retry.NewExpWaiter(cfg.RetryWait, 10*cfg.RetryWait, time.Now())
	}
	decider := retry.Times(cfg.Retries).And(retry.StatusCode(429, 502, 503, 504).Or(retry.TransientErr))
	return retry.NewRetrier(retry.NewPolicy(decider, retry.HonorRetryAfter(w, maxRetryAfter)))
}

func printBody(ctx context.Context, task *netsession.Task, w io.Writer) error {
	b, err := netsession.AddSerializer(task, serializer.Status(serializer.Data())).Wait(ctx)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func printJSON(ctx context.Context, task *netsession.Task, w io.Writer) error {
	v, err := netsession.AddSerializer(task, serializer.Status(serializer.Negotiate[interface{}]())).Wait(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(ctx context.Context, task *netsession.Task, w io.Writer) error {
	resp, err := netsession.AddSerializer(task, serializer.Response()).Wait(ctx)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(w, "%s %s\n", resp.Proto, resp.Status); err != nil {
		return err
	}
	return resp.Header.Write(w)
}

func writeMetrics(g prometheus.Gatherer, w io.Writer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
