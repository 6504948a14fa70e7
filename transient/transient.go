// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"io"
	"syscall"
)

// A Category is the transience category of a particular error, as
// reported by Categorize.
//
// The category Not means a retry after encountering the error is very
// unlikely to succeed. All other categories mean a retry has some
// prospect of success.
type Category int

const (
	// Not indicates any non-transient error, including a nil error and
	// a cancelled context.
	Not Category = iota
	// Timeout indicates a client-side timeout. Categorize returns
	// Timeout if the error or any of its wrapped causes has a Timeout
	// method that reports true.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (ECONNREFUSED). This is usually a service which is starting or
	// restarting and not yet listening.
	ConnRefused
	// ConnReset indicates the remote host reset a previously active
	// connection (ECONNRESET), typically a load balancer or a service
	// going down mid-request.
	ConnReset
	// ConnAborted indicates the local stack aborted the connection
	// (ECONNABORTED) or the peer closed it before the response was
	// complete (io.ErrUnexpectedEOF). A keep-alive connection closed by
	// the server just as it was reused shows up this way.
	ConnAborted
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"ConnRefused",
	"ConnReset",
	"ConnAborted",
}

// String returns the name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of the given error.
//
// Categorize looks at wrapped cause errors contained within err, not
// just err itself. A cancelled context is never transient, even when
// wrapped together with another error, because the caller asked for
// the work to stop. Categorize never consults a Temporary method, as
// the semantics of Temporary aren't entirely clear.
func Categorize(err error) Category {
	if err == nil || errors.Is(err, context.Canceled) {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		case syscall.ECONNABORTED:
			return ConnAborted
		}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ConnAborted
	}

	return Not
}

type hasTimeout interface {
	Timeout() bool
}
