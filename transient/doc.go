// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from HTTP request attempts as
// transient or non-transient. Retry deciders use it to tell a failure
// worth retrying from one that is not, and metrics handlers use it to
// bucket errors.
//
// Package transient depends only on the standard library.
package transient
