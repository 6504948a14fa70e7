// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for setting the timeout of each
// individual request attempt a session task makes, including retries.
//
// The attempt timeout is applied as a deadline on the context of the
// request handed to the transport. It is separate from any deadline on
// the task's own context, which bounds the whole task.
package timeout
