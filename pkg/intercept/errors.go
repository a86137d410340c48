// Copyright 2025 Certen Protocol
//
// Package intercept provides sentinel errors for the event interceptor.

package intercept

import "errors"

// ErrQueueFull is written to the logger when Intercept cannot accept another
// event (an attached Recorder is told through IncDrops). The interceptor
// never drops an event while also reporting success: Intercept's bool return
// is the caller-visible signal, this sentinel is only used in the log line.
var ErrQueueFull = errors.New("intercept: queue is full")
