// Copyright 2025 Certen Protocol
//
// Package policy provides sentinel errors for compilation operations.

package policy

import "errors"

// Sentinel errors for policy compilation.
var (
	// ErrDuplicateSid is returned when a policy contains two statements
	// with the same Sid.
	ErrDuplicateSid = errors.New("policy: duplicate statement sid")

	// ErrInvalidEffect is returned when a statement's Effect is not
	// Allow or Deny.
	ErrInvalidEffect = errors.New("policy: invalid statement effect")
)

// malformedError wraps one of the sentinels above with the offending
// statement's sid, while still satisfying errors.Is against the sentinel.
type malformedError struct {
	sid string
	err error
}

func wrapMalformed(err error, sid string) *malformedError {
	return &malformedError{sid: sid, err: err}
}

func (e *malformedError) Error() string {
	return e.err.Error() + ": sid=" + e.sid
}

func (e *malformedError) Unwrap() error {
	return e.err
}
