// Copyright 2025 Certen Protocol
//
// Package ledger provides sentinel errors for ledger operations.

package ledger

import "errors"

// Sentinel errors for ledger operations.
var (
	// ErrDuplicateRecord is returned when Append is called with a
	// record_id already present in the ledger. Non-recoverable: the
	// caller must regenerate an id and retry.
	ErrDuplicateRecord = errors.New("ledger: duplicate record id")

	// ErrNotSealed is returned when an inclusion proof is requested for
	// a record still in the open batch.
	ErrNotSealed = errors.New("ledger: record's batch is not yet sealed")

	// ErrRecordNotFound is returned when a record id has no entry in the
	// ledger's index.
	ErrRecordNotFound = errors.New("ledger: record not found")

	// ErrChainBroken names a hash-chain integrity violation for callers
	// that want a structured error rather than VerifyChainIntegrity's bare
	// bool. No function in this module returns it: VerifyChainIntegrity
	// reports a mismatch as false, and the proof verifier as an entry in
	// its Errors list.
	ErrChainBroken = errors.New("ledger: hash chain integrity violated")
)
