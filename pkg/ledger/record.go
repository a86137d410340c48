// Copyright 2025 Certen Protocol
//
// Audit Ledger — record shape and the hash that binds it to its chain
// position.

package ledger

import (
	"time"

	"github.com/caas-systems/audit-core/pkg/canon"
)

// AuditRecord is one entry in the ledger. ObjectKey and PolicyCommitment
// are optional and, when absent, MUST serialize as JSON null rather than
// be omitted (spec.md §6) — Go's encoding/json already does this for a nil
// *string, so the field type carries the contract.
type AuditRecord struct {
	RecordID         string                 `json:"record_id"`
	EventID          string                 `json:"event_id"`
	Timestamp        time.Time              `json:"timestamp"`
	EventType        string                 `json:"event_type"`
	TenantID         string                 `json:"tenant_id"`
	Bucket           string                 `json:"bucket"`
	ObjectKey        *string                `json:"object_key"`
	PolicyCommitment *string                `json:"policy_commitment"`
	Metadata         map[string]interface{} `json:"metadata"`
	PreviousHash     string                 `json:"previous_hash"`
	RecordHash       string                 `json:"record_hash"`
}

// canonicalFields returns the map hashed to produce RecordHash: every field
// except RecordHash itself, per invariant R1.
func (r *AuditRecord) canonicalFields() map[string]interface{} {
	meta := r.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return map[string]interface{}{
		"record_id":         r.RecordID,
		"event_id":          r.EventID,
		"timestamp":         canon.RFC3339Millis(r.Timestamp),
		"event_type":        r.EventType,
		"tenant_id":         r.TenantID,
		"bucket":            r.Bucket,
		"object_key":        nullableString(r.ObjectKey),
		"policy_commitment": nullableString(r.PolicyCommitment),
		"metadata":          meta,
		"previous_hash":     r.PreviousHash,
	}
}

// computeHash returns the record_hash per R1: H(canonical_encoding(all
// fields except record_hash)).
func (r *AuditRecord) computeHash() (string, error) {
	return canon.HashValue(r.canonicalFields())
}

// ComputeHash re-derives the record_hash from the record's current fields.
// Exported so callers outside the ledger — the proof bundle verifier, in
// particular — can recheck R1 without reaching into ledger internals.
func (r *AuditRecord) ComputeHash() (string, error) {
	return r.computeHash()
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
