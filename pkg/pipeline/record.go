// Copyright 2025 Certen Protocol
//
// Adaptive Audit Pipeline — per-fidelity record construction.

package pipeline

import (
	"github.com/caas-systems/audit-core/pkg/intercept"
	"github.com/caas-systems/audit-core/pkg/ledger"
)

// buildRecord synthesizes the AuditRecord shape appropriate to fidelity.
// The ledger always chains every record regardless of fidelity (spec.md
// §4.5: "record is still chained"); fidelity only controls what goes into
// metadata and whether a policy_commitment is attached.
func buildRecord(event *intercept.ComplianceEvent, fidelity Fidelity, policyCommitment *string) *ledger.AuditRecord {
	record := &ledger.AuditRecord{
		EventID:          event.EventID,
		Timestamp:        event.Timestamp,
		EventType:        string(event.EventType),
		TenantID:         event.TenantID,
		Bucket:           event.Bucket,
		ObjectKey:        event.ObjectKey,
		PolicyCommitment: nil,
	}

	meta := map[string]interface{}{
		"fidelity": string(fidelity),
	}
	if event.Principal != nil {
		meta["principal"] = *event.Principal
	} else {
		meta["principal"] = nil
	}

	switch fidelity {
	case MetadataOnly:
		// Minimal envelope: event-specific payload is omitted.

	case Chained:
		meta["event_metadata"] = event.Metadata

	case PolicyBound:
		meta["event_metadata"] = event.Metadata
		attachPolicyCommitment(record, meta, policyCommitment)

	case MerkleProof:
		meta["event_metadata"] = event.Metadata
		attachPolicyCommitment(record, meta, policyCommitment)
		meta["supports_merkle_proof"] = true
	}

	record.Metadata = meta
	return record
}

// attachPolicyCommitment binds policyCommitment to record if present;
// otherwise the record proceeds without binding but is tagged unbound
// (spec.md §4.5: "if absent, proceed without binding but tag the record as
// unbound").
func attachPolicyCommitment(record *ledger.AuditRecord, meta map[string]interface{}, policyCommitment *string) {
	if policyCommitment != nil && *policyCommitment != "" {
		record.PolicyCommitment = policyCommitment
		meta["unbound"] = false
		return
	}
	meta["unbound"] = true
}
