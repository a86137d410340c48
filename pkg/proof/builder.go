// Copyright 2025 Certen Protocol
//
// Proof Bundle Builder
// Assembles ComplianceProofBundles from a live ledger: single-record,
// batch, time-range, and tenant-scope variants (spec.md §4.6).

package proof

import (
	"fmt"
	"sync"
	"time"

	"github.com/caas-systems/audit-core/pkg/ledger"
	"github.com/caas-systems/audit-core/pkg/merkle"
)

// Builder assembles Bundles from a Ledger. It also tracks externally
// supplied AnchoringReferences so bundles can be enriched with whichever
// anchors fall within the time window of the records they cover.
type Builder struct {
	ledger *ledger.Ledger

	mu      sync.RWMutex
	anchors []AnchoringReference
}

// NewBuilder returns a Builder reading from led.
func NewBuilder(led *ledger.Ledger) *Builder {
	return &Builder{ledger: led}
}

// AddAnchoringReference records ref as a candidate for future bundles
// whose record time window contains ref.Timestamp.
func (b *Builder) AddAnchoringReference(ref AnchoringReference) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.anchors = append(b.anchors, ref)
}

// SingleRecord builds a bundle containing exactly one record, looked up by
// id. Returns false if the record doesn't exist (spec.md §4.6).
func (b *Builder) SingleRecord(recordID string, includeMerkleProof bool) (*Bundle, bool) {
	record, ok := b.ledger.GetRecord(recordID)
	if !ok {
		return nil, false
	}
	records := []*ledger.AuditRecord{record}

	commitments := map[string]string{}
	if record.PolicyCommitment != nil {
		commitments["policy"] = *record.PolicyCommitment
	}

	merkleProofs := b.proofsFor(includeMerkleProof, []string{recordID})

	bundle := &Bundle{
		BundleID:          fmt.Sprintf("bundle-%s", recordID),
		BundleType:        SingleRecord,
		CreatedAt:         time.Now().UTC(),
		Records:           records,
		PolicyCommitments: commitments,
		MerkleProofs:      merkleProofs,
		AnchoringRefs:     b.relevantAnchors(records),
		Metadata: map[string]interface{}{
			"record_count":     1,
			"has_merkle_proof": len(merkleProofs) > 0,
		},
	}
	return bundle, true
}

// Batch builds a bundle over recordIDs. Missing ids are silently skipped
// (spec.md §4.6); returns false if none were found.
func (b *Builder) Batch(recordIDs []string, includeMerkleProofs bool) (*Bundle, bool) {
	var records []*ledger.AuditRecord
	var found []string
	for _, id := range recordIDs {
		if record, ok := b.ledger.GetRecord(id); ok {
			records = append(records, record)
			found = append(found, id)
		}
	}
	if len(records) == 0 {
		return nil, false
	}

	commitments := map[string]string{}
	for _, record := range records {
		if record.PolicyCommitment != nil {
			commitments[record.RecordID] = *record.PolicyCommitment
		}
	}

	merkleProofs := b.proofsFor(includeMerkleProofs, found)

	bundle := &Bundle{
		BundleID:          fmt.Sprintf("bundle-batch-%s", time.Now().UTC().Format(time.RFC3339Nano)),
		BundleType:        BatchRecords,
		CreatedAt:         time.Now().UTC(),
		Records:           records,
		PolicyCommitments: commitments,
		MerkleProofs:      merkleProofs,
		AnchoringRefs:     b.relevantAnchors(records),
		Metadata: map[string]interface{}{
			"record_count":       len(records),
			"requested_count":    len(recordIDs),
			"has_merkle_proofs":  len(merkleProofs) > 0,
		},
	}
	return bundle, true
}

// TimeRange builds a bundle over every record with start <= timestamp <=
// end, optionally filtered by tenantID (spec.md §4.6). tenantID == nil
// means no tenant filter.
func (b *Builder) TimeRange(start, end time.Time, tenantID *string, includeMerkleProofs bool) *Bundle {
	var records []*ledger.AuditRecord
	var ids []string
	for _, record := range b.ledger.Records() {
		if record.Timestamp.Before(start) || record.Timestamp.After(end) {
			continue
		}
		if tenantID != nil && record.TenantID != *tenantID {
			continue
		}
		records = append(records, record)
		ids = append(ids, record.RecordID)
	}

	commitments := map[string]string{}
	for _, record := range records {
		if record.PolicyCommitment != nil {
			commitments[record.RecordID] = *record.PolicyCommitment
		}
	}

	merkleProofs := b.proofsFor(includeMerkleProofs, ids)

	meta := map[string]interface{}{
		"record_count":      len(records),
		"start_time":        start.UTC().Format(time.RFC3339Nano),
		"end_time":          end.UTC().Format(time.RFC3339Nano),
		"has_merkle_proofs": len(merkleProofs) > 0,
	}
	if tenantID != nil {
		meta["tenant_id"] = *tenantID
	} else {
		meta["tenant_id"] = nil
	}

	return &Bundle{
		BundleID:          fmt.Sprintf("bundle-timerange-%d-%d", start.UTC().UnixNano(), end.UTC().UnixNano()),
		BundleType:        TimeRange,
		CreatedAt:         time.Now().UTC(),
		Records:           records,
		PolicyCommitments: commitments,
		MerkleProofs:      merkleProofs,
		AnchoringRefs:     b.relevantAnchors(records),
		Metadata:          meta,
	}
}

// TenantScope builds a bundle over every record with a matching tenantID
// (spec.md §4.6).
func (b *Builder) TenantScope(tenantID string, includeMerkleProofs bool) *Bundle {
	var records []*ledger.AuditRecord
	var ids []string
	for _, record := range b.ledger.Records() {
		if record.TenantID != tenantID {
			continue
		}
		records = append(records, record)
		ids = append(ids, record.RecordID)
	}

	commitments := map[string]string{}
	for _, record := range records {
		if record.PolicyCommitment != nil {
			commitments[record.RecordID] = *record.PolicyCommitment
		}
	}

	merkleProofs := b.proofsFor(includeMerkleProofs, ids)

	return &Bundle{
		BundleID:          fmt.Sprintf("bundle-tenant-%s", tenantID),
		BundleType:        TenantScope,
		CreatedAt:         time.Now().UTC(),
		Records:           records,
		PolicyCommitments: commitments,
		MerkleProofs:      merkleProofs,
		AnchoringRefs:     b.relevantAnchors(records),
		Metadata: map[string]interface{}{
			"record_count":      len(records),
			"tenant_id":         tenantID,
			"has_merkle_proofs": len(merkleProofs) > 0,
		},
	}
}

// proofsFor generates an inclusion proof for each id in ids whose batch has
// been sealed, skipping (not erroring on) ids whose batch is still open —
// the "optionally a Merkle proof per record whose batch is sealed" rule in
// spec.md §4.6.
func (b *Builder) proofsFor(include bool, ids []string) []*merkle.InclusionProof {
	if !include {
		return nil
	}
	var proofs []*merkle.InclusionProof
	for _, id := range ids {
		proof, err := b.ledger.GenerateInclusionProof(id)
		if err != nil {
			continue
		}
		proofs = append(proofs, proof)
	}
	return proofs
}

// relevantAnchors returns every tracked AnchoringReference whose Timestamp
// falls within [min(record.Timestamp), max(record.Timestamp)] (spec.md
// §4.6, ported from _get_relevant_anchors). Returns nil for an empty record
// set.
func (b *Builder) relevantAnchors(records []*ledger.AuditRecord) []AnchoringReference {
	if len(records) == 0 {
		return nil
	}
	min := records[0].Timestamp
	max := records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.Before(min) {
			min = r.Timestamp
		}
		if r.Timestamp.After(max) {
			max = r.Timestamp
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	var relevant []AnchoringReference
	for _, anchor := range b.anchors {
		if !anchor.Timestamp.Before(min) && !anchor.Timestamp.After(max) {
			relevant = append(relevant, anchor)
		}
	}
	return relevant
}
