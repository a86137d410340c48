// Copyright 2025 Certen Protocol
//
// Compliance Proof Bundle Format
// Self-contained, offline-verifiable bundles of audit records, policy
// commitments, Merkle proofs, and external anchoring references.

package proof

import (
	"time"

	"github.com/caas-systems/audit-core/pkg/ledger"
	"github.com/caas-systems/audit-core/pkg/merkle"
)

// BundleType discriminates the four ways a bundle can be scoped (spec.md
// §3/§6). The wire discriminator is the string value itself.
type BundleType string

const (
	SingleRecord BundleType = "single_record"
	BatchRecords BundleType = "batch_records"
	TimeRange    BundleType = "time_range"
	TenantScope  BundleType = "tenant_scope"
)

// AnchoringReference points at an external anchoring system (blockchain,
// timestamp service, notary) that attests to a set of records as of a
// given time.
type AnchoringReference struct {
	AnchorType string                 `json:"anchor_type"`
	AnchorID   string                 `json:"anchor_id"`
	Timestamp  time.Time              `json:"timestamp"`
	AnchorHash string                 `json:"anchor_hash"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// Bundle is ComplianceProofBundle (spec.md §3): a self-contained,
// serializable view over a slice of the ledger, assembled on demand and
// never mutated once built.
type Bundle struct {
	BundleID          string                   `json:"bundle_id"`
	BundleType        BundleType               `json:"bundle_type"`
	CreatedAt         time.Time                `json:"created_at"`
	Records           []*ledger.AuditRecord    `json:"records"`
	PolicyCommitments map[string]string        `json:"policy_commitments"`
	MerkleProofs      []*merkle.InclusionProof `json:"merkle_proofs"`
	AnchoringRefs     []AnchoringReference     `json:"anchoring_refs"`
	Metadata          map[string]interface{}   `json:"metadata"`
}
