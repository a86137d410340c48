// Copyright 2025 Certen Protocol
//
// Proof Bundle Verifier
// Offline, structural verification of a ComplianceProofBundle: never
// errors or panics, always returns a structured report (spec.md §4.6/§7).

package proof

import (
	"fmt"

	"github.com/caas-systems/audit-core/pkg/canon"
	"github.com/caas-systems/audit-core/pkg/merkle"
)

// VerifyResult is the structured report VerifyBundle always returns.
type VerifyResult struct {
	BundleID  string   `json:"bundle_id"`
	ChainOK   bool     `json:"chain_ok"`
	MerkleOK  bool     `json:"merkle_ok"`
	PolicyOK  bool     `json:"policy_ok"`
	OverallOK bool     `json:"overall_ok"`
	Errors    []string `json:"errors"`
}

// VerifyBundle replays the three independent checks spec.md §4.6 defines
// and folds them into overall_ok. It never returns an error: a malformed
// bundle simply fails one of the three checks and is reported as such.
func VerifyBundle(bundle *Bundle) *VerifyResult {
	if bundle == nil {
		return &VerifyResult{Errors: []string{"bundle is nil"}}
	}
	result := &VerifyResult{BundleID: bundle.BundleID, Errors: []string{}}

	result.ChainOK = verifyChain(bundle, result)
	result.MerkleOK = verifyMerkle(bundle, result)
	result.PolicyOK = verifyPolicy(bundle, result)

	result.OverallOK = result.ChainOK &&
		(len(bundle.MerkleProofs) == 0 || result.MerkleOK) &&
		result.PolicyOK

	return result
}

// verifyChain recomputes every record's hash and, for consecutive records
// in bundle order, checks previous_hash contiguity. A bundle assembled
// from a non-contiguous ledger slice correctly fails this check — such
// bundles must rely on their Merkle proofs instead.
func verifyChain(bundle *Bundle, result *VerifyResult) bool {
	ok := true
	for i, record := range bundle.Records {
		expected, err := record.ComputeHash()
		if err != nil || expected != record.RecordHash {
			ok = false
			result.Errors = append(result.Errors, fmt.Sprintf("hash mismatch for record %s", record.RecordID))
		}
		if i > 0 && record.PreviousHash != bundle.Records[i-1].RecordHash {
			ok = false
			result.Errors = append(result.Errors, fmt.Sprintf("chain break at record %s", record.RecordID))
		}
	}
	return ok
}

func verifyMerkle(bundle *Bundle, result *VerifyResult) bool {
	ok := true
	for _, proof := range bundle.MerkleProofs {
		if !merkle.VerifyProof(proof) {
			ok = false
			result.Errors = append(result.Errors, fmt.Sprintf("merkle proof failed for %s", proof.LeafHash))
		}
	}
	return ok
}

// verifyPolicy checks that every commitment in the bundle's policy map is a
// well-formed 64-hex digest (spec.md §4.6: "cross-checking against a local
// PCS is a stronger optional step" — not performed here, since VerifyBundle
// has no PCS reference and must remain a pure function of the bundle).
func verifyPolicy(bundle *Bundle, result *VerifyResult) bool {
	ok := true
	for recordID, commitment := range bundle.PolicyCommitments {
		if !canon.IsValidDigest(commitment) {
			ok = false
			result.Errors = append(result.Errors, fmt.Sprintf("invalid policy commitment for %s", recordID))
		}
	}
	return ok
}
