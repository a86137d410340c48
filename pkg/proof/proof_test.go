package proof

import (
	"testing"
	"time"

	"github.com/caas-systems/audit-core/pkg/ledger"
)

func appendRecord(t *testing.T, led *ledger.Ledger, id, tenant string, ts time.Time) *ledger.AuditRecord {
	t.Helper()
	record := &ledger.AuditRecord{
		RecordID:  id,
		EventID:   "evt-" + id,
		Timestamp: ts,
		EventType: "object_create",
		TenantID:  tenant,
		Bucket:    "b1",
		Metadata:  map[string]interface{}{},
	}
	if _, err := led.Append(record); err != nil {
		t.Fatalf("Append(%s) error: %v", id, err)
	}
	got, _ := led.GetRecord(id)
	return got
}

func TestBundleVerificationAllOK(t *testing.T) {
	// Scenario F.
	led := ledger.New(ledger.WithBatchSize(5))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		appendRecord(t, led, idOf(i), "tenant-1", base.Add(time.Duration(i)*time.Minute))
	}

	builder := NewBuilder(led)
	bundle := builder.TimeRange(base.Add(-time.Hour), base.Add(time.Hour), nil, true)

	if bundle.BundleType != TimeRange {
		t.Fatalf("BundleType = %q, want %q", bundle.BundleType, TimeRange)
	}
	if len(bundle.Records) != 5 {
		t.Fatalf("len(Records) = %d, want 5", len(bundle.Records))
	}
	if len(bundle.MerkleProofs) != 5 {
		t.Fatalf("len(MerkleProofs) = %d, want 5 (batch of 5 must be sealed)", len(bundle.MerkleProofs))
	}

	result := VerifyBundle(bundle)
	if !result.ChainOK || !result.MerkleOK || !result.PolicyOK || !result.OverallOK {
		t.Fatalf("VerifyBundle = %+v, want all true", result)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want empty", result.Errors)
	}
}

func idOf(i int) string {
	return "rec-" + string(rune('a'+i))
}

func TestSingleRecordBundleUsesPolicyKey(t *testing.T) {
	led := ledger.New()
	commitment := "abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234"
	record := &ledger.AuditRecord{
		RecordID:         "r1",
		EventID:          "e1",
		Timestamp:        time.Now().UTC(),
		EventType:        "object_create",
		TenantID:         "t1",
		Bucket:           "b1",
		PolicyCommitment: &commitment,
		Metadata:         map[string]interface{}{},
	}
	if _, err := led.Append(record); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	builder := NewBuilder(led)
	bundle, ok := builder.SingleRecord("r1", false)
	if !ok {
		t.Fatalf("SingleRecord(%q) returned ok=false", "r1")
	}
	if bundle.PolicyCommitments["policy"] != commitment {
		t.Errorf("PolicyCommitments[policy] = %q, want %q", bundle.PolicyCommitments["policy"], commitment)
	}
	if bundle.Metadata["record_count"] != 1 {
		t.Errorf("record_count = %v, want 1", bundle.Metadata["record_count"])
	}
}

func TestSingleRecordBundleMissingRecordReturnsFalse(t *testing.T) {
	led := ledger.New()
	builder := NewBuilder(led)
	if _, ok := builder.SingleRecord("nope", false); ok {
		t.Errorf("SingleRecord(missing) returned ok=true")
	}
}

func TestBatchBundleSkipsMissingIDs(t *testing.T) {
	led := ledger.New()
	appendRecord(t, led, "r1", "t1", time.Now().UTC())
	appendRecord(t, led, "r2", "t1", time.Now().UTC())

	builder := NewBuilder(led)
	bundle, ok := builder.Batch([]string{"r1", "missing", "r2"}, false)
	if !ok {
		t.Fatalf("Batch returned ok=false")
	}
	if len(bundle.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(bundle.Records))
	}
	if bundle.Metadata["requested_count"] != 3 {
		t.Errorf("requested_count = %v, want 3", bundle.Metadata["requested_count"])
	}
	if bundle.Metadata["record_count"] != 2 {
		t.Errorf("record_count = %v, want 2", bundle.Metadata["record_count"])
	}
}

func TestBatchBundleAllMissingReturnsFalse(t *testing.T) {
	led := ledger.New()
	builder := NewBuilder(led)
	if _, ok := builder.Batch([]string{"a", "b"}, false); ok {
		t.Errorf("Batch(all missing) returned ok=true")
	}
}

func TestTenantScopeBundleFiltersByTenant(t *testing.T) {
	led := ledger.New()
	appendRecord(t, led, "r1", "tenant-a", time.Now().UTC())
	appendRecord(t, led, "r2", "tenant-b", time.Now().UTC())
	appendRecord(t, led, "r3", "tenant-a", time.Now().UTC())

	builder := NewBuilder(led)
	bundle := builder.TenantScope("tenant-a", false)
	if len(bundle.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(bundle.Records))
	}
	for _, r := range bundle.Records {
		if r.TenantID != "tenant-a" {
			t.Errorf("record %s has tenant %q, want tenant-a", r.RecordID, r.TenantID)
		}
	}
}

func TestTimeRangeBundleFiltersByTenantWhenProvided(t *testing.T) {
	led := ledger.New()
	now := time.Now().UTC()
	appendRecord(t, led, "r1", "tenant-a", now)
	appendRecord(t, led, "r2", "tenant-b", now)

	builder := NewBuilder(led)
	tenant := "tenant-a"
	bundle := builder.TimeRange(now.Add(-time.Hour), now.Add(time.Hour), &tenant, false)
	if len(bundle.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(bundle.Records))
	}
	if bundle.Records[0].RecordID != "r1" {
		t.Errorf("Records[0].RecordID = %q, want r1", bundle.Records[0].RecordID)
	}
}

func TestRelevantAnchorsFiltersByTimeWindow(t *testing.T) {
	led := ledger.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	appendRecord(t, led, "r1", "t1", base)
	appendRecord(t, led, "r2", "t1", base.Add(time.Hour))

	builder := NewBuilder(led)
	builder.AddAnchoringReference(AnchoringReference{
		AnchorType: "blockchain",
		AnchorID:   "in-window",
		Timestamp:  base.Add(30 * time.Minute),
		AnchorHash: "deadbeef",
	})
	builder.AddAnchoringReference(AnchoringReference{
		AnchorType: "blockchain",
		AnchorID:   "out-of-window",
		Timestamp:  base.Add(24 * time.Hour),
		AnchorHash: "deadbeef",
	})

	bundle := builder.TimeRange(base.Add(-time.Minute), base.Add(2*time.Hour), nil, false)
	if len(bundle.AnchoringRefs) != 1 {
		t.Fatalf("len(AnchoringRefs) = %d, want 1", len(bundle.AnchoringRefs))
	}
	if bundle.AnchoringRefs[0].AnchorID != "in-window" {
		t.Errorf("AnchoringRefs[0].AnchorID = %q, want in-window", bundle.AnchoringRefs[0].AnchorID)
	}
}

func TestVerifyBundleDetectsChainBreak(t *testing.T) {
	led := ledger.New()
	appendRecord(t, led, "r1", "t1", time.Now().UTC())
	appendRecord(t, led, "r2", "t1", time.Now().UTC())

	builder := NewBuilder(led)
	bundle, ok := builder.Batch([]string{"r1", "r2"}, false)
	if !ok {
		t.Fatalf("Batch returned ok=false")
	}
	bundle.Records[1].PreviousHash = "tampered"

	result := VerifyBundle(bundle)
	if result.ChainOK {
		t.Errorf("ChainOK = true, want false after tampering with previous_hash")
	}
	if result.OverallOK {
		t.Errorf("OverallOK = true, want false")
	}
	if len(result.Errors) == 0 {
		t.Errorf("Errors empty, want a chain-break message")
	}
}

func TestVerifyBundleDetectsInvalidPolicyCommitment(t *testing.T) {
	bundle := &Bundle{
		BundleID:          "b1",
		BundleType:        SingleRecord,
		CreatedAt:         time.Now().UTC(),
		Records:           nil,
		PolicyCommitments: map[string]string{"policy": "not-a-digest"},
	}
	result := VerifyBundle(bundle)
	if result.PolicyOK {
		t.Errorf("PolicyOK = true, want false for malformed commitment")
	}
	if result.OverallOK {
		t.Errorf("OverallOK = true, want false")
	}
}

func TestVerifyBundleMerkleOKIgnoredWhenNoProofs(t *testing.T) {
	led := ledger.New()
	appendRecord(t, led, "r1", "t1", time.Now().UTC())

	builder := NewBuilder(led)
	bundle, _ := builder.SingleRecord("r1", false)
	result := VerifyBundle(bundle)
	if !result.MerkleOK {
		t.Errorf("MerkleOK = false, want true (vacuously true with zero proofs)")
	}
	if !result.OverallOK {
		t.Errorf("OverallOK = false, want true")
	}
}

func TestVerifyBundleDetectsBadMerkleProof(t *testing.T) {
	led := ledger.New(ledger.WithBatchSize(1))
	appendRecord(t, led, "r1", "t1", time.Now().UTC())

	builder := NewBuilder(led)
	bundle, ok := builder.SingleRecord("r1", true)
	if !ok {
		t.Fatalf("SingleRecord returned ok=false")
	}
	if len(bundle.MerkleProofs) != 1 {
		t.Fatalf("len(MerkleProofs) = %d, want 1", len(bundle.MerkleProofs))
	}
	bundle.MerkleProofs[0].Root = "0000000000000000000000000000000000000000000000000000000000000000"

	result := VerifyBundle(bundle)
	if result.MerkleOK {
		t.Errorf("MerkleOK = true, want false for a tampered root")
	}
	if result.OverallOK {
		t.Errorf("OverallOK = true, want false")
	}
}
