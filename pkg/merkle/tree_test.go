package merkle

import (
	"testing"

	"github.com/caas-systems/audit-core/pkg/canon"
)

func leafHashes(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = canon.Hash([]byte(string(rune('a' + i))))
	}
	return out
}

func TestBuildRejectsEmptyLeaves(t *testing.T) {
	if _, err := Build(nil); err != ErrEmptyTree {
		t.Fatalf("Build(nil) error = %v, want ErrEmptyTree", err)
	}
}

func TestBuildRejectsMalformedLeaf(t *testing.T) {
	if _, err := Build([]string{"not-a-digest"}); err == nil {
		t.Fatalf("Build with malformed leaf should error")
	}
}

func TestSingleLeafTreeRootIsLeaf(t *testing.T) {
	leaves := leafHashes(1)
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if tree.Root() != leaves[0] {
		t.Errorf("single-leaf root = %q, want %q", tree.Root(), leaves[0])
	}
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("Proof error: %v", err)
	}
	if len(proof.Steps) != 0 {
		t.Errorf("single-leaf proof should have zero steps, got %d", len(proof.Steps))
	}
	if !VerifyProof(proof) {
		t.Errorf("single-leaf proof should verify")
	}
}

func TestOddLeafCountDuplicatesLastNode(t *testing.T) {
	// Three leaves: level 0 has 3 nodes, level 1 must pair (0,1) and
	// duplicate 2 against itself, producing a level of size 2.
	leaves := leafHashes(3)
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	wantLevel1Len := 2
	if len(tree.levels[1]) != wantLevel1Len {
		t.Fatalf("level 1 has %d nodes, want %d", len(tree.levels[1]), wantLevel1Len)
	}
	wantDuplicatedNode := combine(leaves[2], leaves[2])
	if tree.levels[1][1] != wantDuplicatedNode {
		t.Errorf("odd node not duplicated against itself: got %q, want %q", tree.levels[1][1], wantDuplicatedNode)
	}
}

func TestInclusionProofRoundTrip(t *testing.T) {
	// Scenario C: B=4, append rec-0..rec-3, prove rec-2 (index 2).
	leaves := leafHashes(4)
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	proof, err := tree.Proof(2)
	if err != nil {
		t.Fatalf("Proof error: %v", err)
	}
	if len(proof.Steps) != 2 {
		t.Fatalf("proof length = %d, want 2", len(proof.Steps))
	}
	if proof.Root != tree.Root() {
		t.Fatalf("proof root = %q, want %q", proof.Root, tree.Root())
	}
	if !VerifyProof(proof) {
		t.Fatalf("proof for leaf 2 did not verify")
	}
}

func TestAllLeavesVerifyInEveryTreeShape(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 9, 16} {
		leaves := leafHashes(n)
		tree, err := Build(leaves)
		if err != nil {
			t.Fatalf("Build(n=%d) error: %v", n, err)
		}
		for i := range leaves {
			proof, err := tree.Proof(i)
			if err != nil {
				t.Fatalf("Proof(n=%d, i=%d) error: %v", n, i, err)
			}
			if !VerifyProof(proof) {
				t.Errorf("Proof(n=%d, i=%d) did not verify", n, i)
			}
		}
	}
}

func TestFlippingSiblingHashBreaksVerification(t *testing.T) {
	leaves := leafHashes(8)
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	proof, err := tree.Proof(3)
	if err != nil {
		t.Fatalf("Proof error: %v", err)
	}
	if !VerifyProof(proof) {
		t.Fatalf("unmodified proof should verify")
	}
	tampered := *proof
	tampered.Steps = append([]ProofStep(nil), proof.Steps...)
	tampered.Steps[0].SiblingHash = canon.Hash([]byte("tampered"))
	if VerifyProof(&tampered) {
		t.Errorf("tampered proof should not verify")
	}
}

func TestHexDomainConcatenationNotRawBytes(t *testing.T) {
	// R3: combine must hash the concatenation of hex *characters*, not
	// the 32 raw bytes those hex strings decode to.
	left := canon.Hash([]byte("left"))
	right := canon.Hash([]byte("right"))

	got := combine(left, right)
	want := canon.Hash([]byte(left + right))
	if got != want {
		t.Fatalf("combine() = %q, want %q (hex-string concatenation)", got, want)
	}
}

func TestProofForLeafFindsByHash(t *testing.T) {
	leaves := leafHashes(4)
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	proof, err := tree.ProofForLeaf(leaves[1])
	if err != nil {
		t.Fatalf("ProofForLeaf error: %v", err)
	}
	if !VerifyProof(proof) {
		t.Errorf("ProofForLeaf result did not verify")
	}
	if _, err := tree.ProofForLeaf("not-present"); err != ErrLeafNotFound {
		t.Errorf("ProofForLeaf(unknown) error = %v, want ErrLeafNotFound", err)
	}
}

func TestVerifyProofRejectsNil(t *testing.T) {
	if VerifyProof(nil) {
		t.Errorf("VerifyProof(nil) = true, want false")
	}
}
