package noop

import (
	"context"
	"testing"
)

func TestAnchorReturnsIncreasingSequence(t *testing.T) {
	p := New()
	ref1, err := p.Anchor(context.Background(), "deadbeef", nil)
	if err != nil {
		t.Fatalf("Anchor error: %v", err)
	}
	ref2, err := p.Anchor(context.Background(), "deadbeef", nil)
	if err != nil {
		t.Fatalf("Anchor error: %v", err)
	}
	if ref1.AnchorID == ref2.AnchorID {
		t.Errorf("AnchorID did not change between calls: %q", ref1.AnchorID)
	}
	if ref1.AnchorType != "noop" {
		t.Errorf("AnchorType = %q, want noop", ref1.AnchorType)
	}
}

func TestAnchorHashDependsOnDigest(t *testing.T) {
	p := New()
	ref1, _ := p.Anchor(context.Background(), "aaaa", nil)
	ref2, _ := p.Anchor(context.Background(), "bbbb", nil)
	if ref1.AnchorHash == ref2.AnchorHash {
		t.Errorf("AnchorHash identical for different digests")
	}
}
