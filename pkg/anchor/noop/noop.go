// Copyright 2025 Certen Protocol
//
// Noop Anchor Provider
// A deterministic, local anchor backend with no external dependency — the
// default wired in tests and in any deployment that doesn't need external
// attestation (spec.md §1: anchoring is out of core scope; the core only
// needs something implementing anchor.Provider).

package noop

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/caas-systems/audit-core/pkg/canon"
	"github.com/caas-systems/audit-core/pkg/proof"
)

// Provider anchors locally: each call increments a counter and derives an
// anchor_hash from the digest and that counter, with no network calls.
type Provider struct {
	seq atomic.Uint64
}

// New returns a ready Provider.
func New() *Provider {
	return &Provider{}
}

// Anchor implements anchor.Provider.
func (p *Provider) Anchor(_ context.Context, digest string, metadata map[string]interface{}) (*proof.AnchoringReference, error) {
	n := p.seq.Add(1)
	anchorID := fmt.Sprintf("noop-%d", n)
	anchorHash := canon.Hash([]byte(anchorID + digest))

	return &proof.AnchoringReference{
		AnchorType: "noop",
		AnchorID:   anchorID,
		Timestamp:  time.Now().UTC(),
		AnchorHash: anchorHash,
		Metadata:   metadata,
	}, nil
}
