// Copyright 2025 Certen Protocol
//
// Anchoring Providers
// External-anchor attestation is out of core scope (spec.md §1), but the
// core's AnchoringReference is shaped to accept whatever a provider
// produces. Provider is the boundary interface every concrete anchor
// backend implements.

package anchor

import (
	"context"

	"github.com/caas-systems/audit-core/pkg/proof"
)

// Provider anchors a Merkle root (or any content digest) to an external
// system and returns the resulting AnchoringReference. Anchoring is
// inherently an I/O boundary call; every Provider method takes a context
// and may block on it.
type Provider interface {
	Anchor(ctx context.Context, digest string, metadata map[string]interface{}) (*proof.AnchoringReference, error)
}
