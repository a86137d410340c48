// Copyright 2025 Certen Protocol
//
// Proof Bundle Archive
// Durable export of finished proof.Bundles to PostgreSQL for long-term
// auditor retrieval after the in-memory ledger has rotated the underlying
// records out — this is NOT the ledger's own storage (spec.md keeps that
// in-memory/out of scope); it is a downstream retrieval sink fed from
// already-built bundles.

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/caas-systems/audit-core/pkg/proof"
)

// ErrNotFound is returned when a bundle_id has no archived bundle.
var ErrNotFound = errors.New("archive: bundle not found")

// Store persists bundle to the proof_bundles table. Storing the same
// bundle_id twice overwrites the previous row — archiving is idempotent
// per bundle.
func (c *Client) Store(ctx context.Context, bundle *proof.Bundle) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("archive: failed to marshal bundle: %w", err)
	}

	tenantID := tenantIDOf(bundle)

	const stmt = `
		INSERT INTO proof_bundles (bundle_id, bundle_type, tenant_id, created_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bundle_id) DO UPDATE SET
			bundle_type = EXCLUDED.bundle_type,
			tenant_id   = EXCLUDED.tenant_id,
			created_at  = EXCLUDED.created_at,
			payload     = EXCLUDED.payload,
			archived_at = now()
	`
	_, err = c.db.ExecContext(ctx, stmt, bundle.BundleID, string(bundle.BundleType), tenantID, bundle.CreatedAt, payload)
	if err != nil {
		return fmt.Errorf("archive: failed to store bundle %s: %w", bundle.BundleID, err)
	}
	return nil
}

// Get retrieves a previously archived bundle by its bundle_id.
func (c *Client) Get(ctx context.Context, bundleID string) (*proof.Bundle, error) {
	const stmt = `SELECT payload FROM proof_bundles WHERE bundle_id = $1`

	var payload []byte
	err := c.db.QueryRowContext(ctx, stmt, bundleID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: failed to fetch bundle %s: %w", bundleID, err)
	}

	var bundle proof.Bundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, fmt.Errorf("archive: failed to unmarshal bundle %s: %w", bundleID, err)
	}
	return &bundle, nil
}

// ListByTenant returns the bundle_ids archived for tenantID, most recently
// archived first.
func (c *Client) ListByTenant(ctx context.Context, tenantID string) ([]string, error) {
	const stmt = `SELECT bundle_id FROM proof_bundles WHERE tenant_id = $1 ORDER BY archived_at DESC`

	rows, err := c.db.QueryContext(ctx, stmt, tenantID)
	if err != nil {
		return nil, fmt.Errorf("archive: failed to list bundles for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// tenantIDOf extracts a best-effort tenant identifier from a bundle's
// metadata, for the tenant_id index column. Bundles that aren't
// tenant-scoped (single-record, batch, unfiltered time-range) leave it
// empty.
func tenantIDOf(bundle *proof.Bundle) interface{} {
	if bundle.Metadata == nil {
		return nil
	}
	if v, ok := bundle.Metadata["tenant_id"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return nil
}
