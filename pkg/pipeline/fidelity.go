// Copyright 2025 Certen Protocol
//
// Adaptive Audit Pipeline — fidelity levels and configuration.

package pipeline

// Fidelity is the evidentiary strength selected for a given audit record,
// in increasing order (spec.md §4.5).
type Fidelity string

const (
	MetadataOnly Fidelity = "metadata_only"
	Chained      Fidelity = "chained"
	PolicyBound  Fidelity = "policy_bound"
	MerkleProof  Fidelity = "merkle_proof"
)

// Criticality is a policy's criticality tier, one input to fidelity
// selection when no tenant or bucket override applies.
type Criticality string

const (
	Low      Criticality = "low"
	Medium   Criticality = "medium"
	High     Criticality = "high"
	Critical Criticality = "critical"
)

// defaultCriticalityFidelity is the built-in criticality→fidelity table
// (spec.md §4.5), used when Configuration.CriticalityConfigs doesn't
// override a tier.
var defaultCriticalityFidelity = map[Criticality]Fidelity{
	Low:      MetadataOnly,
	Medium:   Chained,
	High:     PolicyBound,
	Critical: MerkleProof,
}

// Configuration is the AAP configuration surface (spec.md §6): a default
// fidelity plus three override layers, consulted in a fixed precedence
// order that auditors rely on (tenant first, bucket second — spec.md §4.5
// "implementers MUST preserve this ordering").
type Configuration struct {
	DefaultFidelity    Fidelity
	TenantConfigs      map[string]Fidelity
	BucketConfigs      map[string]Fidelity // keyed "<tenant_id>/<bucket>"
	CriticalityConfigs map[Criticality]Fidelity
}

// NewConfiguration returns a Configuration with the spec's default fidelity
// (CHAINED) and the built-in criticality table, ready for tenant/bucket
// overrides to be added.
func NewConfiguration() *Configuration {
	criticality := make(map[Criticality]Fidelity, len(defaultCriticalityFidelity))
	for k, v := range defaultCriticalityFidelity {
		criticality[k] = v
	}
	return &Configuration{
		DefaultFidelity:    Chained,
		TenantConfigs:      make(map[string]Fidelity),
		BucketConfigs:      make(map[string]Fidelity),
		CriticalityConfigs: criticality,
	}
}

// GetFidelity selects a fidelity level for (tenantID, bucket, criticality)
// per the precedence spec.md §4.5 fixes: tenant override, then
// tenant/bucket override, then criticality table, then default. Tenant
// takes precedence over bucket even when both are configured — this
// ordering is a documented contract, not an implementation detail.
func (c *Configuration) GetFidelity(tenantID, bucket string, criticality Criticality) Fidelity {
	if f, ok := c.TenantConfigs[tenantID]; ok {
		return f
	}
	if f, ok := c.BucketConfigs[tenantID+"/"+bucket]; ok {
		return f
	}
	if criticality != "" {
		if f, ok := c.CriticalityConfigs[criticality]; ok {
			return f
		}
	}
	return c.DefaultFidelity
}

// SetTenantFidelity installs a hard per-tenant override.
func (c *Configuration) SetTenantFidelity(tenantID string, fidelity Fidelity) {
	c.TenantConfigs[tenantID] = fidelity
}

// SetBucketFidelity installs a per-(tenant,bucket) override.
func (c *Configuration) SetBucketFidelity(tenantID, bucket string, fidelity Fidelity) {
	c.BucketConfigs[tenantID+"/"+bucket] = fidelity
}
