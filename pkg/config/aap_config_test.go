package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caas-systems/audit-core/pkg/pipeline"
)

func writeAAPConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "aap.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAAPConfigOverridesDefault(t *testing.T) {
	path := writeAAPConfig(t, `
default_fidelity: merkle_proof
tenant_configs:
  tenant-a: policy_bound
bucket_configs:
  tenant-a/uploads: chained
criticality_configs:
  low: metadata_only
`)

	cfg, err := LoadAAPConfig(path)
	if err != nil {
		t.Fatalf("LoadAAPConfig error: %v", err)
	}
	if cfg.DefaultFidelity != pipeline.MerkleProof {
		t.Errorf("DefaultFidelity = %q, want merkle_proof", cfg.DefaultFidelity)
	}
	if cfg.TenantConfigs["tenant-a"] != pipeline.PolicyBound {
		t.Errorf("TenantConfigs[tenant-a] = %q, want policy_bound", cfg.TenantConfigs["tenant-a"])
	}
	if cfg.BucketConfigs["tenant-a/uploads"] != pipeline.Chained {
		t.Errorf("BucketConfigs[tenant-a/uploads] = %q, want chained", cfg.BucketConfigs["tenant-a/uploads"])
	}
	if cfg.CriticalityConfigs[pipeline.Low] != pipeline.MetadataOnly {
		t.Errorf("CriticalityConfigs[low] = %q, want metadata_only", cfg.CriticalityConfigs[pipeline.Low])
	}
	// Unset tiers keep the built-in default.
	if cfg.CriticalityConfigs[pipeline.Critical] != pipeline.MerkleProof {
		t.Errorf("CriticalityConfigs[critical] = %q, want merkle_proof (unset tiers keep the built-in default)", cfg.CriticalityConfigs[pipeline.Critical])
	}
}

func TestLoadAAPConfigSubstitutesEnvVars(t *testing.T) {
	os.Setenv("AAP_TEST_DEFAULT_FIDELITY", "policy_bound")
	defer os.Unsetenv("AAP_TEST_DEFAULT_FIDELITY")

	path := writeAAPConfig(t, "default_fidelity: ${AAP_TEST_DEFAULT_FIDELITY}\n")

	cfg, err := LoadAAPConfig(path)
	if err != nil {
		t.Fatalf("LoadAAPConfig error: %v", err)
	}
	if cfg.DefaultFidelity != pipeline.PolicyBound {
		t.Errorf("DefaultFidelity = %q, want policy_bound", cfg.DefaultFidelity)
	}
}

func TestLoadAAPConfigEnvDefaultFallback(t *testing.T) {
	path := writeAAPConfig(t, "default_fidelity: ${AAP_TEST_UNSET_VAR:-chained}\n")

	cfg, err := LoadAAPConfig(path)
	if err != nil {
		t.Fatalf("LoadAAPConfig error: %v", err)
	}
	if cfg.DefaultFidelity != pipeline.Chained {
		t.Errorf("DefaultFidelity = %q, want chained", cfg.DefaultFidelity)
	}
}

func TestLoadAAPConfigMissingFileErrors(t *testing.T) {
	if _, err := LoadAAPConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("LoadAAPConfig succeeded on a missing file")
	}
}
