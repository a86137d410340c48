// Copyright 2025 Certen Protocol
//
// AAP Configuration Loader
//
// Loads the Adaptive Audit Pipeline's declarative fidelity overrides
// (spec.md §6) from a YAML file, with ${VAR_NAME} environment variable
// substitution for values an operator wants to keep out of the file.

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/caas-systems/audit-core/pkg/pipeline"
)

// AAPConfig is the on-disk shape of the AAP configuration surface. It
// mirrors pipeline.Configuration field-for-field; LoadAAPConfig converts
// between the two so the YAML file can use plain strings for fidelity and
// criticality values.
type AAPConfig struct {
	DefaultFidelity    string            `yaml:"default_fidelity"`
	TenantConfigs      map[string]string `yaml:"tenant_configs"`
	BucketConfigs      map[string]string `yaml:"bucket_configs"` // keyed "<tenant_id>/<bucket>"
	CriticalityConfigs map[string]string `yaml:"criticality_configs"`
}

// LoadAAPConfig reads path, substitutes ${VAR_NAME} references against the
// process environment, and parses the result into a pipeline.Configuration
// seeded with the built-in defaults for anything the file doesn't set.
func LoadAAPConfig(path string) (*pipeline.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AAP config file %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var raw AAPConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse AAP config file %s: %w", path, err)
	}

	cfg := pipeline.NewConfiguration()
	if raw.DefaultFidelity != "" {
		cfg.DefaultFidelity = pipeline.Fidelity(raw.DefaultFidelity)
	}
	for tenant, fidelity := range raw.TenantConfigs {
		cfg.TenantConfigs[tenant] = pipeline.Fidelity(fidelity)
	}
	for bucketKey, fidelity := range raw.BucketConfigs {
		cfg.BucketConfigs[bucketKey] = pipeline.Fidelity(fidelity)
	}
	for criticality, fidelity := range raw.CriticalityConfigs {
		cfg.CriticalityConfigs[pipeline.Criticality(criticality)] = pipeline.Fidelity(fidelity)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable values,
// falling back to the :- default when the variable is unset or empty.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}

		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
