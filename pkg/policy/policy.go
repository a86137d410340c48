// Copyright 2025 Certen Protocol
//
// Policy Canonicalizer & Commitment Store
// Normalizes human-authored policies into a byte-exact canonical form and
// binds them to a cryptographic commitment digest that audit records can
// reference without embedding the policy text itself.

package policy

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/caas-systems/audit-core/pkg/canon"
)

// Effect is a statement's Allow/Deny outcome.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

func (e Effect) valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Statement is one entry in a Policy's ordered statement list. Actions,
// Resources, and Principals are semantically unordered sets; Compile sorts
// them before hashing so that two statements differing only in set order
// produce identical canonical bytes (spec invariant C1).
type Statement struct {
	Sid        string
	Effect     Effect
	Actions    []string
	Resources  []string
	Principals []string               // optional
	Conditions map[string]interface{} // optional
}

// Policy is one version of a policy identity as authored by an operator.
type Policy struct {
	PolicyID   string
	Version    string
	Name       string
	Statements []Statement
	Metadata   map[string]interface{}
}

// CanonicalPolicy is the immutable (canonical bytes, commitment digest) pair
// produced by compiling a Policy. The canonical form, not the Policy it was
// derived from, is what audit records bind to.
type CanonicalPolicy struct {
	PolicyID       string
	Version        string
	CanonicalForm  []byte
	CommitmentHash string
	CreatedAt      time.Time
}

// Compiler compiles Policies into CanonicalPolicies and tracks, per policy
// id, the most recently compiled form plus a deduplicated version history.
// Reads (Get, Versions, VerifyCommitment) take a read lock; Compile takes
// the write lock, matching the reader-writer discipline spec.md §5 assigns
// to PCS state.
type Compiler struct {
	mu       sync.RWMutex
	compiled map[string]*CanonicalPolicy
	versions map[string][]string
	logger   *log.Logger
}

// Option configures a Compiler at construction time.
type Option func(*Compiler)

// WithLogger overrides the Compiler's default logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// NewCompiler returns an empty Compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		compiled: make(map[string]*CanonicalPolicy),
		versions: make(map[string][]string),
		logger:   log.New(os.Stderr, "[PolicyCompiler] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile normalizes p, canonically encodes it, and computes its commitment
// digest. Compiling the same (policy_id, version, semantic content) twice is
// idempotent: the digest is identical, and the version history records the
// version string only once (spec.md §9 open question).
//
// Steps, per spec.md §4.2: enumerate statements; within each, sort actions,
// resources, and principals, and sort condition keys; sort statements by
// sid; canonically encode; digest; record the version.
func (c *Compiler) Compile(p Policy) (*CanonicalPolicy, error) {
	seen := make(map[string]bool, len(p.Statements))
	normalized := make([]interface{}, len(p.Statements))
	order := make([]string, len(p.Statements))
	for i, stmt := range p.Statements {
		if !stmt.Effect.valid() {
			return nil, wrapMalformed(ErrInvalidEffect, stmt.Sid)
		}
		if seen[stmt.Sid] {
			return nil, wrapMalformed(ErrDuplicateSid, stmt.Sid)
		}
		seen[stmt.Sid] = true
		order[i] = stmt.Sid
		normalized[i] = statementToCanonical(stmt)
	}

	sortStatementsBySid(normalized, order)

	doc := map[string]interface{}{
		"PolicyId":   p.PolicyID,
		"Version":    p.Version,
		"Name":       p.Name,
		"Statements": normalized,
	}

	canonicalBytes, err := canon.Marshal(doc)
	if err != nil {
		// Encoding failure on a well-formed in-memory structure indicates a
		// bug in canon, not bad input; fatal per spec.md §7.
		panic("policy: canonical encoding failed: " + err.Error())
	}
	digest := canon.Hash(canonicalBytes)

	cp := &CanonicalPolicy{
		PolicyID:       p.PolicyID,
		Version:        p.Version,
		CanonicalForm:  canonicalBytes,
		CommitmentHash: digest,
		CreatedAt:      time.Now().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiled[p.PolicyID] = cp
	hist := c.versions[p.PolicyID]
	if len(hist) == 0 || hist[len(hist)-1] != p.Version {
		alreadyPresent := false
		for _, v := range hist {
			if v == p.Version {
				alreadyPresent = true
				break
			}
		}
		if !alreadyPresent {
			c.versions[p.PolicyID] = append(hist, p.Version)
		}
	}
	return cp, nil
}

// statementToCanonical builds the wire-shaped map for one statement (spec.md
// §6): sorted Actions/Resources, Principals/Conditions present as explicit
// null when absent rather than omitted, per the §4.1 canonicalization
// contract.
func statementToCanonical(stmt Statement) map[string]interface{} {
	out := map[string]interface{}{
		"Sid":       stmt.Sid,
		"Effect":    string(stmt.Effect),
		"Actions":   canon.SortStrings(stmt.Actions),
		"Resources": canon.SortStrings(stmt.Resources),
	}
	if len(stmt.Principals) > 0 {
		out["Principals"] = canon.SortStrings(stmt.Principals)
	} else {
		out["Principals"] = nil
	}
	if len(stmt.Conditions) > 0 {
		out["Conditions"] = stmt.Conditions
	} else {
		out["Conditions"] = nil
	}
	return out
}

// sortStatementsBySid reorders normalized (and its parallel sid slice) by
// sid using a simple insertion sort; statement counts per policy are small
// enough that this is not a hot path.
func sortStatementsBySid(normalized []interface{}, sids []string) {
	for i := 1; i < len(normalized); i++ {
		j := i
		for j > 0 && sids[j-1] > sids[j] {
			sids[j-1], sids[j] = sids[j], sids[j-1]
			normalized[j-1], normalized[j] = normalized[j], normalized[j-1]
			j--
		}
	}
}

// Get returns the most recently compiled canonical form of policyID, if any.
func (c *Compiler) Get(policyID string) (*CanonicalPolicy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.compiled[policyID]
	return cp, ok
}

// Versions returns the deduplicated, insertion-ordered version history for
// policyID.
func (c *Compiler) Versions(policyID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hist := c.versions[policyID]
	out := make([]string, len(hist))
	copy(out, hist)
	return out
}

// VerifyCommitment reports whether claimedDigest matches the most recently
// compiled commitment for policyID. Fails safe (false) when the policy is
// unknown, per spec.md §4.2.
func (c *Compiler) VerifyCommitment(policyID, claimedDigest string) bool {
	cp, ok := c.Get(policyID)
	if !ok {
		return false
	}
	return cp.CommitmentHash == claimedDigest
}
