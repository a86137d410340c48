// Copyright 2025 Certen Protocol
//
// Canonical Encoding & Content Hashing
// Provides the single deterministic byte-exact serialization used
// wherever a structured value is digested: records and policies hash the
// output of Marshal, never an ad hoc encoding of their own. Merkle internal
// nodes are not structured values; pkg/merkle hashes the concatenation of
// their two children's hex strings with Hash directly.

package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Marshal returns the canonical byte encoding of v: JSON with map keys in
// ASCII-lexicographic order, arrays left in their original order, and no
// insignificant whitespace. v should already be a plain tree of maps,
// slices, strings, numbers, bools and nils (e.g. produced by ToCanonical
// methods on domain types) rather than an arbitrary Go struct, so that
// field order is under the caller's control.
func Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Canonicalize(raw)
}

// Canonicalize re-encodes arbitrary JSON bytes with sorted map keys and
// stable formatting.
func Canonicalize(raw []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	ordered := canonicalizeValue(v)
	return json.Marshal(ordered)
}

// canonicalizeValue recursively sorts map keys; arrays retain their order.
func canonicalizeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(orderedMap, 0, len(vv))
		for _, k := range keys {
			ordered = append(ordered, kv{k, canonicalizeValue(vv[k])})
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return vv
	}
}

// kv and orderedMap preserve the sorted key order through json.Marshal,
// since marshaling a plain map[string]interface{} would re-sort (Go's
// encoding/json already sorts map keys, but orderedMap makes the
// contract explicit and keeps MarshalJSON independent of that stdlib
// behavior).
type kv struct {
	Key   string
	Value interface{}
}
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	for i, e := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		valBytes, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// SortStrings returns a new sorted copy of ss, used to canonicalize the
// unordered action/resource/principal sets before encoding (spec §4.1:
// "Sets are emitted as arrays sorted in ASCII-lexicographic order").
func SortStrings(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}

// RFC3339Millis formats t as an RFC-3339 UTC string with millisecond
// precision, the timestamp encoding the canonicalization contract fixes.
func RFC3339Millis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Hash returns the SHA-256 digest of data as lowercase hex, the single
// content-hash function used throughout the core.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashValue canonically encodes v and returns its content hash.
func HashValue(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return Hash(b), nil
}

// ZeroHash is the 64-ASCII-zero genesis digest used as previous_hash for
// the first record ever appended to a ledger.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// IsValidDigest reports whether s is a well-formed lowercase hex SHA-256
// digest (64 hex characters).
func IsValidDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
