// Copyright 2025 Certen Protocol
//
// Audit Ledger
// Append-only, hash-chained sequence of audit records. Every batch_size
// appends seals a Merkle tree over that batch; sealed trees never change.

package ledger

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/caas-systems/audit-core/pkg/canon"
	"github.com/caas-systems/audit-core/pkg/merkle"
)

const defaultBatchSize = 100

// Recorder receives append and seal signals for external metrics. It is
// optional; Ledger works without one, mirroring intercept.Recorder.
type Recorder interface {
	IncAppends()
	IncSeals()
}

// Ledger is a single-logical-writer append-only record sequence. Append and
// the Merkle sealing it may trigger hold the write lock; GetRecord,
// VerifyChainIntegrity, and GenerateInclusionProof take the read lock and
// may run concurrently with each other, per spec.md §5.
type Ledger struct {
	mu        sync.RWMutex
	batchSize int
	records   []*AuditRecord
	index     map[string]int
	trees     []*merkle.Tree
	recorder  Recorder
	logger    *log.Logger
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithLogger overrides the Ledger's default logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithBatchSize overrides the default Merkle batch size (100).
func WithBatchSize(size int) Option {
	return func(l *Ledger) {
		if size > 0 {
			l.batchSize = size
		}
	}
}

// WithRecorder attaches a metrics Recorder.
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) { l.recorder = r }
}

// New returns an empty Ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		batchSize: defaultBatchSize,
		records:   make([]*AuditRecord, 0),
		index:     make(map[string]int),
		trees:     make([]*merkle.Tree, 0),
		logger:    log.New(os.Stderr, "[Ledger] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append chains record onto the ledger and seals a Merkle tree if this
// append completes a batch. record.RecordID is generated if empty.
// record.PreviousHash and record.RecordHash are overwritten unconditionally
// — callers do not set them.
//
// Append is atomic (spec.md §5 Transaction discipline): if sealing the
// batch fails, the record insertion is rolled back so the ledger is left
// exactly as it was before the call.
func (l *Ledger) Append(record *AuditRecord) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.RecordID == "" {
		record.RecordID = uuid.NewString()
	}
	if _, exists := l.index[record.RecordID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateRecord, record.RecordID)
	}

	if len(l.records) == 0 {
		record.PreviousHash = canon.ZeroHash
	} else {
		record.PreviousHash = l.records[len(l.records)-1].RecordHash
	}

	hash, err := record.computeHash()
	if err != nil {
		// A hashing/encoding failure on a well-formed record indicates a
		// bug, not bad input; fatal per spec.md §7.
		panic("ledger: record hash computation failed: " + err.Error())
	}
	record.RecordHash = hash

	l.records = append(l.records, record)
	l.index[record.RecordID] = len(l.records) - 1

	if len(l.records)%l.batchSize == 0 {
		if err := l.sealBatch(); err != nil {
			l.records = l.records[:len(l.records)-1]
			delete(l.index, record.RecordID)
			return "", fmt.Errorf("ledger: seal batch: %w", err)
		}
		if l.recorder != nil {
			l.recorder.IncSeals()
		}
	}

	if l.recorder != nil {
		l.recorder.IncAppends()
	}

	return record.RecordHash, nil
}

// sealBatch builds a Merkle tree over the most recently completed batch.
// Caller must hold the write lock.
func (l *Ledger) sealBatch() error {
	batchIndex := len(l.trees)
	start := batchIndex * l.batchSize
	end := start + l.batchSize
	leaves := make([]string, 0, l.batchSize)
	for _, r := range l.records[start:end] {
		leaves = append(leaves, r.RecordHash)
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return err
	}
	l.trees = append(l.trees, tree)
	return nil
}

// GetRecord looks up a record by id in O(1).
func (l *Ledger) GetRecord(recordID string) (*AuditRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.index[recordID]
	if !ok {
		return nil, false
	}
	return l.records[pos], true
}

// RecordCount returns the number of records appended so far.
func (l *Ledger) RecordCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// LatestRecord returns the most recently appended record, if any.
func (l *Ledger) LatestRecord() (*AuditRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.records) == 0 {
		return nil, false
	}
	return l.records[len(l.records)-1], true
}

// VerifyChainIntegrity recomputes every record's hash and chain link,
// returning false on the first mismatch found. An empty ledger is
// trivially intact.
func (l *Ledger) VerifyChainIntegrity() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i, r := range l.records {
		expected, err := r.computeHash()
		if err != nil || expected != r.RecordHash {
			return false
		}
		if i == 0 {
			if r.PreviousHash != canon.ZeroHash {
				return false
			}
			continue
		}
		if r.PreviousHash != l.records[i-1].RecordHash {
			return false
		}
	}
	return true
}

// GenerateInclusionProof produces the Merkle inclusion proof for recordID.
// Returns ErrNotSealed if the record's batch hasn't been sealed yet
// (spec.md §9 open question, option b).
func (l *Ledger) GenerateInclusionProof(recordID string) (*merkle.InclusionProof, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.index[recordID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}

	treeIndex := pos / l.batchSize
	if treeIndex >= len(l.trees) {
		return nil, fmt.Errorf("%w: %s", ErrNotSealed, recordID)
	}

	leafIndex := pos % l.batchSize
	return l.trees[treeIndex].Proof(leafIndex)
}

// SealedTreeCount returns the number of Merkle trees sealed so far.
func (l *Ledger) SealedTreeCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trees)
}

// Tree returns the sealed tree at batchIndex, if it exists. Used by the
// proof bundle builder to attach roots without re-deriving them from
// positions.
func (l *Ledger) Tree(batchIndex int) (*merkle.Tree, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if batchIndex < 0 || batchIndex >= len(l.trees) {
		return nil, false
	}
	return l.trees[batchIndex], true
}

// BatchSize returns the ledger's configured Merkle batch size.
func (l *Ledger) BatchSize() int {
	return l.batchSize
}

// Records returns a copy of every record appended so far, in append order.
// Used by the proof bundle builder for time-range and tenant-scope queries,
// which have no other way to enumerate the ledger.
func (l *Ledger) Records() []*AuditRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*AuditRecord, len(l.records))
	copy(out, l.records)
	return out
}

// PositionOf returns the append-order position of recordID, for callers
// that need to map a record back to its sealed batch.
func (l *Ledger) PositionOf(recordID string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.index[recordID]
	return pos, ok
}
