// Copyright 2025 Certen Protocol
//
// Adaptive Audit Pipeline
// For each incoming event, selects a fidelity level from configuration,
// synthesizes the appropriate record shape, and appends to the ledger.

package pipeline

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/caas-systems/audit-core/pkg/intercept"
	"github.com/caas-systems/audit-core/pkg/ledger"
	"github.com/caas-systems/audit-core/pkg/policy"
)

// defaultHistoryCap bounds the processed-event ring buffer. spec.md §9
// flags the Python original's unboundedly growing processed_events list as
// something a systems-language implementation must bound or make opt-in;
// this is the bound.
const defaultHistoryCap = 10000

// ProcessedAuditEvent is the result of running one ComplianceEvent through
// the pipeline: the chosen fidelity, the resulting record, and any policy
// commitment used.
type ProcessedAuditEvent struct {
	Event            *intercept.ComplianceEvent
	Fidelity         Fidelity
	Record           *ledger.AuditRecord
	PolicyCommitment *string
	ProcessedAt      time.Time
}

// Handler observes every ProcessedAuditEvent, in registration order. A
// panicking Handler is recovered and logged, matching Interceptor's
// observer semantics.
type Handler func(*ProcessedAuditEvent)

// Pipeline is AAP. It owns no ledger state directly — it appends to the
// Ledger passed at construction — but does own its own configuration and
// bounded processing history.
type Pipeline struct {
	ledger *ledger.Ledger
	config *Configuration

	mu             sync.Mutex
	history        []*ProcessedAuditEvent
	historyCap     int
	totalProcessed uint64
	fidelityCounts map[Fidelity]uint64

	handlersMu sync.RWMutex
	handlers   []Handler

	logger *log.Logger
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithConfiguration overrides the pipeline's default Configuration.
func WithConfiguration(cfg *Configuration) Option {
	return func(p *Pipeline) { p.config = cfg }
}

// WithHistoryCap overrides the bounded processed-event ring buffer size.
func WithHistoryCap(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.historyCap = n
		}
	}
}

// WithLogger overrides the Pipeline's default logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New returns a Pipeline appending to led.
func New(led *ledger.Ledger, opts ...Option) *Pipeline {
	p := &Pipeline{
		ledger:         led,
		config:         NewConfiguration(),
		historyCap:     defaultHistoryCap,
		fidelityCounts: make(map[Fidelity]uint64),
		logger:         log.New(os.Stderr, "[Pipeline] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterHandler appends h to the pipeline's observer list.
func (p *Pipeline) RegisterHandler(h Handler) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.handlers = append(p.handlers, h)
}

// UpdateConfiguration replaces the pipeline's Configuration wholesale.
func (p *Pipeline) UpdateConfiguration(cfg *Configuration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
}

// Configuration returns the pipeline's current Configuration.
func (p *Pipeline) Configuration() *Configuration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// Process runs event through the pipeline: chooses a fidelity, builds the
// matching record shape, appends it to the ledger, notifies observers, and
// returns the ProcessedAuditEvent (spec.md §4.5).
func (p *Pipeline) Process(event *intercept.ComplianceEvent, pol *policy.CanonicalPolicy, criticality Criticality) (*ProcessedAuditEvent, error) {
	p.mu.Lock()
	cfg := p.config
	p.mu.Unlock()

	fidelity := cfg.GetFidelity(event.TenantID, event.Bucket, criticality)

	var policyCommitment *string
	if pol != nil {
		commitment := pol.CommitmentHash
		policyCommitment = &commitment
	}

	record := buildRecord(event, fidelity, policyCommitment)
	if _, err := p.ledger.Append(record); err != nil {
		return nil, err
	}

	processed := &ProcessedAuditEvent{
		Event:            event,
		Fidelity:         fidelity,
		Record:           record,
		PolicyCommitment: record.PolicyCommitment,
		ProcessedAt:      time.Now().UTC(),
	}

	p.recordHistory(processed)
	p.broadcast(processed)

	return processed, nil
}

// recordHistory appends processed to the bounded ring buffer and updates
// the running statistics.
func (p *Pipeline) recordHistory(processed *ProcessedAuditEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalProcessed++
	p.fidelityCounts[processed.Fidelity]++
	p.history = append(p.history, processed)
	if len(p.history) > p.historyCap {
		p.history = p.history[len(p.history)-p.historyCap:]
	}
}

func (p *Pipeline) broadcast(processed *ProcessedAuditEvent) {
	p.handlersMu.RLock()
	snapshot := make([]Handler, len(p.handlers))
	copy(snapshot, p.handlers)
	p.handlersMu.RUnlock()

	for _, handle := range snapshot {
		p.safeHandle(handle, processed)
	}
}

func (p *Pipeline) safeHandle(handle Handler, processed *ProcessedAuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("handler panic for event_id=%s: %v", processed.Event.EventID, r)
		}
	}()
	handle(processed)
}

// ProcessedEvents returns a copy of the bounded processing history (most
// recent defaultHistoryCap/WithHistoryCap entries).
func (p *Pipeline) ProcessedEvents() []*ProcessedAuditEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*ProcessedAuditEvent, len(p.history))
	copy(out, p.history)
	return out
}

// Stats is the result of Pipeline.Stats(): total events processed, the
// per-fidelity distribution, and the ledger's current record count.
type Stats struct {
	TotalProcessed       uint64
	FidelityDistribution map[Fidelity]uint64
	LedgerRecordCount    int
}

// Stats returns a snapshot of pipeline processing statistics, carried over
// from AdaptiveAuditPipeline.get_statistics in the Python original.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	dist := make(map[Fidelity]uint64, len(p.fidelityCounts))
	for k, v := range p.fidelityCounts {
		dist[k] = v
	}
	return Stats{
		TotalProcessed:       p.totalProcessed,
		FidelityDistribution: dist,
		LedgerRecordCount:    p.ledger.RecordCount(),
	}
}
