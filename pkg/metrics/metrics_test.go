// Copyright 2025 Certen Protocol

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/caas-systems/audit-core/pkg/intercept"
	"github.com/caas-systems/audit-core/pkg/ledger"
	"github.com/caas-systems/audit-core/pkg/pipeline"
)

func TestObserveQueueDepthSetsGauge(t *testing.T) {
	m := New()
	m.ObserveQueueDepth(42)
	if got := testutil.ToFloat64(m.queueDepth); got != 42 {
		t.Errorf("queueDepth = %v, want 42", got)
	}
}

func TestIncDropsIncrementsCounter(t *testing.T) {
	m := New()
	m.IncDrops()
	m.IncDrops()
	if got := testutil.ToFloat64(m.queueDrops); got != 2 {
		t.Errorf("queueDrops = %v, want 2", got)
	}
}

func TestLedgerRecorderHooks(t *testing.T) {
	m := New()
	m.IncAppends()
	m.IncSeals()
	m.IncSeals()
	if got := testutil.ToFloat64(m.ledgerAppend); got != 1 {
		t.Errorf("ledgerAppend = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ledgerSeal); got != 2 {
		t.Errorf("ledgerSeal = %v, want 2", got)
	}
}

func TestRecordProcessedTalliesByFidelity(t *testing.T) {
	m := New()
	m.RecordProcessed(&pipeline.ProcessedAuditEvent{Fidelity: pipeline.MerkleProof, ProcessedAt: time.Now()})
	m.RecordProcessed(&pipeline.ProcessedAuditEvent{Fidelity: pipeline.MerkleProof, ProcessedAt: time.Now()})
	m.RecordProcessed(&pipeline.ProcessedAuditEvent{Fidelity: pipeline.MetadataOnly, ProcessedAt: time.Now()})

	if got := testutil.ToFloat64(m.fidelity.WithLabelValues(string(pipeline.MerkleProof))); got != 2 {
		t.Errorf("fidelity[merkle_proof] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.fidelity.WithLabelValues(string(pipeline.MetadataOnly))); got != 1 {
		t.Errorf("fidelity[metadata_only] = %v, want 1", got)
	}
}

func TestMetricsSatisfiesRecorderInterfaces(t *testing.T) {
	m := New()
	var _ intercept.Recorder = m
	var _ ledger.Recorder = m
}

func TestIntegrationWithLedgerAndInterceptor(t *testing.T) {
	m := New()
	led := ledger.New(ledger.WithBatchSize(2), ledger.WithRecorder(m))

	for i := 0; i < 4; i++ {
		if _, err := led.Append(&ledger.AuditRecord{}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if got := testutil.ToFloat64(m.ledgerAppend); got != 4 {
		t.Errorf("ledgerAppend = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.ledgerSeal); got != 2 {
		t.Errorf("ledgerSeal = %v, want 2", got)
	}

	cei := intercept.New(1, intercept.WithRecorder(m))
	cei.Intercept(&intercept.ComplianceEvent{EventType: intercept.EventObjectCreate})
	if got := testutil.ToFloat64(m.queueDepth); got != 1 {
		t.Errorf("queueDepth after one intercept = %v, want 1", got)
	}

	cei.Intercept(&intercept.ComplianceEvent{EventType: intercept.EventObjectCreate})
	if got := testutil.ToFloat64(m.queueDrops); got != 1 {
		t.Errorf("queueDrops after overflow = %v, want 1", got)
	}
}
