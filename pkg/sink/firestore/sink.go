// Copyright 2025 Certen Protocol
//
// Firestore Compliance Mirror
// A pluggable CEI/AAP observer that mirrors ComplianceEvents and
// ProcessedAuditEvents to Firestore for a real-time compliance dashboard —
// an external consumer of the observer hooks spec.md §4.4/§4.5 define, not
// part of the ledger's own storage.

package firestore

import (
	"context"
	"fmt"
	"log"
	"os"

	fsclient "github.com/caas-systems/audit-core/pkg/firestore"
	"github.com/caas-systems/audit-core/pkg/intercept"
	"github.com/caas-systems/audit-core/pkg/pipeline"
)

// Sink mirrors compliance events and processed audit events to Firestore.
// Built on a disabled-by-default fsclient.Client: when the client is
// disabled, every mirror call is a no-op that returns no error (the client
// only logs the skipped write), so a Sink can be wired in
// unconditionally and only actually writes when Firestore is configured.
type Sink struct {
	client *fsclient.Client
	logger *log.Logger
}

// New wraps client in a Sink ready to register as a CEI/AAP observer.
func New(client *fsclient.Client) *Sink {
	return &Sink{
		client: client,
		logger: log.New(os.Stdout, "[firestore-sink] ", log.LstdFlags),
	}
}

// ObserveEvent is an intercept.Observer: it mirrors a raw ComplianceEvent
// under mirror/events/{tenant_id}/{event_id} as soon as it is admitted to
// the interceptor's queue.
func (s *Sink) ObserveEvent(event *intercept.ComplianceEvent) {
	docPath := fmt.Sprintf("mirror/events/%s/%s", event.TenantID, event.EventID)
	fields := map[string]interface{}{
		"event_id":   event.EventID,
		"event_type": string(event.EventType),
		"timestamp":  event.Timestamp,
		"tenant_id":  event.TenantID,
		"bucket":     event.Bucket,
		"object_key": event.ObjectKey,
		"principal":  event.Principal,
		"metadata":   event.Metadata,
	}
	if err := s.client.SetDoc(context.Background(), docPath, fields); err != nil {
		s.logger.Printf("failed to mirror event %s: %v", event.EventID, err)
	}
}

// ObserveProcessed is a pipeline.Handler: it mirrors the resulting
// AuditRecord under mirror/records/{tenant_id}/{record_id}, annotated with
// the fidelity level the AAP selected for it.
func (s *Sink) ObserveProcessed(processed *pipeline.ProcessedAuditEvent) {
	record := processed.Record
	docPath := fmt.Sprintf("mirror/records/%s/%s", record.TenantID, record.RecordID)
	fields := map[string]interface{}{
		"record_id":         record.RecordID,
		"event_id":          record.EventID,
		"timestamp":         record.Timestamp,
		"event_type":        record.EventType,
		"tenant_id":         record.TenantID,
		"bucket":            record.Bucket,
		"object_key":        record.ObjectKey,
		"policy_commitment": record.PolicyCommitment,
		"previous_hash":     record.PreviousHash,
		"record_hash":       record.RecordHash,
		"fidelity":          string(processed.Fidelity),
		"processed_at":      processed.ProcessedAt,
	}
	if err := s.client.SetDoc(context.Background(), docPath, fields); err != nil {
		s.logger.Printf("failed to mirror record %s: %v", record.RecordID, err)
	}
}
