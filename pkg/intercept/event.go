// Copyright 2025 Certen Protocol
//
// Compliance Event Interceptor — event shape and filtering.

package intercept

import "time"

// EventType enumerates the compliance-relevant event kinds CEI accepts.
type EventType string

const (
	EventObjectCreate EventType = "object.create"
	EventObjectUpdate EventType = "object.update"
	EventObjectDelete EventType = "object.delete"
	EventObjectRead   EventType = "object.read"
	EventPolicyCreate EventType = "policy.create"
	EventPolicyUpdate EventType = "policy.update"
	EventPolicyDelete EventType = "policy.delete"
)

// ComplianceEvent is the raw input to the pipeline. It is immutable after
// construction and is not itself tamper-protected — only the AuditRecord
// derived from it is (spec.md §3).
type ComplianceEvent struct {
	EventID   string
	EventType EventType
	Timestamp time.Time
	TenantID  string
	Bucket    string
	ObjectKey *string
	Principal *string
	Metadata  map[string]interface{}
}

// EventFilter is a conjunction of three independent inclusion lists — an
// empty list is a wildcard on that dimension — carried over from
// EventFilter.matches in the Python original, which spec.md's §4.4 only
// describes at the invariant level.
type EventFilter struct {
	TenantFilters    []string
	BucketFilters    []string
	EventTypeFilters []EventType
}

// Matches reports whether event satisfies every non-empty dimension.
func (f *EventFilter) Matches(event *ComplianceEvent) bool {
	if len(f.TenantFilters) > 0 && !containsString(f.TenantFilters, event.TenantID) {
		return false
	}
	if len(f.BucketFilters) > 0 && !containsString(f.BucketFilters, event.Bucket) {
		return false
	}
	if len(f.EventTypeFilters) > 0 && !containsEventType(f.EventTypeFilters, event.EventType) {
		return false
	}
	return true
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func containsEventType(ts []EventType, v EventType) bool {
	for _, t := range ts {
		if t == v {
			return true
		}
	}
	return false
}
