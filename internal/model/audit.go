package model

import "time"

// Audit actions emitted by the core. Persisting the audit trail is the
// consumer's responsibility; the core only publishes events.
const (
	AuditTimesheetCreated  = "timesheet.created"
	AuditTimesheetClosed   = "timesheet.closed"
	AuditTimesheetApproved = "timesheet.approved"
	AuditTimesheetRejected = "timesheet.rejected"
	AuditTimesheetFlagged  = "timesheet.flagged"
	AuditAllocationCreated = "allocation.created"
	AuditAllocationRemoved = "allocation.removed"
	AuditOvertimeUpdated   = "overtime_policy.updated"
)

// AuditEvent is the fire-and-forget audit record published to NATS
type AuditEvent struct {
	UserID        string    `json:"user_id"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"` // timesheet, allocation, organization
	EntityID      string    `json:"entity_id"`
	Details       string    `json:"details,omitempty"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
