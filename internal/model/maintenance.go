package model

import "time"

// PlanKind classifies a maintenance plan.
type PlanKind string

const (
	PlanRoutine   PlanKind = "routine"
	PlanBreakdown PlanKind = "breakdown"
	PlanUpgrade   PlanKind = "upgrade"
)

// PlanStatus is the approval state of a maintenance plan. Accepted and
// rejected are terminal.
type PlanStatus string

const (
	PlanPending  PlanStatus = "pending"
	PlanAccepted PlanStatus = "accepted"
	PlanRejected PlanStatus = "rejected"
)

// MaintenancePlan is a request to maintain a resource, subject to approval.
type MaintenancePlan struct {
	ID               string     `json:"id"`
	ResourceID       string     `json:"resourceId"`
	ApplicantActorID string     `json:"applicantActorId"`
	PlannedDate      time.Time  `json:"plannedDate"`
	Kind             PlanKind   `json:"kind"`
	Description      string     `json:"description"`
	Status           PlanStatus `json:"status"`
	ApproverActorID  string     `json:"approverActorId,omitempty"`
	ApprovalRemarks  string     `json:"approvalRemarks,omitempty"`
	DecidedAt        *time.Time `json:"decidedAt,omitempty"`
}

// PlanDraft is the caller-supplied part of a maintenance plan.
type PlanDraft struct {
	PlannedDate time.Time `json:"plannedDate" validate:"required"`
	Kind        PlanKind  `json:"kind" validate:"required,oneof=routine breakdown upgrade"`
	Description string    `json:"description"`
}

// MaintenanceLogEntry records a maintenance event or part replacement. Entries
// are append-only.
type MaintenanceLogEntry struct {
	ID                 string    `json:"id"`
	Date               time.Time `json:"date"`
	PartOrSubject      string    `json:"partOrSubject"`
	Reason             string    `json:"reason"`
	PerformedByActorID string    `json:"performedByActorId"`
}

// LogEntryDraft is a manually recorded maintenance event.
type LogEntryDraft struct {
	Date          time.Time `json:"date"`
	PartOrSubject string    `json:"partOrSubject" validate:"required,notblank"`
	Reason        string    `json:"reason"`
}
