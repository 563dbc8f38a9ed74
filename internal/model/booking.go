package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
)

// Booking is one reservation of a resource for a project.
type Booking struct {
	ID                string        `json:"id"`
	ResourceID        string        `json:"resourceId"`
	ProjectID         string        `json:"projectId"`
	ProjectName       string        `json:"projectName"`
	ReservedByActorID string        `json:"reservedByActorId"`
	ReservedByName    string        `json:"reservedByName"`
	Department        string        `json:"department"`
	Purpose           string        `json:"purpose"`
	StartDate         time.Time     `json:"startDate"`
	EndDate           time.Time     `json:"endDate"`
	Status            BookingStatus `json:"status"`

	InitialConditionConfirmed bool       `json:"initialConditionConfirmed"`
	ReturnConditionConfirmed  bool       `json:"returnConditionConfirmed"`
	CompletedAt               *time.Time `json:"completedAt,omitempty"`

	// MirrorOf is set on the audit copy written to a bound counterpart and
	// names the booking it mirrors.
	MirrorOf string `json:"mirrorOf,omitempty"`
}

// BookingDraft is the caller-supplied part of a booking.
type BookingDraft struct {
	ProjectID                 string    `json:"projectId" validate:"required,notblank"`
	ReservedByName            string    `json:"reservedByName" validate:"required,notblank"`
	Department                string    `json:"department"`
	Purpose                   string    `json:"purpose"`
	StartDate                 time.Time `json:"startDate"`
	EndDate                   time.Time `json:"endDate"`
	InitialConditionConfirmed bool      `json:"initialConditionConfirmed"`
}
