package model

import "time"

// Kind distinguishes the two cooperating resource variants.
type Kind string

const (
	KindSlot Kind = "slot"
	KindUnit Kind = "unit"
)

// Valid reports whether k is a known resource kind.
func (k Kind) Valid() bool {
	return k == KindSlot || k == KindUnit
}

// Other returns the kind a resource of kind k may be bound to.
func (k Kind) Other() Kind {
	if k == KindSlot {
		return KindUnit
	}
	return KindSlot
}

// Status is the occupancy state of a resource.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
)

// Resource is a schedulable physical asset. Slots carry Size, units carry
// Model and Platform; everything else is shared.
type Resource struct {
	ID     string  `json:"id"`
	Kind   Kind    `json:"kind"`
	Name   string  `json:"name"`
	Status Status  `json:"status"`
	Health float64 `json:"health"`

	// Slot classifier.
	Size string `json:"size,omitempty"`
	// Unit classifiers.
	Model    string `json:"model,omitempty"`
	Platform string `json:"platform,omitempty"`

	LastMaintenanceDate time.Time `json:"lastMaintenanceDate"`
	NextMaintenanceDate time.Time `json:"nextMaintenanceDate"`

	Version int64 `json:"version"`

	BoundCounterpartID string `json:"boundCounterpartId,omitempty"`
	ActiveBookingID    string `json:"activeBookingId,omitempty"`
	BoundProjectID     string `json:"boundProjectId,omitempty"`
	BoundProjectName   string `json:"boundProjectName,omitempty"`

	// Conflicts holds references to overlapping bookings detected outside the engine.
	Conflicts []string `json:"conflicts,omitempty"`

	BookingHistory     []Booking             `json:"bookingHistory"`
	MaintenancePlans   []MaintenancePlan     `json:"maintenancePlans"`
	ReplacementHistory []MaintenanceLogEntry `json:"replacementHistory"`
}

// ActiveBooking returns a pointer into BookingHistory for the booking named by
// ActiveBookingID, or nil.
func (r *Resource) ActiveBooking() *Booking {
	if r.ActiveBookingID == "" {
		return nil
	}
	for i := range r.BookingHistory {
		if r.BookingHistory[i].ID == r.ActiveBookingID {
			return &r.BookingHistory[i]
		}
	}
	return nil
}

// Plan returns a pointer to the maintenance plan with the given id, or nil.
func (r *Resource) Plan(id string) *MaintenancePlan {
	for i := range r.MaintenancePlans {
		if r.MaintenancePlans[i].ID == id {
			return &r.MaintenancePlans[i]
		}
	}
	return nil
}

// Classifier returns the size for slots and the model for units.
func (r *Resource) Classifier() string {
	if r.Kind == KindSlot {
		return r.Size
	}
	return r.Model
}

// Clone returns a deep copy of r.
func (r Resource) Clone() Resource {
	out := r
	if r.Conflicts != nil {
		out.Conflicts = append([]string(nil), r.Conflicts...)
	}
	if r.BookingHistory != nil {
		out.BookingHistory = append([]Booking(nil), r.BookingHistory...)
	}
	if r.MaintenancePlans != nil {
		out.MaintenancePlans = append([]MaintenancePlan(nil), r.MaintenancePlans...)
	}
	if r.ReplacementHistory != nil {
		out.ReplacementHistory = append([]MaintenanceLogEntry(nil), r.ReplacementHistory...)
	}
	return out
}
