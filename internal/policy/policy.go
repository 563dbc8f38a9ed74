// Package policy holds the role-capability predicates consumed by the
// booking and maintenance components.
package policy

import "asset-booking-backend/internal/model"

func known(a model.Actor) bool {
	return a.ID != "" && a.Role != model.RoleNone
}

// CanBook reports whether the actor may create bookings.
func CanBook(a model.Actor) bool {
	return known(a)
}

// CanOverrideRelease reports whether the actor may release bookings held by
// someone else.
func CanOverrideRelease(a model.Actor) bool {
	return known(a) && (a.Role == model.RoleAdministrative || a.Role == model.RoleManager)
}

// CanRelease reports whether the actor may complete the given booking. A
// booking with no recorded reserver id, as produced by bulk import, can only
// be released through the override capability; an empty id never matches.
func CanRelease(a model.Actor, b model.Booking) bool {
	if CanOverrideRelease(a) {
		return true
	}
	return known(a) && b.ReservedByActorID != "" && b.ReservedByActorID == a.ID
}

// CanApprove reports whether the actor may decide maintenance plans.
func CanApprove(a model.Actor) bool {
	return known(a) && a.Role == model.RoleAdministrative
}

// CanManage reports whether the actor may perform maintenance actions on r.
// Administrators manage any resource nobody holds; a booking holder manages
// only what they currently hold. Managers override releases but do not manage.
func CanManage(a model.Actor, r model.Resource) bool {
	if !known(a) {
		return false
	}
	if r.Status != model.StatusOccupied {
		return a.Role == model.RoleAdministrative
	}
	b := r.ActiveBooking()
	return b != nil && b.ReservedByActorID != "" && b.ReservedByActorID == a.ID
}

// CanRecordConflicts reports whether the actor may flag externally detected
// booking conflicts on a resource.
func CanRecordConflicts(a model.Actor) bool {
	return CanOverrideRelease(a)
}

// CanImport reports whether the actor may bulk replace the resource pool.
func CanImport(a model.Actor) bool {
	return known(a) && a.Role == model.RoleAdministrative
}

// CanRequestMaintenance reports whether the actor may file a maintenance plan.
func CanRequestMaintenance(a model.Actor) bool {
	return known(a)
}
