// Package booking creates and releases bookings, keeping occupancy exclusive
// and slot/unit bindings symmetric.
//
// A bound booking or release touches two resources through two independent
// guard calls: the resource the caller named first, then its counterpart.
// There is no rollback. When the second call fails the command returns an
// apperr.PartialFailureError naming the resource that did change and its new
// version, and the caller decides how to compensate. Releasing the half-bound
// resource is always a valid compensation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/guard"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/policy"
	"asset-booking-backend/internal/store"
	"asset-booking-backend/internal/validation"
)

// Result is the outcome of a booking command. Counterpart is set when the
// command also changed a bound counterpart.
type Result struct {
	Resource    model.Resource  `json:"resource"`
	Counterpart *model.Resource `json:"counterpart,omitempty"`
}

// Manager implements the booking commands.
type Manager struct {
	guard    *guard.Guard
	repo     store.Repository
	projects store.ProjectRegistry
	validate *validation.Validator
	now      func() time.Time
	newID    func() string
}

// NewManager creates a booking manager writing through g.
func NewManager(g *guard.Guard, projects store.ProjectRegistry) *Manager {
	return &Manager{
		guard:    g,
		repo:     g.Repository(),
		projects: projects,
		validate: validation.New(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Book reserves resourceID for the draft's project. When bindCounterpartID is
// set the resource must be a unit and the counterpart a slot; both end up
// occupied and pointing at each other, with a mirrored booking on the slot.
func (m *Manager) Book(ctx context.Context, actor model.Actor, resourceID string, draft model.BookingDraft, expectedVersion int64, bindCounterpartID string) (Result, error) {
	if !policy.CanBook(actor) {
		return Result{}, apperr.Denied("actor %q may not book resources", actor.ID)
	}
	project, err := m.checkDraft(ctx, draft)
	if err != nil {
		return Result{}, err
	}

	if bindCounterpartID != "" {
		if err := m.checkCounterpart(ctx, resourceID, bindCounterpartID); err != nil {
			return Result{}, err
		}
	}

	now := m.now()
	booking := model.Booking{
		ID:                        m.newID(),
		ResourceID:                resourceID,
		ProjectID:                 project.ID,
		ProjectName:               project.Name,
		ReservedByActorID:         actor.ID,
		ReservedByName:            draft.ReservedByName,
		Department:                draft.Department,
		Purpose:                   draft.Purpose,
		StartDate:                 draft.StartDate,
		EndDate:                   draft.EndDate,
		Status:                    model.BookingActive,
		InitialConditionConfirmed: true,
	}
	if booking.StartDate.IsZero() {
		booking.StartDate = now
	}
	if booking.Department == "" {
		booking.Department = actor.Department
	}

	primary, err := m.guard.Apply(ctx, resourceID, expectedVersion, func(r *model.Resource) error {
		if r.Status != model.StatusAvailable {
			return apperr.Unavailable(r.ID, r.Status)
		}
		if bindCounterpartID != "" {
			r.BoundCounterpartID = bindCounterpartID
		}
		occupy(r, booking)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if bindCounterpartID == "" {
		return Result{Resource: primary}, nil
	}

	mirror := booking
	mirror.ID = m.newID()
	mirror.ResourceID = bindCounterpartID
	mirror.MirrorOf = booking.ID

	// Unrelated writes to the slot since the pre-check are fine; the mutation
	// re-checks what binding needs.
	bound, err := m.guard.Apply(ctx, bindCounterpartID, guard.AnyVersion, func(r *model.Resource) error {
		if r.Status != model.StatusAvailable {
			return apperr.Unavailable(r.ID, r.Status)
		}
		if r.BoundCounterpartID != "" {
			return apperr.Unavailable(r.ID, "bound to "+r.BoundCounterpartID)
		}
		r.BoundCounterpartID = primary.ID
		occupy(r, mirror)
		return nil
	})
	if err != nil {
		log.Printf("Binding %s to %s failed after %s was booked (now v%d): %v", bindCounterpartID, primary.ID, primary.ID, primary.Version, err)
		return Result{Resource: primary}, apperr.PartialBinding(primary.ID, primary.Version, bindCounterpartID, err)
	}
	return Result{Resource: primary, Counterpart: &bound}, nil
}

// Release completes the active booking on resourceID and frees it. A bound
// counterpart that points back is released too, at whatever version it has
// now. A counterpart that does not point back is left alone.
func (m *Manager) Release(ctx context.Context, actor model.Actor, resourceID string, expectedVersion int64, returnConditionConfirmed bool) (Result, error) {
	now := m.now()
	var counterpartID string
	cascade := false

	released, err := m.guard.Apply(ctx, resourceID, expectedVersion, func(r *model.Resource) error {
		if r.Status != model.StatusOccupied {
			return apperr.Unavailable(r.ID, r.Status)
		}
		active := r.ActiveBooking()
		if active == nil {
			return apperr.Invariant("resource %q is occupied without an active booking", r.ID)
		}
		if !policy.CanRelease(actor, *active) {
			return apperr.Denied("actor %q did not reserve booking %s", actor.ID, active.ID)
		}
		if r.BoundCounterpartID != "" {
			cp, err := m.repo.Get(ctx, r.BoundCounterpartID)
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Invariant("resource %q is bound to missing resource %q", r.ID, r.BoundCounterpartID)
			}
			if err != nil {
				return err
			}
			counterpartID = cp.ID
			cascade = cp.BoundCounterpartID == r.ID
		}
		complete(r, returnConditionConfirmed, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvariantViolation) {
			log.Printf("INVARIANT VIOLATION releasing %s: %v", resourceID, err)
		}
		return Result{}, err
	}
	if counterpartID == "" {
		return Result{Resource: released}, nil
	}
	if !cascade {
		log.Printf("Released half-bound resource %s; counterpart %s did not point back and was left as is", resourceID, counterpartID)
		return Result{Resource: released}, nil
	}

	freed, err := m.guard.Apply(ctx, counterpartID, guard.AnyVersion, func(r *model.Resource) error {
		if r.BoundCounterpartID != resourceID {
			return apperr.Unavailable(r.ID, fmt.Sprintf("rebound to %q", r.BoundCounterpartID))
		}
		complete(r, returnConditionConfirmed, now)
		return nil
	})
	if err != nil {
		log.Printf("Cascaded release of %s failed after %s was released (now v%d): %v", counterpartID, resourceID, released.Version, err)
		return Result{Resource: released}, apperr.PartialRelease(released.ID, released.Version, counterpartID, err)
	}
	return Result{Resource: released, Counterpart: &freed}, nil
}

// RecordConflicts replaces the externally detected conflict references of a
// resource. An empty list clears them.
func (m *Manager) RecordConflicts(ctx context.Context, actor model.Actor, resourceID string, expectedVersion int64, conflicts []string) (model.Resource, error) {
	if !policy.CanRecordConflicts(actor) {
		return model.Resource{}, apperr.Denied("actor %q may not record conflicts", actor.ID)
	}
	return m.guard.Apply(ctx, resourceID, expectedVersion, func(r *model.Resource) error {
		r.Conflicts = append([]string(nil), conflicts...)
		return nil
	})
}

func (m *Manager) checkDraft(ctx context.Context, draft model.BookingDraft) (model.Project, error) {
	if err := m.validate.Struct(draft); err != nil {
		return model.Project{}, err
	}
	if !draft.InitialConditionConfirmed {
		return model.Project{}, apperr.Validation("initial condition must be confirmed")
	}
	if !draft.StartDate.IsZero() && !draft.EndDate.IsZero() && draft.EndDate.Before(draft.StartDate) {
		return model.Project{}, apperr.Validation("endDate is before startDate")
	}
	project, err := m.projects.Project(ctx, draft.ProjectID)
	if errors.Is(err, apperr.ErrNotFound) {
		return model.Project{}, apperr.Validation("unknown project %q", draft.ProjectID)
	}
	if err != nil {
		return model.Project{}, err
	}
	return project, nil
}

// checkCounterpart fails fast, before anything is written, when the pair
// cannot be bound.
func (m *Manager) checkCounterpart(ctx context.Context, resourceID, counterpartID string) error {
	if counterpartID == resourceID {
		return apperr.Validation("a resource cannot be bound to itself")
	}
	primary, err := m.repo.Get(ctx, resourceID)
	if err != nil {
		return err
	}
	counterpart, err := m.repo.Get(ctx, counterpartID)
	if err != nil {
		return err
	}
	if primary.Kind != model.KindUnit || counterpart.Kind != model.KindSlot {
		return apperr.Validation("only a unit booking may bind a slot (got %s -> %s)", primary.Kind, counterpart.Kind)
	}
	if counterpart.Status != model.StatusAvailable {
		return apperr.Unavailable(counterpart.ID, counterpart.Status)
	}
	if counterpart.BoundCounterpartID != "" {
		return apperr.Unavailable(counterpart.ID, "bound to "+counterpart.BoundCounterpartID)
	}
	return nil
}

func occupy(r *model.Resource, b model.Booking) {
	r.Status = model.StatusOccupied
	r.ActiveBookingID = b.ID
	r.BoundProjectID = b.ProjectID
	r.BoundProjectName = b.ProjectName
	r.BookingHistory = append([]model.Booking{b}, r.BookingHistory...)
}

func complete(r *model.Resource, returnConfirmed bool, now time.Time) {
	if active := r.ActiveBooking(); active != nil {
		active.Status = model.BookingCompleted
		active.ReturnConditionConfirmed = returnConfirmed
		completedAt := now
		active.CompletedAt = &completedAt
	}
	r.Status = model.StatusAvailable
	r.ActiveBookingID = ""
	r.BoundProjectID = ""
	r.BoundProjectName = ""
	r.BoundCounterpartID = ""
}
