// Package maintenance runs the plan approval and maintenance execution
// commands. Every write goes through the guard.
package maintenance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/guard"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/policy"
	"asset-booking-backend/internal/store"
	"asset-booking-backend/internal/validation"
)

// DefaultIntervalMonths is the gap between executed maintenance and the next
// due date when none is configured.
const DefaultIntervalMonths = 6

// Workflow implements the maintenance commands.
type Workflow struct {
	guard          *guard.Guard
	repo           store.Repository
	validate       *validation.Validator
	intervalMonths int
	now            func() time.Time
	newID          func() string
}

// NewWorkflow creates a workflow writing through g. A non-positive interval
// falls back to DefaultIntervalMonths.
func NewWorkflow(g *guard.Guard, intervalMonths int) *Workflow {
	if intervalMonths <= 0 {
		intervalMonths = DefaultIntervalMonths
	}
	return &Workflow{
		guard:          g,
		repo:           g.Repository(),
		validate:       validation.New(),
		intervalMonths: intervalMonths,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
}

// RequestMaintenance files a pending plan against a resource.
func (w *Workflow) RequestMaintenance(ctx context.Context, actor model.Actor, resourceID string, draft model.PlanDraft) (model.Resource, model.MaintenancePlan, error) {
	if !policy.CanRequestMaintenance(actor) {
		return model.Resource{}, model.MaintenancePlan{}, apperr.Denied("actor %q may not request maintenance", actor.ID)
	}
	if err := w.validate.Struct(draft); err != nil {
		return model.Resource{}, model.MaintenancePlan{}, err
	}
	plan := model.MaintenancePlan{
		ID:               w.newID(),
		ResourceID:       resourceID,
		ApplicantActorID: actor.ID,
		PlannedDate:      draft.PlannedDate,
		Kind:             draft.Kind,
		Description:      draft.Description,
		Status:           model.PlanPending,
	}
	r, err := w.guard.Apply(ctx, resourceID, guard.AnyVersion, func(r *model.Resource) error {
		r.MaintenancePlans = append(r.MaintenancePlans, plan)
		return nil
	})
	if err != nil {
		return model.Resource{}, model.MaintenancePlan{}, err
	}
	return r, plan, nil
}

// Decide accepts or rejects a pending plan. The first decision is final.
func (w *Workflow) Decide(ctx context.Context, actor model.Actor, planID string, decision model.PlanStatus, remarks string) (model.Resource, model.MaintenancePlan, error) {
	if !policy.CanApprove(actor) {
		return model.Resource{}, model.MaintenancePlan{}, apperr.Denied("actor %q may not decide maintenance plans", actor.ID)
	}
	if decision != model.PlanAccepted && decision != model.PlanRejected {
		return model.Resource{}, model.MaintenancePlan{}, apperr.Validation("decision must be %s or %s, got %q", model.PlanAccepted, model.PlanRejected, decision)
	}
	resourceID, err := w.findPlan(ctx, planID)
	if err != nil {
		return model.Resource{}, model.MaintenancePlan{}, err
	}

	now := w.now()
	var decided model.MaintenancePlan
	r, err := w.guard.Apply(ctx, resourceID, guard.AnyVersion, func(r *model.Resource) error {
		p := r.Plan(planID)
		if p == nil {
			return apperr.NotFound("maintenance plan", planID)
		}
		if p.Status != model.PlanPending {
			return apperr.AlreadyDecided(planID, p.Status)
		}
		p.Status = decision
		p.ApproverActorID = actor.ID
		p.ApprovalRemarks = remarks
		decidedAt := now
		p.DecidedAt = &decidedAt
		decided = *p
		return nil
	})
	if err != nil {
		return model.Resource{}, model.MaintenancePlan{}, err
	}
	return r, decided, nil
}

// ExecuteMaintenance records completed maintenance: full health, a fresh due
// date and a log entry. A plan is not required.
func (w *Workflow) ExecuteMaintenance(ctx context.Context, actor model.Actor, resourceID string, expectedVersion int64) (model.Resource, error) {
	now := w.now()
	return w.guard.Apply(ctx, resourceID, expectedVersion, func(r *model.Resource) error {
		if r.Status == model.StatusOccupied {
			return apperr.Unavailable(r.ID, r.Status)
		}
		if !policy.CanManage(actor, *r) {
			return apperr.Denied("actor %q may not maintain resource %q", actor.ID, r.ID)
		}
		r.Status = model.StatusAvailable
		r.Health = 100
		r.LastMaintenanceDate = now
		r.NextMaintenanceDate = now.AddDate(0, w.intervalMonths, 0)
		entry := model.MaintenanceLogEntry{
			ID:                 w.newID(),
			Date:               now,
			PartOrSubject:      "scheduled maintenance",
			Reason:             "maintenance executed",
			PerformedByActorID: actor.ID,
		}
		r.ReplacementHistory = append([]model.MaintenanceLogEntry{entry}, r.ReplacementHistory...)
		return nil
	})
}

// LogMaintenanceEvent records a manual entry without touching health or
// status.
func (w *Workflow) LogMaintenanceEvent(ctx context.Context, actor model.Actor, resourceID string, draft model.LogEntryDraft) (model.Resource, error) {
	if err := w.validate.Struct(draft); err != nil {
		return model.Resource{}, err
	}
	entry := model.MaintenanceLogEntry{
		ID:                 w.newID(),
		Date:               draft.Date,
		PartOrSubject:      draft.PartOrSubject,
		Reason:             draft.Reason,
		PerformedByActorID: actor.ID,
	}
	if entry.Date.IsZero() {
		entry.Date = w.now()
	}
	return w.guard.Apply(ctx, resourceID, guard.AnyVersion, func(r *model.Resource) error {
		if !policy.CanManage(actor, *r) {
			return apperr.Denied("actor %q may not log maintenance on resource %q", actor.ID, r.ID)
		}
		r.ReplacementHistory = append([]model.MaintenanceLogEntry{entry}, r.ReplacementHistory...)
		return nil
	})
}

// BeginMaintenance takes an available resource out of service.
func (w *Workflow) BeginMaintenance(ctx context.Context, actor model.Actor, resourceID string, expectedVersion int64) (model.Resource, error) {
	return w.guard.Apply(ctx, resourceID, expectedVersion, func(r *model.Resource) error {
		if r.Status != model.StatusAvailable {
			return apperr.Unavailable(r.ID, r.Status)
		}
		if !policy.CanManage(actor, *r) {
			return apperr.Denied("actor %q may not maintain resource %q", actor.ID, r.ID)
		}
		r.Status = model.StatusMaintenance
		return nil
	})
}

// findPlan returns the id of the resource holding planID.
func (w *Workflow) findPlan(ctx context.Context, planID string) (string, error) {
	resources, err := w.repo.List(ctx, store.Filter{})
	if err != nil {
		return "", err
	}
	for i := range resources {
		if resources[i].Plan(planID) != nil {
			return resources[i].ID, nil
		}
	}
	return "", apperr.NotFound("maintenance plan", planID)
}
