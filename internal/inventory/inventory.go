// Package inventory bulk replaces and exports the resource pool in the flat
// one-row-per-resource shape used by inventory sheets and the upstream feed.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/guard"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/parse"
	"asset-booking-backend/internal/policy"
	"asset-booking-backend/internal/store"
)

// Row is one resource as it appears in an inventory sheet. All values are
// free text; Classifier is the size of a slot or the model of a unit.
type Row struct {
	Kind                 model.Kind `json:"kind"`
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Classifier           string     `json:"sizeOrModel"`
	Platform             string     `json:"platform,omitempty"`
	Status               string     `json:"status"`
	BoundProjectName     string     `json:"boundProjectName,omitempty"`
	BoundCounterpartName string     `json:"boundCounterpartName,omitempty"`
	Health               string     `json:"health"`
	NextMaintenanceDate  string     `json:"nextMaintenanceDate,omitempty"`
}

// Report summarizes an import. Freed lists existing resources the import
// made available again.
type Report struct {
	Kind       model.Kind `json:"kind"`
	Created    int        `json:"created"`
	Updated    int        `json:"updated"`
	Unchanged  int        `json:"unchanged"`
	Removed    int        `json:"removed"`
	Reconciled int        `json:"reconciled"`
	Freed      []string   `json:"freed,omitempty"`
	Warnings   []string   `json:"warnings,omitempty"`
}

func (rep *Report) warnf(format string, args ...any) {
	rep.Warnings = append(rep.Warnings, fmt.Sprintf(format, args...))
}

// Importer applies inventory sheets through the guard.
type Importer struct {
	guard    *guard.Guard
	repo     store.Repository
	projects store.ProjectRegistry
	loc      *time.Location
	now      func() time.Time
	newID    func() string
}

// NewImporter creates an importer. Dates without a zone are read in loc.
func NewImporter(g *guard.Guard, projects store.ProjectRegistry, loc *time.Location) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	return &Importer{
		guard:    g,
		repo:     g.Repository(),
		projects: projects,
		loc:      loc,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// parsed is a row after free-text parsing, before it meets stored state.
type parsed struct {
	row     Row
	status  model.Status
	health  *float64
	next    *time.Time
	project model.Project
}

var errNoop = errors.New("nothing to reconcile")

// Import replaces the whole list of one kind with rows. Importing the same
// rows twice leaves versions untouched the second time.
func (im *Importer) Import(ctx context.Context, actor model.Actor, kind model.Kind, rows []Row) (Report, error) {
	if !policy.CanImport(actor) {
		return Report{}, apperr.Denied("actor %q may not import inventory", actor.ID)
	}
	if !kind.Valid() {
		return Report{}, apperr.Validation("unknown resource kind %q", kind)
	}
	rep := Report{Kind: kind}
	items, err := im.parseRows(ctx, kind, rows, &rep)
	if err != nil {
		return Report{}, err
	}

	var before map[string]model.Resource
	imported, err := im.guard.Replace(ctx, kind, func(current []model.Resource) ([]model.Resource, error) {
		before = make(map[string]model.Resource, len(current))
		for _, r := range current {
			before[r.ID] = r
		}
		others, err := im.repo.List(ctx, store.Filter{Kind: kind.Other()})
		if err != nil {
			return nil, err
		}
		return im.build(kind, items, before, others, &rep), nil
	})
	if err != nil {
		return Report{}, err
	}

	im.reconcile(ctx, before, imported, &rep)
	log.Printf("Imported %d %s resources: %d created, %d updated, %d unchanged, %d removed, %d warnings",
		len(imported), kind, rep.Created, rep.Updated, rep.Unchanged, rep.Removed, len(rep.Warnings))
	return rep, nil
}

func (im *Importer) parseRows(ctx context.Context, kind model.Kind, rows []Row, rep *Report) ([]parsed, error) {
	seen := make(map[string]bool, len(rows))
	items := make([]parsed, 0, len(rows))
	for i, row := range rows {
		row.ID = strings.TrimSpace(row.ID)
		row.Name = strings.TrimSpace(row.Name)
		if row.Kind != "" && row.Kind != kind {
			return nil, apperr.Validation("row %d: %s row in a %s import", i+1, row.Kind, kind)
		}
		if row.ID == "" {
			return nil, apperr.Validation("row %d: id is required", i+1)
		}
		if seen[row.ID] {
			return nil, apperr.Validation("row %d: duplicate id %q", i+1, row.ID)
		}
		seen[row.ID] = true
		if row.Name == "" {
			row.Name = row.ID
		}

		p := parsed{row: row}
		var ok bool
		if p.status, ok = parse.Status(row.Status); !ok {
			rep.warnf("%s: unknown status %q, treated as available", row.ID, row.Status)
		}
		if h, err := parse.Health(row.Health); err != nil {
			rep.warnf("%s: %v", row.ID, err)
		} else {
			p.health = &h
		}
		if d, err := parse.Date(row.NextMaintenanceDate, im.loc); err != nil {
			rep.warnf("%s: %v", row.ID, err)
		} else {
			p.next = &d
		}
		if name := strings.TrimSpace(row.BoundProjectName); name != "" {
			project, err := im.projects.ProjectByName(ctx, name)
			switch {
			case err == nil:
				p.project = project
			case errors.Is(err, apperr.ErrNotFound):
				rep.warnf("%s: unknown project %q, kept by name only", row.ID, name)
				p.project = model.Project{Name: name}
			default:
				return nil, err
			}
		}
		items = append(items, p)
	}
	return items, nil
}

// build merges parsed rows into the stored resources of the same kind.
func (im *Importer) build(kind model.Kind, items []parsed, before map[string]model.Resource, others []model.Resource, rep *Report) []model.Resource {
	now := im.now()
	byName := make(map[string][]model.Resource, len(others))
	byID := make(map[string]model.Resource, len(others))
	for _, o := range others {
		byName[o.Name] = append(byName[o.Name], o)
		byID[o.ID] = o
	}
	claimed := make(map[string]string)

	out := make([]model.Resource, 0, len(items))
	for _, p := range items {
		existing, exists := before[p.row.ID]
		var r model.Resource
		if exists {
			r = existing.Clone()
		} else {
			r = model.Resource{ID: p.row.ID, Kind: kind, Health: 100}
		}
		im.apply(&r, p, now)
		r.BoundCounterpartID = ""
		if r.Status == model.StatusOccupied && p.row.BoundCounterpartName != "" {
			r.BoundCounterpartID = resolveCounterpart(r, p.row.BoundCounterpartName, byName, byID, claimed, rep)
		} else if p.row.BoundCounterpartName != "" {
			rep.warnf("%s: binding to %q ignored, resource is %s", r.ID, p.row.BoundCounterpartName, r.Status)
		}

		switch {
		case !exists:
			r.Version = 1
			rep.Created++
		case changed(existing, r):
			r.Version = existing.Version + 1
			rep.Updated++
			if existing.Status != model.StatusAvailable && r.Status == model.StatusAvailable {
				rep.Freed = append(rep.Freed, r.ID)
			}
		default:
			r = existing
			rep.Unchanged++
		}
		out = append(out, r)
	}

	kept := make(map[string]bool, len(out))
	for _, r := range out {
		kept[r.ID] = true
	}
	for id, r := range before {
		if kept[id] {
			continue
		}
		rep.Removed++
		if r.Status == model.StatusOccupied {
			rep.warnf("%s: removed while occupied", id)
		}
	}
	return out
}

// apply copies the sheet attributes onto r and re-derives the status
// dependent fields.
func (im *Importer) apply(r *model.Resource, p parsed, now time.Time) {
	r.Name = p.row.Name
	if r.Kind == model.KindSlot {
		r.Size = parse.Size(p.row.Classifier)
	} else {
		r.Model = strings.TrimSpace(p.row.Classifier)
		r.Platform = strings.TrimSpace(p.row.Platform)
	}
	if p.health != nil {
		r.Health = *p.health
	}
	if p.next != nil {
		r.NextMaintenanceDate = *p.next
	}
	r.Status = p.status

	if r.Status != model.StatusOccupied {
		if active := r.ActiveBooking(); active != nil {
			active.Status = model.BookingCompleted
			completedAt := now
			active.CompletedAt = &completedAt
		}
		r.ActiveBookingID = ""
		r.BoundProjectID = ""
		r.BoundProjectName = ""
		return
	}

	if p.row.BoundProjectName != "" {
		r.BoundProjectID = p.project.ID
		r.BoundProjectName = p.project.Name
	}
	if r.ActiveBooking() != nil {
		return
	}
	// Occupied in the sheet with nobody on record: hold it under a booking
	// with no reserver so only override holders can release it.
	b := model.Booking{
		ID:          im.newID(),
		ResourceID:  r.ID,
		ProjectID:   r.BoundProjectID,
		ProjectName: r.BoundProjectName,
		StartDate:   now,
		Status:      model.BookingActive,
	}
	r.ActiveBookingID = b.ID
	r.BookingHistory = append([]model.Booking{b}, r.BookingHistory...)
}

func resolveCounterpart(r model.Resource, name string, byName map[string][]model.Resource, byID map[string]model.Resource, claimed map[string]string, rep *Report) string {
	name = strings.TrimSpace(name)
	matches := byName[name]
	if len(matches) == 0 {
		if o, ok := byID[name]; ok {
			matches = []model.Resource{o}
		}
	}
	switch len(matches) {
	case 0:
		rep.warnf("%s: counterpart %q not found, binding dropped", r.ID, name)
		return ""
	case 1:
	default:
		rep.warnf("%s: counterpart name %q is ambiguous, binding dropped", r.ID, name)
		return ""
	}
	cp := matches[0]
	// Both halves of a pair are occupied; a free counterpart would be left
	// without a back-pointer.
	if cp.Status != model.StatusOccupied {
		rep.warnf("%s: counterpart %s is %s, binding dropped", r.ID, cp.ID, cp.Status)
		return ""
	}
	if cp.BoundCounterpartID != "" && cp.BoundCounterpartID != r.ID {
		rep.warnf("%s: counterpart %s is bound to %s, binding dropped", r.ID, cp.ID, cp.BoundCounterpartID)
		return ""
	}
	if owner, taken := claimed[cp.ID]; taken {
		rep.warnf("%s: counterpart %s already claimed by %s, binding dropped", r.ID, cp.ID, owner)
		return ""
	}
	claimed[cp.ID] = r.ID
	return cp.ID
}

func changed(old, next model.Resource) bool {
	return old.Name != next.Name ||
		old.Size != next.Size ||
		old.Model != next.Model ||
		old.Platform != next.Platform ||
		old.Status != next.Status ||
		old.Health != next.Health ||
		!old.NextMaintenanceDate.Equal(next.NextMaintenanceDate) ||
		old.BoundCounterpartID != next.BoundCounterpartID ||
		old.BoundProjectID != next.BoundProjectID ||
		old.BoundProjectName != next.BoundProjectName ||
		old.ActiveBookingID != next.ActiveBookingID
}

// reconcile fixes the back-pointers on the other kind after a replace:
// occupied counterparts of new pairs point back, and partners of pairs that
// vanished are unbound.
func (im *Importer) reconcile(ctx context.Context, before map[string]model.Resource, imported []model.Resource, rep *Report) {
	after := make(map[string]model.Resource, len(imported))
	for _, r := range imported {
		after[r.ID] = r
		if r.BoundCounterpartID == "" {
			continue
		}
		id, cpID := r.ID, r.BoundCounterpartID
		_, err := im.guard.Apply(ctx, cpID, guard.AnyVersion, func(cp *model.Resource) error {
			if cp.BoundCounterpartID != "" {
				return errNoop
			}
			if cp.Status != model.StatusOccupied {
				return apperr.Unavailable(cp.ID, cp.Status)
			}
			cp.BoundCounterpartID = id
			return nil
		})
		im.noteReconcile(cpID, err, rep)
	}

	for id, old := range before {
		if old.BoundCounterpartID == "" || after[id].BoundCounterpartID == old.BoundCounterpartID {
			continue
		}
		cpID := old.BoundCounterpartID
		_, err := im.guard.Apply(ctx, cpID, guard.AnyVersion, func(cp *model.Resource) error {
			if cp.BoundCounterpartID != id {
				return errNoop
			}
			cp.BoundCounterpartID = ""
			return nil
		})
		im.noteReconcile(cpID, err, rep)
	}
}

func (im *Importer) noteReconcile(id string, err error, rep *Report) {
	switch {
	case err == nil:
		rep.Reconciled++
	case errors.Is(err, errNoop), errors.Is(err, apperr.ErrNotFound):
	case errors.Is(err, apperr.ErrResourceUnavailable):
		rep.warnf("%s: not pointed back, %v", id, err)
	default:
		log.Printf("Failed to reconcile binding on %s: %v", id, err)
		rep.warnf("%s: binding not reconciled: %v", id, err)
	}
}

// Export lists one kind in the import shape, sorted by id.
func (im *Importer) Export(ctx context.Context, kind model.Kind) ([]Row, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("unknown resource kind %q", kind)
	}
	resources, err := im.repo.List(ctx, store.Filter{Kind: kind})
	if err != nil {
		return nil, err
	}
	others, err := im.repo.List(ctx, store.Filter{Kind: kind.Other()})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(others))
	for _, o := range others {
		names[o.ID] = o.Name
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })
	rows := make([]Row, 0, len(resources))
	for _, r := range resources {
		row := Row{
			Kind:                 r.Kind,
			ID:                   r.ID,
			Name:                 r.Name,
			Classifier:           r.Classifier(),
			Platform:             r.Platform,
			Status:               string(r.Status),
			BoundProjectName:     r.BoundProjectName,
			BoundCounterpartName: names[r.BoundCounterpartID],
			Health:               strconv.FormatFloat(r.Health, 'f', -1, 64),
		}
		if !r.NextMaintenanceDate.IsZero() {
			row.NextMaintenanceDate = r.NextMaintenanceDate.In(im.loc).Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows, nil
}
