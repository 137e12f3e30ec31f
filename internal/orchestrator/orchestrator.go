// Package orchestrator applies a requested set of changes to exactly one
// remote job. The remote system exposes independent endpoints for
// schedule/status, dispatch, notes, and line items with no multi-operation
// transaction, so the orchestrator defines an explicit step ordering and
// failure policy: the schedule/status patch is load-bearing and aborts the
// run on failure; dispatch, notes, line items, and mirror reconciliation are
// best-effort.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsboard/fieldsync/internal/catalog"
	"github.com/opsboard/fieldsync/internal/gateway"
	"github.com/opsboard/fieldsync/internal/logger"
	"github.com/opsboard/fieldsync/internal/mirror"
)

const component = "Orchestrator"

// Gateway is the slice of the field-service client the orchestrator uses.
type Gateway interface {
	UpdateJob(ctx context.Context, remoteJobID string, patch gateway.JobPatch) error
	DispatchTechnician(ctx context.Context, remoteJobID, technicianID string) error
	AppendNote(ctx context.Context, remoteJobID, note string) error
	ListLineItems(ctx context.Context, remoteJobID string) ([]gateway.LineItem, error)
	DeleteLineItem(ctx context.Context, remoteJobID, lineItemID string) error
	AddLineItem(ctx context.Context, remoteJobID string, item gateway.NewLineItem) error
}

// MirrorStore receives the best-effort reconciliation write.
type MirrorStore interface {
	Upsert(ctx context.Context, update mirror.JobUpdate) error
}

// ServiceCatalog resolves service names to canonical remote identifiers.
type ServiceCatalog interface {
	Resolve(name string) (catalog.Service, bool)
}

// TechnicianNames resolves technician ids to display names for the mirror's
// denormalized technician_name column.
type TechnicianNames interface {
	Name(id string) string
}

// Orchestrator sequences one change request against the remote system and
// then reconciles the local mirror.
type Orchestrator struct {
	gateway   Gateway
	mirror    MirrorStore
	catalog   ServiceCatalog
	directory TechnicianNames
	pacer     Pacer
}

// New creates an orchestrator. Pass NopPacer to disable pacing in tests.
func New(gw Gateway, store MirrorStore, cat ServiceCatalog, names TechnicianNames, pacer Pacer) *Orchestrator {
	if pacer == nil {
		pacer = NopPacer{}
	}
	return &Orchestrator{
		gateway:   gw,
		mirror:    store,
		catalog:   cat,
		directory: names,
		pacer:     pacer,
	}
}

// Run executes one change request to completion. Steps run strictly
// sequentially; there is no mid-run cancellation beyond the per-call context
// timeout. The returned error is non-nil only for an invalid request,
// reported before any remote call.
func (o *Orchestrator) Run(ctx context.Context, request ChangeRequest) (RunReport, error) {
	if err := request.Validate(); err != nil {
		return RunReport{}, fmt.Errorf("invalid change request: %w", err)
	}

	report := RunReport{
		RunID:          uuid.NewString(),
		OrganizationID: request.OrganizationID,
		RemoteJobID:    request.RemoteJobID,
		StartedAt:      time.Now().UTC(),
	}
	log := logger.WithJob(component, request.RemoteJobID)

	// Step 1: schedule/status patch. Load-bearing: a failure here aborts the
	// run before any later step.
	if aborted := o.patchScheduleStatus(ctx, request, &report); aborted {
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	// Step 2: technician dispatch. Dispatch rejections are frequently
	// transient capacity conflicts and must not roll back a valid reschedule.
	if request.TechnicianID != "" {
		err := o.gateway.DispatchTechnician(ctx, request.RemoteJobID, request.TechnicianID)
		if err != nil {
			log.Warnf("technician dispatch failed, continuing: %v", err)
		}
		report.Outcomes = append(report.Outcomes, outcomeOf(StepDispatch, false, err))
	}

	// Step 3: note append.
	if request.Notes != "" {
		err := o.gateway.AppendNote(ctx, request.RemoteJobID, request.Notes)
		if err != nil {
			log.Warnf("note append failed, continuing: %v", err)
		}
		report.Outcomes = append(report.Outcomes, outcomeOf(StepNote, false, err))
	}

	// Step 4: line-item replacement.
	if request.Services != nil {
		err := o.replaceLineItems(ctx, request)
		report.Outcomes = append(report.Outcomes, outcomeOf(StepLineItems, false, err))
	}

	// Step 5: mirror reconciliation. The remote system already reflects the
	// change; the mirror is allowed to lag, so this failure never surfaces
	// as a request failure.
	if err := o.reconcileMirror(ctx, request); err != nil {
		log.Warnf("mirror reconciliation failed, mirror will lag: %v", err)
		report.Outcomes = append(report.Outcomes, outcomeOf(StepMirror, false, err))
	} else {
		report.Outcomes = append(report.Outcomes, outcomeOf(StepMirror, false, nil))
	}

	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// patchScheduleStatus runs step 1 when requested. Returns true when the run
// must abort.
func (o *Orchestrator) patchScheduleStatus(ctx context.Context, request ChangeRequest, report *RunReport) bool {
	if !request.HasSchedule() && request.Status == "" {
		return false
	}

	var patch gateway.JobPatch
	if request.HasSchedule() {
		start, end, err := ScheduleWindow(request.ScheduledDate, request.ScheduledTime, request.ScheduledEnd)
		if err != nil {
			report.Outcomes = append(report.Outcomes, outcomeOf(StepSchedule, true, err))
			return true
		}
		patch.Start = &start
		patch.End = &end
	}
	if request.Status != "" {
		patch.Status = externalStatus(request.Status)
	}

	err := o.gateway.UpdateJob(ctx, request.RemoteJobID, patch)
	report.Outcomes = append(report.Outcomes, outcomeOf(StepSchedule, true, err))
	if err != nil {
		logger.WithJob(component, request.RemoteJobID).Errorf("schedule/status patch rejected: %v", err)
		return true
	}
	return false
}

// replaceLineItems deletes the job's current remote line items and re-adds
// the requested services. The current items are re-fetched at the start of
// every run (rather than trusting any earlier enumeration) so that a retry
// after a partial failure converges instead of duplicating items. Every
// delete and add is best-effort; failures are collected, not retried inline.
func (o *Orchestrator) replaceLineItems(ctx context.Context, request ChangeRequest) error {
	log := logger.WithJob(component, request.RemoteJobID)
	var failures []string

	existing, err := o.gateway.ListLineItems(ctx, request.RemoteJobID)
	if err != nil {
		log.Warnf("line item enumeration failed, skipping deletions: %v", err)
		failures = append(failures, fmt.Sprintf("list: %v", err))
	}

	for _, item := range existing {
		if err := o.pacer.Wait(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("pacing aborted: %v", err))
			break
		}
		if err := o.gateway.DeleteLineItem(ctx, request.RemoteJobID, item.ID); err != nil {
			log.Warnf("line item delete failed for %q (%s), skipping: %v", item.Name, item.ID, err)
			failures = append(failures, fmt.Sprintf("delete %q: %v", item.Name, err))
		}
	}

	for _, name := range request.Services {
		if err := o.pacer.Wait(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("pacing aborted: %v", err))
			break
		}
		item := gateway.NewLineItem{Name: name}
		if service, ok := o.catalog.Resolve(name); ok {
			item.ServiceID = service.RemoteID
			item.Price = service.Price
		}
		if err := o.gateway.AddLineItem(ctx, request.RemoteJobID, item); err != nil {
			log.Warnf("line item add failed for %q, continuing: %v", name, err)
			failures = append(failures, fmt.Sprintf("add %q: %v", name, err))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("line item replacement incomplete: %s", strings.Join(failures, "; "))
	}
	return nil
}

// reconcileMirror writes the locally-known changed fields into the mirror
// store and stamps synced_at.
func (o *Orchestrator) reconcileMirror(ctx context.Context, request ChangeRequest) error {
	update := mirror.JobUpdate{
		OrganizationID: request.OrganizationID,
		RemoteJobID:    request.RemoteJobID,
	}

	if request.HasSchedule() {
		update.ScheduledDate = &request.ScheduledDate
		update.ScheduledStart = &request.ScheduledTime
		end := request.ScheduledEnd
		if end == "" {
			defaulted, err := DefaultEnd(request.ScheduledTime)
			if err != nil {
				return err
			}
			end = defaulted
		}
		update.ScheduledEnd = &end
	}
	if request.Status != "" {
		status := request.Status
		update.Status = &status
	}
	if request.TechnicianID != "" {
		update.TechnicianID = &request.TechnicianID
		if name := o.directory.Name(request.TechnicianID); name != "" {
			update.TechnicianName = &name
		}
	}

	return o.mirror.Upsert(ctx, update)
}

func outcomeOf(step Step, fatal bool, err error) Outcome {
	outcome := Outcome{Step: step, Fatal: fatal}
	if err != nil {
		outcome.Error = err.Error()
	}
	return outcome
}
