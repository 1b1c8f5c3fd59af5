package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"openwfm/api/internal/model"
)

// Tracker drives the per-worker session state machine: Closed (no open
// timesheet) and Open (exactly one timesheet with a null clock-out). The
// invariant is enforced by the partial unique index on timesheets(user_id)
// WHERE clock_out IS NULL, so racing clock-ins resolve at the storage layer
// and surface as ErrAlreadyOpen.
type Tracker struct {
	db        *gorm.DB
	zones     *GeozoneService
	validator *GeoValidator
	audit     *AuditPublisher
}

// NewTracker creates a session tracker
func NewTracker(db *gorm.DB, zones *GeozoneService, audit *AuditPublisher) *Tracker {
	return &Tracker{
		db:        db,
		zones:     zones,
		validator: NewGeoValidator(),
		audit:     audit,
	}
}

// GeoPing is a reported location sample attached to an entry or exit event.
type GeoPing struct {
	Lat        float64
	Lon        float64
	Timestamp  time.Time
	DeviceInfo model.JSONMap
}

// RecordEntry opens a timesheet for the worker after validating the ping
// against the geozone, and appends an entry geo-event.
func (t *Tracker) RecordEntry(ctx context.Context, workerID, geozoneID string, ping GeoPing) (*model.Timesheet, error) {
	if open, err := t.openSession(ctx, workerID); err != nil {
		return nil, err
	} else if open != nil {
		return nil, &AlreadyOpenError{TimesheetID: open.ID}
	}

	zone, err := t.zones.GetByID(ctx, geozoneID)
	if err != nil {
		return nil, err
	}
	if err := t.validator.Validate(zone, ping.Lat, ping.Lon); err != nil {
		return nil, err
	}

	ts := &model.Timesheet{
		UserID:    workerID,
		ProjectID: zone.ProjectID,
		GeozoneID: &zone.ID,
		Date:      dateOf(ping.Timestamp),
		ClockIn:   ping.Timestamp,
		Source:    model.SourceGeofence,
		Status:    model.StatusPending,
	}
	if err := t.create(ctx, workerID, ts); err != nil {
		return nil, err
	}

	t.appendEvent(ctx, workerID, zone.ID, model.GeoEventEntry, ping)
	t.audit.Record(model.AuditEvent{
		UserID:     workerID,
		Action:     model.AuditTimesheetCreated,
		EntityType: "timesheet",
		EntityID:   ts.ID,
		Details:    fmt.Sprintf("Clocked in at geozone %s", zone.Name),
	})
	return ts, nil
}

// RecordExit closes the worker's open timesheet after validating the exit
// ping, and appends an exit geo-event. When no geozone id is supplied the
// zone the session opened with is used.
func (t *Tracker) RecordExit(ctx context.Context, workerID, geozoneID string, ping GeoPing) (*model.Timesheet, error) {
	open, err := t.openSession(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, ErrNoOpenSession
	}

	if geozoneID == "" && open.GeozoneID != nil {
		geozoneID = *open.GeozoneID
	}
	zone, err := t.zones.GetByID(ctx, geozoneID)
	if err != nil {
		return nil, err
	}
	if err := t.validator.Validate(zone, ping.Lat, ping.Lon); err != nil {
		return nil, err
	}

	if err := t.close(ctx, open, ping.Timestamp); err != nil {
		return nil, err
	}

	t.appendEvent(ctx, workerID, zone.ID, model.GeoEventExit, ping)
	t.audit.Record(model.AuditEvent{
		UserID:     workerID,
		Action:     model.AuditTimesheetClosed,
		EntityType: "timesheet",
		EntityID:   open.ID,
		Details:    fmt.Sprintf("Clocked out after %d minutes", open.DurationMinutes),
	})
	return open, nil
}

// ManualClockIn opens a timesheet without geofence validation. A geozone id
// is optional.
func (t *Tracker) ManualClockIn(ctx context.Context, workerID, projectID string, geozoneID *string, at time.Time, notes string) (*model.Timesheet, error) {
	if open, err := t.openSession(ctx, workerID); err != nil {
		return nil, err
	} else if open != nil {
		return nil, &AlreadyOpenError{TimesheetID: open.ID}
	}

	ts := &model.Timesheet{
		UserID:    workerID,
		ProjectID: projectID,
		GeozoneID: geozoneID,
		Date:      dateOf(at),
		ClockIn:   at,
		Source:    model.SourceManual,
		Status:    model.StatusPending,
		Notes:     notes,
	}
	if err := t.create(ctx, workerID, ts); err != nil {
		return nil, err
	}

	t.audit.Record(model.AuditEvent{
		UserID:     workerID,
		Action:     model.AuditTimesheetCreated,
		EntityType: "timesheet",
		EntityID:   ts.ID,
		Details:    fmt.Sprintf("Manual clock-in for project %s", projectID),
	})
	return ts, nil
}

// ManualClockOut closes the worker's open timesheet without geofence validation.
func (t *Tracker) ManualClockOut(ctx context.Context, workerID string, at time.Time) (*model.Timesheet, error) {
	open, err := t.openSession(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, ErrNoOpenSession
	}
	if err := t.close(ctx, open, at); err != nil {
		return nil, err
	}

	t.audit.Record(model.AuditEvent{
		UserID:     workerID,
		Action:     model.AuditTimesheetClosed,
		EntityType: "timesheet",
		EntityID:   open.ID,
		Details:    fmt.Sprintf("Manual clock-out after %d minutes", open.DurationMinutes),
	})
	return open, nil
}

// UpdateStatus transitions a pending timesheet to approved, rejected or
// flagged. Only admins and managers may transition, a non-empty reason is
// required, and a session that already left pending stays put.
func (t *Tracker) UpdateStatus(ctx context.Context, actorID, actorRole, timesheetID, status, reason string) (*model.Timesheet, error) {
	if !model.IsAdminOrManager(actorRole) {
		return nil, ErrForbidden
	}
	if !model.ValidStatus(status) || status == model.StatusPending {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var ts model.Timesheet
	if err := t.db.WithContext(ctx).First(&ts, "id = ?", timesheetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ts.Status != model.StatusPending {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now()
	previous := ts.Status
	updates := map[string]interface{}{
		"status":            status,
		"approved_by_id":    actorID,
		"approved_at":       now,
		"adjustment_reason": reason,
	}
	if err := t.db.WithContext(ctx).Model(&ts).Updates(updates).Error; err != nil {
		return nil, err
	}
	ts.Status = status
	ts.ApprovedByID = &actorID
	ts.ApprovedAt = &now
	ts.AdjustmentReason = reason

	action := model.AuditTimesheetApproved
	switch status {
	case model.StatusRejected:
		action = model.AuditTimesheetRejected
	case model.StatusFlagged:
		action = model.AuditTimesheetFlagged
	}
	t.audit.Record(model.AuditEvent{
		UserID:        actorID,
		Action:        action,
		EntityType:    "timesheet",
		EntityID:      ts.ID,
		Details:       reason,
		PreviousValue: previous,
		NewValue:      status,
	})
	return &ts, nil
}

// TimesheetFilter narrows a timesheet listing.
type TimesheetFilter struct {
	OrgID     string
	UserID    string
	ProjectID string
	Status    string
	From      string
	To        string
}

// List returns timesheets in the organization, newest first. Workers see
// their own rows only; the handler sets UserID for them.
func (t *Tracker) List(ctx context.Context, filter TimesheetFilter) ([]model.Timesheet, error) {
	q := t.db.WithContext(ctx).
		Joins("JOIN users ON users.id = timesheets.user_id").
		Where("users.org_id = ?", filter.OrgID).
		Preload("Project").
		Order("timesheets.date DESC, timesheets.clock_in DESC")

	if filter.UserID != "" {
		q = q.Where("timesheets.user_id = ?", filter.UserID)
	}
	if filter.ProjectID != "" {
		q = q.Where("timesheets.project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		q = q.Where("timesheets.status = ?", filter.Status)
	}
	if filter.From != "" {
		q = q.Where("timesheets.date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("timesheets.date <= ?", filter.To)
	}

	var sheets []model.Timesheet
	if err := q.Find(&sheets).Error; err != nil {
		return nil, err
	}
	return sheets, nil
}

// Get returns one timesheet scoped to the organization.
func (t *Tracker) Get(ctx context.Context, orgID, id string) (*model.Timesheet, error) {
	var ts model.Timesheet
	err := t.db.WithContext(ctx).
		Joins("JOIN users ON users.id = timesheets.user_id").
		Where("users.org_id = ? AND timesheets.id = ?", orgID, id).
		Preload("Project").
		First(&ts).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// OpenSession returns the worker's open timesheet, or nil.
func (t *Tracker) OpenSession(ctx context.Context, workerID string) (*model.Timesheet, error) {
	return t.openSession(ctx, workerID)
}

func (t *Tracker) openSession(ctx context.Context, workerID string) (*model.Timesheet, error) {
	var ts model.Timesheet
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND clock_out IS NULL", workerID).
		First(&ts).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// create inserts the timesheet, translating the open-session uniqueness
// violation into ErrAlreadyOpen.
func (t *Tracker) create(ctx context.Context, workerID string, ts *model.Timesheet) error {
	err := t.db.WithContext(ctx).Create(ts).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		if open, ferr := t.openSession(ctx, workerID); ferr == nil && open != nil {
			return &AlreadyOpenError{TimesheetID: open.ID}
		}
		return ErrAlreadyOpen
	}
	return err
}

// close stamps the clock-out and computed duration. Exit before entry is a
// clock-skew failure, never a negative duration.
func (t *Tracker) close(ctx context.Context, ts *model.Timesheet, at time.Time) error {
	if at.Before(ts.ClockIn) {
		return ErrClockSkew
	}
	minutes := int(at.Sub(ts.ClockIn) / time.Minute)

	err := t.db.WithContext(ctx).Model(ts).Updates(map[string]interface{}{
		"clock_out":        at,
		"duration_minutes": minutes,
	}).Error
	if err != nil {
		return err
	}
	ts.ClockOut = &at
	ts.DurationMinutes = minutes
	return nil
}

// appendEvent writes one row of the append-only geo-event log. The log is a
// side effect, not the source of session state, so a failure is logged and
// does not abort the transition.
func (t *Tracker) appendEvent(ctx context.Context, workerID, zoneID, eventType string, ping GeoPing) {
	event := &model.GeoEvent{
		UserID:     workerID,
		GeozoneID:  zoneID,
		EventType:  eventType,
		Lat:        ping.Lat,
		Lon:        ping.Lon,
		Timestamp:  ping.Timestamp,
		DeviceInfo: ping.DeviceInfo,
	}
	if err := t.db.WithContext(ctx).Create(event).Error; err != nil {
		log.Printf("[Tracker] Failed to append geo-event: %v", err)
	}
}

// dateOf formats the session date key from the clock-in instant.
func dateOf(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}
