package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the tracking and financial core. All are request-scoped
// failures returned to the caller; nothing here is retried internally.
var (
	// ErrInvalidCoordinate is returned for latitudes outside [-90,90] or
	// longitudes outside [-180,180]. Distinct from being outside the fence.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrGeozoneNotFound is returned when a geozone id does not resolve.
	ErrGeozoneNotFound = errors.New("geozone not found")

	// ErrGeozoneInactive is returned when the geozone exists but is disabled.
	ErrGeozoneInactive = errors.New("geozone is not active")

	// ErrOutsideGeozone is returned when a valid coordinate falls outside the fence.
	ErrOutsideGeozone = errors.New("outside geozone")

	// ErrAlreadyOpen is returned when the worker already has an open session.
	ErrAlreadyOpen = errors.New("already clocked in")

	// ErrNoOpenSession is returned when there is no open session to close.
	ErrNoOpenSession = errors.New("no open timesheet to close")

	// ErrClockSkew is returned when an exit timestamp precedes the clock-in.
	ErrClockSkew = errors.New("clock-out before clock-in")

	// ErrAlreadyProcessed is returned when approving a session that already
	// left the pending state.
	ErrAlreadyProcessed = errors.New("timesheet already processed")

	// ErrReasonRequired is returned when a status transition carries no reason.
	ErrReasonRequired = errors.New("reason required for status change")

	// ErrInvalidStatus is returned for a status outside approved|rejected|flagged.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidMultiplier is returned when an overtime multiplier falls
	// outside [0, 10] at configuration time.
	ErrInvalidMultiplier = errors.New("multipliers must be between 0 and 10")

	// ErrNotFound is returned for missing projects, allocations and timesheets.
	ErrNotFound = errors.New("not found")

	// ErrAllocationExists is returned when a second active allocation is
	// created for the same (worker, project) pair.
	ErrAllocationExists = errors.New("active allocation already exists for worker and project")

	// ErrForbidden is returned when the caller's role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
)

// AlreadyOpenError carries the id of the existing open session so callers can
// surface it.
type AlreadyOpenError struct {
	TimesheetID string
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("already clocked in (timesheet %s)", e.TimesheetID)
}

func (e *AlreadyOpenError) Unwrap() error { return ErrAlreadyOpen }

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidCoordinate) ||
		errors.Is(err, ErrOutsideGeozone) ||
		errors.Is(err, ErrGeozoneInactive) ||
		errors.Is(err, ErrClockSkew) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidMultiplier)
}

// IsConflict reports whether the error is a state conflict rather than bad input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyOpen) ||
		errors.Is(err, ErrNoOpenSession) ||
		errors.Is(err, ErrAlreadyProcessed)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGeozoneNotFound) || errors.Is(err, ErrNotFound)
}
