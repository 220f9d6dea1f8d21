package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

// SegmentReason says why a requested station pair cannot be sold.
type SegmentReason string

const (
	ReasonStationNotFound SegmentReason = "station_not_found"
	ReasonSameStation     SegmentReason = "same_station"
	ReasonOutsideRoute    SegmentReason = "outside_route"
	ReasonSkippedStation  SegmentReason = "skipped_station"
	ReasonWrongDirection  SegmentReason = "wrong_direction"
)

// InvalidSegmentError rejects a station pair before anything is priced or persisted.
type InvalidSegmentError struct {
	Reason SegmentReason
	Msg    string
}

func (e InvalidSegmentError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("invalid segment (%s): %s", e.Reason, e.Msg)
	}
	return fmt.Sprintf("invalid segment (%s)", e.Reason)
}

// SeatConflictError means the seat is already held on an overlapping segment.
// Callers pick another seat or segment; it is never retried automatically.
type SeatConflictError struct {
	TripID string
	Seat   int
	Err    error
}

func (e SeatConflictError) Error() string {
	return fmt.Sprintf("seat %d is already taken on an overlapping segment", e.Seat)
}

func (e SeatConflictError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target) || IsSeatConflict(err)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsSeatConflict(err error) bool {
	var target SeatConflictError
	return errors.As(err, &target)
}

// AsInvalidSegment extracts the segment rejection, if any.
func AsInvalidSegment(err error) (InvalidSegmentError, bool) {
	var target InvalidSegmentError
	ok := errors.As(err, &target)
	return target, ok
}
