package api

import (
	"errors"
	"net/http"

	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/csvio"
	service "github.com/soyingpang/sportsday-race-mvp/internal/app"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/schedule"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnprocessable = errors.New("unprocessable entity")
)

// Error carries the failing operation with an optional kind and cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op. The kind is derived from err when responding.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and an explicit kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind builds an error of kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// statusOf maps an error to its HTTP status and machine code.
func statusOf(err error) (int, string) {
	var ve *schedule.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidLane),
		errors.Is(err, service.ErrInvalidSlot),
		errors.Is(err, service.ErrInvalidLabels):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, service.ErrHeatNotFound),
		errors.Is(err, service.ErrParticipantNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrConflict),
		errors.Is(err, service.ErrHeatLocked):
		return http.StatusConflict, "locked"
	case errors.Is(err, ErrUnprocessable),
		errors.Is(err, csvio.ErrNoRecords),
		errors.Is(err, csvio.ErrMissingHeader),
		errors.Is(err, service.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, "parse_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// messageOf picks the text shown to the operator.
func messageOf(status int, err error) string {
	var ve *schedule.ValidationError
	if errors.As(err, &ve) && ve.Message != "" {
		return ve.Message
	}
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
