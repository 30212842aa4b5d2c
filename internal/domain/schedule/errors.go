package schedule

import "errors"

// Validation failures of the heat builder, checked in this order.
var (
	ErrEmptyRoster      = errors.New("roster is empty")
	ErrClassNotSelected = errors.New("both classes must be selected")
	ErrSameClass        = errors.New("class A and class B must differ")
	ErrGradeMismatch    = errors.New("classes do not belong to the requested grade")
	ErrNoSelection      = errors.New("no participant selected")
)

// ValidationError carries a builder failure with the message shown to the operator.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

var messages = map[error]string{ //nolint:gochecknoglobals // operator messages
	ErrEmptyRoster:      "請先匯入名單。",
	ErrClassNotSelected: "請選擇兩個班級。",
	ErrSameClass:        "A 班與 B 班不可相同。",
	ErrGradeMismatch:    "年級不符合：不同年級不可混賽。",
	ErrNoSelection:      "請先選擇參賽名單。",
}

func invalid(err error) error {
	return &ValidationError{Err: err, Message: messages[err]}
}
