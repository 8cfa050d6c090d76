package app

import "time"

// Operation tracks the CLI command being run. Its ID tags every log line the
// command produces, so one invocation can be followed through the log file.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    string // "success" or "error"
	Err       error
}

// NewOperation creates an operation that starts out successful.
func NewOperation(name string, now time.Time) *Operation {
	now = now.UTC()
	return &Operation{
		ID:        now.Format("20060102T150405Z"),
		Name:      name,
		StartedAt: now,
		Status:    "success",
	}
}

// Fail marks the operation as failed. The first error is kept.
func (op *Operation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = "error"
	if op.Err == nil {
		op.Err = err
	}
}

// Succeeded reports whether no failure was recorded.
func (op *Operation) Succeeded() bool {
	return op.Status == "success"
}
