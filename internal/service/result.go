package service

import (
	"fmt"
	"strings"
)

// ProcessResult carries the structured outcome of processing one event plus
// the human-readable trace. Callers branch on the structured fields; the
// trace is diagnostic output only and is never parsed.
type ProcessResult struct {
	VehicleID        string
	Inactive         bool
	EventID          *int64
	PeriodID         *int64
	Static           bool
	Speed            float64
	UsedLastKnownGPS bool

	lines []string
}

func (r *ProcessResult) addf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// Message returns the multi-line diagnostic trace.
func (r *ProcessResult) Message() string {
	return strings.Join(r.lines, "\n")
}
