package syncer

import (
	"fmt"
)

// Outcome is what happened to a single item during a pass.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCreated
	OutcomeUpdated
	OutcomeUnchanged
	OutcomeSkipped
	OutcomeDeleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDeleted:
		return "deleted"
	}
	return "none"
}

// ItemError is a failure confined to one record or event.
type ItemError struct {
	Pass   string // "notion_to_calendar" or "calendar_to_notion"
	ItemID string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Pass, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ForwardStats counts the outcomes of the database to calendar pass.
type ForwardStats struct {
	Created   int          `json:"created"`
	Updated   int          `json:"updated"`
	Unchanged int          `json:"unchanged"`
	Skipped   int          `json:"skipped"`
	Deleted   int          `json:"deleted"`
	Failures  []*ItemError `json:"-"`
}

func (s *ForwardStats) add(o Outcome) {
	switch o {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeDeleted:
		s.Deleted++
	}
}

// ReverseStats counts the outcomes of the calendar to database pass.
type ReverseStats struct {
	Created  int          `json:"created"`
	Updated  int          `json:"updated"`
	Deleted  int          `json:"deleted"`
	Failures []*ItemError `json:"-"`
}

func (s *ReverseStats) add(o Outcome) {
	switch o {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeDeleted:
		s.Deleted++
	}
}

// Result is the structured report of one sync run.
type Result struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Forward *ForwardStats `json:"notion_to_calendar,omitempty"`
	Reverse *ReverseStats `json:"calendar_to_notion,omitempty"`
	Errors  []string      `json:"errors,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// SetupFailure reports a run that failed before either pass started.
func SetupFailure(err error) *Result {
	return &Result{Success: false, Error: err.Error()}
}

func (r *Result) addFailures(failures []*ItemError) {
	for _, f := range failures {
		r.Errors = append(r.Errors, f.Error())
	}
}
