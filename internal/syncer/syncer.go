package syncer

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultPageSize is the ceiling on events fetched by one bulk listing.
const DefaultPageSize = 2500

// Options tunes a Syncer.
type Options struct {
	DryRun        bool   // log mutations instead of issuing them
	PageSize      int    // bulk event listing ceiling, DefaultPageSize if zero
	TitleProperty string // canonical title property name, "Name" if empty
}

// Syncer orchestrates the two-way synchronization between a Notion database
// and a calendar.
type Syncer struct {
	logger     *slog.Logger
	records    RecordStore
	calendar   Calendar
	correlator *Correlator
	titles     *TitlePolicy
	dryRun     bool
	pageSize   int

	// Events the last dry-run sweep reported as deleted. They are still on
	// the calendar, so the reverse pass must not count them again.
	dryRunDeleted map[string]struct{}
}

// NewSyncer creates a new Syncer.
func NewSyncer(logger *slog.Logger, records RecordStore, cal Calendar, opts Options) *Syncer {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.TitleProperty == "" {
		opts.TitleProperty = "Name"
	}
	return &Syncer{
		logger:     logger,
		records:    records,
		calendar:   cal,
		correlator: NewCorrelator(logger, cal),
		titles:     NewTitlePolicy(opts.TitleProperty),
		dryRun:     opts.DryRun,
		pageSize:   opts.PageSize,
	}
}

// Sync performs a full synchronization cycle: records are fetched once and
// the same snapshot feeds the forward pass and then the reverse pass. Sync
// never returns an error; every failure is reported in the Result.
func (s *Syncer) Sync(ctx context.Context) *Result {
	s.logger.Info("Starting sync cycle.")

	records, err := s.records.ListRecords(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch Notion records", "error", err)
		return &Result{
			Success: false,
			Message: "Sync aborted",
			Errors:  []string{fmt.Sprintf("failed to fetch records: %v", err)},
		}
	}
	s.logger.Info("Fetched all Notion records.", "count", len(records))

	result := &Result{Success: true}

	fwd, err := s.SyncForward(ctx, records)
	result.Forward = fwd
	result.addFailures(fwd.Failures)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("%s: deletion sweep: %v", passForward, err))
	}

	rev, err := s.SyncReverse(ctx, records)
	result.Reverse = rev
	result.addFailures(rev.Failures)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", passReverse, err))
	}

	if result.Success {
		result.Message = "2-Way Sync Complete!"
	} else {
		result.Message = "Sync completed with errors"
	}

	s.logger.Info("Sync cycle finished.",
		"forwardCreated", fwd.Created, "forwardUpdated", fwd.Updated, "forwardUnchanged", fwd.Unchanged,
		"forwardSkipped", fwd.Skipped, "forwardDeleted", fwd.Deleted,
		"reverseCreated", rev.Created, "reverseUpdated", rev.Updated, "reverseDeleted", rev.Deleted,
		"failures", len(fwd.Failures)+len(rev.Failures))
	return result
}
