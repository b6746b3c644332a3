package validation

import (
	"context"
	"errors"
	"fmt"

	"meter_reading/internal/logger"
	"meter_reading/internal/models"
)

var (
	// ErrSessionTerminal is returned when a run is requested on a completed or failed session.
	ErrSessionTerminal = errors.New("session is in a terminal state")
	// ErrRunCanceled is returned when the run context was canceled mid-pipeline.
	ErrRunCanceled = errors.New("pipeline run canceled")
)

// RecordFunc persists one executed check together with the status it led to.
type RecordFunc func(ctx context.Context, res models.ValidationCheckResult, status models.SessionStatus) error

// Runner executes the checks strictly in order and stops at the first halting
// outcome. Checks after a halt are never executed.
type Runner struct {
	checks []Check
	log    *logger.Logger
}

// NewRunner wires the four gates. They run in models.CheckOrder regardless of
// argument order.
func NewRunner(log *logger.Logger, checks ...Check) (*Runner, error) {
	byType := make(map[models.CheckType]Check, len(checks))
	for _, c := range checks {
		byType[c.Type()] = c
	}
	ordered := make([]Check, 0, len(models.CheckOrder))
	for _, ct := range models.CheckOrder {
		c, ok := byType[ct]
		if !ok {
			return nil, fmt.Errorf("validation runner: missing %s check", ct)
		}
		ordered = append(ordered, c)
	}
	return &Runner{checks: ordered, log: log}, nil
}

// Run executes the pipeline for target. A check interrupted by cancellation is
// neither recorded nor allowed to move the status.
func (r *Runner) Run(ctx context.Context, t Target, record RecordFunc) (Report, error) {
	start := t.Session.Status
	if start.IsTerminal() {
		return Report{}, ErrSessionTerminal
	}

	status := start
	executed := make([]models.ValidationCheckResult, 0, len(r.checks))
	for _, c := range r.checks {
		if ctx.Err() != nil {
			return Fold(start, executed), ErrRunCanceled
		}
		res, err := c.Run(ctx, t)
		if ctx.Err() != nil {
			return Fold(start, executed), ErrRunCanceled
		}
		if err != nil {
			return Fold(start, executed), fmt.Errorf("%s check: %w", c.Type(), err)
		}
		res.SessionID = t.Session.ID
		res.CheckType = c.Type()

		next, halt := Step(status, res.CheckType, res.Passed)
		if err := record(ctx, res, next); err != nil {
			return Fold(start, executed), fmt.Errorf("record %s check: %w", c.Type(), err)
		}
		status = next
		executed = append(executed, res)

		if r.log != nil {
			r.log.Infow("pipeline_check_recorded",
				"session_id", t.Session.ID,
				"check", res.CheckType,
				"passed", res.Passed,
				"confidence", res.Confidence,
				"status", status,
			)
		}
		if halt {
			break
		}
	}
	return Fold(start, executed), nil
}
