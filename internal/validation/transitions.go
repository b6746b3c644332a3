// Package validation runs the installation quality gates in order:
// connection, field of view, glare, then an OCR reading.
package validation

import (
	"meter_reading/internal/models"
)

type transition struct {
	next models.SessionStatus
	halt bool
}

// transitions is keyed by check type and outcome. Glare never halts: a failed
// glare check is recorded but the session still moves on to OCR.
var transitions = map[models.CheckType][2]transition{
	// [fail, pass]
	models.CheckConnection: {{models.StatusFailed, true}, {models.StatusConnectionPassed, false}},
	models.CheckFOV:        {{models.StatusFailed, true}, {models.StatusFovValidated, false}},
	models.CheckGlare:      {{models.StatusGlareChecked, false}, {models.StatusGlareChecked, false}},
	models.CheckOCR:        {{models.StatusFailed, true}, {models.StatusOcrValidated, true}},
}

// Step returns the status after a check outcome and whether the run stops.
// Forward moves never lower the status; failed replaces any status.
func Step(current models.SessionStatus, check models.CheckType, passed bool) (models.SessionStatus, bool) {
	tr, ok := transitions[check]
	if !ok {
		return current, true
	}
	t := tr[0]
	if passed {
		t = tr[1]
	}
	return Advance(current, t.next), t.halt
}

// Advance moves current towards next without regressing.
func Advance(current, next models.SessionStatus) models.SessionStatus {
	if next == models.StatusFailed {
		return models.StatusFailed
	}
	if current == models.StatusFailed {
		return current
	}
	if next.Rank() > current.Rank() {
		return next
	}
	return current
}

// Slot states in a report.
const (
	SlotPassed  = "passed"
	SlotFailed  = "failed"
	SlotWaiting = "waiting"
)

// WaitingMessage is shown for checks that did not run.
const WaitingMessage = "Waiting..."

// Slot is one line of the four-check report.
type Slot struct {
	CheckType  models.CheckType `json:"check_type"`
	State      string           `json:"state"`
	Passed     bool             `json:"passed"`
	Confidence float64          `json:"confidence"`
	Message    string           `json:"message"`
	Details    map[string]any   `json:"details,omitempty"`
}

// Report is the outcome of a pipeline run. Halted is set when a failed gate
// stopped the run before OCR.
type Report struct {
	Status models.SessionStatus `json:"status"`
	Halted bool                 `json:"halted"`
	Checks []Slot               `json:"checks"`
}

// Fold computes the final status and the four-slot report from the checks that
// were executed in one run. Slots of checks that did not run are placeholders
// and are never persisted.
func Fold(start models.SessionStatus, executed []models.ValidationCheckResult) Report {
	rep := Report{Status: start, Checks: make([]Slot, len(models.CheckOrder))}
	byType := make(map[models.CheckType]models.ValidationCheckResult, len(executed))

	for _, res := range executed {
		if rep.Halted {
			break
		}
		byType[res.CheckType] = res
		var halt bool
		rep.Status, halt = Step(rep.Status, res.CheckType, res.Passed)
		rep.Halted = halt && res.CheckType != models.CheckOCR
	}

	for i, ct := range models.CheckOrder {
		res, ok := byType[ct]
		if !ok {
			rep.Checks[i] = Slot{CheckType: ct, State: SlotWaiting, Message: WaitingMessage}
			continue
		}
		state := SlotFailed
		if res.Passed {
			state = SlotPassed
		}
		rep.Checks[i] = Slot{
			CheckType:  ct,
			State:      state,
			Passed:     res.Passed,
			Confidence: res.Confidence,
			Message:    res.Message,
			Details:    res.Details,
		}
	}
	return rep
}
