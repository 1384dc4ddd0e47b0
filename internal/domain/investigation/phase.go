package investigation

// Phase is the investigation lifecycle state
type Phase int

const (
	PhasePending Phase = iota
	PhaseValidating
	PhaseDeciding
	PhaseExecuting
	PhaseConsolidating
	PhaseCompleted
	PhaseCompletedWithDegradation
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseValidating:
		return "validating"
	case PhaseDeciding:
		return "deciding"
	case PhaseExecuting:
		return "executing"
	case PhaseConsolidating:
		return "consolidating"
	case PhaseCompleted:
		return "completed"
	case PhaseCompletedWithDegradation:
		return "completed_with_degradation"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the phase is final
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseCompleted, PhaseCompletedWithDegradation, PhaseFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the legal phase transitions. Validation is
// the only pre-execution phase allowed to fail the investigation hard.
func (p Phase) CanTransitionTo(next Phase) bool {
	switch p {
	case PhasePending:
		return next == PhaseValidating
	case PhaseValidating:
		return next == PhaseDeciding || next == PhaseFailed
	case PhaseDeciding:
		return next == PhaseExecuting
	case PhaseExecuting:
		return next == PhaseConsolidating
	case PhaseConsolidating:
		return next == PhaseCompleted || next == PhaseCompletedWithDegradation || next == PhaseFailed
	default:
		return false
	}
}

// ProgressPercentage maps the phase to a coarse progress figure for
// status reporting.
func (p Phase) ProgressPercentage() int {
	switch p {
	case PhasePending:
		return 0
	case PhaseValidating:
		return 10
	case PhaseDeciding:
		return 25
	case PhaseExecuting:
		return 60
	case PhaseConsolidating:
		return 90
	case PhaseCompleted, PhaseCompletedWithDegradation, PhaseFailed:
		return 100
	default:
		return 0
	}
}
