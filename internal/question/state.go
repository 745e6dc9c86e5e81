package question

// State is the outcome state of a question attempt step.
type State string

const (
	StateNotStarted State = "notstarted"
	StateTodo       State = "todo"
	StateInvalid    State = "invalid"
	StateComplete   State = "complete"

	StateNeedsGrading  State = "needsgrading"
	StateFinished      State = "finished"
	StateGaveUp        State = "gaveup"
	StateGradedWrong   State = "gradedwrong"
	StateGradedPartial State = "gradedpartial"
	StateGradedRight   State = "gradedright"

	StateManFinished  State = "manfinished"
	StateManGaveUp    State = "mangaveup"
	StateMangrWrong   State = "mangrwrong"
	StateMangrPartial State = "mangrpartial"
	StateMangrRight   State = "mangrright"
)

var allStates = map[State]struct{}{
	StateNotStarted: {}, StateTodo: {}, StateInvalid: {}, StateComplete: {},
	StateNeedsGrading: {}, StateFinished: {}, StateGaveUp: {},
	StateGradedWrong: {}, StateGradedPartial: {}, StateGradedRight: {},
	StateManFinished: {}, StateManGaveUp: {},
	StateMangrWrong: {}, StateMangrPartial: {}, StateMangrRight: {},
}

// ParseState returns the State named s and whether it is known.
func ParseState(s string) (State, bool) {
	st := State(s)
	_, ok := allStates[st]
	return st, ok
}

// IsActive reports whether the student can still change the response.
func (s State) IsActive() bool {
	switch s {
	case StateTodo, StateInvalid, StateComplete:
		return true
	}
	return false
}

// IsFinished reports whether attempt processing is over for this state.
func (s State) IsFinished() bool {
	return s != "" && s != StateNotStarted && !s.IsActive()
}

func (s State) IsGraded() bool {
	switch s {
	case StateGradedWrong, StateGradedPartial, StateGradedRight,
		StateMangrWrong, StateMangrPartial, StateMangrRight:
		return true
	}
	return false
}

const fractionTolerance = 0.0000001

// StateForFraction maps an automatically computed fraction to a graded state.
func StateForFraction(f float64) State {
	switch {
	case f < fractionTolerance:
		return StateGradedWrong
	case f > 1-fractionTolerance:
		return StateGradedRight
	default:
		return StateGradedPartial
	}
}
