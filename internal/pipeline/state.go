package pipeline

// State is a position in the run state machine. Runs move strictly forward
// through the ordered states; any failure jumps to StateFailed.
type State string

const (
	StateStart      State = "start"
	StateLoaded     State = "loaded"
	StateValidated  State = "validated"
	StateFiltered   State = "filtered"
	StateNormalized State = "normalized"
	StateReshaped   State = "reshaped"
	StateSaved      State = "saved"
	StatePublished  State = "published"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

var order = []State{
	StateStart, StateLoaded, StateValidated, StateFiltered,
	StateNormalized, StateReshaped, StateSaved, StatePublished, StateDone,
}

// Next returns the state after s, or s itself for terminal states.
func (s State) Next() State {
	for i, o := range order[:len(order)-1] {
		if o == s {
			return order[i+1]
		}
	}
	return s
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }
