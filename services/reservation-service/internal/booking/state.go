package booking

// State is a step of the submission lifecycle:
//
//	RECEIVED -> VALIDATING -> REJECTED | ACCEPTED -> PERSISTED | PERSIST_FAILED
type State string

const (
	StateReceived      State = "RECEIVED"
	StateValidating    State = "VALIDATING"
	StateRejected      State = "REJECTED"
	StateAccepted      State = "ACCEPTED"
	StatePersisted     State = "PERSISTED"
	StatePersistFailed State = "PERSIST_FAILED"
)

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateRejected || s == StatePersisted || s == StatePersistFailed
}
