package session

import "fmt"

// State is the lifecycle state of a session.
type State int

// The states a session passes through, in order.  A session may skip
// states when it fails to start, but never goes backwards.
const (
	Idle State = iota
	Resolving
	Negotiating
	Configuring
	Running
	Terminating
	Stopped
)

var stateNames = map[State]string{
	Idle:        "idle",
	Resolving:   "resolving",
	Negotiating: "negotiating",
	Configuring: "configuring",
	Running:     "running",
	Terminating: "terminating",
	Stopped:     "stopped",
}

// String returns a human-readable version of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}
