package shutdown

import "fmt"

// Event is a termination event: something which may end a session.
//
// Events are produced by the engine, or by the windowing layer, and
// are consumed by the Coordinator.
type Event interface {
	event()
}

// EngineQuit is raised when the engine stopped cooperatively.
type EngineQuit struct {
	Reason string
}

// EngineFault is raised when the engine failed.
type EngineFault struct {
	Err error
}

// CloseRequest is raised when the user tried to close the window.
//
// It isn't terminal by itself, it must be resolved into a CloseResolved
// by asking the user what they want to happen.
type CloseRequest struct{}

// CloseResolved holds the decision the user made about a CloseRequest.
type CloseResolved struct {
	Choice Choice
}

func (EngineQuit) event()    {}
func (EngineFault) event()   {}
func (CloseRequest) event()  {}
func (CloseResolved) event() {}

// Choice is the decision made when the user asks to close the window.
type Choice int

const (
	// Continue keeps the session running.
	Continue Choice = iota

	// SaveAndQuit saves the disk changes, then quits.
	SaveAndQuit

	// QuitWithoutSaving quits, losing the disk changes.
	QuitWithoutSaving
)

// String returns a human-readable version of the choice.
func (c Choice) String() string {
	switch c {
	case Continue:
		return "continue"
	case SaveAndQuit:
		return "save disk and quit"
	case QuitWithoutSaving:
		return "quit without saving"
	}
	return fmt.Sprintf("choice(%d)", int(c))
}

// ExitCode classifies how the process should exit.
type ExitCode int

const (
	// ExitClean is used for a normal termination.
	ExitClean ExitCode = 0

	// ExitFault is used when the engine failed.
	ExitFault ExitCode = 1

	// ExitNoWork is used when no session was started.
	ExitNoWork ExitCode = 2
)

// Outcome records what the coordinator did.
type Outcome struct {
	Code  ExitCode
	Cause string

	// Flushed is set when the disk changes were saved successfully.
	Flushed bool
}
