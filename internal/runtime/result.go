package runtime

import (
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/graph"
)

// Outcome discriminates what the interpreter does after a node executor returns.
type Outcome int

const (
	// Continue follows the outgoing edge selected by Result.Handle.
	Continue Outcome = iota
	// Halt parks the session at the node until the next event.
	Halt
	// Fail parks the session at the node and tells the user something went wrong.
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Halt:
		return "halt"
	case Fail:
		return "fail"
	}
	return "unknown"
}

// Result is the closed outcome of a node executor.
type Result struct {
	Outcome Outcome
	Handle  string

	// Jump, when set on a Continue, moves execution to the entry of another flow.
	Jump *graph.Graph

	// Kind and Err describe a Fail; Message overrides the default apology.
	Kind    domain.FailureKind
	Err     error
	Message string

	// Forward hands the input the node resumed with to the next node, when
	// that node takes an answer (question, media request).
	Forward bool
}

func next(handle string) Result {
	return Result{Outcome: Continue, Handle: handle}
}

func halt() Result {
	return Result{Outcome: Halt}
}

func fail(kind domain.FailureKind, err error, message string) Result {
	return Result{Outcome: Fail, Kind: kind, Err: err, Message: message}
}
