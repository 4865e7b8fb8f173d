package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/graph"
	"github.com/aretw0/comanda/pkg/variables"
)

// execution is the view a node executor gets of the running step.
type execution struct {
	ctx     context.Context
	it      *Interpreter
	graph   *graph.Graph
	node    *domain.Node
	session *domain.Session
	vars    *variables.Context
	result  *StepResult

	// resuming is true when the node already ran its prompt and waits for an event.
	resuming bool
	// input is the event consumed by a resuming node; nil otherwise.
	input *Input
}

type executor func(x *execution) Result

var executors map[domain.NodeKind]executor

func init() {
	executors = map[domain.NodeKind]executor{
		domain.KindMessage:       execMessage,
		domain.KindQuestion:      execQuestion,
		domain.KindPoll:          execPoll,
		domain.KindCondition:     execCondition,
		domain.KindCatalog:       execCatalog,
		domain.KindStockCheck:    execStockCheck,
		domain.KindAddToCart:     execAddToCart,
		domain.KindOrderSummary:  execOrderSummary,
		domain.KindCreateOrder:   execCreateOrder,
		domain.KindMediaRequest:  execMediaRequest,
		domain.KindDocument:      execDocument,
		domain.KindTimer:         execTimer,
		domain.KindThreadControl: execThreadControl,
		domain.KindJump:          execJump,
		domain.KindHandover:      execHandover,
		domain.KindClaim:         execClaim,
	}
}

// say interpolates text and queues it for the conversation. Empty texts are skipped.
func (x *execution) say(text string) {
	x.it.say(x.result, strings.TrimSpace(x.vars.Interpolate(text)))
}

func (x *execution) sendMedia(url, caption string) {
	x.result.Outbound = append(x.result.Outbound,
		domain.MediaMessage(x.session.Key, url, x.vars.Interpolate(caption)))
}

func (x *execution) warn(code, format string, args ...any) {
	x.it.warn(x.ctx, x.result, domain.Warning{
		FlowID:  x.graph.ID(),
		NodeID:  x.node.ID,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// text returns the trimmed text of the consumed input.
func (x *execution) text() string {
	if x.input == nil {
		return ""
	}
	return strings.TrimSpace(x.input.Text)
}

func (x *execution) authoring(reason string) Result {
	return fail(domain.FailureAuthoring, &domain.AuthoringError{
		FlowID: x.graph.ID(),
		NodeID: x.node.ID,
		Reason: reason,
	}, "")
}

func (x *execution) collaborator(name string, err error, message string) Result {
	return fail(domain.FailureCollaborator, &domain.CollaboratorError{
		NodeID:       x.node.ID,
		Collaborator: name,
		Err:          err,
	}, message)
}
