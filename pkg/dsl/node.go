package dsl

import (
	"strconv"

	"github.com/aretw0/comanda/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Configure sets an arbitrary node configuration. The kind is taken from cfg.
func (n *NodeBuilder) Configure(cfg domain.NodeConfig) *NodeBuilder {
	n.node.Kind = cfg.NodeKind()
	n.node.Config = cfg
	return n
}

// Message emits text and continues (soft step).
func (n *NodeBuilder) Message(text string) *NodeBuilder {
	return n.Configure(&domain.MessageConfig{Text: text})
}

// Question asks text and stores the answer in variable (hard step).
func (n *NodeBuilder) Question(text, variable string) *NodeBuilder {
	return n.Configure(&domain.QuestionConfig{Text: text, Variable: variable})
}

// Poll asks question with numbered options and stores the chosen label in variable.
func (n *NodeBuilder) Poll(question, variable string, options ...string) *NodeBuilder {
	return n.Configure(&domain.PollConfig{Question: question, Variable: variable, Options: options})
}

// Condition compares variable with expected.
func (n *NodeBuilder) Condition(variable, expected string) *NodeBuilder {
	return n.Configure(&domain.ConditionConfig{Variable: variable, ExpectedValue: expected})
}

// Expression branches on a boolean expression over the variables.
func (n *NodeBuilder) Expression(expression string) *NodeBuilder {
	return n.Configure(&domain.ConditionConfig{Expression: expression})
}

// Catalog sends the catalog and parses the answer into variable.
func (n *NodeBuilder) Catalog(text, variable string, addToCart bool) *NodeBuilder {
	return n.Configure(&domain.CatalogConfig{Text: text, Variable: variable, AddToCart: addToCart})
}

// StockCheck asks for a product and stores the lookup result.
func (n *NodeBuilder) StockCheck(question, resultVariable string) *NodeBuilder {
	return n.Configure(&domain.StockCheckConfig{Question: question, ResultVariable: resultVariable})
}

// AddToCart appends the product/quantity held in variables to the cart.
func (n *NodeBuilder) AddToCart(productVariable, qtyVariable, detailVariable string) *NodeBuilder {
	return n.Configure(&domain.AddToCartConfig{
		ProductVariable: productVariable,
		QtyVariable:     qtyVariable,
		DetailVariable:  detailVariable,
	})
}

// OrderSummary emits the cart summary.
func (n *NodeBuilder) OrderSummary(header string) *NodeBuilder {
	return n.Configure(&domain.OrderSummaryConfig{Header: header})
}

// CreateOrder commits the cart.
func (n *NodeBuilder) CreateOrder(successText string) *NodeBuilder {
	return n.Configure(&domain.CreateOrderConfig{SuccessText: successText})
}

// MediaRequest asks for a file and stores its URL in variable.
func (n *NodeBuilder) MediaRequest(prompt, variable string) *NodeBuilder {
	return n.Configure(&domain.MediaRequestConfig{Prompt: prompt, Variable: variable})
}

// Document renders template and sends it with caption.
func (n *NodeBuilder) Document(template, caption string) *NodeBuilder {
	return n.Configure(&domain.DocumentConfig{Template: template, Caption: caption})
}

// Timer delays the continuation by durationMs milliseconds.
func (n *NodeBuilder) Timer(durationMs int64, showTyping bool) *NodeBuilder {
	return n.Configure(&domain.TimerConfig{DurationMs: durationMs, ShowTypingIndicator: showTyping})
}

// Pause stops automation until an operator resolves it.
func (n *NodeBuilder) Pause(ack string) *NodeBuilder {
	return n.Configure(&domain.ThreadControlConfig{Action: domain.ThreadPause, Ack: ack})
}

// Resume clears the pause flag.
func (n *NodeBuilder) Resume(ack string) *NodeBuilder {
	return n.Configure(&domain.ThreadControlConfig{Action: domain.ThreadResume, Ack: ack})
}

// Jump switches to the entry of another flow.
func (n *NodeBuilder) Jump(flowID string) *NodeBuilder {
	return n.Configure(&domain.JumpConfig{TargetFlowID: flowID})
}

// Handover hands the conversation to a human.
func (n *NodeBuilder) Handover(message, reason string) *NodeBuilder {
	return n.Configure(&domain.HandoverConfig{Message: message, Reason: reason})
}

// Claim files a claim with the text held in bodyVariable.
func (n *NodeBuilder) Claim(bodyVariable, claimType, priority, confirmation string) *NodeBuilder {
	return n.Configure(&domain.ClaimConfig{
		BodyVariable: bodyVariable,
		Type:         claimType,
		Priority:     priority,
		Confirmation: confirmation,
	})
}

// Go adds an unlabeled edge to target.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, "", target)
	return n
}

// Branch adds an edge leaving through handle.
func (n *NodeBuilder) Branch(handle, target string) *NodeBuilder {
	n.builder.connect(n.node.ID, handle, target)
	return n
}

// When adds the "true" and "false" edges of a condition.
func (n *NodeBuilder) When(ifTrue, ifFalse string) *NodeBuilder {
	n.builder.connect(n.node.ID, domain.HandleTrue, ifTrue)
	n.builder.connect(n.node.ID, domain.HandleFalse, ifFalse)
	return n
}

// Option adds the edge for the zero-based poll option index.
func (n *NodeBuilder) Option(index int, target string) *NodeBuilder {
	n.builder.connect(n.node.ID, strconv.Itoa(index), target)
	return n
}

// Build returns the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
