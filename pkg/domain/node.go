package domain

// NodeKind identifies the behavior of a node.
type NodeKind string

const (
	KindMessage       NodeKind = "message"
	KindQuestion      NodeKind = "question"
	KindPoll          NodeKind = "poll"
	KindCondition     NodeKind = "condition"
	KindCatalog       NodeKind = "catalog"
	KindStockCheck    NodeKind = "stock_check"
	KindAddToCart     NodeKind = "add_to_cart"
	KindOrderSummary  NodeKind = "order_summary"
	KindCreateOrder   NodeKind = "create_order"
	KindMediaRequest  NodeKind = "media_request"
	KindDocument      NodeKind = "document"
	KindTimer         NodeKind = "timer"
	KindThreadControl NodeKind = "thread_control"
	KindJump          NodeKind = "jump"
	KindHandover      NodeKind = "handover"
	KindClaim         NodeKind = "claim"
)

// Kinds lists every supported node kind.
var Kinds = []NodeKind{
	KindMessage, KindQuestion, KindPoll, KindCondition, KindCatalog, KindStockCheck,
	KindAddToCart, KindOrderSummary, KindCreateOrder, KindMediaRequest, KindDocument,
	KindTimer, KindThreadControl, KindJump, KindHandover, KindClaim,
}

// Condition edge handles.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
	// HandleInvalid is followed by add-to-cart when the line item is rejected.
	HandleInvalid = "invalid"
	// HandleEmpty is followed by create-order when the cart is empty.
	HandleEmpty = "empty"
)

// Node is a typed step of a flow. Config always holds a pointer to the variant
// matching Kind (e.g. *MessageConfig for KindMessage).
type Node struct {
	ID     string     `json:"id" yaml:"id"`
	Kind   NodeKind   `json:"type" yaml:"type"`
	Config NodeConfig `json:"data" yaml:"data"`
}

// NodeConfig is the closed set of node configurations.
type NodeConfig interface {
	NodeKind() NodeKind
}

// MessageConfig emits an interpolated text and continues.
type MessageConfig struct {
	Text string `json:"text" mapstructure:"text"`
}

// QuestionConfig asks a free-text question and stores the answer.
type QuestionConfig struct {
	Text     string `json:"text" mapstructure:"text"`
	Variable string `json:"variable" mapstructure:"variable"`
}

// PollConfig asks a question with numbered options.
type PollConfig struct {
	Question  string   `json:"question" mapstructure:"question"`
	Options   []string `json:"options" mapstructure:"options"`
	Variable  string   `json:"variable" mapstructure:"variable"`
	RetryText string   `json:"retryText,omitempty" mapstructure:"retryText"`
}

// ConditionConfig branches on a variable value, or on an expression when set.
type ConditionConfig struct {
	Variable      string `json:"variable" mapstructure:"variable"`
	ExpectedValue string `json:"expectedValue" mapstructure:"expectedValue"`
	Expression    string `json:"expression,omitempty" mapstructure:"expression"`
	// IgnoreCase compares the trimmed values case-insensitively.
	IgnoreCase bool `json:"ignoreCase,omitempty" mapstructure:"ignoreCase"`
}

// CatalogConfig sends the product catalog and parses the next free-text answer as an order.
type CatalogConfig struct {
	Text      string `json:"text" mapstructure:"text"`
	Variable  string `json:"variable" mapstructure:"variable"`
	AddToCart bool   `json:"addToCart,omitempty" mapstructure:"addToCart"`
	// NoWait sends the catalog and continues without parsing an answer.
	NoWait    bool   `json:"noWait,omitempty" mapstructure:"noWait"`
	RetryText string `json:"retryText,omitempty" mapstructure:"retryText"`
}

// StockCheckConfig asks for a product and stores a stock lookup result.
type StockCheckConfig struct {
	Question       string `json:"question" mapstructure:"question"`
	ResultVariable string `json:"resultVariable" mapstructure:"resultVariable"`
}

// AddToCartConfig appends a line item built from variables to the session cart.
type AddToCartConfig struct {
	ProductVariable string `json:"productVariable" mapstructure:"productVariable"`
	QtyVariable     string `json:"qtyVariable" mapstructure:"qtyVariable"`
	DetailVariable  string `json:"detailVariable,omitempty" mapstructure:"detailVariable"`
	ConfirmText     string `json:"confirmText,omitempty" mapstructure:"confirmText"`
	InvalidText     string `json:"invalidText,omitempty" mapstructure:"invalidText"`
}

// OrderSummaryConfig emits the cart contents and total.
type OrderSummaryConfig struct {
	Header    string `json:"header,omitempty" mapstructure:"header"`
	EmptyText string `json:"emptyText,omitempty" mapstructure:"emptyText"`
}

// CreateOrderConfig commits the cart through the order collaborator.
type CreateOrderConfig struct {
	CustomerVariable string `json:"customerVariable,omitempty" mapstructure:"customerVariable"`
	ResultVariable   string `json:"resultVariable,omitempty" mapstructure:"resultVariable"`
	SuccessText      string `json:"successText,omitempty" mapstructure:"successText"`
	ErrorText        string `json:"errorText,omitempty" mapstructure:"errorText"`
	EmptyText        string `json:"emptyText,omitempty" mapstructure:"emptyText"`
}

// MediaRequestConfig asks the user for a file and stores its URL.
type MediaRequestConfig struct {
	Prompt    string `json:"prompt" mapstructure:"prompt"`
	Variable  string `json:"variable" mapstructure:"variable"`
	RetryText string `json:"retryText,omitempty" mapstructure:"retryText"`
}

// DocumentConfig renders a document and sends it as media.
type DocumentConfig struct {
	Template  string `json:"template" mapstructure:"template"`
	Caption   string `json:"caption,omitempty" mapstructure:"caption"`
	Variable  string `json:"variable,omitempty" mapstructure:"variable"`
	ErrorText string `json:"errorText,omitempty" mapstructure:"errorText"`
}

// TimerConfig delays the continuation of the flow.
type TimerConfig struct {
	DurationMs          int64 `json:"durationMs" mapstructure:"durationMs"`
	ShowTypingIndicator bool  `json:"showTypingIndicator,omitempty" mapstructure:"showTypingIndicator"`
}

// Thread control actions.
const (
	ThreadPause  = "pause"
	ThreadResume = "resume"
)

// ThreadControlConfig pauses or resumes the automated conversation.
type ThreadControlConfig struct {
	Action string `json:"action" mapstructure:"action"`
	Ack    string `json:"ack,omitempty" mapstructure:"ack"`
}

// JumpConfig switches execution to another flow's entry node.
type JumpConfig struct {
	TargetFlowID string `json:"targetFlowId" mapstructure:"targetFlowId"`
}

// HandoverConfig transfers the conversation to a human operator.
type HandoverConfig struct {
	Message string `json:"message" mapstructure:"message"`
	Reason  string `json:"reason,omitempty" mapstructure:"reason"`
}

// ClaimConfig files a report/claim from a free-text variable.
type ClaimConfig struct {
	BodyVariable   string `json:"bodyVariable" mapstructure:"bodyVariable"`
	Type           string `json:"claimType" mapstructure:"claimType"`
	Priority       string `json:"priority" mapstructure:"priority"`
	Confirmation   string `json:"confirmation,omitempty" mapstructure:"confirmation"`
	ResultVariable string `json:"resultVariable,omitempty" mapstructure:"resultVariable"`
	ErrorText      string `json:"errorText,omitempty" mapstructure:"errorText"`
}

func (MessageConfig) NodeKind() NodeKind       { return KindMessage }
func (QuestionConfig) NodeKind() NodeKind      { return KindQuestion }
func (PollConfig) NodeKind() NodeKind          { return KindPoll }
func (ConditionConfig) NodeKind() NodeKind     { return KindCondition }
func (CatalogConfig) NodeKind() NodeKind       { return KindCatalog }
func (StockCheckConfig) NodeKind() NodeKind    { return KindStockCheck }
func (AddToCartConfig) NodeKind() NodeKind     { return KindAddToCart }
func (OrderSummaryConfig) NodeKind() NodeKind  { return KindOrderSummary }
func (CreateOrderConfig) NodeKind() NodeKind   { return KindCreateOrder }
func (MediaRequestConfig) NodeKind() NodeKind  { return KindMediaRequest }
func (DocumentConfig) NodeKind() NodeKind      { return KindDocument }
func (TimerConfig) NodeKind() NodeKind         { return KindTimer }
func (ThreadControlConfig) NodeKind() NodeKind { return KindThreadControl }
func (JumpConfig) NodeKind() NodeKind          { return KindJump }
func (HandoverConfig) NodeKind() NodeKind      { return KindHandover }
func (ClaimConfig) NodeKind() NodeKind         { return KindClaim }

// NewConfig returns an empty configuration value for the kind, or nil if the kind is unknown.
func NewConfig(kind NodeKind) NodeConfig {
	switch kind {
	case KindMessage:
		return &MessageConfig{}
	case KindQuestion:
		return &QuestionConfig{}
	case KindPoll:
		return &PollConfig{}
	case KindCondition:
		return &ConditionConfig{}
	case KindCatalog:
		return &CatalogConfig{}
	case KindStockCheck:
		return &StockCheckConfig{}
	case KindAddToCart:
		return &AddToCartConfig{}
	case KindOrderSummary:
		return &OrderSummaryConfig{}
	case KindCreateOrder:
		return &CreateOrderConfig{}
	case KindMediaRequest:
		return &MediaRequestConfig{}
	case KindDocument:
		return &DocumentConfig{}
	case KindTimer:
		return &TimerConfig{}
	case KindThreadControl:
		return &ThreadControlConfig{}
	case KindJump:
		return &JumpConfig{}
	case KindHandover:
		return &HandoverConfig{}
	case KindClaim:
		return &ClaimConfig{}
	}
	return nil
}

// TakesAnswer reports whether nodes of this kind store the user's next message
// as their answer.
func (k NodeKind) TakesAnswer() bool {
	return k == KindQuestion || k == KindMediaRequest
}
