package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

type TenantID string

func NewTenantID(id string) TenantID { return TenantID(id) }
func (t TenantID) String() string    { return string(t) }
func (t TenantID) IsEmpty() bool     { return string(t) == "" }

type RoleID string

func NewRoleID(id string) RoleID { return RoleID(id) }
func (r RoleID) String() string  { return string(r) }
func (r RoleID) IsEmpty() bool   { return string(r) == "" }

type MessageID string

func NewMessageID(id string) MessageID { return MessageID(id) }
func (r MessageID) String() string     { return string(r) }
func (r MessageID) IsEmpty() bool      { return string(r) == "" }

type ChannelID string

func NewChannelID(id string) ChannelID { return ChannelID(id) }
func (r ChannelID) String() string     { return string(r) }
func (r ChannelID) IsEmpty() bool      { return string(r) == "" }

type WorkflowID string

func NewWorkflowID(id string) WorkflowID { return WorkflowID(id) }
func (r WorkflowID) String() string      { return string(r) }
func (r WorkflowID) IsEmpty() bool       { return string(r) == "" }

type ParserID string

func NewParserID(id string) ParserID { return ParserID(id) }
func (r ParserID) String() string    { return string(r) }
func (r ParserID) IsEmpty() bool     { return string(r) == "" }

type ToolID string

func NewToolID(id string) ToolID { return ToolID(id) }
func (r ToolID) String() string  { return string(r) }
func (r ToolID) IsEmpty() bool   { return string(r) == "" }

type SessionID string

func NewSessionID(id string) SessionID { return SessionID(id) }
func (r SessionID) String() string     { return string(r) }
func (r SessionID) IsEmpty() bool      { return string(r) == "" }

type BrandID string

func NewBrandID(id string) BrandID { return BrandID(id) }
func (r BrandID) String() string   { return string(r) }
func (r BrandID) IsEmpty() bool    { return string(r) == "" }

type FlowID string

func NewFlowID(id string) FlowID { return FlowID(id) }
func (r FlowID) String() string  { return string(r) }
func (r FlowID) IsEmpty() bool   { return string(r) == "" }

type NodeID string

func NewNodeID(id string) NodeID { return NodeID(id) }
func (r NodeID) String() string  { return string(r) }
func (r NodeID) IsEmpty() bool   { return string(r) == "" }

type EdgeID string

func NewEdgeID(id string) EdgeID { return EdgeID(id) }
func (r EdgeID) String() string  { return string(r) }
func (r EdgeID) IsEmpty() bool   { return string(r) == "" }

type TriggerID string

func NewTriggerID(id string) TriggerID { return TriggerID(id) }
func (r TriggerID) String() string     { return string(r) }
func (r TriggerID) IsEmpty() bool      { return string(r) == "" }

type DelayID string

func NewDelayID(id string) DelayID { return DelayID(id) }
func (r DelayID) String() string   { return string(r) }
func (r DelayID) IsEmpty() bool    { return string(r) == "" }

type TransactionID string

func NewTransactionID(id string) TransactionID { return TransactionID(id) }
func (r TransactionID) String() string         { return string(r) }
func (r TransactionID) IsEmpty() bool          { return string(r) == "" }

type WebhookMessageID string

func NewWebhookMessageID(id string) WebhookMessageID { return WebhookMessageID(id) }
func (r WebhookMessageID) String() string            { return string(r) }
func (r WebhookMessageID) IsEmpty() bool             { return string(r) == "" }
