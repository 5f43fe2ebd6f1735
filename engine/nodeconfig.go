package engine

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Node Config Interface
// ============================================================================

// NodeConfig es implementado por cada payload tipado extraído de Node.Data
type NodeConfig interface {
	Validate() error
	GetType() NodeType
}

// ============================================================================
// Answer Validation — shared by question / button_question / list_question
// ============================================================================

// AnswerValidationType discrimina la regla de validación de una respuesta libre
type AnswerValidationType string

const (
	AnswerValidationNumber AnswerValidationType = "Number"
	AnswerValidationText   AnswerValidationType = "Text"
	AnswerValidationEmail  AnswerValidationType = "Email"
	AnswerValidationPhone  AnswerValidationType = "Phone"
)

// AnswerValidation regla de validación declarada en un nodo de input
type AnswerValidation struct {
	Type              AnswerValidationType `json:"type"`
	Regex             string               `json:"regex,omitempty"`
	MinValue          *float64             `json:"minValue,omitempty"`
	MaxValue          *float64             `json:"maxValue,omitempty"`
	FailsCount        *int                 `json:"failsCount,omitempty"`
	Fallback          string               `json:"fallback,omitempty"`
	UserInputVariable string               `json:"userInputVariable,omitempty"`
}

// FailsCountOrDefault retorna el umbral de fallos, por defecto 3
func (v *AnswerValidation) FailsCountOrDefault() int {
	if v != nil && v.FailsCount != nil && *v.FailsCount > 0 {
		return *v.FailsCount
	}
	return 3
}

// FallbackOrDefault retorna el mensaje de fallback, con un default genérico
func (v *AnswerValidation) FallbackOrDefault() string {
	if v != nil && v.Fallback != "" {
		return v.Fallback
	}
	return "This is not the valid response. Please try again below"
}

func (v *AnswerValidation) Validate() error {
	if v == nil {
		return nil
	}
	switch v.Type {
	case AnswerValidationNumber, AnswerValidationText, AnswerValidationEmail, AnswerValidationPhone:
	default:
		return ErrInvalidAnswerValidation().WithDetail("reason", fmt.Sprintf("unknown validation type: %s", v.Type))
	}
	return nil
}

// ExpectedAnswer una opción esperada de un nodo interactivo
type ExpectedAnswer struct {
	ExpectedInput string `json:"expectedInput"`
	AnswerID      string `json:"answerId"`
}

// ============================================================================
// Trigger node data
// ============================================================================

// TriggerNodeData payload común de trigger_keyword / trigger_template
type TriggerNodeData struct {
	TriggerValues []string `json:"triggerValues"`
}

func (d TriggerNodeData) Validate() error {
	if len(d.TriggerValues) == 0 {
		return ErrInvalidFlowConfig().WithDetail("reason", "triggerValues cannot be empty")
	}
	return nil
}

// ============================================================================
// Question node data (free-text)
// ============================================================================

// QuestionNodeData payload del nodo `question` (respuesta libre)
type QuestionNodeData struct {
	Text             string            `json:"text"`
	AnswerValidation *AnswerValidation `json:"answerValidation,omitempty"`
}

func (d QuestionNodeData) Validate() error {
	return d.AnswerValidation.Validate()
}

func (d QuestionNodeData) GetType() NodeType { return NodeTypeQuestion }

// ============================================================================
// Button / List question node data (interactive)
// ============================================================================

// InteractiveNodeData payload compartido por button_question / list_question
type InteractiveNodeData struct {
	Text             string            `json:"text"`
	ExpectedAnswers  []ExpectedAnswer  `json:"expectedAnswers"`
	AnswerValidation *AnswerValidation `json:"answerValidation,omitempty"`
}

func (d InteractiveNodeData) Validate() error {
	if len(d.ExpectedAnswers) == 0 {
		return ErrInvalidFlowConfig().WithDetail("reason", "expectedAnswers cannot be empty")
	}
	return d.AnswerValidation.Validate()
}

// ============================================================================
// Condition node data
// ============================================================================

// ConditionOperator combina múltiples condiciones
type ConditionOperator string

const (
	ConditionOperatorAnd  ConditionOperator = "AND"
	ConditionOperatorOr   ConditionOperator = "OR"
	ConditionOperatorNone ConditionOperator = "None"
)

// ConditionType comparador aplicado a una condición individual
type ConditionType string

const (
	ConditionEqual       ConditionType = "Equal"
	ConditionNotEqual    ConditionType = "NotEqual"
	ConditionContains    ConditionType = "Contains"
	ConditionNotContains ConditionType = "NotContains"
	ConditionGreaterThan ConditionType = "GreaterThan"
	ConditionLessThan    ConditionType = "LessThan"
)

// FlowNodeCondition una comparación individual sobre una variable capturada
type FlowNodeCondition struct {
	Variable          string        `json:"variable"`
	FlowConditionType ConditionType `json:"flowConditionType"`
	Value             string        `json:"value"`
}

// ConditionNodeData payload del nodo `condition`
type ConditionNodeData struct {
	FlowNodeConditions []FlowNodeCondition `json:"flowNodeConditions"`
	ConditionOperator   ConditionOperator   `json:"conditionOperator"`
	ConditionResult     []string            `json:"conditionResult"`
}

func (d ConditionNodeData) Validate() error {
	if len(d.FlowNodeConditions) == 0 {
		return ErrInvalidFlowConfig().WithDetail("reason", "flowNodeConditions cannot be empty")
	}
	if len(d.ConditionResult) != 2 {
		return ErrInvalidFlowConfig().WithDetail("reason", "conditionResult must carry exactly the __true/__false selector ids")
	}
	return nil
}

func (d ConditionNodeData) GetType() NodeType { return NodeTypeCondition }

// OperatorOrDefault treats None as AND per spec §4.6
func (d ConditionNodeData) OperatorOrDefault() ConditionOperator {
	if d.ConditionOperator == "" || d.ConditionOperator == ConditionOperatorNone {
		return ConditionOperatorAnd
	}
	return d.ConditionOperator
}

// ============================================================================
// Delay node data
// ============================================================================

// DelayUnit unidad de tiempo de un nodo delay
type DelayUnit string

const (
	DelayUnitSeconds DelayUnit = "seconds"
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
)

// DelayNodeConfig payload del nodo `delay`
type DelayNodeConfig struct {
	DelayDuration  int       `json:"delayDuration"`
	DelayUnit      DelayUnit `json:"delayUnit"`
	WaitForReply   bool      `json:"waitForReply"`
	DelayInterrupt bool      `json:"delayInterrupt"`
	DelayResult    []string  `json:"delayResult"`
}

func (d DelayNodeConfig) Validate() error {
	if d.DelayDuration <= 0 {
		return ErrInvalidFlowConfig().WithDetail("reason", "delayDuration must be positive")
	}
	switch d.DelayUnit {
	case DelayUnitSeconds, DelayUnitMinutes, DelayUnitHours, DelayUnitDays:
	default:
		return ErrInvalidFlowConfig().WithDetail("reason", fmt.Sprintf("unknown delayUnit: %s", d.DelayUnit))
	}
	if len(d.DelayResult) != 2 {
		return ErrInvalidFlowConfig().WithDetail("reason", "delayResult must carry exactly the __interrupted/__not_interrupted selector ids")
	}
	return nil
}

func (d DelayNodeConfig) GetType() NodeType { return NodeTypeDelay }

// WaitTimeSeconds calcula (delayDuration, delayUnit) -> segundos de espera
func (d DelayNodeConfig) WaitTimeSeconds() int {
	switch d.DelayUnit {
	case DelayUnitMinutes:
		return d.DelayDuration * 60
	case DelayUnitHours:
		return d.DelayDuration * 3600
	case DelayUnitDays:
		return d.DelayDuration * 86400
	default:
		return d.DelayDuration
	}
}

// ============================================================================
// Outbound node data: message / send_template / send_email_template
// ============================================================================

// MessageNodeData payload del nodo `message`
type MessageNodeData struct {
	Text string `json:"text"`
}

func (d MessageNodeData) Validate() error {
	if d.Text == "" {
		return ErrInvalidFlowConfig().WithDetail("reason", "text cannot be empty")
	}
	return nil
}

func (d MessageNodeData) GetType() NodeType { return NodeTypeMessage }

// SendTemplateNodeData payload del nodo `send_template` (plantillas de canal)
type SendTemplateNodeData struct {
	TemplateName string            `json:"templateName"`
	Params       map[string]string `json:"params,omitempty"`
}

func (d SendTemplateNodeData) Validate() error {
	if d.TemplateName == "" {
		return ErrInvalidFlowConfig().WithDetail("reason", "templateName cannot be empty")
	}
	return nil
}

func (d SendTemplateNodeData) GetType() NodeType { return NodeTypeSendTemplate }

// SendEmailTemplateNodeData payload del nodo `send_email_template`
type SendEmailTemplateNodeData struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (d SendEmailTemplateNodeData) Validate() error {
	if d.Subject == "" && d.Body == "" {
		return ErrInvalidFlowConfig().WithDetail("reason", "subject and body cannot both be empty")
	}
	return nil
}

func (d SendEmailTemplateNodeData) GetType() NodeType { return NodeTypeSendEmailTemplate }

// ============================================================================
// Extraction helpers — marshal/unmarshal map[string]any into typed configs
// ============================================================================

func decodeNodeData[T any](data map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("failed to marshal node data: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal node data: %w", err)
	}
	return out, nil
}

// ExtractTriggerNodeData reads trigger_keyword/trigger_template payloads
func ExtractTriggerNodeData(data map[string]any) (*TriggerNodeData, error) {
	d, err := decodeNodeData[TriggerNodeData](data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExtractQuestionNodeData reads a `question` node's payload
func ExtractQuestionNodeData(data map[string]any) (*QuestionNodeData, error) {
	d, err := decodeNodeData[QuestionNodeData](data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExtractInteractiveNodeData reads a button_question/list_question payload
func ExtractInteractiveNodeData(data map[string]any) (*InteractiveNodeData, error) {
	d, err := decodeNodeData[InteractiveNodeData](data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExtractConditionNodeData reads a `condition` node's payload
func ExtractConditionNodeData(data map[string]any) (*ConditionNodeData, error) {
	d, err := decodeNodeData[ConditionNodeData](data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExtractDelayNodeData reads a `delay` node's payload
func ExtractDelayNodeData(data map[string]any) (*DelayNodeConfig, error) {
	d, err := decodeNodeData[DelayNodeConfig](data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExtractMessageNodeData reads a `message` node's payload
func ExtractMessageNodeData(data map[string]any) (*MessageNodeData, error) {
	d, err := decodeNodeData[MessageNodeData](data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExtractSendTemplateNodeData reads a `send_template` node's payload
func ExtractSendTemplateNodeData(data map[string]any) (*SendTemplateNodeData, error) {
	d, err := decodeNodeData[SendTemplateNodeData](data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExtractSendEmailTemplateNodeData reads a `send_email_template` node's payload
func ExtractSendEmailTemplateNodeData(data map[string]any) (*SendEmailTemplateNodeData, error) {
	d, err := decodeNodeData[SendEmailTemplateNodeData](data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
