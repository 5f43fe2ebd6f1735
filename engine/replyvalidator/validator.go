// Package replyvalidator implementa el Reply Validator (spec §4.4): decide si
// la respuesta del usuario coincide con el nodo activo, con otro nodo
// interactivo del mismo flow, o si debe disparar un reintento/salida de
// validación sobre una pregunta de texto libre.
package replyvalidator

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phoneStrip   = regexp.MustCompile(`[\s\-()+]`)
)

var errValidationMismatch = errors.New("reply does not satisfy answer validation rule")

// Validator implementa engine.ReplyValidator contra el FlowUserContextRepository,
// donde persiste las variables capturadas por nodos `question` de texto libre.
type Validator struct {
	contexts engine.FlowUserContextRepository
}

func New(contexts engine.FlowUserContextRepository) *Validator {
	return &Validator{contexts: contexts}
}

var _ engine.ReplyValidator = (*Validator)(nil)

// ValidateAndMatch implementa el algoritmo de 5 ramas de §4.4:
//  1. matched: el reply coincide con expectedAnswers del nodo activo
//  2. texto libre (question): valida contra AnswerValidation, reintenta o sale
//  3. matched_other_node: el reply coincide con otro nodo interactivo del flow
//  4. mismatch_retry / validation_exit: el nodo activo es interactivo pero no hubo match
//  5. use_default_edge: ninguna de las anteriores aplica
func (v *Validator) ValidateAndMatch(
	ctx context.Context,
	flow *engine.Flow,
	userID kernel.UserID,
	currentNodeID kernel.NodeID,
	event engine.NormalizedEvent,
	isText bool,
	currentValidationCount int,
) (engine.ValidatorOutcome, error) {
	reply := strings.TrimSpace(event.UserReply)
	if reply == "" {
		return engine.ValidatorOutcome{Kind: engine.OutcomeError, ErrMessage: "user reply is empty"}, nil
	}

	node := flow.NodeByID(currentNodeID)
	if node == nil {
		return engine.ValidatorOutcome{}, engine.ErrNodeNotFound().WithDetail("node_id", currentNodeID)
	}

	answerID, matched, err := matchExpectedAnswer(node, reply)
	if err != nil {
		return engine.ValidatorOutcome{}, err
	}
	if matched {
		return engine.ValidatorOutcome{Kind: engine.OutcomeMatched, AnswerID: answerID}, nil
	}

	if isText {
		return v.validateFreeText(ctx, node, userID, flow.ID, currentNodeID, reply, currentValidationCount)
	}

	otherNodeID, matchedOther, err := matchOtherFlowNode(flow, reply)
	if err != nil {
		return engine.ValidatorOutcome{}, err
	}
	if matchedOther {
		return engine.ValidatorOutcome{Kind: engine.OutcomeMatchedOtherNode, OtherNodeID: otherNodeID}, nil
	}

	if node.Type == engine.NodeTypeButtonQuestion || node.Type == engine.NodeTypeListQuestion {
		interactive, err := engine.ExtractInteractiveNodeData(node.Data)
		if err != nil {
			return engine.ValidatorOutcome{}, err
		}
		fallback := interactive.AnswerValidation.FallbackOrDefault()
		if currentValidationCount >= interactive.AnswerValidation.FailsCountOrDefault() {
			return engine.ValidatorOutcome{Kind: engine.OutcomeValidationExit, FallbackMessage: fallback}, nil
		}
		return engine.ValidatorOutcome{Kind: engine.OutcomeMismatchRetry, FallbackMessage: fallback}, nil
	}

	return engine.ValidatorOutcome{Kind: engine.OutcomeUseDefaultEdge}, nil
}

// validateFreeText cubre el nodo `question`: valida el reply contra
// AnswerValidation, persiste la variable capturada en éxito, o decide entre
// reintento y salida según el contador de validaciones fallidas.
func (v *Validator) validateFreeText(
	ctx context.Context,
	node *engine.Node,
	userID kernel.UserID,
	flowID kernel.FlowID,
	nodeID kernel.NodeID,
	reply string,
	currentValidationCount int,
) (engine.ValidatorOutcome, error) {
	question, err := engine.ExtractQuestionNodeData(node.Data)
	if err != nil {
		return engine.ValidatorOutcome{}, err
	}

	if validateErr := checkAnswerValidation(question.AnswerValidation, reply); validateErr != nil {
		fallback := question.AnswerValidation.FallbackOrDefault()
		if currentValidationCount >= question.AnswerValidation.FailsCountOrDefault() {
			return engine.ValidatorOutcome{Kind: engine.OutcomeValidationExit, FallbackMessage: fallback}, nil
		}
		return engine.ValidatorOutcome{Kind: engine.OutcomeMismatchRetry, FallbackMessage: fallback}, nil
	}

	if question.AnswerValidation != nil && question.AnswerValidation.UserInputVariable != "" {
		err := v.contexts.Upsert(ctx, engine.FlowUserContext{
			UserID:        userID,
			FlowID:        flowID,
			NodeID:        nodeID,
			VariableName:  question.AnswerValidation.UserInputVariable,
			VariableValue: reply,
			UpdatedAt:     time.Now(),
		})
		if err != nil {
			return engine.ValidatorOutcome{}, err
		}
	}

	return engine.ValidatorOutcome{Kind: engine.OutcomeUseDefaultEdge}, nil
}

// matchExpectedAnswer compara el reply contra expectedAnswers del nodo, solo
// para trigger_template/button_question/list_question (los únicos tipos que
// cargan esa lista en su Data).
func matchExpectedAnswer(node *engine.Node, reply string) (string, bool, error) {
	answers, err := expectedAnswersOf(node)
	if err != nil {
		return "", false, err
	}
	for _, a := range answers {
		if strings.EqualFold(strings.TrimSpace(a.ExpectedInput), reply) {
			return a.AnswerID, true, nil
		}
	}
	return "", false, nil
}

// matchOtherFlowNode escanea todos los nodos button_question/list_question del
// flow buscando un expectedInput que coincida con el reply; si lo encuentra,
// resuelve el edge cuyo source_node_id es el answer_id matcheado y retorna su
// target_node_id como próximo nodo a procesar.
func matchOtherFlowNode(flow *engine.Flow, reply string) (kernel.NodeID, bool, error) {
	for i := range flow.Nodes {
		node := &flow.Nodes[i]
		if node.Type != engine.NodeTypeButtonQuestion && node.Type != engine.NodeTypeListQuestion {
			continue
		}
		answerID, matched, err := matchExpectedAnswer(node, reply)
		if err != nil {
			return "", false, err
		}
		if !matched {
			continue
		}
		edge := flow.EdgeBySource(answerID)
		if edge == nil {
			continue
		}
		return edge.TargetNodeID, true, nil
	}
	return "", false, nil
}

// expectedAnswersOf lee el campo crudo "expectedAnswers" del Data del nodo sin
// exigir el resto del shape tipado (trigger_template no valida como
// InteractiveNodeData, pero comparte la misma forma de lista de respuestas).
func expectedAnswersOf(node *engine.Node) ([]engine.ExpectedAnswer, error) {
	switch node.Type {
	case engine.NodeTypeTriggerTemplate, engine.NodeTypeButtonQuestion, engine.NodeTypeListQuestion:
	default:
		return nil, nil
	}

	raw, ok := node.Data["expectedAnswers"]
	if !ok {
		return nil, nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var answers []engine.ExpectedAnswer
	if err := json.Unmarshal(b, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// checkAnswerValidation aplica la regla declarada en AnswerValidation.Type,
// seguida opcionalmente de un regex adicional sobre el mismo reply.
func checkAnswerValidation(av *engine.AnswerValidation, reply string) error {
	if av == nil {
		return nil
	}

	switch av.Type {
	case engine.AnswerValidationNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
		if err != nil {
			return errValidationMismatch
		}
		if av.MinValue != nil && n < *av.MinValue {
			return errValidationMismatch
		}
		if av.MaxValue != nil && n > *av.MaxValue {
			return errValidationMismatch
		}

	case engine.AnswerValidationText:
		length := float64(len([]rune(reply)))
		if av.MinValue != nil && length < *av.MinValue {
			return errValidationMismatch
		}
		if av.MaxValue != nil && length > *av.MaxValue {
			return errValidationMismatch
		}

	case engine.AnswerValidationEmail:
		if !emailPattern.MatchString(reply) {
			return errValidationMismatch
		}

	case engine.AnswerValidationPhone:
		digits := phoneStrip.ReplaceAllString(reply, "")
		if len(digits) < 7 || !isAllDigits(digits) {
			return errValidationMismatch
		}
	}

	if av.Regex != "" {
		re, err := regexp.Compile(av.Regex)
		if err != nil {
			return errValidationMismatch
		}
		if !re.MatchString(reply) {
			return errValidationMismatch
		}
	}

	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
