// Package internalproc implementa el Internal Node Processor (spec §4.6):
// evalúa nodos condition/delay sin efectos secundarios. El Store lo escribe
// la Orchestrator después de recibir el processed_value.
package internalproc

import (
	"context"
	"strconv"
	"strings"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Processor implementa engine.InternalNodeProcessor contra el
// FlowUserContextRepository, fuente de las variables capturadas que
// alimentan las condiciones.
type Processor struct {
	contexts engine.FlowUserContextRepository
}

func New(contexts engine.FlowUserContextRepository) *Processor {
	return &Processor{contexts: contexts}
}

var _ engine.InternalNodeProcessor = (*Processor)(nil)

// ProcessCondition evalúa flowNodeConditions contra las variables capturadas
// del usuario en el flow, combina por conditionOperator, y retorna el
// selector sintético `<node>__true`/`<node>__false` tomado de conditionResult.
func (p *Processor) ProcessCondition(ctx context.Context, node *engine.Node, userID kernel.UserID, flowID kernel.FlowID) (string, error) {
	condition, err := engine.ExtractConditionNodeData(node.Data)
	if err != nil {
		return "", err
	}

	captured, err := p.contexts.FindByUserFlow(ctx, userID, flowID)
	if err != nil {
		return "", err
	}
	vars := make(map[string]string, len(captured))
	for _, v := range captured {
		vars[v.VariableName] = v.VariableValue
	}

	results := make([]bool, len(condition.FlowNodeConditions))
	for i, c := range condition.FlowNodeConditions {
		results[i] = evaluateCondition(lookupVariable(vars, c.Variable), c.FlowConditionType, c.Value)
	}

	final := combine(results, condition.OperatorOrDefault())

	suffix := "__false"
	if final {
		suffix = "__true"
	}
	selector := selectorBySuffix(condition.ConditionResult, suffix)
	if selector == "" {
		return "", engine.ErrSelectorNotFound().WithDetail("node_id", node.ID).WithDetail("suffix", suffix)
	}
	return selector, nil
}

// ProcessDelay calcula wait_time_seconds a partir de (delayDuration, delayUnit)
// y retorna el bloque crudo que la Orchestrator persiste en delay_node_data.
func (p *Processor) ProcessDelay(ctx context.Context, node *engine.Node) (map[string]any, error) {
	delay, err := engine.ExtractDelayNodeData(node.Data)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"delay_duration":    delay.DelayDuration,
		"delay_unit":        string(delay.DelayUnit),
		"wait_time_seconds": delay.WaitTimeSeconds(),
		"wait_for_reply":    delay.WaitForReply,
		"delay_interrupt":   delay.DelayInterrupt,
		"delay_result":      delay.DelayResult,
	}, nil
}

// lookupVariable prueba el nombre tal cual, y luego con/sin el prefijo `@`
// que algunos flows usan para referenciar variables capturadas (spec §4.6).
func lookupVariable(vars map[string]string, name string) string {
	if v, ok := vars[name]; ok {
		return v
	}
	trimmed := strings.TrimPrefix(name, "@")
	if v, ok := vars[trimmed]; ok {
		return v
	}
	if v, ok := vars["@"+trimmed]; ok {
		return v
	}
	return ""
}

func evaluateCondition(value string, condType engine.ConditionType, target string) bool {
	switch condType {
	case engine.ConditionEqual:
		return strings.EqualFold(value, target)
	case engine.ConditionNotEqual:
		return !strings.EqualFold(value, target)
	case engine.ConditionContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(target))
	case engine.ConditionNotContains:
		return !strings.Contains(strings.ToLower(value), strings.ToLower(target))
	case engine.ConditionGreaterThan, engine.ConditionLessThan:
		vNum, errV := strconv.ParseFloat(strings.TrimSpace(value), 64)
		tNum, errT := strconv.ParseFloat(strings.TrimSpace(target), 64)
		if errV != nil || errT != nil {
			return false
		}
		if condType == engine.ConditionGreaterThan {
			return vNum > tNum
		}
		return vNum < tNum
	default:
		return false
	}
}

func combine(results []bool, op engine.ConditionOperator) bool {
	if len(results) == 0 {
		return false
	}
	if op == engine.ConditionOperatorOr {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

func selectorBySuffix(candidates []string, suffix string) string {
	for _, c := range candidates {
		if strings.HasSuffix(c, suffix) {
			return c
		}
	}
	return ""
}
