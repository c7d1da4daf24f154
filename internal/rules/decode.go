package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownOperator = errors.New("unknown operator")
	ErrInvalidRule     = errors.New("invalid rule")
)

const (
	nodeTypeCondition = "condition"
	nodeTypeGroup     = "group"
)

// DecodeRules parses a JSON array of rules and validates each one.
func DecodeRules(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	for i := range rules {
		if err := Validate(rules[i]); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return rules, nil
}

// Validate checks a rule's structure: identifiers, operators, nesting depth
// and action arguments.
func Validate(r Rule) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRule)
	}
	if err := validateGroup(&r.ConditionGroup, 1); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRule, r.ID, err)
	}
	for i, a := range r.Actions {
		if err := validateAction(a); err != nil {
			return fmt.Errorf("%w: %s: action %d: %w", ErrInvalidRule, r.ID, i, err)
		}
	}
	return nil
}

func validateGroup(g *ConditionGroup, depth int) error {
	if depth > MaxGroupDepth {
		return fmt.Errorf("condition groups nested deeper than %d", MaxGroupDepth)
	}
	if g.Logic != "" && g.Logic != LogicAnd && g.Logic != LogicOr {
		return fmt.Errorf("unknown logic %q", g.Logic)
	}
	for _, n := range g.Conditions {
		switch t := n.(type) {
		case *Condition:
			if t == nil {
				return errors.New("nil condition")
			}
			if err := validateCondition(t); err != nil {
				return err
			}
		case *ConditionGroup:
			if t == nil {
				return errors.New("nil condition group")
			}
			if err := validateGroup(t, depth+1); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported condition node %T", n)
		}
	}
	return nil
}

func validateCondition(c *Condition) error {
	if _, ok := knownOperators[c.Operator]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownOperator, c.Operator)
	}
	if c.Field == "" {
		return fmt.Errorf("condition %s: field is required", c.ID)
	}
	if c.Operator == OpIn || c.Operator == OpNotIn {
		switch c.Value.(type) {
		case []any, []string, []float64, []int:
		default:
			return fmt.Errorf("condition %s: %s expects an array value", c.ID, c.Operator)
		}
	}
	return nil
}

func validateAction(a Action) error {
	switch act := a.(type) {
	case nil:
		return ErrUnknownAction
	case SkipAction:
	case SetFieldAction:
		if act.Field == "" {
			return errors.New("field is required")
		}
	case ModifyFieldAction:
		if act.Field == "" {
			return errors.New("field is required")
		}
		switch act.Operation {
		case ModifyReplace, ModifyAppend, ModifyPrepend, ModifyUppercase, ModifyLowercase, ModifyTrim:
		default:
			return fmt.Errorf("unknown modify operation %q", act.Operation)
		}
	case AddToGroupAction:
		if act.Group == "" {
			return errors.New("group is required")
		}
	case SetTargetingAction:
		if act.Key == "" {
			return errors.New("key is required")
		}
	case AddTagAction:
		if act.Tag == "" {
			return errors.New("tag is required")
		}
	}
	return nil
}

// UnmarshalJSON accepts both the full form with a conditionGroup and a
// shorthand with top-level conditions and logic. Enabled defaults to true.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var doc struct {
		ID             string            `json:"id"`
		Name           string            `json:"name"`
		Enabled        *bool             `json:"enabled"`
		Priority       int               `json:"priority"`
		ConditionGroup *ConditionGroup   `json:"conditionGroup"`
		Logic          Logic             `json:"logic"`
		Conditions     []json.RawMessage `json:"conditions"`
		Actions        []json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*r = Rule{ID: doc.ID, Name: doc.Name, Enabled: true, Priority: doc.Priority}
	if doc.Enabled != nil {
		r.Enabled = *doc.Enabled
	}

	switch {
	case doc.ConditionGroup != nil:
		r.ConditionGroup = *doc.ConditionGroup
	default:
		g, err := decodeGroupBody(doc.ID, doc.Logic, doc.Conditions)
		if err != nil {
			return err
		}
		r.ConditionGroup = *g
	}

	for i, raw := range doc.Actions {
		a, err := decodeAction(raw)
		if err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		r.Actions = append(r.Actions, a)
	}
	return nil
}

func (g *ConditionGroup) UnmarshalJSON(data []byte) error {
	var doc struct {
		ID         string            `json:"id"`
		Logic      Logic             `json:"logic"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	decoded, err := decodeGroupBody(doc.ID, doc.Logic, doc.Conditions)
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

func decodeGroupBody(id string, logic Logic, raws []json.RawMessage) (*ConditionGroup, error) {
	g := &ConditionGroup{ID: id, Logic: normalizeLogic(logic), Conditions: make([]Node, 0, len(raws))}
	for i, raw := range raws {
		n, err := decodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		g.Conditions = append(g.Conditions, n)
	}
	return g, nil
}

func normalizeLogic(l Logic) Logic {
	if l == "" {
		return LogicAnd
	}
	return Logic(strings.ToUpper(string(l)))
}

// decodeNode picks the node type from "type" or, when absent, from whether
// the object carries a conditions list.
func decodeNode(raw json.RawMessage) (Node, error) {
	var peek struct {
		Type       string          `json:"type"`
		Conditions json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, err
	}

	kind := peek.Type
	if kind == "" {
		kind = nodeTypeCondition
		if len(peek.Conditions) > 0 && !bytes.Equal(peek.Conditions, []byte("null")) {
			kind = nodeTypeGroup
		}
	}

	switch kind {
	case nodeTypeGroup:
		var g ConditionGroup
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		return &g, nil
	case nodeTypeCondition:
		var c struct {
			ID       string   `json:"id"`
			Field    string   `json:"field"`
			Operator Operator `json:"operator"`
			Value    any      `json:"value"`
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		if _, ok := knownOperators[c.Operator]; !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownOperator, c.Operator)
		}
		return &Condition{ID: c.ID, Field: c.Field, Operator: c.Operator, Value: c.Value}, nil
	}
	return nil, fmt.Errorf("unknown condition node type %q", peek.Type)
}

type actionDoc struct {
	Type      ActionType      `json:"type"`
	Field     string          `json:"field,omitempty"`
	Value     any             `json:"value,omitempty"`
	Operation ModifyOperation `json:"operation,omitempty"`
	Pattern   string          `json:"pattern,omitempty"`
	Group     string          `json:"group,omitempty"`
	Key       string          `json:"key,omitempty"`
	Tag       string          `json:"tag,omitempty"`
}

func decodeAction(raw json.RawMessage) (Action, error) {
	var d actionDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	switch d.Type {
	case ActionSkip:
		return SkipAction{}, nil
	case ActionSetField:
		return SetFieldAction{Field: d.Field, Value: d.Value}, nil
	case ActionModifyField:
		v := ""
		if d.Value != nil {
			if s, ok := d.Value.(string); ok {
				v = s
			} else {
				b, _ := json.Marshal(d.Value)
				v = string(b)
			}
		}
		return ModifyFieldAction{Field: d.Field, Operation: d.Operation, Pattern: d.Pattern, Value: v}, nil
	case ActionAddToGroup:
		return AddToGroupAction{Group: d.Group}, nil
	case ActionSetTargeting:
		return SetTargetingAction{Key: d.Key, Value: d.Value}, nil
	case ActionAddTag:
		return AddTagAction{Tag: d.Tag}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAction, d.Type)
}

func (Condition) nodeType() string { return nodeTypeCondition }

func (c Condition) MarshalJSON() ([]byte, error) {
	type plain Condition
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.nodeType(), plain(c)})
}

func (g ConditionGroup) MarshalJSON() ([]byte, error) {
	conds := g.Conditions
	if conds == nil {
		conds = []Node{}
	}
	return json.Marshal(struct {
		Type       string `json:"type"`
		ID         string `json:"id,omitempty"`
		Logic      Logic  `json:"logic"`
		Conditions []Node `json:"conditions"`
	}{nodeTypeGroup, g.ID, g.Logic, conds})
}

func (a SkipAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionDoc{Type: a.Type()})
}

func (a SetFieldAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionDoc{Type: a.Type(), Field: a.Field, Value: a.Value})
}

func (a ModifyFieldAction) MarshalJSON() ([]byte, error) {
	d := actionDoc{Type: a.Type(), Field: a.Field, Operation: a.Operation, Pattern: a.Pattern}
	if a.Value != "" {
		d.Value = a.Value
	}
	return json.Marshal(d)
}

func (a AddToGroupAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionDoc{Type: a.Type(), Group: a.Group})
}

func (a SetTargetingAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionDoc{Type: a.Type(), Key: a.Key, Value: a.Value})
}

func (a AddTagAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionDoc{Type: a.Type(), Tag: a.Tag})
}
