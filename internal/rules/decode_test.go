package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullRuleJSON = `[{
	"id": "r1",
	"name": "Premium tagging",
	"enabled": false,
	"priority": 3,
	"conditionGroup": {
		"id": "g1",
		"logic": "or",
		"conditions": [
			{"type": "condition", "id": "c1", "field": "price", "operator": "greater_than", "value": 100},
			{"id": "g2", "logic": "AND", "conditions": [
				{"field": "brand", "operator": "in", "value": ["Nike", "Adidas"]},
				{"field": "stock", "operator": "is_not_empty"}
			]}
		]
	},
	"actions": [
		{"type": "set_field", "field": "tier", "value": "premium"},
		{"type": "modify_field", "field": "headline", "operation": "replace", "pattern": "\\s+", "value": " "},
		{"type": "add_to_group", "group": "premium"},
		{"type": "set_targeting", "key": "interests", "value": ["sneakers"]},
		{"type": "add_tag", "tag": "hot"},
		{"type": "skip"}
	]
}]`

func TestDecodeRules_FullForm(t *testing.T) {
	rules, err := DecodeRules([]byte(fullRuleJSON))
	require.NoError(t, err)
	require.Len(t, rules, 1)

	r := rules[0]
	assert.Equal(t, "r1", r.ID)
	assert.False(t, r.Enabled)
	assert.Equal(t, 3, r.Priority)
	assert.Equal(t, LogicOr, r.ConditionGroup.Logic)
	require.Len(t, r.ConditionGroup.Conditions, 2)

	c, ok := r.ConditionGroup.Conditions[0].(*Condition)
	require.True(t, ok)
	assert.Equal(t, OpGreaterThan, c.Operator)
	assert.Equal(t, 100.0, c.Value)

	g, ok := r.ConditionGroup.Conditions[1].(*ConditionGroup)
	require.True(t, ok)
	assert.Equal(t, LogicAnd, g.Logic)
	assert.Len(t, g.Conditions, 2)

	assert.Equal(t, []Action{
		SetFieldAction{Field: "tier", Value: "premium"},
		ModifyFieldAction{Field: "headline", Operation: ModifyReplace, Pattern: `\s+`, Value: " "},
		AddToGroupAction{Group: "premium"},
		SetTargetingAction{Key: "interests", Value: []any{"sneakers"}},
		AddTagAction{Tag: "hot"},
		SkipAction{},
	}, r.Actions)
}

func TestDecodeRules_RoundTrip(t *testing.T) {
	rules, err := DecodeRules([]byte(fullRuleJSON))
	require.NoError(t, err)

	b, err := json.Marshal(rules)
	require.NoError(t, err)
	again, err := DecodeRules(b)
	require.NoError(t, err)
	assert.Equal(t, rules, again)
}

func TestDecodeRules_ShorthandDefaults(t *testing.T) {
	rules, err := DecodeRules([]byte(`[{"id": "s", "conditions": [{"field": "name", "operator": "is_empty"}], "actions": [{"type": "skip"}]}]`))
	require.NoError(t, err)
	assert.True(t, rules[0].Enabled)
	assert.Equal(t, LogicAnd, rules[0].ConditionGroup.Logic)
	assert.Len(t, rules[0].ConditionGroup.Conditions, 1)
}

func TestDecodeRules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"unknown action", `[{"id": "a", "actions": [{"type": "explode"}]}]`, ErrUnknownAction},
		{"unknown operator", `[{"id": "a", "conditions": [{"field": "x", "operator": "like"}]}]`, ErrUnknownOperator},
		{"missing id", `[{"actions": [{"type": "skip"}]}]`, ErrInvalidRule},
		{"in without array", `[{"id": "a", "conditions": [{"field": "x", "operator": "in", "value": "y"}]}]`, ErrInvalidRule},
		{"bad logic", `[{"id": "a", "logic": "XOR"}]`, ErrInvalidRule},
		{"missing field", `[{"id": "a", "actions": [{"type": "set_field"}]}]`, ErrInvalidRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRules([]byte(tt.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}
}

func TestValidate_DepthLimit(t *testing.T) {
	g := &ConditionGroup{Logic: LogicAnd}
	for i := 0; i < MaxGroupDepth; i++ {
		g = &ConditionGroup{Logic: LogicAnd, Conditions: []Node{g}}
	}
	err := Validate(Rule{ID: "deep", ConditionGroup: *g})
	assert.ErrorIs(t, err, ErrInvalidRule)
	assert.ErrorContains(t, err, "nested deeper")
}
