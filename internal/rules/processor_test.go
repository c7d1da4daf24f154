package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-generator/internal/row"
)

func TestProcessDataset_SkipEmptyName(t *testing.T) {
	rules, err := DecodeRules([]byte(`[{
		"id": "skip-empty",
		"conditions": [{"field": "name", "operator": "is_empty"}],
		"actions": [{"type": "skip"}]
	}]`))
	require.NoError(t, err)

	out, err := ProcessDataset(rules, []row.Row{{"name": ""}, {"name": "Air"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].ShouldSkip)
	assert.Equal(t, []string{"skip-empty"}, out[0].AppliedRuleIDs)
	assert.False(t, out[1].ShouldSkip)
	assert.Empty(t, out[1].AppliedRuleIDs)
}

func TestProcessDataset_PriorityAndChaining(t *testing.T) {
	always := ConditionGroup{Logic: LogicAnd}
	rules := []Rule{
		{
			ID: "second", Enabled: true, Priority: 10,
			ConditionGroup: ConditionGroup{Logic: LogicAnd, Conditions: []Node{
				&Condition{Field: "tier", Operator: OpEquals, Value: "premium"},
			}},
			Actions: []Action{ModifyFieldAction{Field: "headline", Operation: ModifyAppend, Value: " (premium)"}},
		},
		{
			ID: "first", Enabled: true, Priority: 1,
			ConditionGroup: always,
			Actions: []Action{
				SetFieldAction{Field: "headline", Value: "{product}"},
				SetFieldAction{Field: "tier", Value: "premium"},
			},
		},
		{
			ID: "disabled", Enabled: false, Priority: 0,
			ConditionGroup: always,
			Actions:        []Action{SkipAction{}},
		},
		{
			ID: "tie", Enabled: true, Priority: 10,
			ConditionGroup: always,
			Actions:        []Action{AddTagAction{Tag: "seen"}},
		},
	}

	in := row.Row{"product": "Air Max"}
	out, err := ProcessDataset(rules, []row.Row{in})
	require.NoError(t, err)
	require.Len(t, out, 1)

	o := out[0]
	assert.Equal(t, []string{"first", "second", "tie"}, o.AppliedRuleIDs)
	assert.Equal(t, "Air Max (premium)", o.ModifiedRow["headline"])
	assert.Equal(t, []string{"seen"}, o.Tags)
	assert.False(t, o.ShouldSkip)
	assert.Equal(t, row.Row{"product": "Air Max"}, o.OriginalRow)
	assert.NotContains(t, in, "headline")
}

func TestProcessDataset_SkipIsSticky(t *testing.T) {
	rules := []Rule{
		{ID: "a", Enabled: true, Priority: 1, Actions: []Action{SkipAction{}}},
		{ID: "b", Enabled: true, Priority: 2, Actions: []Action{SetFieldAction{Field: "x", Value: 1}}},
	}
	out, err := ProcessDataset(rules, []row.Row{{}})
	require.NoError(t, err)
	assert.True(t, out[0].ShouldSkip)
	assert.Equal(t, []string{"a", "b"}, out[0].AppliedRuleIDs)
}

func TestProcessDataset_CollectsFailures(t *testing.T) {
	rules := []Rule{{
		ID: "bad-regex", Enabled: true,
		Actions: []Action{ModifyFieldAction{Field: "f", Operation: ModifyReplace, Pattern: "(x|xy)*", Value: ""}},
	}}
	out, err := ProcessDataset(rules, []row.Row{{"f": "xy"}})
	require.NoError(t, err)
	require.Len(t, out[0].Failures, 1)
	assert.Equal(t, "bad-regex", out[0].Failures[0].RuleID)
	assert.Equal(t, "xy", out[0].ModifiedRow["f"])
}

func TestSummarize(t *testing.T) {
	rules := []Rule{
		{ID: "skip-nike", Enabled: true, ConditionGroup: ConditionGroup{Conditions: []Node{
			&Condition{Field: "brand", Operator: OpEquals, Value: "Nike"},
		}}, Actions: []Action{SkipAction{}}},
		{ID: "tag-adidas", Enabled: true, ConditionGroup: ConditionGroup{Conditions: []Node{
			&Condition{Field: "brand", Operator: OpEquals, Value: "Adidas"},
		}}, Actions: []Action{SetFieldAction{Field: "sale", Value: true}}},
	}

	cache, err := NewRegexCache(16)
	require.NoError(t, err)
	defer cache.Close()

	out, err := NewProcessor(cache).ProcessDataset(rules, []row.Row{
		{"brand": "Nike"}, {"brand": "Adidas"}, {"brand": "Puma"},
	})
	require.NoError(t, err)

	s := Summarize(out)
	assert.Equal(t, DatasetSummary{
		TotalRows:    3,
		SkippedRows:  1,
		ModifiedRows: 1,
		RuleMatches:  map[string]int{"skip-nike": 1, "tag-adidas": 1},
	}, s)
}
