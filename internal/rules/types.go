// Package rules evaluates condition trees against rows and applies the
// actions of matching rules.
//
// A rule pairs a ConditionGroup with an ordered list of actions. Groups nest
// to any depth up to MaxGroupDepth; actions form a closed set of types so
// every switch over them is exhaustive.
package rules

type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpGreaterThan        Operator = "greater_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThan           Operator = "less_than"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpRegex              Operator = "regex"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
)

var knownOperators = map[Operator]struct{}{
	OpEquals: {}, OpNotEquals: {}, OpContains: {}, OpNotContains: {},
	OpStartsWith: {}, OpEndsWith: {}, OpGreaterThan: {}, OpGreaterThanOrEqual: {},
	OpLessThan: {}, OpLessThanOrEqual: {}, OpRegex: {}, OpIn: {}, OpNotIn: {},
	OpIsEmpty: {}, OpIsNotEmpty: {},
}

// MaxGroupDepth bounds condition-group nesting. Deeper groups never match.
const MaxGroupDepth = 32

// Node is either a *Condition or a *ConditionGroup.
type Node interface {
	node()
}

// Condition compares one row field with Value.
type Condition struct {
	ID       string   `json:"id"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// ConditionGroup combines child nodes with AND or OR.
type ConditionGroup struct {
	ID         string `json:"id"`
	Logic      Logic  `json:"logic"`
	Conditions []Node `json:"conditions"`
}

func (*Condition) node()      {}
func (*ConditionGroup) node() {}

// Rule is evaluated in ascending Priority order; lower numbers run first.
type Rule struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Enabled        bool           `json:"enabled"`
	Priority       int            `json:"priority"`
	ConditionGroup ConditionGroup `json:"conditionGroup"`
	Actions        []Action       `json:"actions"`
}

type ActionType string

const (
	ActionSkip         ActionType = "skip"
	ActionSetField     ActionType = "set_field"
	ActionModifyField  ActionType = "modify_field"
	ActionAddToGroup   ActionType = "add_to_group"
	ActionSetTargeting ActionType = "set_targeting"
	ActionAddTag       ActionType = "add_tag"
)

// Action is implemented only by the action types of this package.
type Action interface {
	Type() ActionType
	sealed()
}

// SkipAction excludes the row from the output.
type SkipAction struct{}

// SetFieldAction assigns Value to Field. String values may reference other
// fields with {name}.
type SetFieldAction struct {
	Field string
	Value any
}

type ModifyOperation string

const (
	ModifyReplace   ModifyOperation = "replace"
	ModifyAppend    ModifyOperation = "append"
	ModifyPrepend   ModifyOperation = "prepend"
	ModifyUppercase ModifyOperation = "uppercase"
	ModifyLowercase ModifyOperation = "lowercase"
	ModifyTrim      ModifyOperation = "trim"
)

// ModifyFieldAction transforms the string form of Field. A replace with a
// Pattern substitutes regex matches with Value; without one it replaces the
// whole value.
type ModifyFieldAction struct {
	Field     string
	Operation ModifyOperation
	Pattern   string
	Value     string
}

type AddToGroupAction struct {
	Group string
}

type SetTargetingAction struct {
	Key   string
	Value any
}

type AddTagAction struct {
	Tag string
}

func (SkipAction) Type() ActionType         { return ActionSkip }
func (SetFieldAction) Type() ActionType     { return ActionSetField }
func (ModifyFieldAction) Type() ActionType  { return ActionModifyField }
func (AddToGroupAction) Type() ActionType   { return ActionAddToGroup }
func (SetTargetingAction) Type() ActionType { return ActionSetTargeting }
func (AddTagAction) Type() ActionType       { return ActionAddTag }

func (SkipAction) sealed()         {}
func (SetFieldAction) sealed()     {}
func (ModifyFieldAction) sealed()  {}
func (AddToGroupAction) sealed()   {}
func (SetTargetingAction) sealed() {}
func (AddTagAction) sealed()       {}
