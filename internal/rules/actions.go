package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"campaign-generator/internal/row"
)

var ErrUnknownAction = errors.New("unknown action type")

// ActionResult reports the outcome of one action.
type ActionResult struct {
	Type    ActionType `json:"type"`
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
}

// ExecutionResult is the folded outcome of a list of actions on one row.
type ExecutionResult struct {
	Row        row.Row        `json:"row"`
	ShouldSkip bool           `json:"shouldSkip"`
	Groups     []string       `json:"groups,omitempty"`
	Targeting  map[string]any `json:"targeting,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Results    []ActionResult `json:"results"`
}

// Executor applies actions to rows. The zero value is ready to use.
type Executor struct {
	Regexes *RegexCache
}

var fieldRefRe = regexp.MustCompile(`\{([^{}]+)\}`)

// interpolate replaces {field} references with the row's values in a single
// pass. Missing fields render as the empty string.
func interpolate(s string, r row.Row) string {
	return interpolateWith(s, r, nil)
}

// replacementTemplate interpolates s for use as a regexp replacement. Field
// values are escaped so a "$" in row data stays literal; $1 written in s
// itself still expands. ${1} does not, since {1} is read as a field.
func replacementTemplate(s string, r row.Row) string {
	return interpolateWith(s, r, func(v string) string { return strings.ReplaceAll(v, "$", "$$") })
}

func interpolateWith(s string, r row.Row, escape func(string) string) string {
	if !strings.Contains(s, "{") {
		return s
	}
	return fieldRefRe.ReplaceAllStringFunc(s, func(tok string) string {
		name := strings.TrimSpace(tok[1 : len(tok)-1])
		v, ok := r.Get(name)
		if !ok {
			return ""
		}
		if escape != nil {
			return escape(row.String(v))
		}
		return row.String(v)
	})
}

// ExecuteAll applies actions left to right. Each action sees the row as left
// by the previous one; r itself is never modified. A skip action sets
// ShouldSkip without stopping the remaining actions.
func (e Executor) ExecuteAll(actions []Action, r row.Row) (ExecutionResult, error) {
	res := ExecutionResult{
		Row:     r.Clone(),
		Results: make([]ActionResult, 0, len(actions)),
	}
	for i, a := range actions {
		if a == nil {
			return res, fmt.Errorf("action %d: %w", i, ErrUnknownAction)
		}
		res.Results = append(res.Results, e.apply(a, &res))
	}
	return res, nil
}

func (e Executor) apply(a Action, res *ExecutionResult) ActionResult {
	out := ActionResult{Type: a.Type(), Success: true}

	switch act := a.(type) {
	case SkipAction:
		res.ShouldSkip = true

	case SetFieldAction:
		if act.Field == "" {
			return fail(out, "set_field requires a field")
		}
		v := act.Value
		if s, ok := v.(string); ok {
			v = interpolate(s, res.Row)
		}
		res.Row.Set(act.Field, v)

	case ModifyFieldAction:
		if act.Field == "" {
			return fail(out, "modify_field requires a field")
		}
		cur := ""
		if v, ok := res.Row.Get(act.Field); ok {
			cur = row.String(v)
		}
		next, err := e.modify(act, cur, res.Row)
		if err != nil {
			return fail(out, err.Error())
		}
		res.Row.Set(act.Field, next)

	case AddToGroupAction:
		if act.Group == "" {
			return fail(out, "add_to_group requires a group")
		}
		res.Groups = appendUnique(res.Groups, interpolate(act.Group, res.Row))

	case SetTargetingAction:
		if act.Key == "" {
			return fail(out, "set_targeting requires a key")
		}
		if res.Targeting == nil {
			res.Targeting = make(map[string]any)
		}
		v := act.Value
		if s, ok := v.(string); ok {
			v = interpolate(s, res.Row)
		}
		res.Targeting[act.Key] = v

	case AddTagAction:
		if act.Tag == "" {
			return fail(out, "add_tag requires a tag")
		}
		res.Tags = appendUnique(res.Tags, interpolate(act.Tag, res.Row))

	default:
		return fail(out, fmt.Sprintf("%s: %T", ErrUnknownAction, a))
	}
	return out
}

func (e Executor) modify(act ModifyFieldAction, cur string, r row.Row) (string, error) {
	switch act.Operation {
	case ModifyReplace:
		if act.Pattern == "" {
			return interpolate(act.Value, r), nil
		}
		re, err := e.Regexes.Compile(act.Pattern)
		if err != nil {
			return "", err
		}
		return re.ReplaceAllString(cur, replacementTemplate(act.Value, r)), nil
	case ModifyAppend:
		return cur + interpolate(act.Value, r), nil
	case ModifyPrepend:
		return interpolate(act.Value, r) + cur, nil
	case ModifyUppercase:
		return strings.ToUpper(cur), nil
	case ModifyLowercase:
		return strings.ToLower(cur), nil
	case ModifyTrim:
		return strings.TrimSpace(cur), nil
	}
	return "", fmt.Errorf("unknown modify operation %q", act.Operation)
}

func fail(r ActionResult, msg string) ActionResult {
	r.Success = false
	r.Error = msg
	return r
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
