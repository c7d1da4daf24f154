package rules

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"

	"campaign-generator/internal/row"
)

// RowOutcome is the result of running every rule against one row.
type RowOutcome struct {
	OriginalRow    row.Row         `json:"originalRow"`
	ModifiedRow    row.Row         `json:"modifiedRow"`
	ShouldSkip     bool            `json:"shouldSkip"`
	AppliedRuleIDs []string        `json:"appliedRuleIds"`
	Groups         []string        `json:"groups,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Targeting      map[string]any  `json:"targeting,omitempty"`
	Failures       []ActionFailure `json:"failures,omitempty"`
}

// ActionFailure is an action that reported Success=false.
type ActionFailure struct {
	RuleID string       `json:"ruleId"`
	Result ActionResult `json:"result"`
}

// Processor runs rule sets over datasets.
type Processor struct {
	eval Evaluator
	exec Executor
}

// NewProcessor returns a Processor sharing regexes between conditions and
// actions. regexes may be nil.
func NewProcessor(regexes *RegexCache) *Processor {
	return &Processor{
		eval: Evaluator{Regexes: regexes},
		exec: Executor{Regexes: regexes},
	}
}

// ProcessDataset runs rules over rows without a regex cache.
func ProcessDataset(rules []Rule, rows []row.Row) ([]RowOutcome, error) {
	return NewProcessor(nil).ProcessDataset(rules, rows)
}

// ProcessDataset evaluates enabled rules in ascending priority order against
// each row. Conditions of later rules see the row as modified by earlier
// ones. Skip is sticky across rules.
func (p *Processor) ProcessDataset(rules []Rule, rows []row.Row) ([]RowOutcome, error) {
	ordered := sortRules(rules)
	out := make([]RowOutcome, 0, len(rows))
	for i, r := range rows {
		o, err := p.processRow(ordered, r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// ProcessRow applies rules to a single row.
func (p *Processor) ProcessRow(rules []Rule, r row.Row) (RowOutcome, error) {
	return p.processRow(sortRules(rules), r)
}

func (p *Processor) processRow(ordered []Rule, r row.Row) (RowOutcome, error) {
	o := RowOutcome{
		OriginalRow:    r,
		ModifiedRow:    r.Clone(),
		AppliedRuleIDs: []string{},
	}
	for _, rule := range ordered {
		if !p.eval.Group(rule.ConditionGroup, o.ModifiedRow) {
			continue
		}
		res, err := p.exec.ExecuteAll(rule.Actions, o.ModifiedRow)
		if err != nil {
			return o, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		o.ModifiedRow = res.Row
		o.ShouldSkip = o.ShouldSkip || res.ShouldSkip
		o.AppliedRuleIDs = append(o.AppliedRuleIDs, rule.ID)
		for _, g := range res.Groups {
			o.Groups = appendUnique(o.Groups, g)
		}
		for _, t := range res.Tags {
			o.Tags = appendUnique(o.Tags, t)
		}
		for k, v := range res.Targeting {
			if o.Targeting == nil {
				o.Targeting = make(map[string]any)
			}
			o.Targeting[k] = v
		}
		for _, ar := range res.Results {
			if !ar.Success {
				o.Failures = append(o.Failures, ActionFailure{RuleID: rule.ID, Result: ar})
			}
		}
	}
	return o, nil
}

// sortRules drops disabled rules and orders the rest by ascending priority,
// keeping input order for ties.
func sortRules(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// DatasetSummary aggregates a ProcessDataset run for reporting.
type DatasetSummary struct {
	TotalRows    int            `json:"totalRows"`
	SkippedRows  int            `json:"skippedRows"`
	ModifiedRows int            `json:"modifiedRows"`
	FailedRows   int            `json:"failedRows"`
	RuleMatches  map[string]int `json:"ruleMatches"`
}

func Summarize(outcomes []RowOutcome) DatasetSummary {
	s := DatasetSummary{TotalRows: len(outcomes), RuleMatches: map[string]int{}}
	for _, o := range outcomes {
		if o.ShouldSkip {
			s.SkippedRows++
		}
		if !cmp.Equal(o.OriginalRow.Clone(), o.ModifiedRow) {
			s.ModifiedRows++
		}
		if len(o.Failures) > 0 {
			s.FailedRows++
		}
		for _, id := range o.AppliedRuleIDs {
			s.RuleMatches[id]++
		}
	}
	return s
}
