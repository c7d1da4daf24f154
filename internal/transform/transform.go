package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"campaign-generator/internal/row"
	"campaign-generator/internal/rules"
)

var (
	ErrNoAggregations  = errors.New("at least one aggregation is required")
	ErrUnknownFunction = errors.New("unknown aggregation function")
)

// sampleSize is how many leading rows are inspected for missing fields.
const sampleSize = 10

func lower(f Function) string { return strings.ToLower(string(f)) }

type bucket struct {
	key    string
	values []any
	rows   []row.Row
}

// Execute groups rows by cfg.GroupBy and evaluates every aggregation per
// group. Groups appear in the order their first row appears.
func Execute(cfg Config, rows []row.Row) (*Result, error) {
	if len(cfg.Aggregations) == 0 {
		return nil, ErrNoAggregations
	}
	for i, a := range cfg.Aggregations {
		if !known(a.Function) {
			return nil, fmt.Errorf("aggregation %d: %w %q", i, ErrUnknownFunction, a.Function)
		}
	}

	res := &Result{
		Rows:     []row.Row{},
		Groups:   []Group{},
		Warnings: sampleWarnings(cfg, rows),
		Stats:    Stats{InputRows: len(rows)},
	}

	var buckets []*bucket
	index := map[string]int{}
	if len(cfg.GroupBy) == 0 {
		buckets = append(buckets, &bucket{key: "[]", values: []any{}})
		index["[]"] = 0
	}

	for _, r := range rows {
		if cfg.Filter != nil && !rules.EvaluateCondition(*cfg.Filter, r) {
			continue
		}
		res.Stats.FilteredRows++

		values := make([]any, len(cfg.GroupBy))
		for i, f := range cfg.GroupBy {
			v, _ := r.Get(f)
			values[i] = v
		}
		key := groupKey(values)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, &bucket{key: key, values: values})
		}
		buckets[i].rows = append(buckets[i].rows, r)
	}

	for _, b := range buckets {
		out := make(row.Row, len(cfg.GroupBy)+len(cfg.Aggregations))
		for i, f := range cfg.GroupBy {
			out[f] = b.values[i]
		}
		for _, a := range cfg.Aggregations {
			out[a.Output()] = aggregate(a, b.rows)
		}
		res.Groups = append(res.Groups, Group{Key: b.key, Values: b.values, Rows: len(b.rows), Output: out})
	}

	if len(cfg.SortBy) > 0 {
		sortGroups(res.Groups, cfg.SortBy)
	}
	for _, g := range res.Groups {
		res.Rows = append(res.Rows, g.Output)
	}
	res.Stats.OutputRows = len(res.Rows)
	return res, nil
}

func known(f Function) bool {
	switch f {
	case Count, Sum, Avg, Min, Max, First, Last, Concat, Collect, DistinctCount, CountIf:
		return true
	}
	return false
}

// groupKey encodes the values as a JSON array so "a,b" and ("a", "b") never
// collide. Values that cannot be encoded fall back to their string form.
func groupKey(values []any) string {
	b, err := json.Marshal(values)
	if err == nil {
		return string(b)
	}
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = row.String(v)
	}
	b, _ = json.Marshal(strs)
	return string(b)
}

func sampleWarnings(cfg Config, rows []row.Row) []Warning {
	warnings := []Warning{}
	sample := rows
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	seen := map[string]bool{}
	for _, a := range cfg.Aggregations {
		if a.SourceField == "" {
			if needsSource[a.Function] {
				warnings = append(warnings, Warning{Func: a.Function, Message: fmt.Sprintf("%s requires a source field", a.Function)})
			}
			continue
		}
		if seen[a.SourceField] || len(sample) == 0 {
			continue
		}
		seen[a.SourceField] = true
		if !presentIn(sample, a.SourceField) {
			warnings = append(warnings, Warning{
				Field:   a.SourceField,
				Func:    a.Function,
				Message: fmt.Sprintf("field %q not found in the first %d rows", a.SourceField, len(sample)),
			})
		}
	}
	for _, a := range cfg.Aggregations {
		if a.Function == CountIf && a.Options.Condition == nil {
			warnings = append(warnings, Warning{Func: a.Function, Message: "COUNT_IF requires a condition"})
		}
	}
	return warnings
}

func presentIn(rows []row.Row, field string) bool {
	for _, r := range rows {
		if _, ok := r.Get(field); ok {
			return true
		}
	}
	return false
}

func sortGroups(groups []Group, keys []SortKey) {
	sort.SliceStable(groups, func(i, j int) bool {
		for _, k := range keys {
			a, _ := groups[i].Output.Get(k.Field)
			b, _ := groups[j].Output.Get(k.Field)
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if k.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders numerically when both sides are numbers and by string
// form otherwise. nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	an, aok := row.Number(a)
	bn, bok := row.Number(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	return strings.Compare(row.String(a), row.String(b))
}
