package transform

import (
	"strings"

	"campaign-generator/internal/row"
	"campaign-generator/internal/rules"
)

// aggregate computes one function over a group. Missing and null source
// values are skipped by every function except COUNT, COUNT_IF and COLLECT;
// COLLECT keeps them as nil so its array lines up with the group's rows.
func aggregate(a Aggregation, rows []row.Row) any {
	switch a.Function {
	case Count:
		if a.Options.Distinct && a.SourceField != "" {
			return distinctCount(a.SourceField, rows)
		}
		return len(rows)

	case CountIf:
		if a.Options.Condition == nil {
			return 0
		}
		n := 0
		for _, r := range rows {
			if rules.EvaluateCondition(*a.Options.Condition, r) {
				n++
			}
		}
		return n

	case DistinctCount:
		return distinctCount(a.SourceField, rows)

	case Sum, Avg:
		sum, n := 0.0, 0
		for _, v := range values(a.SourceField, rows) {
			if f, ok := row.Number(v); ok {
				sum += f
				n++
			}
		}
		if a.Function == Sum {
			return sum
		}
		if n == 0 {
			return nil
		}
		return sum / float64(n)

	case Min, Max:
		var best any
		for _, v := range values(a.SourceField, rows) {
			if best == nil {
				best = v
				continue
			}
			c := compareValues(v, best)
			if (a.Function == Min && c < 0) || (a.Function == Max && c > 0) {
				best = v
			}
		}
		return best

	case First:
		vs := values(a.SourceField, rows)
		if len(vs) == 0 {
			return nil
		}
		return vs[0]

	case Last:
		vs := values(a.SourceField, rows)
		if len(vs) == 0 {
			return nil
		}
		return vs[len(vs)-1]

	case Concat:
		sep := DefaultSeparator
		if a.Options.Separator != nil {
			sep = *a.Options.Separator
		}
		vs := values(a.SourceField, rows)
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = row.String(v)
		}
		return strings.Join(parts, sep)

	case Collect:
		vs := []any{}
		if a.SourceField == "" {
			return vs
		}
		for _, r := range rows {
			if a.Options.Limit > 0 && len(vs) == a.Options.Limit {
				break
			}
			v, _ := r.Get(a.SourceField)
			vs = append(vs, v)
		}
		return vs
	}
	return nil
}

// values returns the non-null values of field in row order.
func values(field string, rows []row.Row) []any {
	out := []any{}
	if field == "" {
		return out
	}
	for _, r := range rows {
		if v, ok := r.Get(field); ok && v != nil {
			out = append(out, v)
		}
	}
	return out
}

func distinctCount(field string, rows []row.Row) int {
	seen := map[string]struct{}{}
	for _, v := range values(field, rows) {
		seen[row.String(v)] = struct{}{}
	}
	return len(seen)
}
