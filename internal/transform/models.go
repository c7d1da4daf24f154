// Package transform groups rows by key fields and computes aggregates per
// group, producing one output row per group.
package transform

import (
	"campaign-generator/internal/row"
	"campaign-generator/internal/rules"
)

type Function string

const (
	Count         Function = "COUNT"
	Sum           Function = "SUM"
	Avg           Function = "AVG"
	Min           Function = "MIN"
	Max           Function = "MAX"
	First         Function = "FIRST"
	Last          Function = "LAST"
	Concat        Function = "CONCAT"
	Collect       Function = "COLLECT"
	DistinctCount Function = "DISTINCT_COUNT"
	CountIf       Function = "COUNT_IF"
)

// needsSource lists the functions that read SourceField.
var needsSource = map[Function]bool{
	Sum: true, Avg: true, Min: true, Max: true, First: true, Last: true,
	Concat: true, Collect: true, DistinctCount: true,
}

// DefaultSeparator joins CONCAT values when Options.Separator is nil.
const DefaultSeparator = ", "

type Options struct {
	// Distinct makes COUNT count distinct SourceField values.
	Distinct bool `json:"distinct,omitempty"`
	// Separator for CONCAT.
	Separator *string `json:"separator,omitempty"`
	// Limit caps COLLECT; zero means no cap.
	Limit int `json:"limit,omitempty"`
	// Condition is evaluated per row by COUNT_IF.
	Condition *rules.Condition `json:"condition,omitempty"`
}

type Aggregation struct {
	Function    Function `json:"function"`
	SourceField string   `json:"sourceField,omitempty"`
	OutputField string   `json:"outputField,omitempty"`
	Options     Options  `json:"options"`
}

// Output returns the field the aggregate is written to.
func (a Aggregation) Output() string {
	if a.OutputField != "" {
		return a.OutputField
	}
	if a.SourceField == "" {
		return lower(a.Function)
	}
	return lower(a.Function) + "_" + a.SourceField
}

type SortKey struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

type Config struct {
	GroupBy      []string      `json:"groupBy"`
	Aggregations []Aggregation `json:"aggregations"`
	// Filter drops rows before grouping.
	Filter *rules.Condition `json:"filter,omitempty"`
	// SortBy orders output rows; groups otherwise keep first-seen order.
	SortBy []SortKey `json:"sortBy,omitempty"`
}

type Warning struct {
	Field   string   `json:"field,omitempty"`
	Func    Function `json:"function,omitempty"`
	Message string   `json:"message"`
}

// Group is one output group with its typed key values.
type Group struct {
	Key    string  `json:"key"`
	Values []any   `json:"values"`
	Rows   int     `json:"rows"`
	Output row.Row `json:"output"`
}

type Stats struct {
	InputRows    int `json:"inputRows"`
	FilteredRows int `json:"filteredRows"`
	OutputRows   int `json:"outputRows"`
}

type Result struct {
	Rows     []row.Row `json:"rows"`
	Groups   []Group   `json:"groups"`
	Warnings []Warning `json:"warnings"`
	Stats    Stats     `json:"stats"`
}
