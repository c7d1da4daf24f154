package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	"campaign-generator/internal/row"
)

type FieldType string

const (
	TypeAny     FieldType = ""
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeURL     FieldType = "url"
	TypeEmail   FieldType = "email"
)

// FieldRule is the set of checks applied to one column of every row.
type FieldRule struct {
	Field     string
	Required  bool
	Type      FieldType
	MinLength int
	MaxLength int
	Pattern   string
	// Custom returns a non-empty message when value is invalid.
	Custom func(value any, r row.Row) string
}

// RowValidator applies a fixed list of field rules. Build it with
// NewRowValidator so patterns are compiled once.
type RowValidator struct {
	rules    []FieldRule
	patterns []*regexp.Regexp
}

func NewRowValidator(rules []FieldRule) (*RowValidator, error) {
	v := &RowValidator{rules: rules, patterns: make([]*regexp.Regexp, len(rules))}
	for i, r := range rules {
		if r.Field == "" {
			return nil, fmt.Errorf("rule %d: field name is required", i)
		}
		if r.MaxLength > 0 && r.MinLength > r.MaxLength {
			return nil, fmt.Errorf("rule %d (%s): min length %d exceeds max length %d", i, r.Field, r.MinLength, r.MaxLength)
		}
		if r.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): invalid pattern: %w", i, r.Field, err)
		}
		v.patterns[i] = re
	}
	return v, nil
}

// Report summarizes a ValidateRows pass.
type Report struct {
	Errors      []Error `json:"errors"`
	ValidRows   int     `json:"validRows"`
	InvalidRows []int   `json:"invalidRows"`
}

// ValidateRows checks every row; rows are identified by index.
func (v *RowValidator) ValidateRows(rows []row.Row) Report {
	rep := Report{Errors: []Error{}, InvalidRows: []int{}}
	for i, r := range rows {
		errs := v.ValidateRow(r, i)
		if len(errs) == 0 {
			rep.ValidRows++
			continue
		}
		rep.InvalidRows = append(rep.InvalidRows, i)
		rep.Errors = append(rep.Errors, errs...)
	}
	return rep
}

// ValidateRow checks a single row. The first failing check of a field is
// reported; later checks of that field are skipped.
func (v *RowValidator) ValidateRow(r row.Row, index int) []Error {
	var errs []Error
	id := strconv.Itoa(index)
	for i, rule := range v.rules {
		val, ok := r.Get(rule.Field)
		mk := func(code Code, msg, expected string) Error {
			return Error{
				EntityType: EntityRow,
				EntityID:   id,
				EntityName: fmt.Sprintf("row %d", index),
				Field:      rule.Field,
				Message:    msg,
				Code:       code,
				Value:      row.String(val),
				Expected:   expected,
			}
		}

		if !ok || row.IsEmpty(val) {
			if rule.Required {
				errs = append(errs, mk(CodeRequired, "field is required", "a value"))
			}
			continue
		}
		if e, bad := checkType(rule.Type, val); bad {
			errs = append(errs, mk(CodeInvalidType, e, string(rule.Type)))
			continue
		}

		s := row.String(val)
		n := utf8.RuneCountInString(s)
		if rule.MaxLength > 0 && n > rule.MaxLength {
			errs = append(errs, mk(CodeFieldTooLong,
				fmt.Sprintf("length %d exceeds maximum of %d", n, rule.MaxLength),
				ExpectedMaxLength(rule.MaxLength)))
			continue
		}
		if rule.MinLength > 0 && n < rule.MinLength {
			errs = append(errs, mk(CodeFieldTooShort,
				fmt.Sprintf("length %d is below minimum of %d", n, rule.MinLength),
				fmt.Sprintf("at least %d characters", rule.MinLength)))
			continue
		}
		if re := v.patterns[i]; re != nil && !re.MatchString(s) {
			errs = append(errs, mk(CodeInvalidFormat, "value does not match pattern", rule.Pattern))
			continue
		}
		if rule.Custom != nil {
			if msg := rule.Custom(val, r); msg != "" {
				errs = append(errs, mk(CodeCustom, msg, ""))
			}
		}
	}
	return errs
}

func checkType(t FieldType, v any) (string, bool) {
	switch t {
	case TypeAny:
		return "", false
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Sprintf("expected string, got %T", v), true
		}
	case TypeNumber:
		if _, ok := row.Number(v); !ok {
			return "expected a number", true
		}
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
		case string:
			if _, err := strconv.ParseBool(strings.TrimSpace(b)); err != nil {
				return "expected a boolean", true
			}
		default:
			return "expected a boolean", true
		}
	case TypeURL:
		if !IsHTTPURL(row.String(v)) {
			return "expected an http(s) URL", true
		}
	case TypeEmail:
		if !govalidator.IsEmail(row.String(v)) {
			return "expected an email address", true
		}
	default:
		return fmt.Sprintf("unknown type %q", t), true
	}
	return "", false
}

// IsHTTPURL reports whether s is an absolute http or https URL.
func IsHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	return govalidator.IsURL(s)
}
