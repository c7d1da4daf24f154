// Package validation checks rows and generated ads against content rules.
//
// Findings are returned as values; nothing in this package fails a run. Only
// CodeFieldTooLong is acted upon by the fallback engine, every other code is
// passed through to platform sync unchanged.
package validation

import "fmt"

type Code string

const (
	CodeRequired      Code = "REQUIRED_FIELD"
	CodeFieldTooLong  Code = "FIELD_TOO_LONG"
	CodeFieldTooShort Code = "FIELD_TOO_SHORT"
	CodeInvalidType   Code = "INVALID_TYPE"
	CodeInvalidURL    Code = "INVALID_URL"
	CodeInvalidFormat Code = "INVALID_FORMAT"
	CodeInvalidCTA    Code = "INVALID_CALL_TO_ACTION"
	CodeCustom        Code = "CUSTOM_VALIDATION"
)

type EntityType string

const (
	EntityRow      EntityType = "row"
	EntityCampaign EntityType = "campaign"
	EntityAdGroup  EntityType = "ad_group"
	EntityAd       EntityType = "ad"
)

// Error describes one failed check. Value holds the offending content and
// Expected the constraint, e.g. "at most 100 characters".
type Error struct {
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	EntityName string     `json:"entityName"`
	Field      string     `json:"field"`
	Message    string     `json:"message"`
	Code       Code       `json:"code"`
	Value      string     `json:"value,omitempty"`
	Expected   string     `json:"expected,omitempty"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %s", e.EntityType, e.EntityID, e.Field, e.Message)
}

// ExpectedMaxLength formats the Expected text of a length error.
func ExpectedMaxLength(limit int) string {
	return fmt.Sprintf("at most %d characters", limit)
}

// FilterByCode returns the errors carrying code, preserving order.
func FilterByCode(errs []Error, code Code) []Error {
	out := []Error{}
	for _, e := range errs {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}
