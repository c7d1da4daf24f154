// Package ads holds the platform-sync domain objects built from a grouping
// result.
package ads

import (
	"time"

	"campaign-generator/internal/row"
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusPaused Status = "PAUSED"
	StatusDraft  Status = "DRAFT"
)

// Ad is one creative handed to platform sync. Engines that change content
// return a modified copy; an Ad value is never edited in place.
type Ad struct {
	ID           string    `json:"id"`
	AdGroupID    string    `json:"adGroupId"`
	Headline     string    `json:"headline,omitempty"`
	Description  string    `json:"description,omitempty"`
	DisplayURL   string    `json:"displayUrl,omitempty"`
	FinalURL     string    `json:"finalUrl,omitempty"`
	CallToAction string    `json:"callToAction,omitempty"`
	Status       Status    `json:"status"`
	OrderIndex   int       `json:"orderIndex"`
	SourceRow    row.Row   `json:"sourceRow,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Field returns the content of a named ad field.
func (a Ad) Field(name string) (string, bool) {
	switch name {
	case FieldHeadline:
		return a.Headline, true
	case FieldDescription:
		return a.Description, true
	case FieldDisplayURL:
		return a.DisplayURL, true
	case FieldFinalURL:
		return a.FinalURL, true
	case FieldCallToAction:
		return a.CallToAction, true
	}
	return "", false
}

// WithField returns a copy of a with the named field set.
func (a Ad) WithField(name, value string) Ad {
	switch name {
	case FieldHeadline:
		a.Headline = value
	case FieldDescription:
		a.Description = value
	case FieldDisplayURL:
		a.DisplayURL = value
	case FieldFinalURL:
		a.FinalURL = value
	case FieldCallToAction:
		a.CallToAction = value
	}
	return a
}

// Ad content field names, as used in validation errors.
const (
	FieldHeadline     = "headline"
	FieldDescription  = "description"
	FieldDisplayURL   = "displayUrl"
	FieldFinalURL     = "finalUrl"
	FieldCallToAction = "callToAction"
)

type AdGroup struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaignId"`
	Name        string    `json:"name"`
	GroupingKey string    `json:"groupingKey"`
	Status      Status    `json:"status"`
	OrderIndex  int       `json:"orderIndex"`
	Ads         []Ad      `json:"ads"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Campaign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	GroupingKey string    `json:"groupingKey"`
	Platform    string    `json:"platform"`
	Status      Status    `json:"status"`
	AdGroups    []AdGroup `json:"adGroups"`
	CreatedAt   time.Time `json:"createdAt"`
}
