package grouping

import "campaign-generator/internal/row"

// AdMapping maps ad fields to patterns. Headline and Description are always
// rendered; the URL and call-to-action fields only when non-empty.
type AdMapping struct {
	Headline     string `json:"headline"`
	Description  string `json:"description"`
	DisplayURL   string `json:"displayUrl,omitempty"`
	FinalURL     string `json:"finalUrl,omitempty"`
	CallToAction string `json:"callToAction,omitempty"`
}

// Config describes how rows become campaigns, ad groups and ads.
type Config struct {
	CampaignNamePattern string    `json:"campaignNamePattern"`
	AdGroupNamePattern  string    `json:"adGroupNamePattern"`
	AdMapping           AdMapping `json:"adMapping"`
}

type WarningType string

const (
	WarningMissingVariable WarningType = "missing_variable"
	WarningEmptyValue      WarningType = "empty_value"
	WarningDuplicateAd     WarningType = "duplicate_ad"
)

// Warning is a non-fatal data-quality finding. RowIndex is the row's position
// in the input slice.
type Warning struct {
	Type         WarningType `json:"type"`
	Message      string      `json:"message"`
	RowIndex     *int        `json:"rowIndex,omitempty"`
	VariableName string      `json:"variableName,omitempty"`
}

// GroupedAd is the ad generated from exactly one source row.
type GroupedAd struct {
	Headline     string  `json:"headline"`
	Description  string  `json:"description"`
	DisplayURL   string  `json:"displayUrl,omitempty"`
	FinalURL     string  `json:"finalUrl,omitempty"`
	CallToAction string  `json:"callToAction,omitempty"`
	RowIndex     int     `json:"rowIndex"`
	SourceRow    row.Row `json:"sourceRow"`
}

type GroupedAdGroup struct {
	Name        string      `json:"name"`
	GroupingKey string      `json:"groupingKey"`
	Ads         []GroupedAd `json:"ads"`
}

type GroupedCampaign struct {
	Name        string           `json:"name"`
	GroupingKey string           `json:"groupingKey"`
	AdGroups    []GroupedAdGroup `json:"adGroups"`
}

type Stats struct {
	TotalRows                int `json:"totalRows"`
	TotalCampaigns           int `json:"totalCampaigns"`
	TotalAdGroups            int `json:"totalAdGroups"`
	TotalAds                 int `json:"totalAds"`
	RowsWithMissingVariables int `json:"rowsWithMissingVariables"`
}

type Result struct {
	Campaigns []GroupedCampaign `json:"campaigns"`
	Warnings  []Warning         `json:"warnings"`
	Stats     Stats             `json:"stats"`
}
