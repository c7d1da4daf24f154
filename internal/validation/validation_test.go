package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-generator/internal/ads"
	"campaign-generator/internal/platform"
	"campaign-generator/internal/row"
)

func TestRowValidator(t *testing.T) {
	v, err := NewRowValidator([]FieldRule{
		{Field: "name", Required: true, Type: TypeString, MaxLength: 10},
		{Field: "price", Type: TypeNumber},
		{Field: "url", Type: TypeURL},
		{Field: "contact", Type: TypeEmail},
		{Field: "sku", Pattern: `^[A-Z]{2}-\d+$`},
		{Field: "active", Type: TypeBoolean},
		{Field: "code", MinLength: 3},
		{Field: "qty", Custom: func(v any, _ row.Row) string {
			if n, _ := row.Number(v); n < 0 {
				return "quantity must not be negative"
			}
			return ""
		}},
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		in        row.Row
		wantCodes map[string]Code
	}{
		{"valid", row.Row{"name": "Air", "price": "12.5", "url": "https://nike.com/air", "contact": "a@b.co", "sku": "AM-1", "active": "true", "code": "abc", "qty": 2}, map[string]Code{}},
		{"missing required", row.Row{}, map[string]Code{"name": CodeRequired}},
		{"empty required", row.Row{"name": ""}, map[string]Code{"name": CodeRequired}},
		{"wrong type", row.Row{"name": 5}, map[string]Code{"name": CodeInvalidType}},
		{"too long", row.Row{"name": strings.Repeat("x", 11)}, map[string]Code{"name": CodeFieldTooLong}},
		{"bad number", row.Row{"name": "a", "price": "cheap"}, map[string]Code{"price": CodeInvalidType}},
		{"bad url", row.Row{"name": "a", "url": "ftp://x"}, map[string]Code{"url": CodeInvalidType}},
		{"bad email", row.Row{"name": "a", "contact": "nope"}, map[string]Code{"contact": CodeInvalidType}},
		{"pattern", row.Row{"name": "a", "sku": "am-1"}, map[string]Code{"sku": CodeInvalidFormat}},
		{"bool", row.Row{"name": "a", "active": "maybe"}, map[string]Code{"active": CodeInvalidType}},
		{"too short", row.Row{"name": "a", "code": "ab"}, map[string]Code{"code": CodeFieldTooShort}},
		{"custom", row.Row{"name": "a", "qty": -1}, map[string]Code{"qty": CodeCustom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateRow(tt.in, 7)
			got := map[string]Code{}
			for _, e := range errs {
				got[e.Field] = e.Code
				assert.Equal(t, EntityRow, e.EntityType)
				assert.Equal(t, "7", e.EntityID)
			}
			assert.Equal(t, tt.wantCodes, got)
		})
	}
}

func TestRowValidator_ValidateRows(t *testing.T) {
	v, err := NewRowValidator([]FieldRule{{Field: "name", Required: true}})
	require.NoError(t, err)

	rep := v.ValidateRows([]row.Row{{"name": "a"}, {}, {"name": "b"}, {"name": ""}})
	assert.Equal(t, 2, rep.ValidRows)
	assert.Equal(t, []int{1, 3}, rep.InvalidRows)
	assert.Len(t, rep.Errors, 2)
}

func TestNewRowValidator_Errors(t *testing.T) {
	_, err := NewRowValidator([]FieldRule{{Field: "x", Pattern: "("}})
	assert.ErrorContains(t, err, "invalid pattern")

	_, err = NewRowValidator([]FieldRule{{Pattern: "x"}})
	assert.ErrorContains(t, err, "field name is required")

	_, err = NewRowValidator([]FieldRule{{Field: "x", MinLength: 5, MaxLength: 2}})
	assert.ErrorContains(t, err, "exceeds max length")
}

func TestAdValidator_Reddit(t *testing.T) {
	v := NewAdValidator(nil)
	valid := ads.Ad{ID: "ad-1", Headline: "Fresh kicks", Description: "Buy now", FinalURL: "https://nike.com", DisplayURL: "nike.com", CallToAction: "shop now"}
	assert.Empty(t, v.Validate(valid, platform.Reddit))

	long := valid
	long.Headline = strings.Repeat("A", 150)
	long.DisplayURL = "https://a-very-long-display-domain.example.com"
	long.CallToAction = "Buy It"
	long.FinalURL = "not a url"

	errs := v.Validate(long, platform.Reddit)
	codes := map[string]Code{}
	for _, e := range errs {
		codes[e.Field+"/"+string(e.Code)] = e.Code
	}
	assert.Contains(t, codes, "headline/FIELD_TOO_LONG")
	assert.Contains(t, codes, "displayUrl/FIELD_TOO_LONG")
	assert.Contains(t, codes, "displayUrl/INVALID_FORMAT")
	assert.Contains(t, codes, "callToAction/INVALID_CALL_TO_ACTION")
	assert.Contains(t, codes, "finalUrl/INVALID_URL")

	tooLong := FilterByCode(errs, CodeFieldTooLong)
	require.Len(t, tooLong, 2)
	assert.Equal(t, long.Headline, tooLong[0].Value)
	assert.Equal(t, "at most 100 characters", tooLong[0].Expected)
	assert.Equal(t, "ad-1", tooLong[0].EntityID)

	missing := v.Validate(ads.Ad{ID: "x"}, platform.Reddit)
	assert.Len(t, FilterByCode(missing, CodeRequired), 2)
}

func TestAdValidator_Google(t *testing.T) {
	v := NewAdValidator(platform.DefaultLimits())
	errs := v.Validate(ads.Ad{ID: "g", Headline: strings.Repeat("h", 31), Description: strings.Repeat("d", 90)}, platform.Google)
	require.Len(t, errs, 1)
	assert.Equal(t, ads.FieldHeadline, errs[0].Field)
	assert.Equal(t, CodeFieldTooLong, errs[0].Code)

	errs = v.Validate(ads.Ad{ID: "g", Headline: "h", FinalURL: "nope"}, platform.Google)
	assert.Len(t, errs, 2)
}

func TestAdValidator_CountsRunesNotBytes(t *testing.T) {
	v := NewAdValidator(nil)
	ad := ads.Ad{ID: "r", Headline: strings.Repeat("é", 30), Description: "d"}
	assert.Empty(t, FilterByCode(v.Validate(ad, platform.Google), CodeFieldTooLong))
}

func TestValidateCampaigns(t *testing.T) {
	v := NewAdValidator(nil)
	campaigns := []ads.Campaign{{AdGroups: []ads.AdGroup{{Ads: []ads.Ad{
		{ID: "ok", Headline: "h", Description: "d"},
		{ID: "bad", Headline: strings.Repeat("h", 40), Description: "d"},
	}}}}}
	got := v.ValidateCampaigns(campaigns, platform.Google)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "bad")
}

func TestError_Error(t *testing.T) {
	e := Error{EntityType: EntityAd, EntityID: "1", Field: "headline", Message: "too long"}
	assert.Equal(t, "ad 1: headline: too long", e.Error())
}
