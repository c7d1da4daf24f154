package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"campaign-generator/internal/ads"
	"campaign-generator/internal/platform"
)

// RedditCallToActions are the call-to-action labels the Reddit Ads API
// accepts.
var RedditCallToActions = []string{
	"Apply Now", "Book Now", "Contact Us", "Download", "Get a Quote",
	"Get Showtimes", "Install", "Learn More", "Order Now", "Play Now",
	"See Menu", "Shop Now", "Sign Up", "View More", "Watch Now",
}

var contentFields = []string{
	ads.FieldHeadline, ads.FieldDescription, ads.FieldDisplayURL, ads.FieldFinalURL, ads.FieldCallToAction,
}

// AdValidator checks generated ads against platform rules. Length limits come
// from the same table the fallback engine truncates with.
type AdValidator struct {
	limits platform.LimitTable
}

func NewAdValidator(limits platform.LimitTable) *AdValidator {
	if limits == nil {
		limits = platform.DefaultLimits()
	}
	return &AdValidator{limits: limits}
}

// Validate returns every problem found on ad for platform p.
func (v *AdValidator) Validate(ad ads.Ad, p platform.Platform) []Error {
	errs := v.lengthErrors(ad, p)
	switch p {
	case platform.Reddit:
		errs = append(errs, redditRules(ad)...)
	case platform.Google:
		errs = append(errs, googleRules(ad)...)
	}
	return errs
}

// ValidateCampaigns validates every ad and returns the findings keyed by ad
// ID. Ads without findings are absent from the map.
func (v *AdValidator) ValidateCampaigns(campaigns []ads.Campaign, p platform.Platform) map[string][]Error {
	out := map[string][]Error{}
	for _, c := range campaigns {
		for _, ag := range c.AdGroups {
			for _, ad := range ag.Ads {
				if errs := v.Validate(ad, p); len(errs) > 0 {
					out[ad.ID] = errs
				}
			}
		}
	}
	return out
}

func (v *AdValidator) lengthErrors(ad ads.Ad, p platform.Platform) []Error {
	var errs []Error
	for _, f := range contentFields {
		val, _ := ad.Field(f)
		limit, ok := v.limits.Limit(p, f)
		if !ok || val == "" {
			continue
		}
		if n := utf8.RuneCountInString(val); n > limit.MaxLength {
			errs = append(errs, adError(ad, f, CodeFieldTooLong,
				fmt.Sprintf("%s is %d characters, %s allows %d", f, n, p, limit.MaxLength),
				val, ExpectedMaxLength(limit.MaxLength)))
		}
	}
	return errs
}

func redditRules(ad ads.Ad) []Error {
	var errs []Error
	if strings.TrimSpace(ad.Headline) == "" {
		errs = append(errs, adError(ad, ads.FieldHeadline, CodeRequired, "headline is required", "", "a value"))
	}
	switch {
	case strings.TrimSpace(ad.FinalURL) == "":
		errs = append(errs, adError(ad, ads.FieldFinalURL, CodeRequired, "final URL is required", "", "a value"))
	case !IsHTTPURL(ad.FinalURL):
		errs = append(errs, adError(ad, ads.FieldFinalURL, CodeInvalidURL,
			"final URL must be an absolute http(s) URL", ad.FinalURL, "http(s) URL"))
	}
	if ad.DisplayURL != "" && strings.Contains(ad.DisplayURL, "://") {
		errs = append(errs, adError(ad, ads.FieldDisplayURL, CodeInvalidFormat,
			"display URL must not include a scheme", ad.DisplayURL, "domain without scheme"))
	}
	if ad.CallToAction != "" && !IsRedditCallToAction(ad.CallToAction) {
		errs = append(errs, adError(ad, ads.FieldCallToAction, CodeInvalidCTA,
			fmt.Sprintf("%q is not a Reddit call to action", ad.CallToAction),
			ad.CallToAction, strings.Join(RedditCallToActions, ", ")))
	}
	return errs
}

func googleRules(ad ads.Ad) []Error {
	var errs []Error
	if strings.TrimSpace(ad.Headline) == "" {
		errs = append(errs, adError(ad, ads.FieldHeadline, CodeRequired, "headline is required", "", "a value"))
	}
	if strings.TrimSpace(ad.Description) == "" {
		errs = append(errs, adError(ad, ads.FieldDescription, CodeRequired, "description is required", "", "a value"))
	}
	if ad.FinalURL != "" && !IsHTTPURL(ad.FinalURL) {
		errs = append(errs, adError(ad, ads.FieldFinalURL, CodeInvalidURL,
			"final URL must be an absolute http(s) URL", ad.FinalURL, "http(s) URL"))
	}
	return errs
}

// IsRedditCallToAction matches case-insensitively.
func IsRedditCallToAction(s string) bool {
	for _, c := range RedditCallToActions {
		if strings.EqualFold(c, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func adError(ad ads.Ad, field string, code Code, msg, value, expected string) Error {
	return Error{
		EntityType: EntityAd,
		EntityID:   ad.ID,
		EntityName: ad.Headline,
		Field:      field,
		Message:    msg,
		Code:       code,
		Value:      value,
		Expected:   expected,
	}
}
