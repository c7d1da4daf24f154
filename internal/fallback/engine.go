// Package fallback decides what happens to an ad whose content exceeds a
// platform's character limits: skip it, truncate it, or swap in a fallback
// creative.
package fallback

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"campaign-generator/internal/ads"
	"campaign-generator/internal/platform"
	"campaign-generator/internal/validation"
)

var (
	ErrMissingFallbackAd = errors.New("use_fallback strategy requires a fallback ad")
	ErrUnknownStrategy   = errors.New("unknown fallback strategy")
	ErrInvalidFallbackAd = errors.New("invalid fallback ad")
)

type Strategy string

const (
	StrategySkip        Strategy = "skip"
	StrategyTruncate    Strategy = "truncate"
	StrategyUseFallback Strategy = "use_fallback"
)

type Action string

const (
	ActionSync     Action = "sync"
	ActionSkip     Action = "skip"
	ActionFallback Action = "fallback"
)

// AdDefinition is the content substituted for an ad under use_fallback.
type AdDefinition struct {
	Headline     string `json:"headline" mapstructure:"headline" validate:"required"`
	Description  string `json:"description" mapstructure:"description"`
	DisplayURL   string `json:"displayUrl" mapstructure:"display_url"`
	FinalURL     string `json:"finalUrl" mapstructure:"final_url" validate:"omitempty,url"`
	CallToAction string `json:"callToAction" mapstructure:"call_to_action"`
}

// TruncationConfig enables truncation per field. A field left false sends
// the whole ad down the skip path instead.
type TruncationConfig struct {
	Headline             bool `json:"truncateHeadline" mapstructure:"headline"`
	Description          bool `json:"truncateDescription" mapstructure:"description"`
	DisplayURL           bool `json:"truncateDisplayUrl" mapstructure:"display_url"`
	PreserveWordBoundary bool `json:"preserveWordBoundary" mapstructure:"preserve_word_boundary"`
}

// DefaultTruncationConfig enables every truncatable field and cuts at word
// boundaries.
func DefaultTruncationConfig() TruncationConfig {
	return TruncationConfig{Headline: true, Description: true, DisplayURL: true, PreserveWordBoundary: true}
}

func (c TruncationConfig) enabled(field string) bool {
	switch field {
	case ads.FieldHeadline:
		return c.Headline
	case ads.FieldDescription:
		return c.Description
	case ads.FieldDisplayURL:
		return c.DisplayURL
	}
	return false
}

type Config struct {
	Strategy   Strategy
	FallbackAd *AdDefinition
	Truncation TruncationConfig
	// Limits defaults to platform.DefaultLimits.
	Limits platform.LimitTable
	// Now defaults to time.Now.
	Now func() time.Time
}

// Context identifies where an ad sits in the campaign tree.
type Context struct {
	CampaignID string            `json:"campaignId"`
	AdGroupID  string            `json:"adGroupId"`
	Platform   platform.Platform `json:"platform"`
}

// SkippedAdRecord documents an ad left out of sync.
type SkippedAdRecord struct {
	AdID           string            `json:"adId"`
	CampaignID     string            `json:"campaignId"`
	AdGroupID      string            `json:"adGroupId"`
	Platform       platform.Platform `json:"platform"`
	Fields         []string          `json:"fields"`
	Overflow       map[string]int    `json:"overflow"`
	OriginalValues map[string]string `json:"originalValues"`
	Reason         string            `json:"reason"`
	SkippedAt      string            `json:"skippedAt"`
}

type StrategyResult struct {
	Action        Action           `json:"action"`
	Ad            ads.Ad           `json:"ad"`
	SkippedRecord *SkippedAdRecord `json:"skippedRecord,omitempty"`
	WasTruncated  bool             `json:"wasTruncated,omitempty"`
	UsedFallback  bool             `json:"usedFallback,omitempty"`
}

// Engine applies one strategy. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	strategy   Strategy
	fallbackAd AdDefinition
	truncation TruncationConfig
	limits     platform.LimitTable
	now        func() time.Time
}

var validate = validator.New()

func New(cfg Config) (*Engine, error) {
	switch cfg.Strategy {
	case StrategySkip, StrategyTruncate:
	case StrategyUseFallback:
		if cfg.FallbackAd == nil {
			return nil, ErrMissingFallbackAd
		}
		if err := validate.Struct(cfg.FallbackAd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFallbackAd, err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, cfg.Strategy)
	}

	e := &Engine{
		strategy:   cfg.Strategy,
		truncation: cfg.Truncation,
		limits:     cfg.Limits,
		now:        cfg.Now,
	}
	if cfg.FallbackAd != nil {
		e.fallbackAd = *cfg.FallbackAd
	}
	if e.limits == nil {
		e.limits = platform.DefaultLimits()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

func (e *Engine) Strategy() Strategy { return e.strategy }

// ApplyStrategy acts on the FIELD_TOO_LONG errors among errs. Any other error
// is left for platform sync to report. The input ad is never modified.
func (e *Engine) ApplyStrategy(ad ads.Ad, errs []validation.Error, ctx Context) StrategyResult {
	lengthErrs := GetLengthErrors(errs)
	if len(lengthErrs) == 0 {
		return StrategyResult{Action: ActionSync, Ad: ad}
	}

	switch e.strategy {
	case StrategyTruncate:
		return e.truncate(ad, lengthErrs, ctx)
	case StrategyUseFallback:
		return e.useFallback(ad)
	default:
		return e.skip(ad, lengthErrs, ctx, "content exceeds platform limits")
	}
}

func (e *Engine) skip(ad ads.Ad, lengthErrs []validation.Error, ctx Context, reason string) StrategyResult {
	rec := &SkippedAdRecord{
		AdID:           ad.ID,
		CampaignID:     ctx.CampaignID,
		AdGroupID:      ctx.AdGroupID,
		Platform:       ctx.Platform,
		Fields:         []string{},
		Overflow:       map[string]int{},
		OriginalValues: map[string]string{},
		Reason:         reason,
		SkippedAt:      e.now().UTC().Format(time.RFC3339),
	}
	for _, le := range lengthErrs {
		if _, seen := rec.Overflow[le.Field]; !seen {
			rec.Fields = append(rec.Fields, le.Field)
		}
		if v, ok := ad.Field(le.Field); ok {
			rec.OriginalValues[le.Field] = v
			rec.Overflow[le.Field] = overflow(le, v)
		} else {
			rec.OriginalValues[le.Field] = le.Value
			rec.Overflow[le.Field] = overflow(le, "")
		}
	}
	return StrategyResult{Action: ActionSkip, Ad: ad, SkippedRecord: rec}
}

func (e *Engine) truncate(ad ads.Ad, lengthErrs []validation.Error, ctx Context) StrategyResult {
	out := ad
	for _, le := range lengthErrs {
		switch le.Field {
		case ads.FieldHeadline, ads.FieldDescription, ads.FieldDisplayURL:
		default:
			return e.skip(ad, lengthErrs, ctx, fmt.Sprintf("field %s cannot be truncated", le.Field))
		}
		if !e.truncation.enabled(le.Field) {
			return e.skip(ad, lengthErrs, ctx, fmt.Sprintf("truncation disabled for %s", le.Field))
		}
		limit, ok := e.limitFor(ctx.Platform, le)
		if !ok {
			return e.skip(ad, lengthErrs, ctx, fmt.Sprintf("no limit known for %s on %s", le.Field, ctx.Platform))
		}

		cur, _ := out.Field(le.Field)
		if e.truncation.PreserveWordBoundary {
			out = out.WithField(le.Field, TruncateToWordBoundary(cur, limit))
		} else {
			out = out.WithField(le.Field, TruncateHard(cur, limit))
		}
	}
	return StrategyResult{Action: ActionSync, Ad: out, WasTruncated: true}
}

func (e *Engine) useFallback(ad ads.Ad) StrategyResult {
	out := ad
	out.Headline = e.fallbackAd.Headline
	out.Description = e.fallbackAd.Description
	out.DisplayURL = e.fallbackAd.DisplayURL
	out.FinalURL = e.fallbackAd.FinalURL
	out.CallToAction = e.fallbackAd.CallToAction
	return StrategyResult{Action: ActionFallback, Ad: out, UsedFallback: true}
}

// limitFor resolves the limit from the table, then from the error itself.
func (e *Engine) limitFor(p platform.Platform, le validation.Error) (int, bool) {
	if l, ok := e.limits.Limit(p, le.Field); ok {
		return l.MaxLength, true
	}
	if n, ok := firstInt(le.Expected); ok && n > 0 {
		return n, true
	}
	return 0, false
}

var intRe = regexp.MustCompile(`\d+`)

func firstInt(s string) (int, bool) {
	m := intRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	return n, err == nil
}

// overflow is the length of current minus the limit, the first number in
// the error's Expected text. Without content the error's Value is measured,
// or read as the length when numeric.
func overflow(le validation.Error, current string) int {
	actual := utf8.RuneCountInString(current)
	if current == "" {
		if n, err := strconv.Atoi(le.Value); err == nil {
			actual = n
		} else {
			actual = utf8.RuneCountInString(le.Value)
		}
	}
	limit, ok := firstInt(le.Expected)
	if !ok {
		return 0
	}
	if d := actual - limit; d > 0 {
		return d
	}
	return 0
}
