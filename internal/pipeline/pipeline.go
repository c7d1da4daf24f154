// Package pipeline chains the generation stages: rules, grouping, ad
// materialization, validation and the fallback strategy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"campaign-generator/internal/ads"
	"campaign-generator/internal/fallback"
	"campaign-generator/internal/grouping"
	"campaign-generator/internal/observability"
	"campaign-generator/internal/platform"
	"campaign-generator/internal/row"
	"campaign-generator/internal/rules"
	"campaign-generator/internal/validation"
	"campaign-generator/internal/variable"
)

var (
	ErrTooManyRows     = errors.New("too many rows")
	ErrUnknownPlatform = errors.New("unknown platform")
)

// Job is one generation request.
type Job struct {
	Rows     []row.Row
	Rules    []rules.Rule
	Grouping grouping.Config
	Platform platform.Platform
	// Strategy and FallbackAd override the generator defaults when set.
	Strategy   fallback.Strategy
	FallbackAd *fallback.AdDefinition
}

// Output is the result of a run. Campaigns hold the ads that will sync;
// skipped ads are listed in Fallback.Skipped only.
type Output struct {
	Campaigns        []ads.Campaign                `json:"campaigns"`
	Warnings         []grouping.Warning            `json:"warnings"`
	Stats            grouping.Stats                `json:"stats"`
	Rules            rules.DatasetSummary          `json:"rules"`
	SkippedRows      []int                         `json:"skippedRows"`
	ValidationErrors map[string][]validation.Error `json:"validationErrors"`
	Fallback         fallback.BatchResult          `json:"fallback"`
}

type Options struct {
	DefaultPlatform platform.Platform
	Strategy        fallback.Strategy
	FallbackAd      *fallback.AdDefinition
	Truncation      fallback.TruncationConfig
	// MaxRows bounds Job.Rows; zero means unbounded.
	MaxRows int
	// Limits returns the active limit table; defaults to platform.DefaultLimits.
	Limits    func() platform.LimitTable
	Regexes   *rules.RegexCache
	Templates *variable.Cache
	Logger    zerolog.Logger
	NewID     func() string
	Now       func() time.Time
}

type Generator struct {
	opts      Options
	processor *rules.Processor
	grouper   *grouping.Grouper
}

func New(opts Options) *Generator {
	if opts.DefaultPlatform == "" {
		opts.DefaultPlatform = platform.Reddit
	}
	if opts.Strategy == "" {
		opts.Strategy = fallback.StrategySkip
	}
	// an all-false truncation config is treated as unset
	if opts.Truncation == (fallback.TruncationConfig{}) {
		opts.Truncation = fallback.DefaultTruncationConfig()
	}
	if opts.Limits == nil {
		defaults := platform.DefaultLimits()
		opts.Limits = func() platform.LimitTable { return defaults }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{
		opts:      opts,
		processor: rules.NewProcessor(opts.Regexes),
		grouper:   grouping.NewGrouper(opts.Templates),
	}
}

// Generate runs every stage over job. Errors are contract violations; data
// problems are reported in the output.
func (g *Generator) Generate(ctx context.Context, job Job) (*Output, error) {
	start := time.Now()
	defer func() { observability.GenerateDuration.Observe(time.Since(start).Seconds()) }()

	if g.opts.MaxRows > 0 && len(job.Rows) > g.opts.MaxRows {
		return nil, fmt.Errorf("%w: %d rows exceeds limit of %d", ErrTooManyRows, len(job.Rows), g.opts.MaxRows)
	}
	for i, r := range job.Rows {
		if r == nil {
			return nil, fmt.Errorf("%w: row %d is nil", grouping.ErrInvalidRows, i)
		}
	}
	p := job.Platform
	if p == "" {
		p = g.opts.DefaultPlatform
	}
	limits := g.opts.Limits()
	if _, ok := limits[p]; !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPlatform, p)
	}
	engine, err := g.engine(job, limits)
	if err != nil {
		return nil, err
	}

	outcomes, err := g.processor.ProcessDataset(job.Rules, job.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to apply rules: %w", err)
	}
	kept := make([]row.Row, 0, len(outcomes))
	keptIdx := make([]int, 0, len(outcomes))
	skippedRows := []int{}
	for i, o := range outcomes {
		if o.ShouldSkip {
			skippedRows = append(skippedRows, i)
			continue
		}
		kept = append(kept, o.ModifiedRow)
		keptIdx = append(keptIdx, i)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grouped, err := g.grouper.GroupRows(kept, job.Grouping)
	if err != nil {
		return nil, fmt.Errorf("failed to group rows: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	campaigns := ads.Build(grouped.Campaigns, ads.BuildOptions{Platform: string(p), NewID: g.opts.NewID, Now: g.opts.Now})

	validator := validation.NewAdValidator(limits)
	errsByAd := validator.ValidateCampaigns(campaigns, p)

	var items []fallback.Item
	for _, c := range campaigns {
		for _, ag := range c.AdGroups {
			for _, ad := range ag.Ads {
				items = append(items, fallback.Item{
					Ad:      ad,
					Errors:  errsByAd[ad.ID],
					Context: fallback.Context{CampaignID: c.ID, AdGroupID: ag.ID, Platform: p},
				})
			}
		}
	}
	batch := engine.ApplyAll(items)

	out := &Output{
		Campaigns:        replaceAds(campaigns, batch.Results),
		Warnings:         reindex(grouped.Warnings, keptIdx),
		Stats:            grouped.Stats,
		Rules:            rules.Summarize(outcomes),
		SkippedRows:      skippedRows,
		ValidationErrors: errsByAd,
		Fallback:         batch,
	}
	g.record(p, engine.Strategy(), out)
	return out, nil
}

func (g *Generator) engine(job Job, limits platform.LimitTable) (*fallback.Engine, error) {
	strategy, fb := g.opts.Strategy, g.opts.FallbackAd
	if job.Strategy != "" {
		strategy = job.Strategy
	}
	if job.FallbackAd != nil {
		fb = job.FallbackAd
	}
	e, err := fallback.New(fallback.Config{
		Strategy:   strategy,
		FallbackAd: fb,
		Truncation: g.opts.Truncation,
		Limits:     limits,
		Now:        g.opts.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure fallback: %w", err)
	}
	return e, nil
}

// reindex maps warning row indexes from the kept rows back to job.Rows.
func reindex(warnings []grouping.Warning, keptIdx []int) []grouping.Warning {
	for i, w := range warnings {
		if w.RowIndex == nil || *w.RowIndex >= len(keptIdx) {
			continue
		}
		orig := keptIdx[*w.RowIndex]
		warnings[i].RowIndex = &orig
	}
	return warnings
}

// replaceAds swaps in the fallback results and drops skipped ads. results
// follow the tree order of campaigns.
func replaceAds(campaigns []ads.Campaign, results []fallback.StrategyResult) []ads.Campaign {
	i := 0
	for ci := range campaigns {
		for gi := range campaigns[ci].AdGroups {
			ag := &campaigns[ci].AdGroups[gi]
			kept := make([]ads.Ad, 0, len(ag.Ads))
			for range ag.Ads {
				res := results[i]
				i++
				if res.Action == fallback.ActionSkip {
					continue
				}
				kept = append(kept, res.Ad)
			}
			ag.Ads = kept
		}
	}
	return campaigns
}

func (g *Generator) record(p platform.Platform, strategy fallback.Strategy, out *Output) {
	observability.RowsProcessed.WithLabelValues("kept").Add(float64(out.Stats.TotalRows))
	observability.RowsProcessed.WithLabelValues("skipped").Add(float64(len(out.SkippedRows)))
	for _, w := range out.Warnings {
		observability.GroupingWarnings.WithLabelValues(string(w.Type)).Inc()
	}
	for _, r := range out.Fallback.Results {
		if r.Action == fallback.ActionSync && !r.WasTruncated {
			continue
		}
		action := string(r.Action)
		if r.WasTruncated {
			action = "truncate"
		}
		observability.FallbackActions.WithLabelValues(string(strategy), action).Inc()
	}
	synced := ads.CountAds(out.Campaigns)
	observability.AdsGenerated.WithLabelValues(string(p)).Add(float64(synced))

	g.opts.Logger.Info().
		Str("platform", string(p)).
		Int("rows", out.Stats.TotalRows+len(out.SkippedRows)).
		Int("rows_skipped", len(out.SkippedRows)).
		Int("campaigns", len(out.Campaigns)).
		Int("ads", synced).
		Int("ads_skipped", len(out.Fallback.Skipped)).
		Int("warnings", len(out.Warnings)).
		Msg("campaigns generated")
}
