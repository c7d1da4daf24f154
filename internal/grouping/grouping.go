// Package grouping turns flat rows into a Campaign -> AdGroup -> Ad tree.
//
// Rows are clustered by the rendered value of the naming patterns: every row
// whose campaign pattern renders to the same string lands in the same
// campaign, and likewise for ad groups within a campaign. Output order follows
// the first occurrence of each key in the input.
package grouping

import (
	"errors"
	"fmt"

	"campaign-generator/internal/row"
	"campaign-generator/internal/variable"
)

var (
	// ErrInvalidConfig marks a malformed grouping configuration.
	ErrInvalidConfig = errors.New("invalid grouping config")
	// ErrInvalidRows marks input that is not a list of rows.
	ErrInvalidRows = errors.New("invalid rows")
)

type warningKey struct {
	typ      WarningType
	rowIndex int
	variable string
}

type bucket struct {
	key  string
	rows []int
}

// buckets keeps keys in first-seen order.
type buckets struct {
	index map[string]int
	list  []*bucket
}

func newBuckets() *buckets { return &buckets{index: map[string]int{}} }

func (b *buckets) add(key string, rowIndex int) {
	i, ok := b.index[key]
	if !ok {
		i = len(b.list)
		b.index[key] = i
		b.list = append(b.list, &bucket{key: key})
	}
	b.list[i].rows = append(b.list[i].rows, rowIndex)
}

type grouper struct {
	rows      []row.Row
	campaign  *variable.Template
	adGroup   *variable.Template
	fields    adTemplates
	warnings  []Warning
	seen      map[warningKey]struct{}
	missingBy map[int]struct{}
}

type adTemplates struct {
	headline, description, displayURL, finalURL, callToAction *variable.Template
}

// Grouper groups rows, reusing compiled patterns across calls.
type Grouper struct {
	templates *variable.Cache
}

// NewGrouper returns a Grouper backed by templates. A nil cache compiles
// patterns on every call.
func NewGrouper(templates *variable.Cache) *Grouper {
	return &Grouper{templates: templates}
}

// GroupRows groups rows according to cfg. It returns an error only for
// contract violations; data-quality problems are reported as warnings.
func GroupRows(rows []row.Row, cfg Config) (*Result, error) {
	return NewGrouper(nil).GroupRows(rows, cfg)
}

func (gr *Grouper) GroupRows(rows []row.Row, cfg Config) (*Result, error) {
	for i, r := range rows {
		if r == nil {
			return nil, fmt.Errorf("%w: row %d is nil", ErrInvalidRows, i)
		}
	}

	g := &grouper{
		rows:      rows,
		campaign:  gr.templates.Get(cfg.CampaignNamePattern),
		adGroup:   gr.templates.Get(cfg.AdGroupNamePattern),
		fields:    gr.compileMapping(cfg.AdMapping),
		warnings:  []Warning{},
		seen:      map[warningKey]struct{}{},
		missingBy: map[int]struct{}{},
	}
	return g.run(), nil
}

func (gr *Grouper) compileMapping(m AdMapping) adTemplates {
	opt := func(p string) *variable.Template {
		if p == "" {
			return nil
		}
		return gr.templates.Get(p)
	}
	return adTemplates{
		headline:     gr.templates.Get(m.Headline),
		description:  gr.templates.Get(m.Description),
		displayURL:   opt(m.DisplayURL),
		finalURL:     opt(m.FinalURL),
		callToAction: opt(m.CallToAction),
	}
}

func (g *grouper) run() *Result {
	byCampaign := newBuckets()
	for i := range g.rows {
		byCampaign.add(g.render(g.campaign, i), i)
	}

	res := &Result{Campaigns: make([]GroupedCampaign, 0, len(byCampaign.list))}
	for _, cb := range byCampaign.list {
		byAdGroup := newBuckets()
		for _, i := range cb.rows {
			byAdGroup.add(g.render(g.adGroup, i), i)
		}

		c := GroupedCampaign{
			Name:        cb.key,
			GroupingKey: cb.key,
			AdGroups:    make([]GroupedAdGroup, 0, len(byAdGroup.list)),
		}
		for _, ab := range byAdGroup.list {
			c.AdGroups = append(c.AdGroups, g.buildAdGroup(ab))
			res.Stats.TotalAds += len(ab.rows)
		}
		res.Stats.TotalAdGroups += len(c.AdGroups)
		res.Campaigns = append(res.Campaigns, c)
	}

	res.Warnings = g.finalWarnings()
	res.Stats.TotalRows = len(g.rows)
	res.Stats.TotalCampaigns = len(res.Campaigns)
	res.Stats.RowsWithMissingVariables = len(g.missingBy)
	return res
}

func (g *grouper) buildAdGroup(b *bucket) GroupedAdGroup {
	ag := GroupedAdGroup{Name: b.key, GroupingKey: b.key, Ads: make([]GroupedAd, 0, len(b.rows))}
	firstSeen := map[string]int{}
	for _, i := range b.rows {
		ad := GroupedAd{
			Headline:    g.render(g.fields.headline, i),
			Description: g.render(g.fields.description, i),
			RowIndex:    i,
			SourceRow:   g.rows[i],
		}
		if g.fields.displayURL != nil {
			ad.DisplayURL = g.render(g.fields.displayURL, i)
		}
		if g.fields.finalURL != nil {
			ad.FinalURL = g.render(g.fields.finalURL, i)
		}
		if g.fields.callToAction != nil {
			ad.CallToAction = g.render(g.fields.callToAction, i)
		}

		dupKey := ad.Headline + "\x00" + ad.Description
		if first, ok := firstSeen[dupKey]; ok {
			g.warn(WarningDuplicateAd, i, "",
				fmt.Sprintf("row %d: ad duplicates row %d in ad group %q (same headline and description)", i, first, b.key))
		} else {
			firstSeen[dupKey] = i
		}
		ag.Ads = append(ag.Ads, ad)
	}
	return ag
}

// render interpolates t for row i and records its warnings.
func (g *grouper) render(t *variable.Template, i int) string {
	res := t.Render(g.rows[i])
	for _, w := range res.Warnings {
		g.warn(WarningMissingVariable, i, w.Variable, fmt.Sprintf("row %d: %s", i, w.Message))
		g.missingBy[i] = struct{}{}
	}
	for _, name := range res.EmptyVariables {
		g.warn(WarningEmptyValue, i, name, fmt.Sprintf("row %d: variable %q is empty", i, name))
	}
	return res.Text
}

func (g *grouper) warn(typ WarningType, i int, name, msg string) {
	k := warningKey{typ: typ, rowIndex: i, variable: name}
	if typ != WarningDuplicateAd {
		if _, dup := g.seen[k]; dup {
			return
		}
		g.seen[k] = struct{}{}
	}
	idx := i
	g.warnings = append(g.warnings, Warning{Type: typ, Message: msg, RowIndex: &idx, VariableName: name})
}

// finalWarnings drops empty_value findings already covered by a
// missing_variable warning for the same row and variable.
func (g *grouper) finalWarnings() []Warning {
	out := g.warnings[:0:0]
	for _, w := range g.warnings {
		if w.Type == WarningEmptyValue {
			k := warningKey{typ: WarningMissingVariable, rowIndex: *w.RowIndex, variable: w.VariableName}
			if _, covered := g.seen[k]; covered {
				continue
			}
		}
		out = append(out, w)
	}
	return out
}

// Flatten returns the source rows of campaigns in tree order.
func Flatten(campaigns []GroupedCampaign) []row.Row {
	var out []row.Row
	for _, c := range campaigns {
		for _, ag := range c.AdGroups {
			for _, ad := range ag.Ads {
				out = append(out, ad.SourceRow)
			}
		}
	}
	return out
}

// Preview groups at most the first n rows; n <= 0 groups all of them.
func Preview(rows []row.Row, cfg Config, n int) (*Result, error) {
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return GroupRows(rows, cfg)
}
