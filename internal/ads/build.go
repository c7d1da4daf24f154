package ads

import (
	"time"

	"github.com/google/uuid"

	"campaign-generator/internal/grouping"
)

// BuildOptions controls materialization of a grouping result.
type BuildOptions struct {
	Platform string
	Status   Status
	// NewID defaults to random UUIDs.
	NewID func() string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o *BuildOptions) defaults() {
	if o.Status == "" {
		o.Status = StatusPaused
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.NewString() }
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Build assigns identities to every node of the grouped tree. Order indexes
// follow the tree's order within each parent.
func Build(campaigns []grouping.GroupedCampaign, opts BuildOptions) []Campaign {
	opts.defaults()
	now := opts.Now().UTC()

	out := make([]Campaign, 0, len(campaigns))
	for _, gc := range campaigns {
		c := Campaign{
			ID:          opts.NewID(),
			Name:        gc.Name,
			GroupingKey: gc.GroupingKey,
			Platform:    opts.Platform,
			Status:      opts.Status,
			AdGroups:    make([]AdGroup, 0, len(gc.AdGroups)),
			CreatedAt:   now,
		}
		for gi, gag := range gc.AdGroups {
			ag := AdGroup{
				ID:          opts.NewID(),
				CampaignID:  c.ID,
				Name:        gag.Name,
				GroupingKey: gag.GroupingKey,
				Status:      opts.Status,
				OrderIndex:  gi,
				Ads:         make([]Ad, 0, len(gag.Ads)),
				CreatedAt:   now,
			}
			for ai, gad := range gag.Ads {
				ag.Ads = append(ag.Ads, Ad{
					ID:           opts.NewID(),
					AdGroupID:    ag.ID,
					Headline:     gad.Headline,
					Description:  gad.Description,
					DisplayURL:   gad.DisplayURL,
					FinalURL:     gad.FinalURL,
					CallToAction: gad.CallToAction,
					Status:       opts.Status,
					OrderIndex:   ai,
					SourceRow:    gad.SourceRow,
					CreatedAt:    now,
					UpdatedAt:    now,
				})
			}
			c.AdGroups = append(c.AdGroups, ag)
		}
		out = append(out, c)
	}
	return out
}

// CountAds returns the number of ads in campaigns.
func CountAds(campaigns []Campaign) int {
	n := 0
	for _, c := range campaigns {
		for _, ag := range c.AdGroups {
			n += len(ag.Ads)
		}
	}
	return n
}
