package ads

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-generator/internal/grouping"
	"campaign-generator/internal/row"
)

func groupedFixture(t *testing.T) []grouping.GroupedCampaign {
	t.Helper()
	res, err := grouping.GroupRows([]row.Row{
		{"brand": "Nike", "product": "Air Max"},
		{"brand": "Nike", "product": "Ultraboost"},
		{"brand": "Adidas", "product": "Boost"},
	}, grouping.Config{
		CampaignNamePattern: "{brand}",
		AdGroupNamePattern:  "{product}",
		AdMapping:           grouping.AdMapping{Headline: "{product}", Description: "Buy {brand} now", FinalURL: "https://example.com"},
	})
	require.NoError(t, err)
	return res.Campaigns
}

func TestBuild(t *testing.T) {
	seq := 0
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	out := Build(groupedFixture(t), BuildOptions{
		Platform: "reddit",
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
		Now: func() time.Time { return now },
	})

	require.Len(t, out, 2)
	nike := out[0]
	assert.Equal(t, "id-1", nike.ID)
	assert.Equal(t, "reddit", nike.Platform)
	assert.Equal(t, StatusPaused, nike.Status)
	require.Len(t, nike.AdGroups, 2)

	ag := nike.AdGroups[1]
	assert.Equal(t, nike.ID, ag.CampaignID)
	assert.Equal(t, 1, ag.OrderIndex)
	require.Len(t, ag.Ads, 1)
	ad := ag.Ads[0]
	assert.Equal(t, ag.ID, ad.AdGroupID)
	assert.Equal(t, "Ultraboost", ad.Headline)
	assert.Equal(t, "https://example.com", ad.FinalURL)
	assert.Equal(t, now, ad.CreatedAt)
	assert.Equal(t, 3, CountAds(out))
}

func TestBuild_DefaultIDsAreUUIDs(t *testing.T) {
	out := Build(groupedFixture(t), BuildOptions{Status: StatusDraft})
	ad := out[0].AdGroups[0].Ads[0]
	_, err := uuid.Parse(ad.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusDraft, ad.Status)
	assert.NotEqual(t, out[0].ID, out[1].ID)
}

func TestAd_FieldAccessors(t *testing.T) {
	a := Ad{ID: "1", Headline: "h"}
	b := a.WithField(FieldHeadline, "new")

	assert.Equal(t, "h", a.Headline)
	v, ok := b.Field(FieldHeadline)
	assert.True(t, ok)
	assert.Equal(t, "new", v)

	_, ok = a.Field("status")
	assert.False(t, ok)
}
