package grouping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "complete",
			doc:  `{"campaignNamePattern":"{brand}","adGroupNamePattern":"{product}","adMapping":{"headline":"{product}","description":"Buy","finalUrl":"https://x"}}`,
		},
		{
			name: "empty strings allowed",
			doc:  `{"campaignNamePattern":"","adGroupNamePattern":"","adMapping":{"headline":"","description":""}}`,
		},
		{
			name:    "missing campaign pattern",
			doc:     `{"adGroupNamePattern":"x","adMapping":{"headline":"h","description":"d"}}`,
			wantErr: "campaignNamePattern is required",
		},
		{
			name:    "null ad group pattern",
			doc:     `{"campaignNamePattern":"x","adGroupNamePattern":null,"adMapping":{"headline":"h","description":"d"}}`,
			wantErr: "adGroupNamePattern is required",
		},
		{
			name:    "missing ad mapping",
			doc:     `{"campaignNamePattern":"x","adGroupNamePattern":"y"}`,
			wantErr: "adMapping is required",
		},
		{
			name:    "missing headline",
			doc:     `{"campaignNamePattern":"x","adGroupNamePattern":"y","adMapping":{"description":"d"}}`,
			wantErr: "adMapping.headline is required",
		},
		{
			name:    "malformed json",
			doc:     `{"campaignNamePattern":`,
			wantErr: "invalid grouping config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_UnmarshalEmbedded(t *testing.T) {
	var req struct {
		Grouping Config `json:"grouping"`
	}
	err := json.Unmarshal([]byte(`{"grouping":{"campaignNamePattern":"{a}","adGroupNamePattern":"{b}","adMapping":{"headline":"h","description":"d","callToAction":"Shop Now"}}}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "{a}", req.Grouping.CampaignNamePattern)
	assert.Equal(t, "Shop Now", req.Grouping.AdMapping.CallToAction)

	err = json.Unmarshal([]byte(`{"grouping":{"adGroupNamePattern":"{b}"}}`), &req)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
