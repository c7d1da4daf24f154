package fallback

import (
	"campaign-generator/internal/ads"
	"campaign-generator/internal/validation"
)

// Item is one ad with its validation errors.
type Item struct {
	Ad      ads.Ad
	Errors  []validation.Error
	Context Context
}

// BatchResult partitions a batch by outcome. Results keeps input order.
type BatchResult struct {
	Results   []StrategyResult  `json:"results"`
	Synced    []ads.Ad          `json:"synced"`
	Fallbacks []ads.Ad          `json:"fallbacks"`
	Skipped   []SkippedAdRecord `json:"skipped"`
	Truncated int               `json:"truncated"`
}

func (e *Engine) ApplyAll(items []Item) BatchResult {
	out := BatchResult{
		Results:   make([]StrategyResult, 0, len(items)),
		Synced:    []ads.Ad{},
		Fallbacks: []ads.Ad{},
		Skipped:   []SkippedAdRecord{},
	}
	for _, it := range items {
		res := e.ApplyStrategy(it.Ad, it.Errors, it.Context)
		out.Results = append(out.Results, res)
		switch res.Action {
		case ActionSkip:
			out.Skipped = append(out.Skipped, *res.SkippedRecord)
		case ActionFallback:
			out.Fallbacks = append(out.Fallbacks, res.Ad)
		default:
			out.Synced = append(out.Synced, res.Ad)
			if res.WasTruncated {
				out.Truncated++
			}
		}
	}
	return out
}
