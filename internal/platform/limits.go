// Package platform describes the ad platforms campaigns are generated for and
// their per-field character limits.
package platform

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Platform string

const (
	Reddit Platform = "reddit"
	Google Platform = "google"
	Meta   Platform = "meta"
)

// Parse normalizes a platform name.
func Parse(s string) Platform {
	return Platform(strings.ToLower(strings.TrimSpace(s)))
}

// FieldLimit is the character limit of one ad field. PlatformField names the
// field on the platform's own ad object when it differs (Reddit calls the
// headline "title").
type FieldLimit struct {
	MaxLength     int    `yaml:"max_length" mapstructure:"max_length" json:"maxLength"`
	PlatformField string `yaml:"platform_field,omitempty" mapstructure:"platform_field" json:"platformField,omitempty"`
}

// FieldLimits maps ad field names (headline, description, displayUrl, ...)
// to their limits.
type FieldLimits map[string]FieldLimit

// LimitTable is the injectable lookup shared by ad validation and fallback
// truncation. Adding a platform is a configuration change.
type LimitTable map[Platform]FieldLimits

// DefaultLimits returns the built-in table. Reddit's headline follows the ad
// validator (100); a table mapping it to the 300-character post title can be
// supplied through configuration instead.
func DefaultLimits() LimitTable {
	return LimitTable{
		Reddit: {
			"headline":    {MaxLength: 100, PlatformField: "title"},
			"description": {MaxLength: 500, PlatformField: "text"},
			"displayUrl":  {MaxLength: 25},
		},
		Google: {
			"headline":    {MaxLength: 30},
			"description": {MaxLength: 90},
		},
	}
}

// Limit returns the limit for field on p.
func (t LimitTable) Limit(p Platform, field string) (FieldLimit, bool) {
	fields, ok := t[p]
	if !ok {
		return FieldLimit{}, false
	}
	l, ok := fields[field]
	if !ok || l.MaxLength <= 0 {
		return FieldLimit{}, false
	}
	return l, true
}

// Platforms lists configured platforms in sorted order.
func (t LimitTable) Platforms() []Platform {
	out := make([]Platform, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge returns a copy of t with every field in override replacing t's entry.
func (t LimitTable) Merge(override LimitTable) LimitTable {
	out := make(LimitTable, len(t)+len(override))
	for p, fields := range t {
		cp := make(FieldLimits, len(fields))
		for f, l := range fields {
			cp[f] = l
		}
		out[p] = cp
	}
	for p, fields := range override {
		p = Parse(string(p))
		if out[p] == nil {
			out[p] = FieldLimits{}
		}
		for f, l := range fields {
			out[p][f] = l
		}
	}
	return out
}

var canonicalFields = []string{"headline", "description", "displayUrl", "finalUrl", "callToAction"}

// Normalize restores the canonical spelling of field names whose case was
// folded, as viper does with configuration keys.
func (t LimitTable) Normalize() LimitTable {
	out := make(LimitTable, len(t))
	for p, fields := range t {
		cp := make(FieldLimits, len(fields))
		for f, l := range fields {
			for _, c := range canonicalFields {
				if strings.EqualFold(f, c) {
					f = c
					break
				}
			}
			cp[f] = l
		}
		out[Parse(string(p))] = cp
	}
	return out
}

// Validate rejects non-positive limits.
func (t LimitTable) Validate() error {
	for p, fields := range t {
		for f, l := range fields {
			if l.MaxLength <= 0 {
				return fmt.Errorf("platform %s field %s: max_length must be positive, got %d", p, f, l.MaxLength)
			}
		}
	}
	return nil
}

// ParseYAML decodes a limit table document:
//
//	reddit:
//	  headline: {max_length: 300, platform_field: title}
func ParseYAML(data []byte) (LimitTable, error) {
	var raw map[string]FieldLimits
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode limits: %w", err)
	}
	t := make(LimitTable, len(raw))
	for p, fields := range raw {
		t[Parse(p)] = fields
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadYAML reads a limit table file and merges it over DefaultLimits.
func LoadYAML(path string) (LimitTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open limits file %s: %w", path, err)
	}
	t, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("limits file %s: %w", path, err)
	}
	return DefaultLimits().Merge(t), nil
}
