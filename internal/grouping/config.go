package grouping

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// configDoc is the wire form of Config. Pointer fields distinguish an absent
// pattern from an empty one: required on a *string only rejects nil.
type configDoc struct {
	CampaignNamePattern *string       `json:"campaignNamePattern" validate:"required"`
	AdGroupNamePattern  *string       `json:"adGroupNamePattern" validate:"required"`
	AdMapping           *adMappingDoc `json:"adMapping" validate:"required"`
}

type adMappingDoc struct {
	Headline     *string `json:"headline" validate:"required"`
	Description  *string `json:"description" validate:"required"`
	DisplayURL   *string `json:"displayUrl"`
	FinalURL     *string `json:"finalUrl"`
	CallToAction *string `json:"callToAction"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseConfig decodes and validates a JSON grouping config. The campaign and
// ad group patterns and the headline and description mappings must be
// present; an empty string is allowed.
func ParseConfig(data []byte) (Config, error) {
	var doc configDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return doc.toConfig()
}

// UnmarshalJSON lets Config be embedded in larger request documents while
// keeping the presence checks of ParseConfig.
func (c *Config) UnmarshalJSON(data []byte) error {
	cfg, err := ParseConfig(data)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

func (d configDoc) toConfig() (Config, error) {
	if err := validate.Struct(d); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, describe(err))
	}
	return Config{
		CampaignNamePattern: *d.CampaignNamePattern,
		AdGroupNamePattern:  *d.AdGroupNamePattern,
		AdMapping: AdMapping{
			Headline:     *d.AdMapping.Headline,
			Description:  *d.AdMapping.Description,
			DisplayURL:   deref(d.AdMapping.DisplayURL),
			FinalURL:     deref(d.AdMapping.FinalURL),
			CallToAction: deref(d.AdMapping.CallToAction),
		},
	}, nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	// drop the root struct name: configDoc.adMapping.headline -> adMapping.headline
	_, field, _ := strings.Cut(verrs[0].Namespace(), ".")
	return fmt.Sprintf("%s is required", field)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
