package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"campaign-generator/internal/fallback"
	"campaign-generator/internal/grouping"
	"campaign-generator/internal/observability"
	"campaign-generator/internal/pipeline"
	"campaign-generator/internal/platform"
	"campaign-generator/internal/row"
	"campaign-generator/internal/rules"
	"campaign-generator/internal/transform"
	"campaign-generator/internal/variable"
)

const (
	maxBodyBytes = 16 << 20
	// maxVariants caps pattern expansion when the request sets no max.
	maxVariants = 100
)

type GenerateRequest struct {
	Rows       []row.Row              `json:"rows" validate:"required"`
	Rules      json.RawMessage        `json:"rules"`
	Grouping   json.RawMessage        `json:"grouping" validate:"required"`
	Platform   string                 `json:"platform"`
	Strategy   string                 `json:"strategy" validate:"omitempty,oneof=skip truncate use_fallback"`
	FallbackAd *fallback.AdDefinition `json:"fallbackAd"`
}

type PreviewRequest struct {
	Rows     []row.Row       `json:"rows" validate:"required"`
	Grouping json.RawMessage `json:"grouping" validate:"required"`
	Limit    int             `json:"limit" validate:"gte=0"`
}

type TransformRequest struct {
	Rows   []row.Row        `json:"rows" validate:"required"`
	Config transform.Config `json:"config"`
}

type EvaluateRequest struct {
	Rows  []row.Row       `json:"rows" validate:"required"`
	Rules json.RawMessage `json:"rules" validate:"required"`
}

type ExpandRequest struct {
	Pattern string  `json:"pattern" validate:"required"`
	Max     int     `json:"max" validate:"gte=0,lte=1000"`
	Row     row.Row `json:"row"`
}

// PatternVariant is one expansion of the [[a|b]] blocks of a pattern. Rendered
// is set when the request carries a sample row.
type PatternVariant struct {
	Pattern      string           `json:"pattern"`
	HasVariables bool             `json:"hasVariables"`
	Variables    []string         `json:"variables"`
	Rendered     *variable.Result `json:"rendered,omitempty"`
}

type EvaluateResponse struct {
	Outcomes []rules.RowOutcome   `json:"outcomes"`
	Summary  rules.DatasetSummary `json:"summary"`
}

type Handler struct {
	Gen       *pipeline.Generator
	Processor *rules.Processor
	Limits    func() platform.LimitTable
	validate  *validator.Validate
}

func NewHandler(gen *pipeline.Generator, processor *rules.Processor, limits func() platform.LimitTable) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Handler{Gen: gen, Processor: processor, Limits: limits, validate: v}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	observability.RequestErrors.WithLabelValues(kind).Inc()
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "decode", fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation", describe(err))
		return false
	}
	return true
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return fmt.Errorf("%s failed on %s", fe.Field(), fe.Tag())
}

func decodeRules(raw json.RawMessage) ([]rules.Rule, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return rules.DecodeRules(raw)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rs, err := decodeRules(req.Rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rules", err)
		return
	}
	cfg, err := grouping.ParseConfig(req.Grouping)
	if err != nil {
		writeError(w, http.StatusBadRequest, "grouping", err)
		return
	}

	out, err := h.Gen.Generate(r.Context(), pipeline.Job{
		Rows:       req.Rows,
		Rules:      rs,
		Grouping:   cfg,
		Platform:   platform.Parse(req.Platform),
		Strategy:   fallback.Strategy(req.Strategy),
		FallbackAd: req.FallbackAd,
	})
	if err != nil {
		status := http.StatusBadRequest
		if r.Context().Err() != nil {
			status = http.StatusServiceUnavailable
		}
		log.Warn().Err(err).Msg("generation rejected")
		writeError(w, status, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, err := grouping.ParseConfig(req.Grouping)
	if err != nil {
		writeError(w, http.StatusBadRequest, "grouping", err)
		return
	}
	res, err := grouping.Preview(req.Rows, cfg, req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "grouping", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Transform(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := transform.Execute(req.Config, req.Rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "transform", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) EvaluateRules(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rs, err := decodeRules(req.Rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rules", err)
		return
	}
	outcomes, err := h.Processor.ProcessDataset(rs, req.Rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rules", err)
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{Outcomes: outcomes, Summary: rules.Summarize(outcomes)})
}

func (h *Handler) ExpandPattern(w http.ResponseWriter, r *http.Request) {
	var req ExpandRequest
	if !h.decode(w, r, &req) {
		return
	}
	max := req.Max
	if max == 0 {
		max = maxVariants
	}
	expanded := variable.ExpandVariations(req.Pattern, max)
	out := make([]PatternVariant, 0, len(expanded))
	for _, p := range expanded {
		v := PatternVariant{
			Pattern:      p,
			HasVariables: variable.HasVariables(p),
			Variables:    variable.ExtractVariables(p),
		}
		if req.Row != nil {
			res := variable.Substitute(p, req.Row)
			v.Rendered = &res
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"variants": out})
}

func (h *Handler) PlatformLimits(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Limits())
}
