package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"github.com/kirillkom/sme-health/internal/core/catalog"
	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/ports"
)

const defaultOracleConfidence = 0.5

// FallbackHook observes every oracle call that ended on the heuristic path.
type FallbackHook func(kind domain.DatasetKind, reason string)

// Oracle asks a language model for the mapping and falls back to the
// heuristic on any failure. It never returns an error.
type Oracle struct {
	model      ports.LanguageModel
	catalog    *catalog.Catalog
	fallback   *Heuristic
	onFallback FallbackHook
}

func NewOracle(model ports.LanguageModel, cat *catalog.Catalog, onFallback FallbackHook) *Oracle {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Oracle{
		model:      model,
		catalog:    cat,
		fallback:   NewHeuristic(cat),
		onFallback: onFallback,
	}
}

func (o *Oracle) Reconcile(ctx context.Context, kind domain.DatasetKind, table *domain.Table) domain.MappingResult {
	result, err := o.ask(ctx, kind, table)
	if err != nil {
		slog.Warn("mapping_oracle_fallback", "kind", string(kind), "error", err.Error())
		if o.onFallback != nil {
			o.onFallback(kind, fallbackReason(err))
		}
		return o.fallback.Reconcile(ctx, kind, table)
	}
	return result
}

var (
	errNoModel       = errors.New("mapping oracle not configured")
	errNoJSON        = errors.New("no json object in oracle response")
	errMissingMapKey = errors.New("oracle response has no mappings")
)

func (o *Oracle) ask(ctx context.Context, kind domain.DatasetKind, table *domain.Table) (domain.MappingResult, error) {
	if o.model == nil {
		return domain.MappingResult{}, errNoModel
	}
	if table == nil {
		table = &domain.Table{}
	}

	prompt, err := BuildMappingPrompt(kind, o.catalog.Schema(kind), table)
	if err != nil {
		return domain.MappingResult{}, err
	}
	raw, err := o.model.GenerateJSON(ctx, prompt)
	if err != nil {
		return domain.MappingResult{}, fmt.Errorf("generate mapping: %w", err)
	}
	payload, err := DecodeModelJSON(raw)
	if err != nil {
		return domain.MappingResult{}, err
	}
	return o.sanitize(kind, table, payload)
}

func (o *Oracle) sanitize(kind domain.DatasetKind, table *domain.Table, payload map[string]any) (domain.MappingResult, error) {
	rawMappings, ok := payload["mappings"]
	if !ok {
		return domain.MappingResult{}, errMissingMapKey
	}

	allowed := make(map[string]struct{})
	for _, field := range o.catalog.Schema(kind).Fields() {
		allowed[field] = struct{}{}
	}

	mappings := make(map[string]string)
	if m, ok := rawMappings.(map[string]any); ok {
		for field, value := range m {
			column, ok := value.(string)
			if !ok || !table.Has(column) {
				continue
			}
			if _, known := allowed[field]; !known {
				continue
			}
			mappings[field] = column
		}
	}

	confidence := defaultOracleConfidence
	if c, ok := payload["confidence"].(float64); ok && !math.IsNaN(c) {
		confidence = math.Max(0, math.Min(1, c))
	}
	notes, _ := payload["notes"].(string)

	return domain.MappingResult{
		Mappings:   mappings,
		Confidence: confidence,
		Notes:      notes,
	}, nil
}

var (
	fencePrefix = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceSuffix = regexp.MustCompile("\\s*```$")
	jsonObject  = regexp.MustCompile(`(?s)\{.*\}`)
)

// DecodeModelJSON pulls the outermost JSON object out of a model response,
// tolerating code fences and repairing minor syntax damage.
func DecodeModelJSON(raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = fencePrefix.ReplaceAllString(s, "")
		s = fenceSuffix.ReplaceAllString(s, "")
	}
	candidate := jsonObject.FindString(s)
	if candidate == "" {
		return nil, errNoJSON
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(candidate), &out); err == nil {
		return out, nil
	}
	repaired, err := jsonrepair.RepairJSON(candidate)
	if err != nil {
		return nil, fmt.Errorf("repair oracle json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("parse oracle json: %w", err)
	}
	if out == nil {
		return nil, errNoJSON
	}
	return out, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errNoModel):
		return "unconfigured"
	case errors.Is(err, errNoJSON), errors.Is(err, errMissingMapKey):
		return "malformed"
	case domain.IsKind(err, domain.ErrTemporary):
		return "unavailable"
	default:
		return "error"
	}
}
