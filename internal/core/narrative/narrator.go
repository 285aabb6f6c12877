package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/ports"
)

// FallbackHook observes narratives that were replaced by the static text.
type FallbackHook func(reason string)

// Narrator asks the language model for commentary and substitutes a static
// document whenever the model is missing, failing or silent. Narrate never
// returns an error.
type Narrator struct {
	model      ports.LanguageModel
	onFallback FallbackHook
}

func NewNarrator(model ports.LanguageModel, onFallback FallbackHook) *Narrator {
	return &Narrator{model: model, onFallback: onFallback}
}

var errEmptyNarrative = errors.New("no text returned from model")

func (n *Narrator) Narrate(ctx context.Context, a *domain.Assessment, lang string) (string, error) {
	if a == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "narrate", errors.New("assessment is nil"))
	}
	if n.model == nil {
		return n.fallback(a, "unconfigured", nil), nil
	}

	md, err := n.generate(ctx, a, lang)
	if err != nil {
		reason := "error"
		if errors.Is(err, errEmptyNarrative) {
			reason = "empty"
		} else if domain.IsKind(err, domain.ErrTemporary) {
			reason = "unavailable"
		}
		return n.fallback(a, reason, err), nil
	}

	if outline := Inspect(md); !outline.Complete() {
		slog.Warn("narrative_incomplete",
			"company", a.Company,
			"sections", len(outline.Sections),
			"has_title", outline.Title != "",
		)
	}
	return md, nil
}

func (n *Narrator) generate(ctx context.Context, a *domain.Assessment, lang string) (string, error) {
	prompt, err := BuildPrompt(NewPayload(a), lang)
	if err != nil {
		return "", err
	}
	raw, err := n.model.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate narrative: %w", err)
	}
	md := Normalize(raw)
	if md == "" {
		return "", errEmptyNarrative
	}
	return md, nil
}

func (n *Narrator) fallback(a *domain.Assessment, reason string, cause error) string {
	attrs := []any{"company", a.Company, "reason", reason}
	if cause != nil {
		attrs = append(attrs, "error", cause.Error())
	}
	slog.Warn("narrative_fallback", attrs...)
	if n.onFallback != nil {
		n.onFallback(reason)
	}
	return Fallback(a, reason)
}

// Fallback is the static narrative used when no model output is available.
func Fallback(a *domain.Assessment, reason string) string {
	var b strings.Builder
	b.WriteString(Title + "\n\n")
	switch reason {
	case "unconfigured":
		b.WriteString("No language model is configured. Set LLM_PROVIDER and re-run with AI insights enabled.\n")
	case "empty":
		b.WriteString("No text returned from model.\n")
	default:
		b.WriteString("AI insights are temporarily unavailable. The rule-based findings are summarised below.\n")
	}
	if a == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "\n## Summary\n- Financial health: %d/100 (%s)\n- Credit readiness: %d/100\n- Risk: %d/100\n",
		a.Scores.HealthScore, a.Scores.Rating, a.Scores.CreditReadinessScore, a.Scores.RiskScore)
	if len(a.Risks) > 0 {
		b.WriteString("\n## Top Risks\n")
		for _, r := range a.Risks {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", r.Severity, r.Type, r.Signal)
		}
	}
	if len(a.Recommendations) > 0 {
		b.WriteString("\n## Next Steps\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec.Title)
		}
	}
	return b.String()
}
