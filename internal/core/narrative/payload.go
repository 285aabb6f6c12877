// Package narrative prepares the language-model brief for an assessment
// and turns whatever comes back into a usable Markdown document.
package narrative

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

// Payload is the only data the model is allowed to reason over.
type Payload struct {
	Company             string                                      `json:"company"`
	Industry            string                                      `json:"industry"`
	Scores              domain.Scores                               `json:"scores"`
	KPIs                domain.KPISet                               `json:"kpis"`
	Risks               []domain.RiskFlag                           `json:"risks"`
	RuleRecommendations []domain.Recommendation                     `json:"rule_recommendations"`
	Benchmarks          domain.Benchmark                            `json:"benchmarks"`
	Forecast            domain.Forecast                             `json:"forecast"`
	Breakdowns          domain.Breakdowns                           `json:"breakdowns"`
	Mappings            map[domain.DatasetKind]domain.MappingReport `json:"mappings"`
	Notes               []string                                    `json:"notes"`
}

func NewPayload(a *domain.Assessment) Payload {
	return Payload{
		Company:             a.Company,
		Industry:            a.Industry,
		Scores:              a.Scores,
		KPIs:                a.KPIs,
		Risks:               a.Risks,
		RuleRecommendations: a.Recommendations,
		Benchmarks:          a.Benchmarks,
		Forecast:            a.Forecast,
		Breakdowns:          a.Breakdowns,
		Mappings:            a.Mappings,
		Notes:               a.Notes,
	}
}

const (
	LangEnglish = "en"
	LangHindi   = "hi"
)

// NormalizeLang maps free-form language labels onto the supported set.
func NormalizeLang(lang string) string {
	if strings.EqualFold(strings.TrimSpace(lang), LangHindi) {
		return LangHindi
	}
	return LangEnglish
}

// BuildPrompt renders the instructions and the JSON payload.
func BuildPrompt(p Payload, lang string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode narrative payload: %w", err)
	}

	langRule := "Write in simple English. Use INR formatting where relevant."
	if NormalizeLang(lang) == LangHindi {
		langRule = "Write in simple Hindi (easy words). Use INR formatting where relevant."
	}

	return fmt.Sprintf(`You are an SME finance assistant. Use only the JSON data below.
Do not invent numbers. If any metric looks unrealistic/extreme, call it out and suggest what data to verify.
Avoid repeating the rule_recommendations unless you are improving them.

%s

Output Markdown with exactly:

%s
## 1) Executive Summary (5 bullets)
## 2) What the Data Means (interpret KPIs, breakdowns)
## 3) Deeper Risks (beyond rule-based) (max 7)
## 4) 30-60 Day Plan (prioritized checklist)
## 5) Cost Optimization (use expense breakdown if available)
## 6) Working Capital Optimization (AR/AP/Inventory)
## 7) Revenue Strategy (use revenue breakdown if available)
## 8) Tax & Compliance Notes (if tax data present)
## 9) Data Quality Checks (max 12)
## 10) What to Track Weekly (5 KPIs)

JSON:
%s`, langRule, Title, strings.TrimRight(buf.String(), "\n")), nil
}
