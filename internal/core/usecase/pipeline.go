package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/engine"
	"github.com/kirillkom/sme-health/internal/core/ports"
	"github.com/kirillkom/sme-health/internal/core/report"
)

// Job is one assessment over tables that are already in memory.
type Job struct {
	Company  string
	Industry string
	Lang     string
	Options  domain.AssessmentOptions
	Datasets map[domain.DatasetKind]*domain.Table
	Sources  map[domain.DatasetKind]string
}

// Outcome carries the structured assessment and its rendered artefacts.
type Outcome struct {
	Assessment *domain.Assessment
	Result     domain.AssessmentResult
}

// Pipeline runs engine, report rendering and the optional narrative.
type Pipeline struct {
	engine   *engine.Engine
	narrator ports.Narrator
	horizon  int
	now      func() time.Time
}

// NewPipeline builds a pipeline. narrator may be nil; horizon <= 0 uses the
// engine default.
func NewPipeline(eng *engine.Engine, narrator ports.Narrator, horizon int) *Pipeline {
	return &Pipeline{
		engine:   eng,
		narrator: narrator,
		horizon:  horizon,
		now:      time.Now,
	}
}

func (p *Pipeline) Run(ctx context.Context, job Job) (Outcome, error) {
	now := p.now()
	started := time.Now()

	assessment := p.engine.Run(ctx, engine.Input{
		Company:   job.Company,
		Industry:  job.Industry,
		Datasets:  job.Datasets,
		Sources:   job.Sources,
		AsOf:      now,
		Horizon:   p.horizon,
		MapWithAI: job.Options.MapWithAI,
	})

	raw, err := json.Marshal(assessment)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode assessment: %w", err)
	}

	out := Outcome{
		Assessment: assessment,
		Result: domain.AssessmentResult{
			Result:   raw,
			ReportMD: report.Render(assessment, now),
		},
	}

	if job.Options.Narrative && p.narrator != nil {
		md, err := p.narrator.Narrate(ctx, assessment, job.Lang)
		if err != nil {
			return Outcome{}, fmt.Errorf("narrate assessment: %w", err)
		}
		out.Result.AIMD = md
	}

	slog.Info("assessment_computed",
		"company", job.Company,
		"industry", job.Industry,
		"datasets", len(job.Datasets),
		"health_score", assessment.Scores.HealthScore,
		"rating", assessment.Scores.Rating,
		"narrative", out.Result.AIMD != "",
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return out, nil
}
