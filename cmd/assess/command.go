package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/sme-health/internal/bootstrap"
	"github.com/kirillkom/sme-health/internal/config"
	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/narrative"
	"github.com/kirillkom/sme-health/internal/core/ports"
	"github.com/kirillkom/sme-health/internal/core/usecase"
	"github.com/kirillkom/sme-health/internal/infrastructure/loader/tabular"
	"github.com/kirillkom/sme-health/internal/observability/logging"
)

type options struct {
	Company   string
	Industry  string
	Lang      string
	OutDir    string
	MapWithAI bool
	Narrative bool
	Horizon   int
	Inputs    map[domain.DatasetKind]string
}

type outputFile struct {
	name string
	body []byte
}

func newRootCommand() *cobra.Command {
	cfg := config.Load()
	opts := options{Inputs: make(map[domain.DatasetKind]string, len(domain.DatasetKinds))}
	paths := make(map[domain.DatasetKind]*string, len(domain.DatasetKinds))

	cmd := &cobra.Command{
		Use:           "assess",
		Short:         "Assess the financial health of a business from its ledger exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slog.SetDefault(logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "assess", cfg.LogLevel))
			for kind, path := range paths {
				if p := strings.TrimSpace(*path); p != "" {
					opts.Inputs[kind] = p
				}
			}
			if opts.Horizon > 0 {
				cfg.ForecastHorizon = opts.Horizon
			}

			pipeline, err := bootstrap.NewPipeline(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			written, err := runAssessment(cmd.Context(), pipeline, tabular.New(), opts)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Company, "company", "", "company name (required)")
	flags.StringVar(&opts.Industry, "industry", "", "industry used for benchmarking (required)")
	flags.StringVar(&opts.Lang, "lang", cfg.NarrativeLang, "narrative language: en or hi")
	flags.StringVar(&opts.OutDir, "outdir", "out", "directory for generated files")
	flags.BoolVar(&opts.MapWithAI, "map_ai", cfg.MapWithAI, "ask the language model to map columns")
	flags.BoolVar(&opts.Narrative, "ai", cfg.NarrativeEnabled, "write AI insights next to the report")
	flags.IntVar(&opts.Horizon, "horizon", cfg.ForecastHorizon, "forecast horizon in months")
	for _, kind := range domain.DatasetKinds {
		paths[kind] = flags.String(string(kind), "", fmt.Sprintf("%s file (.csv, .xlsx, .xlsm, .pdf)", kind))
	}
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("industry")

	return cmd
}

// runAssessment loads every input file, runs the pipeline and writes the
// outputs. It returns the written paths in creation order.
func runAssessment(ctx context.Context, pipeline *usecase.Pipeline, loader ports.TableLoader, opts options) ([]string, error) {
	company := strings.TrimSpace(opts.Company)
	industry := strings.ToLower(strings.TrimSpace(opts.Industry))
	if company == "" || industry == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "assess", errors.New("company and industry are required"))
	}

	datasets := make(map[domain.DatasetKind]*domain.Table, len(opts.Inputs))
	sources := make(map[domain.DatasetKind]string, len(opts.Inputs))
	for _, kind := range domain.DatasetKinds {
		path, ok := opts.Inputs[kind]
		if !ok {
			continue
		}
		table, err := loadFile(ctx, loader, path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", kind, err)
		}
		datasets[kind] = table
		sources[kind] = filepath.Base(path)
	}

	lang := narrative.NormalizeLang(opts.Lang)
	out, err := pipeline.Run(ctx, usecase.Job{
		Company:  company,
		Industry: industry,
		Lang:     lang,
		Options:  domain.AssessmentOptions{MapWithAI: opts.MapWithAI, Narrative: opts.Narrative},
		Datasets: datasets,
		Sources:  sources,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create out dir: %w", err)
	}

	assessmentJSON, err := json.MarshalIndent(out.Assessment, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode assessment: %w", err)
	}

	files := []outputFile{
		{name: "assessment.json", body: assessmentJSON},
		{name: "investor_report.md", body: []byte(out.Result.ReportMD)},
	}
	if opts.Narrative {
		files = append(files, outputFile{name: "ai_suggestions_" + lang + ".md", body: []byte(out.Result.AIMD)})
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(opts.OutDir, f.name)
		if err := os.WriteFile(path, f.body, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func loadFile(ctx context.Context, loader ports.TableLoader, path string) (*domain.Table, error) {
	if !loader.Supports(path) {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "load file", fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return loader.Load(ctx, filepath.Base(path), file)
}
