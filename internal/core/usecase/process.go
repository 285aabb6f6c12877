package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/ports"
)

type ProcessAssessmentUseCase struct {
	repo     ports.AssessmentRepository
	storage  ports.ObjectStorage
	loader   ports.TableLoader
	pipeline *Pipeline
}

func NewProcessAssessmentUseCase(
	repo ports.AssessmentRepository,
	storage ports.ObjectStorage,
	loader ports.TableLoader,
	pipeline *Pipeline,
) *ProcessAssessmentUseCase {
	return &ProcessAssessmentUseCase{
		repo:     repo,
		storage:  storage,
		loader:   loader,
		pipeline: pipeline,
	}
}

func (uc *ProcessAssessmentUseCase) ProcessByID(ctx context.Context, assessmentID string) error {
	if err := uc.markStatus(ctx, assessmentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.processPipeline(ctx, assessmentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, assessmentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistResult(ctx, assessmentID, result); err != nil {
		if failErr := uc.markFailed(ctx, assessmentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, assessmentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessAssessmentUseCase) processPipeline(ctx context.Context, assessmentID string) (domain.AssessmentResult, error) {
	rec, err := uc.loadRecord(ctx, assessmentID)
	if err != nil {
		return domain.AssessmentResult{}, err
	}

	datasets, err := uc.loadTables(ctx, rec)
	if err != nil {
		return domain.AssessmentResult{}, err
	}

	out, err := uc.pipeline.Run(ctx, Job{
		Company:  rec.Company,
		Industry: rec.Industry,
		Lang:     rec.Lang,
		Options:  rec.Options,
		Datasets: datasets,
		Sources:  rec.Inputs,
	})
	if err != nil {
		return domain.AssessmentResult{}, err
	}
	return out.Result, nil
}

func (uc *ProcessAssessmentUseCase) loadRecord(ctx context.Context, assessmentID string) (*domain.AssessmentRecord, error) {
	rec, err := uc.repo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("fetch assessment by id: %w", err)
	}
	return rec, nil
}

func (uc *ProcessAssessmentUseCase) loadTables(ctx context.Context, rec *domain.AssessmentRecord) (map[domain.DatasetKind]*domain.Table, error) {
	kinds := make([]domain.DatasetKind, 0, len(rec.Inputs))
	for kind := range rec.Inputs {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	datasets := make(map[domain.DatasetKind]*domain.Table, len(kinds))
	for _, kind := range kinds {
		table, err := uc.loadTable(ctx, rec.ID, kind, rec.Inputs[kind])
		if err != nil {
			return nil, err
		}
		datasets[kind] = table
	}
	return datasets, nil
}

func (uc *ProcessAssessmentUseCase) loadTable(ctx context.Context, id string, kind domain.DatasetKind, filename string) (*domain.Table, error) {
	body, err := uc.storage.Open(ctx, UploadKey(id, kind, filename))
	if err != nil {
		return nil, fmt.Errorf("open %s upload: %w", kind, err)
	}
	defer func() { _ = body.Close() }()

	table, err := uc.loader.Load(ctx, filename, body)
	if err != nil {
		return nil, fmt.Errorf("load %s table: %w", kind, err)
	}
	return table, nil
}

func (uc *ProcessAssessmentUseCase) persistResult(ctx context.Context, assessmentID string, result domain.AssessmentResult) error {
	if err := uc.repo.SaveResult(ctx, assessmentID, result); err != nil {
		return fmt.Errorf("save assessment result: %w", err)
	}
	return nil
}

func (uc *ProcessAssessmentUseCase) markStatus(ctx context.Context, assessmentID string, status domain.AssessmentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, assessmentID, status, errMessage)
}

func (uc *ProcessAssessmentUseCase) markFailed(ctx context.Context, assessmentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, assessmentID, domain.StatusFailed, processErr.Error())
}
