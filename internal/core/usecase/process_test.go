package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/engine"
)

func seedRecord(repo *repoFake, storage *storageFake, inputs map[domain.DatasetKind]string, bodies map[domain.DatasetKind]string) {
	rec := &domain.AssessmentRecord{
		ID:       "a-1",
		Company:  "Acme",
		Industry: "retail",
		Lang:     "en",
		Status:   domain.StatusQueued,
		Inputs:   inputs,
	}
	repo.records[rec.ID] = rec
	for kind, body := range bodies {
		storage.files[UploadKey(rec.ID, kind, inputs[kind])] = body
	}
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	seedRecord(repo, storage,
		map[domain.DatasetKind]string{domain.KindSales: "sales.csv", domain.KindAR: "ar.csv"},
		map[domain.DatasetKind]string{
			domain.KindSales: salesCSV,
			domain.KindAR:    "Outstanding,Due Date\n5000,2024-01-01\n",
		},
	)

	pipeline := NewPipeline(engine.New(nil, nil), nil, 3)
	pipeline.now = func() time.Time { return time.Date(2024, 4, 15, 9, 30, 0, 0, time.UTC) }
	uc := NewProcessAssessmentUseCase(repo, storage, &lineLoader{}, pipeline)

	if err := uc.ProcessByID(context.Background(), "a-1"); err != nil {
		t.Fatalf("ProcessByID returned error: %v", err)
	}

	if len(repo.statusCalls) != 2 || repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status calls: %+v", repo.statusCalls)
	}
	result := string(repo.saved.Result)
	if !strings.Contains(result, `"90+":5000`) {
		t.Fatalf("expected AR aging in result, got %s", result)
	}
	if !strings.Contains(result, `"horizon_months":3`) {
		t.Fatalf("expected configured horizon, got %s", result)
	}
	if !strings.Contains(repo.saved.ReportMD, "2024-04-15") {
		t.Fatalf("expected generation date in report, got %q", repo.saved.ReportMD)
	}
	if repo.saved.AIMD != "" {
		t.Fatalf("narrative not requested")
	}
}

func TestProcessByIDLoaderFailureMarksFailed(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	seedRecord(repo, storage,
		map[domain.DatasetKind]string{domain.KindSales: "sales.bin"},
		map[domain.DatasetKind]string{domain.KindSales: "??"},
	)
	uc := NewProcessAssessmentUseCase(repo, storage, &lineLoader{}, NewPipeline(engine.New(nil, nil), nil, 0))

	err := uc.ProcessByID(context.Background(), "a-1")
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.StatusFailed || !strings.Contains(last.errMsg, "sales.bin") {
		t.Fatalf("expected failed status with message, got %+v", last)
	}
}

func TestProcessByIDMissingUpload(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	seedRecord(repo, storage, map[domain.DatasetKind]string{domain.KindAP: "ap.csv"}, nil)
	uc := NewProcessAssessmentUseCase(repo, storage, &lineLoader{}, NewPipeline(engine.New(nil, nil), nil, 0))

	if err := uc.ProcessByID(context.Background(), "a-1"); err == nil || !strings.Contains(err.Error(), "open ap upload") {
		t.Fatalf("expected open error, got %v", err)
	}
	if repo.lastStatus() != domain.StatusFailed {
		t.Fatalf("expected failed status")
	}
}

func TestProcessByIDNotFound(t *testing.T) {
	repo := newRepoFake()
	uc := NewProcessAssessmentUseCase(repo, newStorageFake(), &lineLoader{}, NewPipeline(engine.New(nil, nil), nil, 0))

	if err := uc.ProcessByID(context.Background(), "missing"); !domain.IsKind(err, domain.ErrAssessmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessByIDSaveFailureAndMarkFailedError(t *testing.T) {
	repo := newRepoFake()
	repo.saveErr = errors.New("db write failed")
	repo.failStatusErr = errors.New("db down")
	storage := newStorageFake()
	seedRecord(repo, storage, map[domain.DatasetKind]string{}, nil)
	uc := NewProcessAssessmentUseCase(repo, storage, &lineLoader{}, NewPipeline(engine.New(nil, nil), nil, 0))

	err := uc.ProcessByID(context.Background(), "a-1")
	if err == nil || !strings.Contains(err.Error(), "db write failed") || !strings.Contains(err.Error(), "mark failed status") {
		t.Fatalf("expected combined error, got %v", err)
	}
}

func TestProcessByIDNarratorErrorFails(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	seedRecord(repo, storage, map[domain.DatasetKind]string{}, nil)
	repo.records["a-1"].Options.Narrative = true
	narrator := &narratorFake{err: domain.WrapError(domain.ErrInvalidInput, "narrate", errors.New("bad"))}
	uc := NewProcessAssessmentUseCase(repo, storage, &lineLoader{}, NewPipeline(engine.New(nil, nil), narrator, 0))

	if err := uc.ProcessByID(context.Background(), "a-1"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected narrator error, got %v", err)
	}
}
