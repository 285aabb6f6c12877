package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/narrative"
	"github.com/kirillkom/sme-health/internal/core/ports"
)

// AssessUseCase accepts uploads, persists them and either runs the
// assessment inline or hands it to the worker queue.
type AssessUseCase struct {
	repo      ports.AssessmentRepository
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	processor ports.AssessmentProcessor
	loader    ports.TableLoader
	async     bool
}

// NewAssessUseCase wires the submit path. queue is only used when async is
// true; processor is only used when async is false. loader, when set, rejects
// unreadable file types before anything is stored.
func NewAssessUseCase(
	repo ports.AssessmentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	processor ports.AssessmentProcessor,
	loader ports.TableLoader,
	async bool,
) *AssessUseCase {
	return &AssessUseCase{
		repo:      repo,
		storage:   storage,
		queue:     queue,
		processor: processor,
		loader:    loader,
		async:     async,
	}
}

func (uc *AssessUseCase) Async() bool {
	return uc.async
}

func (uc *AssessUseCase) Submit(ctx context.Context, req domain.AssessmentRequest) (*domain.AssessmentRecord, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}
	if uc.loader != nil {
		for _, upload := range req.Uploads {
			if !uc.loader.Supports(upload.Filename) {
				return nil, domain.WrapError(domain.ErrUnsupportedFormat, "submit assessment",
					fmt.Errorf("%s: unsupported file type %q", upload.Kind, filepath.Ext(upload.Filename)))
			}
		}
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	rec := &domain.AssessmentRecord{
		ID:          id,
		Company:     req.Company,
		Industry:    req.Industry,
		Lang:        req.Lang,
		Status:      domain.StatusQueued,
		Options:     req.Options,
		Inputs:      make(map[domain.DatasetKind]string, len(req.Uploads)),
		StoragePath: id,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, upload := range req.Uploads {
		filename := sanitizeFilename(upload.Filename)
		if err := uc.storage.Save(ctx, UploadKey(id, upload.Kind, filename), upload.Body); err != nil {
			return nil, fmt.Errorf("save %s upload: %w", upload.Kind, err)
		}
		rec.Inputs[upload.Kind] = filename
	}

	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create assessment record: %w", err)
	}

	if uc.async {
		if err := uc.queue.PublishAssessmentRequested(ctx, id); err != nil {
			_ = uc.repo.UpdateStatus(ctx, id, domain.StatusFailed, err.Error())
			return nil, fmt.Errorf("publish assessment request: %w", err)
		}
		return rec, nil
	}

	if err := uc.processor.ProcessByID(ctx, id); err != nil {
		return nil, err
	}
	done, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload assessment: %w", err)
	}
	return done, nil
}

func (uc *AssessUseCase) GetByID(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	return uc.repo.GetByID(ctx, id)
}

func normalizeRequest(req domain.AssessmentRequest) (domain.AssessmentRequest, error) {
	req.Company = strings.TrimSpace(req.Company)
	req.Industry = strings.ToLower(strings.TrimSpace(req.Industry))
	req.Lang = narrative.NormalizeLang(req.Lang)

	if req.Company == "" || req.Industry == "" {
		return req, domain.WrapError(domain.ErrInvalidInput, "submit assessment", errors.New("company and industry are required"))
	}

	seen := make(map[domain.DatasetKind]struct{}, len(req.Uploads))
	for _, upload := range req.Uploads {
		if _, ok := domain.ParseDatasetKind(string(upload.Kind)); !ok {
			return req, domain.WrapError(domain.ErrInvalidInput, "submit assessment", fmt.Errorf("unknown dataset kind %q", upload.Kind))
		}
		if _, dup := seen[upload.Kind]; dup {
			return req, domain.WrapError(domain.ErrInvalidInput, "submit assessment", fmt.Errorf("dataset %q uploaded twice", upload.Kind))
		}
		if upload.Body == nil {
			return req, domain.WrapError(domain.ErrInvalidInput, "submit assessment", fmt.Errorf("dataset %q has no body", upload.Kind))
		}
		seen[upload.Kind] = struct{}{}
	}
	return req, nil
}

// UploadKey is the storage key of one dataset file: <id>/<kind><ext>.
func UploadKey(id string, kind domain.DatasetKind, filename string) string {
	return path.Join(id, string(kind)+strings.ToLower(filepath.Ext(filename)))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "dataset.bin"
	}
	return base
}
