package ports

import (
	"context"
	"io"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

// AssessmentRepository persists and reads assessment state.
type AssessmentRepository interface {
	Create(ctx context.Context, rec *domain.AssessmentRecord) error
	GetByID(ctx context.Context, id string) (*domain.AssessmentRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.AssessmentStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result domain.AssessmentResult) error
}

// ObjectStorage stores uploaded dataset files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes assessment requests.
type MessageQueue interface {
	PublishAssessmentRequested(ctx context.Context, assessmentID string) error
	SubscribeAssessmentRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TableLoader turns an uploaded file into a raw table.
type TableLoader interface {
	Supports(filename string) bool
	Load(ctx context.Context, filename string, body io.Reader) (*domain.Table, error)
}

// LanguageModel is an optional text-generation backend.
type LanguageModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// ColumnReconciler maps raw headers onto a dataset kind's canonical fields.
// Implementations never fail; they degrade to a weaker mapping instead.
type ColumnReconciler interface {
	Reconcile(ctx context.Context, kind domain.DatasetKind, table *domain.Table) domain.MappingResult
}

// Narrator writes Markdown commentary for a finished assessment.
type Narrator interface {
	Narrate(ctx context.Context, assessment *domain.Assessment, lang string) (string, error)
}
