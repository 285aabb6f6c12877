package ports

import (
	"context"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

// AssessmentSubmitter is the inbound contract for accepting dataset uploads.
type AssessmentSubmitter interface {
	Submit(ctx context.Context, req domain.AssessmentRequest) (*domain.AssessmentRecord, error)
}

// AssessmentReader is the inbound read model for assessment state and results.
type AssessmentReader interface {
	GetByID(ctx context.Context, id string) (*domain.AssessmentRecord, error)
}

// AssessmentProcessor is the inbound contract for running a stored assessment.
type AssessmentProcessor interface {
	ProcessByID(ctx context.Context, assessmentID string) error
}
