package domain

import (
	"encoding/json"
	"io"
	"time"
)

type AssessmentStatus string

const (
	StatusQueued     AssessmentStatus = "queued"
	StatusProcessing AssessmentStatus = "processing"
	StatusReady      AssessmentStatus = "ready"
	StatusFailed     AssessmentStatus = "failed"
)

type AssessmentOptions struct {
	MapWithAI bool `json:"map_ai"`
	Narrative bool `json:"ai"`
}

// AssessmentRecord is the persisted envelope around an assessment run.
type AssessmentRecord struct {
	ID          string                 `json:"id"`
	Company     string                 `json:"company"`
	Industry    string                 `json:"industry"`
	Lang        string                 `json:"lang"`
	Status      AssessmentStatus       `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Options     AssessmentOptions      `json:"options"`
	Inputs      map[DatasetKind]string `json:"inputs"`
	Result      json.RawMessage        `json:"result_json,omitempty"`
	ReportMD    string                 `json:"report_md"`
	AIMD        string                 `json:"ai_md"`
	StoragePath string                 `json:"storage_path"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// AssessmentResult is what a finished run writes back to the record.
type AssessmentResult struct {
	Result   json.RawMessage
	ReportMD string
	AIMD     string
}

// Upload is one dataset file supplied with an assessment request.
type Upload struct {
	Kind     DatasetKind
	Filename string
	Body     io.Reader
}

type AssessmentRequest struct {
	Company  string
	Industry string
	Lang     string
	Options  AssessmentOptions
	Uploads  []Upload
}
