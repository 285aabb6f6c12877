package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

type statusCall struct {
	status domain.AssessmentStatus
	errMsg string
}

type repoFake struct {
	mu            sync.Mutex
	records       map[string]*domain.AssessmentRecord
	createErr     error
	saveErr       error
	failStatusErr error
	statusCalls   []statusCall
	saved         domain.AssessmentResult
}

func newRepoFake() *repoFake {
	return &repoFake{records: map[string]*domain.AssessmentRecord{}}
}

func (f *repoFake) Create(_ context.Context, rec *domain.AssessmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copyRec := *rec
	f.records[rec.ID] = &copyRec
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.AssessmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAssessmentNotFound, "get assessment", errors.New(id))
	}
	copyRec := *rec
	return &copyRec, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.AssessmentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if rec, ok := f.records[id]; ok {
		rec.Status = status
		rec.Error = errMessage
	}
	return nil
}

func (f *repoFake) SaveResult(_ context.Context, id string, result domain.AssessmentResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = result
	if rec, ok := f.records[id]; ok {
		rec.Result = result.Result
		rec.ReportMD = result.ReportMD
		rec.AIMD = result.AIMD
	}
	return nil
}

func (f *repoFake) lastStatus() domain.AssessmentStatus {
	if len(f.statusCalls) == 0 {
		return ""
	}
	return f.statusCalls[len(f.statusCalls)-1].status
}

type storageFake struct {
	files   map[string]string
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{files: map[string]string{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.files[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.files[key]
	if !ok {
		return nil, errors.New("missing object " + key)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishAssessmentRequested(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func (f *queueFake) SubscribeAssessmentRequested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

// lineLoader reads "a,b\n1,2" style bodies without any quoting rules.
type lineLoader struct {
	err error
}

func (l *lineLoader) Supports(filename string) bool {
	return !strings.HasSuffix(filename, ".exe")
}

func (l *lineLoader) Load(_ context.Context, filename string, body io.Reader) (*domain.Table, error) {
	if l.err != nil {
		return nil, l.err
	}
	if strings.HasSuffix(filename, ".bin") {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "load table", errors.New(filename))
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	columns := strings.Split(lines[0], ",")
	rows := make([][]any, 0, len(lines)-1)
	for _, line := range lines[1:] {
		var row []any
		for _, cell := range strings.Split(line, ",") {
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return domain.NewTable(columns, rows), nil
}

type narratorFake struct {
	calls int
	lang  string
	err   error
}

func (f *narratorFake) Narrate(_ context.Context, _ *domain.Assessment, lang string) (string, error) {
	f.calls++
	f.lang = lang
	if f.err != nil {
		return "", f.err
	}
	return "# AI Insights & Next Steps\n\nok\n", nil
}
