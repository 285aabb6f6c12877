package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/engine"
)

const salesCSV = "Date,Amount\n2024-01-05,1000\n2024-02-03,1200\n"

func newSyncUseCase(repo *repoFake, storage *storageFake, narrator *narratorFake) *AssessUseCase {
	pipeline := NewPipeline(engine.New(nil, nil), narrator, 0)
	processor := NewProcessAssessmentUseCase(repo, storage, &lineLoader{}, pipeline)
	return NewAssessUseCase(repo, storage, nil, processor, &lineLoader{}, false)
}

func TestSubmitSyncComputesAssessment(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	narrator := &narratorFake{}
	uc := newSyncUseCase(repo, storage, narrator)

	rec, err := uc.Submit(context.Background(), domain.AssessmentRequest{
		Company:  "  Acme  ",
		Industry: " Retail ",
		Lang:     "HI",
		Options:  domain.AssessmentOptions{Narrative: true},
		Uploads: []domain.Upload{
			{Kind: domain.KindSales, Filename: "my sales.CSV", Body: strings.NewReader(salesCSV)},
		},
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if rec.Status != domain.StatusReady {
		t.Fatalf("expected ready status, got %s", rec.Status)
	}
	if rec.Company != "Acme" || rec.Industry != "retail" || rec.Lang != "hi" {
		t.Fatalf("unexpected normalized record: %+v", rec)
	}
	if rec.Inputs[domain.KindSales] != "my_sales.CSV" {
		t.Fatalf("unexpected inputs: %+v", rec.Inputs)
	}
	if _, ok := storage.files[rec.ID+"/sales.csv"]; !ok {
		t.Fatalf("expected upload stored under assessment dir, got %v", storage.files)
	}
	if !strings.Contains(string(rec.Result), `"health_score"`) {
		t.Fatalf("expected result json, got %s", rec.Result)
	}
	if !strings.HasPrefix(rec.ReportMD, "# Investor-Ready Financial Snapshot - Acme") {
		t.Fatalf("unexpected report: %q", rec.ReportMD)
	}
	if narrator.calls != 1 || narrator.lang != "hi" || rec.AIMD == "" {
		t.Fatalf("expected narrative in hindi, calls=%d lang=%q", narrator.calls, narrator.lang)
	}
}

func TestSubmitSkipsNarrativeWhenNotRequested(t *testing.T) {
	repo := newRepoFake()
	narrator := &narratorFake{}
	uc := newSyncUseCase(repo, newStorageFake(), narrator)

	rec, err := uc.Submit(context.Background(), domain.AssessmentRequest{Company: "Acme", Industry: "services"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if narrator.calls != 0 || rec.AIMD != "" {
		t.Fatalf("narrative must not run, calls=%d", narrator.calls)
	}
}

func TestSubmitValidation(t *testing.T) {
	uc := newSyncUseCase(newRepoFake(), newStorageFake(), nil)

	cases := []domain.AssessmentRequest{
		{Company: "", Industry: "retail"},
		{Company: "Acme", Industry: "  "},
		{Company: "Acme", Industry: "retail", Uploads: []domain.Upload{{Kind: "payroll", Filename: "a.csv", Body: strings.NewReader("x")}}},
		{Company: "Acme", Industry: "retail", Uploads: []domain.Upload{
			{Kind: domain.KindAR, Filename: "a.csv", Body: strings.NewReader("x")},
			{Kind: domain.KindAR, Filename: "b.csv", Body: strings.NewReader("y")},
		}},
		{Company: "Acme", Industry: "retail", Uploads: []domain.Upload{{Kind: domain.KindAR, Filename: "a.csv"}}},
	}
	for i, req := range cases {
		if _, err := uc.Submit(context.Background(), req); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestSubmitRejectsUnsupportedUpload(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	uc := newSyncUseCase(repo, storage, nil)

	_, err := uc.Submit(context.Background(), domain.AssessmentRequest{
		Company:  "Acme",
		Industry: "retail",
		Uploads:  []domain.Upload{{Kind: domain.KindLoans, Filename: "loans.exe", Body: strings.NewReader("MZ")}},
	})
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if len(storage.files) != 0 || len(repo.records) != 0 {
		t.Fatalf("nothing may be stored for rejected uploads")
	}
}

func TestSubmitAsyncPublishes(t *testing.T) {
	repo := newRepoFake()
	queue := &queueFake{}
	uc := NewAssessUseCase(repo, newStorageFake(), queue, nil, nil, true)

	rec, err := uc.Submit(context.Background(), domain.AssessmentRequest{Company: "Acme", Industry: "retail"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if rec.Status != domain.StatusQueued {
		t.Fatalf("expected queued status, got %s", rec.Status)
	}
	if len(queue.published) != 1 || queue.published[0] != rec.ID {
		t.Fatalf("expected published id %s, got %v", rec.ID, queue.published)
	}
	if !uc.Async() {
		t.Fatalf("expected async use case")
	}
}

func TestSubmitAsyncPublishFailureMarksFailed(t *testing.T) {
	repo := newRepoFake()
	uc := NewAssessUseCase(repo, newStorageFake(), &queueFake{err: errors.New("nats down")}, nil, nil, true)

	if _, err := uc.Submit(context.Background(), domain.AssessmentRequest{Company: "Acme", Industry: "retail"}); err == nil {
		t.Fatalf("expected publish error")
	}
	if repo.lastStatus() != domain.StatusFailed {
		t.Fatalf("expected failed status, got %v", repo.statusCalls)
	}
}

func TestSubmitStorageError(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	storage.saveErr = errors.New("disk full")
	uc := newSyncUseCase(repo, storage, nil)

	_, err := uc.Submit(context.Background(), domain.AssessmentRequest{
		Company:  "Acme",
		Industry: "retail",
		Uploads:  []domain.Upload{{Kind: domain.KindSales, Filename: "s.csv", Body: strings.NewReader(salesCSV)}},
	})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(repo.records) != 0 {
		t.Fatalf("record must not be created when storage fails")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":   "passwd",
		`C:\data\sales.csv`:  "sales.csv",
		"q1 report (v2).csv": "q1_report__v2_.csv",
		"":                   "dataset.bin",
		"..":                 "dataset.bin",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadKey(t *testing.T) {
	if got := UploadKey("abc", domain.KindAP, "Bills.XLSX"); got != "abc/ap.xlsx" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := UploadKey("abc", domain.KindTax, "noext"); got != "abc/tax" {
		t.Fatalf("unexpected key %q", got)
	}
}
