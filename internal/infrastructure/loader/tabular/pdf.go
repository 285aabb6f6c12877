package tabular

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

// loadPDF extracts page text into a single-cell table. Structured parsing of
// PDF statements is not attempted.
func loadPDF(raw []byte) (table *domain.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read pdf", err)
	}

	parts := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			parts = append(parts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("page %d: %w", i, err))
		}
		parts = append(parts, text)
	}

	return domain.NewTable(
		[]string{domain.TextBlobColumn},
		[][]any{{strings.Join(parts, "\n")}},
	), nil
}
