package narrative

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	Title            = "# AI Insights & Next Steps"
	ExpectedSections = 10
)

// Normalize strips wrapping code fences and guarantees a top-level heading.
// Empty input stays empty.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimPrefix(s, "```markdown")
		s = strings.TrimPrefix(s, "```md")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "#") {
		s = Title + "\n\n" + s
	}
	return s + "\n"
}

// Outline is the heading skeleton of a narrative document.
type Outline struct {
	Title    string
	Sections []string
}

// Complete reports whether the document opens with a title and carries
// every requested section.
func (o Outline) Complete() bool {
	return o.Title != "" && len(o.Sections) == ExpectedSections
}

// Inspect parses md and collects its level 1 and level 2 headings. Title is
// set only when the first block of the document is a level 1 heading.
func Inspect(md string) Outline {
	src := []byte(md)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var out Outline
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		switch {
		case h.Level == 1 && n == doc.FirstChild():
			out.Title = headingText(h, src)
		case h.Level == 2:
			out.Sections = append(out.Sections, headingText(h, src))
		}
	}
	return out
}

func headingText(h *ast.Heading, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
