package loader

import (
	"context"
	"io"
	"strings"
)

type TextLoader struct{}

func NewTextLoader() *TextLoader { return &TextLoader{} }

func (l *TextLoader) Name() string             { return "text" }
func (l *TextLoader) SupportedTypes() []string { return []string{".txt", ".text", ".log"} }
func (l *TextLoader) MimeTypes() []string      { return []string{"text/plain"} }

func (l *TextLoader) Load(ctx context.Context, r io.Reader) (*Document, error) {
	text, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}
	return &Document{Text: strings.TrimSpace(text), Metadata: map[string]string{}}, nil
}

// MarkdownLoader keeps markdown as-is so the structured chunker can split on
// blank lines, and records the first heading as the title.
type MarkdownLoader struct{}

func NewMarkdownLoader() *MarkdownLoader { return &MarkdownLoader{} }

func (l *MarkdownLoader) Name() string             { return "markdown" }
func (l *MarkdownLoader) SupportedTypes() []string { return []string{".md", ".markdown"} }
func (l *MarkdownLoader) MimeTypes() []string      { return []string{"text/markdown", "text/x-markdown"} }

func (l *MarkdownLoader) Load(ctx context.Context, r io.Reader) (*Document, error) {
	text, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}
	text = stripFrontMatter(text)

	meta := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		if title, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			meta["title"] = strings.TrimSpace(title)
			break
		}
	}
	return &Document{Text: strings.TrimSpace(text), Metadata: meta}, nil
}

func stripFrontMatter(text string) string {
	if !strings.HasPrefix(text, "---\n") {
		return text
	}
	end := strings.Index(text[4:], "\n---")
	if end < 0 {
		return text
	}
	rest := text[4+end+4:]
	return strings.TrimPrefix(rest, "\n")
}
