package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVLoader renders each row as "header: value" pairs on its own paragraph,
// which is how training logs exported from spreadsheets read best in a prompt.
type CSVLoader struct{}

func NewCSVLoader() *CSVLoader { return &CSVLoader{} }

func (l *CSVLoader) Name() string             { return "csv" }
func (l *CSVLoader) SupportedTypes() []string { return []string{".csv"} }
func (l *CSVLoader) MimeTypes() []string      { return []string{"text/csv"} }

func (l *CSVLoader) Load(ctx context.Context, r io.Reader) (*Document, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Document{Metadata: map[string]string{"rows": "0"}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var b strings.Builder
	rows := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rows+1, err)
		}

		if rows > 0 {
			b.WriteString("\n\n")
		}
		for i, v := range record {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) && header[i] != "" {
				name = header[i]
			}
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(v)
		}
		rows++
	}

	return &Document{
		Text:     b.String(),
		Metadata: map[string]string{"rows": strconv.Itoa(rows), "columns": strings.Join(header, ",")},
	}, nil
}
