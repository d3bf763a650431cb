package page

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser renders each data row as "header: value" pairs so the model
// sees which column a value belongs to.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader) (string, string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", "", nil
	}

	headers := records[0]
	var text strings.Builder
	text.WriteString("Headers: " + strings.Join(headers, ", "))
	for _, row := range records[1:] {
		text.WriteString("\n")
		for j, cell := range row {
			if j > 0 {
				text.WriteString(", ")
			}
			if j < len(headers) {
				text.WriteString(headers[j] + ": " + cell)
			} else {
				text.WriteString(cell)
			}
		}
	}
	return "", text.String(), nil
}
