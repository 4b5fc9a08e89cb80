package printer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

// Export formats accepted by WriteTable.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// WriteTable writes a rendered table once in the requested format.
func WriteTable(w io.Writer, format string, table view.Table, loc i18n.Localizer) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatTable:
		return NewTablePrinter(w, loc).Print(table)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		return encoder.Encode(Records(table))
	case FormatCSV:
		return writeCSV(w, table)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

func writeCSV(w io.Writer, table view.Table) error {
	writer := csv.NewWriter(w)

	header := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		header = append(header, string(col.Key))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range table.Rows {
		if row.Placeholder {
			continue
		}
		line := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			switch col.Key {
			case view.ColumnBody:
				line = append(line, row.Request.Body)
			case view.ColumnHeaders:
				if len(row.Headers) == 0 {
					line = append(line, "")
					continue
				}
				headersJSON, _ := json.Marshal(row.Headers)
				line = append(line, string(headersJSON))
			default:
				line = append(line, CellText(col.Key, row))
			}
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
