package printer

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

// JSONPrinter 每次渲染输出一行 JSON
type JSONPrinter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	logger  logger.Logger
}

// NewJSONPrinter 创建 JSON 输出器
func NewJSONPrinter(out io.Writer, log logger.Logger) *JSONPrinter {
	if out == nil {
		out = os.Stdout
	}
	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)
	return &JSONPrinter{encoder: encoder, logger: log}
}

// RowRecord is the exported shape of one table row.
type RowRecord struct {
	ID        string           `json:"id"`
	Timestamp string           `json:"timestamp"`
	Method    string           `json:"method"`
	URL       string           `json:"url"`
	Body      string           `json:"body"`
	Headers   []capture.Header `json:"headers,omitempty"`
}

type jsonTableEnvelope struct {
	Type        string      `json:"type"`
	Total       int         `json:"total"`
	Matched     int         `json:"matched"`
	Filter      *string     `json:"filter"`
	Placeholder string      `json:"placeholder,omitempty"`
	Rows        []RowRecord `json:"rows"`
}

// Records converts the real rows of a table, newest first.
func Records(table view.Table) []RowRecord {
	records := make([]RowRecord, 0, table.Matched)
	for _, row := range table.Rows {
		if row.Placeholder {
			continue
		}
		records = append(records, RowRecord{
			ID:        row.Request.ID.String(),
			Timestamp: row.Timestamp,
			Method:    row.Request.Method,
			URL:       row.Request.URL,
			Body:      row.Request.Body,
			Headers:   row.Headers,
		})
	}
	return records
}

// Render implements view.Sink
func (p *JSONPrinter) Render(table view.Table) {
	p.mu.Lock()
	defer p.mu.Unlock()

	env := jsonTableEnvelope{
		Type:    "table",
		Total:   table.Total,
		Matched: table.Matched,
		Rows:    Records(table),
	}
	if table.Filtered {
		filter := table.Filter
		env.Filter = &filter
	}
	if table.Empty() && len(table.Rows) == 1 {
		env.Placeholder = table.Rows[0].Text
	}
	if err := p.encoder.Encode(env); err != nil && p.logger != nil {
		p.logger.Error("Failed to encode table JSON", "error", err)
	}
}
