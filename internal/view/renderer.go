package view

import (
	"strings"

	"github.com/funnyzak/reqwatch/pkg/capture"
)

// ColumnKey identifies a table column.
type ColumnKey string

const (
	ColumnID        ColumnKey = "id"
	ColumnTimestamp ColumnKey = "timestamp"
	ColumnMethod    ColumnKey = "method"
	ColumnURL       ColumnKey = "url"
	ColumnBody      ColumnKey = "body"
	ColumnHeaders   ColumnKey = "headers"
)

// DefaultPlaceholder is shown when no row matches.
const DefaultPlaceholder = "No requests"

var defaultTitles = map[ColumnKey]string{
	ColumnID:        "ID",
	ColumnTimestamp: "Timestamp",
	ColumnMethod:    "Method",
	ColumnURL:       "URL",
	ColumnBody:      "Body",
	ColumnHeaders:   "Headers",
}

// Options tune a render without changing which rows are produced.
type Options struct {
	// Headers adds the headers column.
	Headers bool
	// Placeholder replaces DefaultPlaceholder.
	Placeholder string
	// Titles overrides column titles, typically with localized labels.
	Titles map[ColumnKey]string
}

// Column describes one table column.
type Column struct {
	Key   ColumnKey
	Title string
	// Interactive is set on the URL column while a filter is active; activating
	// it clears the filter.
	Interactive bool
}

// Row is one displayed request, or the single placeholder row of an empty
// table.
type Row struct {
	Request   capture.Request
	Timestamp string
	Headers   []capture.Header
	// HeadersInvalid is set when the headers payload could not be decoded.
	HeadersInvalid bool
	// URLInteractive is set while unfiltered; activating the cell filters on
	// the row's url.
	URLInteractive bool

	Placeholder bool
	Text        string
}

// Table is the result of a render.
type Table struct {
	Columns []Column
	Rows    []Row
	// Total is the store size, independent of the filter.
	Total int
	// Matched is the number of real rows.
	Matched  int
	Filter   string
	Filtered bool
}

// Empty reports whether the table holds only the placeholder row.
func (t Table) Empty() bool {
	return t.Matched == 0
}

// Render projects a store snapshot through the filter. It is pure: the same
// inputs always give the same table. Rows come out newest first.
func Render(snapshot []capture.Request, filter Filter, opts Options) Table {
	url, filtered := filter.Value()
	table := Table{
		Columns:  columns(filtered, opts),
		Total:    len(snapshot),
		Filter:   url,
		Filtered: filtered,
	}

	for i := len(snapshot) - 1; i >= 0; i-- {
		req := snapshot[i]
		if !filter.Matches(req.URL) {
			continue
		}
		row := Row{
			Request:        req,
			Timestamp:      FormatTimestamp(req.Timestamp),
			URLInteractive: !filtered,
		}
		if opts.Headers {
			headers, err := VisibleHeaders(req)
			row.Headers = headers
			row.HeadersInvalid = err != nil
		}
		table.Rows = append(table.Rows, row)
	}
	table.Matched = len(table.Rows)

	if table.Matched == 0 {
		text := opts.Placeholder
		if text == "" {
			text = DefaultPlaceholder
		}
		table.Rows = []Row{{Placeholder: true, Text: text}}
	}
	return table
}

func columns(filtered bool, opts Options) []Column {
	keys := []ColumnKey{ColumnID, ColumnTimestamp, ColumnMethod, ColumnURL, ColumnBody}
	if opts.Headers {
		keys = append(keys, ColumnHeaders)
	}

	cols := make([]Column, 0, len(keys))
	for _, key := range keys {
		title := defaultTitles[key]
		if custom, ok := opts.Titles[key]; ok && custom != "" {
			title = custom
		}
		cols = append(cols, Column{
			Key:         key,
			Title:       title,
			Interactive: key == ColumnURL && filtered,
		})
	}
	return cols
}

// FormatTimestamp replaces the first "T" with a space. No timezone
// conversion happens.
func FormatTimestamp(ts string) string {
	return strings.Replace(ts, "T", " ", 1)
}

// VisibleHeaders decodes the request headers and drops names starting with
// "Sec" (case-sensitive). The rest stay sorted by name.
func VisibleHeaders(req capture.Request) ([]capture.Header, error) {
	headers, err := req.DecodeHeaders()
	if err != nil {
		return nil, err
	}
	visible := headers[:0]
	for _, h := range headers {
		if strings.HasPrefix(h.Name, "Sec") {
			continue
		}
		visible = append(visible, h)
	}
	if len(visible) == 0 {
		return nil, nil
	}
	return visible, nil
}
