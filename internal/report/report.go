// Package report renders search results and prepared-table summaries.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/robert-malhotra/emit-prep/internal/locator"
	"github.com/robert-malhotra/emit-prep/internal/prepare"
	"github.com/robert-malhotra/emit-prep/pkg/footprint"
)

// Output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Columns is the column order of a search result.
var Columns = []string{"asset_name", "asset_url", "cloud_cover", "granule_poly"}

const polyWidth = 60

// Record is the flat form of a search result row.
type Record struct {
	AssetName   string   `json:"asset_name"`
	AssetURL    string   `json:"asset_url"`
	CloudCover  *float64 `json:"cloud_cover"`
	GranulePoly string   `json:"granule_poly"`
}

// NewRecord flattens a row, encoding its footprint as WKT.
func NewRecord(r locator.Row) Record {
	return Record{
		AssetName:   r.AssetName,
		AssetURL:    r.AssetURL,
		CloudCover:  r.CloudCover,
		GranulePoly: footprint.ToWKT(r.Footprint),
	}
}

// RenderRows writes rows to w in the given format.
func RenderRows(w io.Writer, rows []locator.Row, format string) error {
	records := make([]Record, len(rows))
	for i, r := range rows {
		records[i] = NewRecord(r)
	}

	switch format {
	case FormatJSON:
		return renderJSON(w, records)
	case FormatCSV:
		lines := make([][]string, 0, len(records)+1)
		lines = append(lines, Columns)
		for _, r := range records {
			lines = append(lines, []string{r.AssetName, r.AssetURL, formatCloudCover(r.CloudCover), r.GranulePoly})
		}
		return renderCSV(w, lines)
	case FormatTable, "":
		if len(records) == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		t := recordTable(w, records)
		t.SetStyle(table.StyleLight)
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "granule_poly", WidthMax: polyWidth},
		})
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(records))
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func recordTable(w io.Writer, records []Record) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range records {
		t.AppendRow(table.Row{r.AssetName, r.AssetURL, formatCloudCover(r.CloudCover), r.GranulePoly})
	}
	return t
}

func formatCloudCover(v *float64) string {
	if v == nil {
		return "NULL"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ClassCount is one line of a prepared-table summary.
type ClassCount struct {
	Label int `json:"label"`
	Count int `json:"count"`
}

// Summary describes a prepared table.
type Summary struct {
	Rows     int          `json:"rows"`
	Features int          `json:"features"`
	Classes  []ClassCount `json:"classes"`
}

// Summarize counts rows per class of t.
func Summarize(t *prepare.Table) Summary {
	counts := t.ClassCounts()
	s := Summary{Rows: t.Len(), Features: len(t.Bands)}
	for _, label := range t.Classes() {
		s.Classes = append(s.Classes, ClassCount{Label: label, Count: counts[label]})
	}
	return s
}

// RenderSummary writes a class-count summary of t.
func RenderSummary(w io.Writer, t *prepare.Table, format string) error {
	s := Summarize(t)

	switch format {
	case FormatJSON:
		return renderJSON(w, s)
	case FormatCSV:
		lines := [][]string{{"label", "count"}}
		for _, c := range s.Classes {
			lines = append(lines, []string{strconv.Itoa(c.Label), strconv.Itoa(c.Count)})
		}
		lines = append(lines, []string{"total", strconv.Itoa(s.Rows)})
		return renderCSV(w, lines)
	case FormatTable, "":
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"label", "count"})
		for _, c := range s.Classes {
			tw.AppendRow(table.Row{c.Label, c.Count})
		}
		tw.AppendFooter(table.Row{"total", s.Rows})
		tw.Render()
		_, _ = fmt.Fprintf(w, "(%d features)\n", s.Features)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// renderCSV writes RFC 4180 records.
func renderCSV(w io.Writer, lines [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(lines); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
