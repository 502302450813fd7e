package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cpelink/internal/linkage"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// projection is a grid of display cells: a stored table narrowed to its
// output columns, a stage report, or a check summary. Total counts the rows
// the grid was cut from; zero means Rows is complete.
type projection struct {
	Headers []string
	Rows    [][]string
	Aligns  []columnAlignment
	Total   int
}

// project renders the named columns of t, keeping at most limit rows when
// limit is positive. Feature columns are right aligned.
func project(t *linkage.Table, columns []string, limit int) (projection, error) {
	refs, err := t.Schema().Resolve(columns...)
	if err != nil {
		return projection{}, err
	}
	p := projection{Total: t.Len()}
	for _, ref := range refs {
		p.Headers = append(p.Headers, ref.Name)
		align := alignLeft
		if ref.Kind == linkage.FeatureColumn {
			align = alignRight
		}
		p.Aligns = append(p.Aligns, align)
	}
	n := t.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	p.Rows = make([][]string, 0, n)
	for i := range n {
		p.Rows = append(p.Rows, t.Tuple(i, refs))
	}
	return p, nil
}

// truncated reports whether rows were cut off by a limit.
func (p projection) truncated() bool { return p.Total > len(p.Rows) }

// Records returns one column-name keyed map per row.
func (p projection) Records() []map[string]string {
	out := make([]map[string]string, 0, len(p.Rows))
	for _, row := range p.Rows {
		record := make(map[string]string, len(p.Headers))
		for i, header := range p.Headers {
			record[header] = cell(row, i)
		}
		out = append(out, record)
	}
	return out
}

// render draws the grid as a rounded table. A truncated projection gets a
// footer naming how many rows are shown.
func (p projection) render() string {
	columns := len(p.Headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(p.tableRow(p.Headers))
	for _, row := range p.Rows {
		tw.AppendRow(p.tableRow(row))
	}
	if p.truncated() {
		tw.AppendFooter(p.tableRow([]string{fmt.Sprintf("%d of %d links", len(p.Rows), p.Total)}))
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(p.Aligns) && p.Aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// tableRow pads or trims cells to the header width.
func (p projection) tableRow(cells []string) table.Row {
	row := make(table.Row, len(p.Headers))
	for i := range row {
		row[i] = cell(cells, i)
	}
	return row
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

var tsvEscaper = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func writeTSV(w io.Writer, p projection) error {
	if _, err := fmt.Fprintln(w, strings.Join(p.Headers, "\t")); err != nil {
		return err
	}
	for _, row := range p.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = tsvEscaper.Replace(c)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(w io.Writer, p projection) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(p.Headers); err != nil {
		return err
	}
	if err := writer.WriteAll(p.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// writeJSON emits the rows as an indented array of column-keyed objects.
func writeJSON(w io.Writer, p projection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p.Records())
}
