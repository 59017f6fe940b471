package processing

import (
	"strings"

	"github.com/dyike/MacroAgent/models"
)

const (
	fieldSep   = ", "
	sectionSep = "\n\n"
)

// BuildTable aligns series into a table. Each row starts with the period of
// the first series followed by one value per series.
func BuildTable(title string, columns []string, series ...models.Series) models.Table {
	aligned := Align(series...)

	rows := make([][]string, 0, len(aligned))
	for _, obs := range aligned {
		row := make([]string, 0, len(obs)+1)
		row = append(row, obs[0].Period)
		for _, o := range obs {
			row = append(row, o.Value)
		}
		rows = append(rows, row)
	}

	return models.Table{Title: title, Columns: columns, Rows: rows}
}

// Render writes a table as a markdown heading, a header line and one line
// per row, fields joined by ", ". Values are not quoted or escaped.
func Render(t models.Table) string {
	var b strings.Builder
	b.WriteString("### ")
	b.WriteString(t.Title)
	b.WriteString("\n")
	b.WriteString(strings.Join(t.Columns, fieldSep))
	b.WriteString("\n")
	for _, row := range t.Rows {
		b.WriteString(strings.Join(row, fieldSep))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSections renders each table and joins them with a blank line.
func RenderSections(tables ...models.Table) string {
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		parts = append(parts, Render(t))
	}
	return strings.Join(parts, sectionSep)
}
