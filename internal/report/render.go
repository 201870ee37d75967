package report

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/fieldserve/ratecard/internal/model"
)

// RowFunc supplies the body rows for a category report. It is the extension
// point for body population; a nil RowFunc renders an empty body.
type RowFunc func(cat model.Category) ([]model.ReportRow, error)

// Renderer writes rate-card report tables. The zero value renders headers
// with an empty body.
type Renderer struct {
	Rows RowFunc
}

var tableTmpl = template.Must(template.New("table").Parse(`<table class="ratecard">
<thead>
<tr>{{range .TopRow}}<th{{if gt .RowSpan 1}} rowspan="{{.RowSpan}}"{{end}}{{if gt .ColSpan 1}} colspan="{{.ColSpan}}"{{end}}>{{.Label}}</th>{{end}}</tr>
<tr>{{range .SubRow}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>{{range .Rows}}
<tr><td>{{.Index}}</td><td>{{.Customer}}</td><td>{{.Region}}</td><td>{{.Country}}</td><td>{{.Supplier}}</td><td>{{.Currency}}</td><td>{{.Entity}}</td><td>{{.Payment}}</td>{{range .Cells}}<td>{{.}}</td>{{end}}<td>{{.Status}}</td><td class="actions"><a href="/api/ratecards/{{.ID}}">view</a></td></tr>{{end}}
</tbody>
</table>
`))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Rate Cards · {{.Title}}</title>
<style>
  body { font-family: sans-serif; margin: 24px; color: #1a1a2e; }
  nav a { margin-right: 12px; text-decoration: none; }
  nav a.current { font-weight: 600; border-bottom: 2px solid #1a1a2e; }
  table.ratecard { border-collapse: collapse; margin-top: 16px; font-size: 0.85rem; }
  table.ratecard th, table.ratecard td { border: 1px solid #c9c9d4; padding: 4px 8px; text-align: left; }
  table.ratecard thead th { background: #eef; }
</style>
</head>
<body>
<h1>{{.Title}} Rate Card</h1>
<nav>{{range .Nav}}<a href="/reports/{{.Slug}}"{{if .Current}} class="current"{{end}}>{{.Title}}</a>{{end}}</nav>
{{.Table}}
</body>
</html>
`))

type tableData struct {
	TopRow []HeaderCell
	SubRow []string
	Rows   []rowData
}

type rowData struct {
	Index    int
	ID       int64
	Customer string
	Region   string
	Country  string
	Supplier string
	Currency string
	Entity   string
	Payment  string
	Cells    []string
	Status   model.Status
}

type navItem struct {
	Slug    string
	Title   string
	Current bool
}

type pageData struct {
	Title string
	Nav   []navItem
	Table template.HTML
}

// RenderTable writes the report table for cat: a two-row header and one body
// row per ReportRow. Each call replaces nothing and depends on no prior
// state, so repeated renders produce identical output.
func RenderTable(w io.Writer, cat model.Category, rows []model.ReportRow) error {
	def, err := Lookup(cat)
	if err != nil {
		return err
	}

	keys := def.Keys()
	data := tableData{
		TopRow: def.TopRow(),
		SubRow: def.SubRow(),
	}
	for i, row := range rows {
		rd := rowData{
			Index:    i + 1,
			ID:       row.ID,
			Customer: row.Customer,
			Region:   row.Region,
			Country:  row.Country,
			Supplier: row.Supplier,
			Currency: row.Currency,
			Entity:   row.Entity,
			Payment:  row.Payment,
			Status:   row.Status,
		}
		for _, key := range keys {
			rd.Cells = append(rd.Cells, formatAmount(row.Values[key]))
		}
		data.Rows = append(data.Rows, rd)
	}

	if err := tableTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("report: render table: %w", err)
	}
	return nil
}

// Render writes the table for cat with rows supplied by the Renderer's
// RowFunc hook.
func (r *Renderer) Render(w io.Writer, cat model.Category) error {
	var rows []model.ReportRow
	if r.Rows != nil {
		fetched, err := r.Rows(cat)
		if err != nil {
			return fmt.Errorf("report: load rows: %w", err)
		}
		rows = fetched
	}
	return RenderTable(w, cat, rows)
}

// RenderPage writes a full HTML page embedding the category table.
func (r *Renderer) RenderPage(w io.Writer, cat model.Category) error {
	var buf strings.Builder
	if err := r.Render(&buf, cat); err != nil {
		return err
	}

	data := pageData{
		Title: cat.Title(),
		Table: template.HTML(buf.String()),
	}
	for _, c := range model.Categories {
		data.Nav = append(data.Nav, navItem{Slug: string(c), Title: c.Title(), Current: c == cat})
	}

	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("report: render page: %w", err)
	}
	return nil
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
