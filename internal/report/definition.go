package report

import (
	"errors"
	"fmt"

	"github.com/fieldserve/ratecard/internal/model"
)

// ErrUnknownCategory is returned when no header definition exists for a category.
var ErrUnknownCategory = errors.New("report: unknown category")

// Column is one priced sub-column within a group. Label is the second
// header row text; Key is the band key used for storage and JSON payloads.
type Column struct {
	Label string
	Key   string
}

// Group is a labeled run of sub-columns. It renders as one first-row cell
// spanning len(Columns) visual columns.
type Group struct {
	Label   string
	Columns []Column
}

// HeaderCell is one rendered <th> of the first header row.
type HeaderCell struct {
	Label   string
	RowSpan int
	ColSpan int
}

// Definition describes the full header shape of one report category.
// Lead and Trail columns span both header rows; Groups contribute the
// second-row sub-columns.
type Definition struct {
	Category model.Category
	Lead     []string
	Groups   []Group
	Trail    []string
}

// Shared leading and trailing columns across all four categories.
var (
	leadColumns  = []string{"#", "Customer", "Region", "Country", "Supplier", "Currency", "Entity", "Payment"}
	trailColumns = []string{"Status", "Action"}
)

// definitions is the single source of truth for the four report headers.
// The shapes mirror the rate-card pricing model: per-band amounts grouped by
// term length (Projects), ticket type (Dispatch), visit length (Scheduled),
// or band with/without hardware (Dedicated).
var definitions = map[model.Category]Definition{
	model.CategoryProjects: {
		Category: model.CategoryProjects,
		Lead:     leadColumns,
		Groups: []Group{
			{Label: "Short Term", Columns: []Column{
				{Label: "Band 0", Key: "short_term_band0"},
				{Label: "Band 1", Key: "short_term_band1"},
				{Label: "Band 2", Key: "short_term_band2"},
				{Label: "Band 3", Key: "short_term_band3"},
				{Label: "Band 4", Key: "short_term_band4"},
			}},
			{Label: "Long Term", Columns: []Column{
				{Label: "Band 0", Key: "long_term_band0"},
				{Label: "Band 1", Key: "long_term_band1"},
				{Label: "Band 2", Key: "long_term_band2"},
				{Label: "Band 3", Key: "long_term_band3"},
				{Label: "Band 4", Key: "long_term_band4"},
			}},
		},
		Trail: trailColumns,
	},
	model.CategoryDispatch: {
		Category: model.CategoryDispatch,
		Lead:     leadColumns,
		Groups: []Group{
			{Label: "Dispatch Ticket (Incident)", Columns: []Column{
				{Label: "4 Hour", Key: "incident_4_hour"},
				{Label: "SBN", Key: "incident_sbn"},
				{Label: "NBD", Key: "incident_nbd"},
				{Label: "2 BD", Key: "incident_2bd"},
				{Label: "3 BD", Key: "incident_3bd"},
				{Label: "Additional Hour", Key: "incident_additional_hour"},
			}},
			{Label: "Dispatch Ticket (IMAC)", Columns: []Column{
				{Label: "2 BD", Key: "imac_2bd"},
				{Label: "3 BD", Key: "imac_3bd"},
				{Label: "4 BD", Key: "imac_4bd"},
			}},
		},
		Trail: trailColumns,
	},
	model.CategoryScheduled: {
		Category: model.CategoryScheduled,
		Lead:     leadColumns,
		Groups: []Group{
			{Label: "Full Day Visit", Columns: []Column{
				{Label: "Band 0", Key: "full_day_band0"},
				{Label: "Band 1", Key: "full_day_band1"},
				{Label: "Band 2", Key: "full_day_band2"},
			}},
			{Label: "½ Day Visit", Columns: []Column{
				{Label: "Band 0", Key: "half_day_band0"},
				{Label: "Band 1", Key: "half_day_band1"},
				{Label: "Band 2", Key: "half_day_band2"},
			}},
		},
		Trail: trailColumns,
	},
	model.CategoryDedicated: {
		Category: model.CategoryDedicated,
		Lead:     leadColumns,
		Groups: []Group{
			{Label: "Band 0", Columns: []Column{
				{Label: "With", Key: "band0_with"},
				{Label: "Without", Key: "band0_without"},
			}},
			{Label: "Band 1", Columns: []Column{
				{Label: "With", Key: "band1_with"},
				{Label: "Without", Key: "band1_without"},
			}},
			{Label: "Band 2", Columns: []Column{
				{Label: "With", Key: "band2_with"},
				{Label: "Without", Key: "band2_without"},
			}},
			{Label: "Band 3", Columns: []Column{
				{Label: "With", Key: "band3_with"},
				{Label: "Without", Key: "band3_without"},
			}},
			{Label: "Band 4", Columns: []Column{
				{Label: "With", Key: "band4_with"},
				{Label: "Without", Key: "band4_without"},
			}},
		},
		Trail: trailColumns,
	},
}

// Lookup returns the header definition for a category.
func Lookup(cat model.Category) (Definition, error) {
	def, ok := definitions[cat]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	return def, nil
}

// TopRow returns the first header row: lead columns spanning both rows,
// one spanning cell per group, then the trailing columns.
func (d Definition) TopRow() []HeaderCell {
	cells := make([]HeaderCell, 0, len(d.Lead)+len(d.Groups)+len(d.Trail))
	for _, label := range d.Lead {
		cells = append(cells, HeaderCell{Label: label, RowSpan: 2, ColSpan: 1})
	}
	for _, g := range d.Groups {
		cells = append(cells, HeaderCell{Label: g.Label, RowSpan: 1, ColSpan: len(g.Columns)})
	}
	for _, label := range d.Trail {
		cells = append(cells, HeaderCell{Label: label, RowSpan: 2, ColSpan: 1})
	}
	return cells
}

// SubRow returns the second header row labels, one per grouped sub-column.
func (d Definition) SubRow() []string {
	var labels []string
	for _, g := range d.Groups {
		for _, c := range g.Columns {
			labels = append(labels, c.Label)
		}
	}
	return labels
}

// Keys returns the ordered band keys for the category's value columns.
func (d Definition) Keys() []string {
	var keys []string
	for _, g := range d.Groups {
		for _, c := range g.Columns {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// ColumnCount returns the number of visual columns the header occupies.
func (d Definition) ColumnCount() int {
	n := len(d.Lead) + len(d.Trail)
	for _, g := range d.Groups {
		n += len(g.Columns)
	}
	return n
}

// Validate checks internal consistency: the first-row col-span sum must equal
// the second-row cell count, and band keys must be unique within a category.
func (d Definition) Validate() error {
	spanSum := 0
	for _, cell := range d.TopRow() {
		if cell.RowSpan == 2 {
			continue
		}
		spanSum += cell.ColSpan
	}
	if sub := len(d.SubRow()); spanSum != sub {
		return fmt.Errorf("report: %s: col-span sum %d != sub-column count %d", d.Category, spanSum, sub)
	}

	seen := make(map[string]bool)
	for _, key := range d.Keys() {
		if key == "" {
			return fmt.Errorf("report: %s: empty band key", d.Category)
		}
		if seen[key] {
			return fmt.Errorf("report: %s: duplicate band key %q", d.Category, key)
		}
		seen[key] = true
	}
	return nil
}

// HasKey reports whether key is a valid band key for the category.
func (d Definition) HasKey(key string) bool {
	for _, k := range d.Keys() {
		if k == key {
			return true
		}
	}
	return false
}
