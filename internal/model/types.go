package model

import "time"

// Category identifies one of the four rate-card report types.
type Category string

const (
	CategoryProjects  Category = "projects"
	CategoryDispatch  Category = "dispatch"
	CategoryScheduled Category = "scheduled"
	CategoryDedicated Category = "dedicated"
)

// Categories lists all report categories in display order.
var Categories = []Category{
	CategoryProjects,
	CategoryDispatch,
	CategoryScheduled,
	CategoryDedicated,
}

// ParseCategory maps a URL or config token to a Category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryProjects, CategoryDispatch, CategoryScheduled, CategoryDedicated:
		return Category(s), true
	}
	return "", false
}

// Title returns the human-readable report title for the category.
func (c Category) Title() string {
	switch c {
	case CategoryProjects:
		return "Projects"
	case CategoryDispatch:
		return "Dispatch"
	case CategoryScheduled:
		return "Scheduled"
	case CategoryDedicated:
		return "Dedicated"
	}
	return string(c)
}

// Status is the lifecycle state of a rate card.
type Status string

const (
	StatusActive   Status = "Active"
	StatusPending  Status = "Pending"
	StatusInactive Status = "Inactive"
)

// RateCard is one supplier/customer pricing agreement. The per-category
// band amounts live in rate_values, keyed by card ID.
type RateCard struct {
	ID           int64     `json:"id"`
	Customer     string    `json:"customer"`
	Region       string    `json:"region"`
	Country      string    `json:"country"`
	Supplier     string    `json:"supplier"`
	Currency     string    `json:"currency"`
	Entity       string    `json:"entity"`
	PaymentTerms string    `json:"payment"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReportRow is one rendered line of a category report: the rate card's
// identifying fields plus its band amounts keyed by band key.
// A missing key renders as an empty cell.
type ReportRow struct {
	ID       int64               `json:"id"`
	Customer string              `json:"customer"`
	Region   string              `json:"region"`
	Country  string              `json:"country"`
	Supplier string              `json:"supplier"`
	Currency string              `json:"currency"`
	Entity   string              `json:"entity"`
	Payment  string              `json:"payment"`
	Values   map[string]*float64 `json:"values"`
	Status   Status              `json:"status"`
}
