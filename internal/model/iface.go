package model

// CardQuerier provides read-only queries on rate cards and their band values.
type CardQuerier interface {
	ListRateCards() ([]RateCard, error)
	GetRateCard(id int64) (*RateCard, error)
	RateValues(id int64, cat Category) (map[string]float64, error)
	RowsFor(cat Category) ([]ReportRow, error)
}

// CardWriter provides mutation operations on rate cards and band values.
type CardWriter interface {
	InsertRateCard(card *RateCard) (int64, error)
	UpdateRateCard(card *RateCard) error
	DeleteRateCard(id int64) error
	SetRateValues(id int64, cat Category, values map[string]float64) error
	DeleteRateValues(id int64, cat Category) error
}

// CardStore is the unified store contract for the HTTP surface.
type CardStore interface {
	CardQuerier
	CardWriter
}
