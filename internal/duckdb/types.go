package duckdb

import "github.com/fieldserve/ratecard/internal/model"

// Type aliases re-export model types so Store method signatures stay
// readable at call sites without a second import.
type RateCard = model.RateCard
type ReportRow = model.ReportRow
type Category = model.Category
type Status = model.Status

var _ model.CardStore = (*Store)(nil)
