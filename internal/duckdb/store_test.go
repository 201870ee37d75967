package duckdb

import (
	"errors"
	"testing"

	"github.com/fieldserve/ratecard/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func insertTestCard(t *testing.T, store *Store, customer string) int64 {
	t.Helper()
	id, err := store.InsertRateCard(&RateCard{
		Customer:     customer,
		Region:       "EMEA",
		Country:      "DE",
		Supplier:     "FieldCo",
		Currency:     "EUR",
		Entity:       customer + " GmbH",
		PaymentTerms: "Net 30",
		Status:       model.StatusActive,
	})
	if err != nil {
		t.Fatalf("InsertRateCard(%s): %v", customer, err)
	}
	return id
}

func TestInsertAndGetRateCard(t *testing.T) {
	store := newTestStore(t)

	id := insertTestCard(t, store, "Acme")
	if id == 0 {
		t.Fatal("InsertRateCard returned id 0")
	}

	card, err := store.GetRateCard(id)
	if err != nil {
		t.Fatalf("GetRateCard: %v", err)
	}
	if card.Customer != "Acme" || card.Currency != "EUR" || card.Status != model.StatusActive {
		t.Errorf("card = %+v, want Acme/EUR/Active", card)
	}
	if card.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestGetRateCardNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRateCard(404)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRateCard(404) err = %v, want ErrNotFound", err)
	}
}

func TestInsertRateCardRequiresCustomer(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.InsertRateCard(&RateCard{}); err == nil {
		t.Error("InsertRateCard with empty customer succeeded")
	}
}

func TestListRateCardsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	first := insertTestCard(t, store, "Alpha")
	second := insertTestCard(t, store, "Beta")

	cards, err := store.ListRateCards()
	if err != nil {
		t.Fatalf("ListRateCards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("ListRateCards returned %d cards, want 2", len(cards))
	}
	// Same created_at timestamps fall back to descending ID.
	if cards[0].ID != second || cards[1].ID != first {
		t.Errorf("order = [%d %d], want [%d %d]", cards[0].ID, cards[1].ID, second, first)
	}
}

func TestUpdateRateCard(t *testing.T) {
	store := newTestStore(t)

	id := insertTestCard(t, store, "Acme")
	card, err := store.GetRateCard(id)
	if err != nil {
		t.Fatalf("GetRateCard: %v", err)
	}

	card.Status = model.StatusInactive
	card.Region = "APAC"
	if err := store.UpdateRateCard(card); err != nil {
		t.Fatalf("UpdateRateCard: %v", err)
	}

	got, err := store.GetRateCard(id)
	if err != nil {
		t.Fatalf("GetRateCard after update: %v", err)
	}
	if got.Status != model.StatusInactive || got.Region != "APAC" {
		t.Errorf("updated card = %+v", got)
	}
}

func TestUpdateRateCardNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateRateCard(&RateCard{ID: 99, Customer: "Ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRateCard err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRateCardCascades(t *testing.T) {
	store := newTestStore(t)

	id := insertTestCard(t, store, "Acme")
	if err := store.SetRateValues(id, model.CategoryProjects, map[string]float64{
		"short_term_band0": 100,
	}); err != nil {
		t.Fatalf("SetRateValues: %v", err)
	}

	if err := store.DeleteRateCard(id); err != nil {
		t.Fatalf("DeleteRateCard: %v", err)
	}
	if _, err := store.GetRateCard(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("card still present after delete: %v", err)
	}

	values, err := store.RateValues(id, model.CategoryProjects)
	if err != nil {
		t.Fatalf("RateValues: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("rate values survived card delete: %v", values)
	}
}

func TestDeleteRateCardNotFound(t *testing.T) {
	store := newTestStore(t)

	if err := store.DeleteRateCard(12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteRateCard err = %v, want ErrNotFound", err)
	}
}

func TestSetRateValuesUpsert(t *testing.T) {
	store := newTestStore(t)

	id := insertTestCard(t, store, "Acme")
	cat := model.CategoryDedicated

	if err := store.SetRateValues(id, cat, map[string]float64{
		"band0_with":    95,
		"band0_without": 80,
	}); err != nil {
		t.Fatalf("SetRateValues: %v", err)
	}
	// Overwrite one band, leave the other untouched.
	if err := store.SetRateValues(id, cat, map[string]float64{"band0_with": 99.5}); err != nil {
		t.Fatalf("SetRateValues overwrite: %v", err)
	}

	values, err := store.RateValues(id, cat)
	if err != nil {
		t.Fatalf("RateValues: %v", err)
	}
	if values["band0_with"] != 99.5 {
		t.Errorf("band0_with = %v, want 99.5", values["band0_with"])
	}
	if values["band0_without"] != 80 {
		t.Errorf("band0_without = %v, want 80", values["band0_without"])
	}
}

func TestSetRateValuesUnknownCard(t *testing.T) {
	store := newTestStore(t)

	err := store.SetRateValues(77, model.CategoryProjects, map[string]float64{"short_term_band0": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SetRateValues err = %v, want ErrNotFound", err)
	}
}

func TestRowsForFiltersByCategory(t *testing.T) {
	store := newTestStore(t)

	withRates := insertTestCard(t, store, "Acme")
	insertTestCard(t, store, "NoRates")

	if err := store.SetRateValues(withRates, model.CategoryScheduled, map[string]float64{
		"full_day_band0": 450,
		"half_day_band2": 260,
	}); err != nil {
		t.Fatalf("SetRateValues: %v", err)
	}
	if err := store.SetRateValues(withRates, model.CategoryProjects, map[string]float64{
		"short_term_band0": 120,
	}); err != nil {
		t.Fatalf("SetRateValues projects: %v", err)
	}

	rows, err := store.RowsFor(model.CategoryScheduled)
	if err != nil {
		t.Fatalf("RowsFor: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("RowsFor(scheduled) = %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.Customer != "Acme" || row.Payment != "Net 30" {
		t.Errorf("row = %+v", row)
	}
	if len(row.Values) != 2 {
		t.Errorf("row values = %v, want 2 scheduled bands only", row.Values)
	}
	if v := row.Values["full_day_band0"]; v == nil || *v != 450 {
		t.Errorf("full_day_band0 = %v, want 450", v)
	}
	if _, ok := row.Values["short_term_band0"]; ok {
		t.Error("projects band leaked into scheduled rows")
	}
}

func TestRowsForEmptyStore(t *testing.T) {
	store := newTestStore(t)

	rows, err := store.RowsFor(model.CategoryDispatch)
	if err != nil {
		t.Fatalf("RowsFor: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("RowsFor on empty store = %d rows", len(rows))
	}
}

func TestTotalCardCount(t *testing.T) {
	store := newTestStore(t)

	insertTestCard(t, store, "Acme")
	insertTestCard(t, store, "Globex")

	count, err := store.TotalCardCount()
	if err != nil {
		t.Fatalf("TotalCardCount: %v", err)
	}
	if count != 2 {
		t.Errorf("TotalCardCount = %d, want 2", count)
	}
}
