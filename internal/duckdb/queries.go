package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/fieldserve/ratecard/internal/model"
)

// ErrNotFound is returned when a rate card does not exist.
var ErrNotFound = errors.New("duckdb: rate card not found")

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

const cardColumns = "id, customer, region, country, supplier, currency, entity, payment_terms, status, created_at, updated_at"

func scanCard(scan func(dest ...any) error) (RateCard, error) {
	var c RateCard
	err := scan(&c.ID, &c.Customer, &c.Region, &c.Country, &c.Supplier,
		&c.Currency, &c.Entity, &c.PaymentTerms, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListRateCards returns all rate cards, newest first.
func (s *Store) ListRateCards() ([]RateCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+cardColumns+" FROM rate_cards ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []RateCard
	for rows.Next() {
		c, err := scanCard(rows.Scan)
		if err != nil {
			log.Printf("duckdb scan error (ListRateCards): %v", err)
			continue
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetRateCard returns one rate card by ID, or ErrNotFound.
func (s *Store) GetRateCard(id int64) (*RateCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	c, err := scanCard(s.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM rate_cards WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertRateCard stores a new rate card and returns its assigned ID.
func (s *Store) InsertRateCard(card *RateCard) (int64, error) {
	if card == nil {
		return 0, errors.New("duckdb: nil rate card")
	}
	if card.Customer == "" {
		return 0, errors.New("duckdb: rate card customer is required")
	}
	if card.Status == "" {
		card.Status = model.StatusActive
	}
	if card.Currency == "" {
		card.Currency = "USD"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_cards (customer, region, country, supplier, currency, entity, payment_terms, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		card.Customer, card.Region, card.Country, card.Supplier,
		card.Currency, card.Entity, card.PaymentTerms, card.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("duckdb: insert rate card: %w", err)
	}
	card.ID = id
	return id, nil
}

// UpdateRateCard overwrites the identifying fields of an existing card.
func (s *Store) UpdateRateCard(card *RateCard) error {
	if card == nil {
		return errors.New("duckdb: nil rate card")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE rate_cards
		SET customer = ?, region = ?, country = ?, supplier = ?, currency = ?,
		    entity = ?, payment_terms = ?, status = ?, updated_at = current_timestamp
		WHERE id = ?`,
		card.Customer, card.Region, card.Country, card.Supplier,
		card.Currency, card.Entity, card.PaymentTerms, card.Status, card.ID)
	if err != nil {
		return fmt.Errorf("duckdb: update rate card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, card.ID)
	}
	return nil
}

// DeleteRateCard removes a rate card and all its band values.
func (s *Store) DeleteRateCard(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("duckdb: begin delete tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM rate_values WHERE card_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("duckdb: delete rate values: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM rate_cards WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("duckdb: delete rate card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return tx.Commit()
}

// SetRateValues upserts band amounts for one card and category.
// Keys not present in values are left untouched.
func (s *Store) SetRateValues(id int64, cat Category, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		"SELECT count(*) > 0 FROM rate_cards WHERE id = ?", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("duckdb: begin rate values tx: %w", err)
	}
	for band, amount := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO rate_values (card_id, category, band, amount)
			VALUES (?, ?, ?, ?)`, id, string(cat), band, amount); err != nil {
			tx.Rollback()
			return fmt.Errorf("duckdb: set rate value %s: %w", band, err)
		}
	}
	return tx.Commit()
}

// DeleteRateValues removes all band amounts for one card and category.
func (s *Store) DeleteRateValues(id int64, cat Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM rate_values WHERE card_id = ? AND category = ?", id, string(cat)); err != nil {
		return fmt.Errorf("duckdb: delete rate values: %w", err)
	}
	return nil
}

// RateValues returns the band amounts stored for one card and category.
func (s *Store) RateValues(id int64, cat Category) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT band, amount FROM rate_values WHERE card_id = ? AND category = ? ORDER BY band", id, string(cat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var band string
		var amount float64
		if err := rows.Scan(&band, &amount); err != nil {
			log.Printf("duckdb scan error (RateValues): %v", err)
			continue
		}
		values[band] = amount
	}
	return values, rows.Err()
}

// RowsFor returns report rows for a category: every card holding at least
// one band value for it, newest card first, with its amounts keyed by band.
func (s *Store) RowsFor(cat Category) ([]ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.customer, c.region, c.country, c.supplier, c.currency,
		       c.entity, c.payment_terms, c.status, v.band, v.amount
		FROM rate_cards c
		JOIN rate_values v ON v.card_id = c.id
		WHERE v.category = ?
		ORDER BY c.created_at DESC, c.id DESC, v.band`, string(cat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ReportRow
	byID := make(map[int64]int)
	for rows.Next() {
		var (
			row    ReportRow
			band   string
			amount float64
		)
		if err := rows.Scan(&row.ID, &row.Customer, &row.Region, &row.Country,
			&row.Supplier, &row.Currency, &row.Entity, &row.Payment, &row.Status,
			&band, &amount); err != nil {
			log.Printf("duckdb scan error (RowsFor): %v", err)
			continue
		}

		idx, ok := byID[row.ID]
		if !ok {
			row.Values = make(map[string]*float64)
			result = append(result, row)
			idx = len(result) - 1
			byID[row.ID] = idx
		}
		v := amount
		result[idx].Values[band] = &v
	}
	return result, rows.Err()
}

// TotalCardCount returns the number of stored rate cards; used by health.
func (s *Store) TotalCardCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM rate_cards").Scan(&count)
	return count, err
}
