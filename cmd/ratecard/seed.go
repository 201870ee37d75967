package main

import (
	"fmt"
	"os"

	"github.com/fieldserve/ratecard/internal/duckdb"
	"github.com/fieldserve/ratecard/internal/model"
	"github.com/fieldserve/ratecard/internal/report"
	"gopkg.in/yaml.v3"
)

// seedCard is one rate card in a seed file. Rates maps a report category
// to its band key/amount pairs.
type seedCard struct {
	Customer string `yaml:"customer"`
	Region   string `yaml:"region"`
	Country  string `yaml:"country"`
	Supplier string `yaml:"supplier"`
	Currency string `yaml:"currency"`
	Entity   string `yaml:"entity"`
	Payment  string `yaml:"payment"`
	Status   string `yaml:"status"`

	Rates map[string]map[string]float64 `yaml:"rates"`
}

type seedFile struct {
	RateCards []seedCard `yaml:"ratecards"`
}

// runSeed loads rate cards from a YAML file into the configured database.
func runSeed(cfg appConfig, seedPath string) error {
	cards, err := loadSeedFile(seedPath)
	if err != nil {
		return err
	}

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	n, err := applySeed(store, cards)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d rate cards into %s\n", n, cfg.DBPath)
	return nil
}

func loadSeedFile(path string) ([]seedCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(file.RateCards) == 0 {
		return nil, fmt.Errorf("seed file %s contains no ratecards", path)
	}

	for i, card := range file.RateCards {
		if card.Customer == "" {
			return nil, fmt.Errorf("ratecards[%d]: customer is required", i)
		}
		for catName, values := range card.Rates {
			cat, ok := model.ParseCategory(catName)
			if !ok {
				return nil, fmt.Errorf("ratecards[%d]: unknown category %q", i, catName)
			}
			def, err := report.Lookup(cat)
			if err != nil {
				return nil, fmt.Errorf("ratecards[%d]: %w", i, err)
			}
			for key := range values {
				if !def.HasKey(key) {
					return nil, fmt.Errorf("ratecards[%d]: unknown %s band key %q", i, cat, key)
				}
			}
		}
	}

	return file.RateCards, nil
}

func applySeed(store model.CardStore, cards []seedCard) (int, error) {
	for i, sc := range cards {
		id, err := store.InsertRateCard(&model.RateCard{
			Customer:     sc.Customer,
			Region:       sc.Region,
			Country:      sc.Country,
			Supplier:     sc.Supplier,
			Currency:     sc.Currency,
			Entity:       sc.Entity,
			PaymentTerms: sc.Payment,
			Status:       model.Status(sc.Status),
		})
		if err != nil {
			return i, fmt.Errorf("insert ratecards[%d] (%s): %w", i, sc.Customer, err)
		}

		for catName, values := range sc.Rates {
			cat, _ := model.ParseCategory(catName)
			if err := store.SetRateValues(id, cat, values); err != nil {
				return i, fmt.Errorf("set %s rates for ratecards[%d] (%s): %w", cat, i, sc.Customer, err)
			}
		}
	}
	return len(cards), nil
}
