package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/fieldserve/ratecard/internal/audit"
	"github.com/fieldserve/ratecard/internal/duckdb"
	"github.com/fieldserve/ratecard/internal/model"
	"github.com/fieldserve/ratecard/internal/report"
	"github.com/gin-gonic/gin"
)

type cardPayload struct {
	Customer     string `json:"customer" binding:"required"`
	Region       string `json:"region"`
	Country      string `json:"country"`
	Supplier     string `json:"supplier"`
	Currency     string `json:"currency"`
	Entity       string `json:"entity"`
	PaymentTerms string `json:"payment"`
	Status       string `json:"status"`
}

func (p cardPayload) toCard() (*model.RateCard, error) {
	status := model.Status(p.Status)
	switch status {
	case "", model.StatusActive, model.StatusPending, model.StatusInactive:
	default:
		return nil, errors.New("unknown status: " + p.Status)
	}
	return &model.RateCard{
		Customer:     p.Customer,
		Region:       p.Region,
		Country:      p.Country,
		Supplier:     p.Supplier,
		Currency:     p.Currency,
		Entity:       p.Entity,
		PaymentTerms: p.PaymentTerms,
		Status:       status,
	}, nil
}

func (s *Server) handleListCards(c *gin.Context) {
	cards, err := s.store.ListRateCards()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rate cards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ratecards": cards,
		"count":     len(cards),
	})
}

func (s *Server) handleCreateCard(c *gin.Context) {
	var req cardPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing customer field"})
		return
	}

	card, err := req.toCard()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.store.InsertRateCard(card)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create rate card"})
		return
	}

	s.record(audit.Record{Action: audit.ActionCreateCard, CardID: id, Detail: card.Customer})
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleGetCard(c *gin.Context) {
	id, ok := s.cardID(c)
	if !ok {
		return
	}

	card, err := s.store.GetRateCard(id)
	if err != nil {
		s.storeError(c, err, "failed to load rate card")
		return
	}

	rates := make(map[model.Category]map[string]float64, len(model.Categories))
	for _, cat := range model.Categories {
		values, err := s.store.RateValues(id, cat)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rate values"})
			return
		}
		rates[cat] = values
	}

	c.JSON(http.StatusOK, gin.H{
		"ratecard": card,
		"rates":    rates,
	})
}

func (s *Server) handleUpdateCard(c *gin.Context) {
	id, ok := s.cardID(c)
	if !ok {
		return
	}

	var req cardPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing customer field"})
		return
	}

	card, err := req.toCard()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	card.ID = id

	// An omitted status keeps the card's current one; writing it through
	// verbatim would store an empty status.
	if card.Status == "" {
		existing, err := s.store.GetRateCard(id)
		if err != nil {
			s.storeError(c, err, "failed to load rate card")
			return
		}
		card.Status = existing.Status
	}

	if err := s.store.UpdateRateCard(card); err != nil {
		s.storeError(c, err, "failed to update rate card")
		return
	}

	s.record(audit.Record{Action: audit.ActionUpdateCard, CardID: id, Detail: card.Customer})
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) handleDeleteCard(c *gin.Context) {
	id, ok := s.cardID(c)
	if !ok {
		return
	}

	if err := s.store.DeleteRateCard(id); err != nil {
		s.storeError(c, err, "failed to delete rate card")
		return
	}

	s.record(audit.Record{Action: audit.ActionDeleteCard, CardID: id})
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) handleGetRates(c *gin.Context) {
	id, ok := s.cardID(c)
	if !ok {
		return
	}
	cat, ok := s.category(c)
	if !ok {
		return
	}

	if _, err := s.store.GetRateCard(id); err != nil {
		s.storeError(c, err, "failed to load rate card")
		return
	}

	values, err := s.store.RateValues(id, cat)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rate values"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"category": cat,
		"values":   values,
	})
}

func (s *Server) handleSetRates(c *gin.Context) {
	id, ok := s.cardID(c)
	if !ok {
		return
	}
	cat, ok := s.category(c)
	if !ok {
		return
	}

	var req struct {
		Values map[string]float64 `json:"values" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing values field"})
		return
	}

	def, err := report.Lookup(cat)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for key := range req.Values {
		if !def.HasKey(key) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown band key: " + key})
			return
		}
	}

	if err := s.store.SetRateValues(id, cat, req.Values); err != nil {
		s.storeError(c, err, "failed to store rate values")
		return
	}

	s.record(audit.Record{
		Action:   audit.ActionSetRates,
		CardID:   id,
		Category: cat,
		Detail:   strconv.Itoa(len(req.Values)) + " values",
	})
	c.JSON(http.StatusOK, gin.H{"id": id, "category": cat})
}

func (s *Server) handleDeleteRates(c *gin.Context) {
	id, ok := s.cardID(c)
	if !ok {
		return
	}
	cat, ok := s.category(c)
	if !ok {
		return
	}

	if err := s.store.DeleteRateValues(id, cat); err != nil {
		s.storeError(c, err, "failed to delete rate values")
		return
	}

	s.record(audit.Record{Action: audit.ActionDeleteRates, CardID: id, Category: cat})
	c.JSON(http.StatusOK, gin.H{"id": id, "category": cat})
}

type auditExportEntry struct {
	Seq    uint64       `json:"seq"`
	Record audit.Record `json:"record"`
}

// handleAuditExport drains the audit trail: it returns every uncommitted
// mutation record and advances the commit watermark past them, so the next
// restart compacts the delivered entries away.
func (s *Server) handleAuditExport(c *gin.Context) {
	if s.opts.Trail == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit trail disabled"})
		return
	}

	var (
		entries []auditExportEntry
		maxSeq  uint64
	)
	err := s.opts.Trail.Replay(func(seq uint64, record audit.Record) error {
		entries = append(entries, auditExportEntry{Seq: seq, Record: record})
		if seq > maxSeq {
			maxSeq = seq
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read audit trail"})
		return
	}

	if maxSeq > 0 {
		if err := s.opts.Trail.Commit(maxSeq); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to commit audit export"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"records":   entries,
		"count":     len(entries),
		"committed": s.opts.Trail.Committed(),
	})
}

func (s *Server) handleReportRows(c *gin.Context) {
	cat, ok := s.category(c)
	if !ok {
		return
	}

	def, err := report.Lookup(cat)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := s.store.RowsFor(cat)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":  cat,
		"columns":   def.Keys(),
		"rows":      rows,
		"row_count": len(rows),
	})
}

func (s *Server) handleReportPage(c *gin.Context) {
	cat, ok := s.category(c)
	if !ok {
		return
	}

	// Viewing the dedicated report also refreshes the external rate feed,
	// without blocking the page render.
	if cat == model.CategoryDedicated && s.opts.Feed != nil && s.opts.FeedURL != "" {
		go s.opts.Feed.FetchAndLog(context.Background(), s.opts.FeedURL)
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.renderer.RenderPage(c.Writer, cat); err != nil {
		log.Printf("httpserver: render %s report: %v", cat, err)
	}
}

// cardID parses the :id route parameter, replying 400 on a bad value.
func (s *Server) cardID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate card id"})
		return 0, false
	}
	return id, true
}

// category parses the :category route parameter, replying 404 on an
// unknown category.
func (s *Server) category(c *gin.Context) (model.Category, bool) {
	cat, ok := model.ParseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown report category: " + c.Param("category")})
		return "", false
	}
	return cat, true
}

func (s *Server) storeError(c *gin.Context, err error, msg string) {
	if errors.Is(err, duckdb.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rate card not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (s *Server) record(rec audit.Record) {
	if s.opts.Trail == nil {
		return
	}
	if _, err := s.opts.Trail.Append(rec); err != nil {
		log.Printf("httpserver: audit append: %v", err)
	}
}
