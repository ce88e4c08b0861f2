// Package server exposes the quote engine over HTTP. Quote computation stays
// synchronous per request; persistence and catalog lookups are optional
// collaborators that degrade to errors rather than failing the whole server.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tmorand/auto-loan-calc/internal/catalog"
	"github.com/tmorand/auto-loan-calc/internal/config"
	"github.com/tmorand/auto-loan-calc/internal/metrics"
	"github.com/tmorand/auto-loan-calc/internal/quote"
	"github.com/tmorand/auto-loan-calc/internal/store"
	"github.com/tmorand/auto-loan-calc/pkg/loan"
	"github.com/tmorand/auto-loan-calc/pkg/output"
	"go.uber.org/zap"
)

// Server wires the HTTP handlers to the quote engine and its collaborators.
type Server struct {
	logger         *zap.Logger
	storage        store.Storage
	source         catalog.Source
	version        string
	maxRequestSize int64
	router         *mux.Router
}

// Options configures a Server. Storage and Source may be nil; the endpoints
// that need them respond with 503 in that case.
type Options struct {
	Logger         *zap.Logger
	Storage        store.Storage
	Source         catalog.Source
	Version        string
	MaxRequestSize int64
	RateLimiter    *RateLimiter
}

// New builds a Server with all routes registered.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxSize := opts.MaxRequestSize
	if maxSize <= 0 {
		maxSize = 256 * 1024
	}

	s := &Server{
		logger:         logger,
		storage:        opts.Storage,
		source:         opts.Source,
		version:        opts.Version,
		maxRequestSize: maxSize,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/quote", s.handleCreateQuote).Methods(http.MethodPost)
	r.HandleFunc("/api/config", s.handleConfigQuotes).Methods(http.MethodPost)
	r.HandleFunc("/api/quotes", s.handleListQuotes).Methods(http.MethodGet)
	r.HandleFunc("/api/quotes/{id}", s.handleGetQuote).Methods(http.MethodGet)
	r.HandleFunc("/api/quotes/{id}", s.handleDeleteQuote).Methods(http.MethodDelete)
	r.HandleFunc("/api/quotes/{id}/csv", s.handleQuoteCsv).Methods(http.MethodGet)
	r.HandleFunc("/api/version", s.handleVersion).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if opts.RateLimiter != nil {
		r.Use(func(next http.Handler) http.Handler {
			return RateLimitMiddleware(opts.RateLimiter, next)
		})
	}

	s.router = r
	return s
}

// Router returns the configured handler for mounting in an http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

// quoteRequest is the JSON body accepted by POST /api/quote.
type quoteRequest struct {
	Name                   string  `json:"name"`
	Vehicle                vehicle `json:"vehicle"`
	StartDate              string  `json:"startDate,omitempty"`
	VehiclePrice           float64 `json:"vehiclePrice"`
	DownPayment            float64 `json:"downPayment"`
	TradeInValue           float64 `json:"tradeInValue"`
	AmountOwedOnTradeIn    float64 `json:"amountOwedOnTradeIn"`
	CashIncentives         float64 `json:"cashIncentives"`
	SalesTaxPercent        float64 `json:"salesTaxPercent"`
	TitleAndFees           float64 `json:"titleAndFees"`
	IncludeFeesInPrincipal bool    `json:"includeFeesInPrincipal"`
	AnnualInterestRate     float64 `json:"annualInterestRate"`
	TermMonths             int     `json:"termMonths"`
	Save                   bool    `json:"save,omitempty"`
}

type vehicle struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// quoteResponse mirrors quote.Quote with stable JSON field names.
type quoteResponse struct {
	ID             string        `json:"id,omitempty"`
	CreatedAt      string        `json:"createdAt,omitempty"`
	Name           string        `json:"name"`
	VehicleLabel   string        `json:"vehicleLabel,omitempty"`
	StartDate      string        `json:"startDate,omitempty"`
	LoanAmount     float64       `json:"loanAmount"`
	MonthlyPayment float64       `json:"monthlyPayment"`
	TotalInterest  float64       `json:"totalInterest"`
	TotalCost      float64       `json:"totalCost"`
	Schedule       []scheduleRow `json:"schedule,omitempty"`
	Inputs         *quoteInputs  `json:"inputs,omitempty"`
}

type quoteInputs struct {
	VehiclePrice           float64 `json:"vehiclePrice"`
	DownPayment            float64 `json:"downPayment"`
	TradeInValue           float64 `json:"tradeInValue"`
	AmountOwedOnTradeIn    float64 `json:"amountOwedOnTradeIn"`
	CashIncentives         float64 `json:"cashIncentives"`
	SalesTaxPercent        float64 `json:"salesTaxPercent"`
	TitleAndFees           float64 `json:"titleAndFees"`
	IncludeFeesInPrincipal bool    `json:"includeFeesInPrincipal"`
	AnnualInterestRate     float64 `json:"annualInterestRate"`
	TermMonths             int     `json:"termMonths"`
}

type scheduleRow struct {
	Month            int     `json:"month"`
	Payment          float64 `json:"payment"`
	PrincipalPortion float64 `json:"principalPortion"`
	InterestPortion  float64 `json:"interestPortion"`
	RemainingBalance float64 `json:"remainingBalance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req quoteRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		metrics.QuoteRequests.WithLabelValues("bad_request").Inc()
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	label := s.resolveVehicleLabel(r, req.Vehicle)

	q, err := quote.Compute(s.logger, quote.Request{
		Name:         req.Name,
		VehicleLabel: label,
		StartDate:    req.StartDate,
		Inputs: loan.Inputs{
			VehiclePrice:           req.VehiclePrice,
			DownPayment:            req.DownPayment,
			TradeInValue:           req.TradeInValue,
			AmountOwedOnTradeIn:    req.AmountOwedOnTradeIn,
			CashIncentives:         req.CashIncentives,
			SalesTaxPercent:        req.SalesTaxPercent,
			TitleAndFees:           req.TitleAndFees,
			IncludeFeesInPrincipal: req.IncludeFeesInPrincipal,
			AnnualInterestRate:     req.AnnualInterestRate,
			TermMonths:             req.TermMonths,
		},
	})
	if err != nil {
		if errors.Is(err, loan.ErrInvalidTerm) {
			metrics.QuoteRequests.WithLabelValues("invalid_term").Inc()
			metrics.CalculationErrors.WithLabelValues("invalid_term").Inc()
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		metrics.QuoteRequests.WithLabelValues("error").Inc()
		metrics.CalculationErrors.WithLabelValues("internal").Inc()
		s.logger.Error("quote computation failed",
			zap.String("op", "server.handleCreateQuote"),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, "quote computation failed")
		return
	}

	if req.Save {
		if s.storage == nil {
			metrics.QuoteRequests.WithLabelValues("error").Inc()
			s.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
			return
		}
		if err := s.storage.SaveQuote(q); err != nil {
			metrics.QuoteRequests.WithLabelValues("error").Inc()
			s.logger.Error("failed to save quote",
				zap.String("op", "server.handleCreateQuote"),
				zap.Error(err),
			)
			s.respondError(w, http.StatusInternalServerError, "failed to save quote")
			return
		}
	}

	metrics.QuoteRequests.WithLabelValues("success").Inc()
	metrics.QuoteDuration.Observe(time.Since(start).Seconds())
	s.writeJSON(w, http.StatusOK, toResponse(q, true))
}

// configQuotesResponse is the result of computing every quote in an uploaded
// YAML configuration: validation warnings plus one result per quote.
type configQuotesResponse struct {
	Warnings []string        `json:"warnings,omitempty"`
	Quotes   []quoteResponse `json:"quotes"`
}

// handleConfigQuotes accepts the same YAML configuration the CLI reads and
// computes every quote in it. Nothing is persisted.
func (s *Server) handleConfigQuotes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestSize)
	cfg, err := config.LoadConfigurationFromReader(r.Body)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("bad_request").Inc()
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid configuration: %v", err))
		return
	}

	resp := configQuotesResponse{
		Warnings: cfg.ValidateConfiguration(),
		Quotes:   make([]quoteResponse, 0, len(cfg.Quotes)),
	}

	for _, qc := range cfg.Quotes {
		label := s.resolveVehicleLabel(r, vehicle{
			Make:  qc.Vehicle.Make,
			Model: qc.Vehicle.Model,
			Year:  qc.Vehicle.Year,
		})

		q, err := quote.Compute(s.logger, quote.Request{
			Name:         qc.Name,
			VehicleLabel: label,
			StartDate:    qc.StartDate,
			Inputs:       qc.LoanInputs(),
		})
		if err != nil {
			if errors.Is(err, loan.ErrInvalidTerm) {
				metrics.QuoteRequests.WithLabelValues("invalid_term").Inc()
				metrics.CalculationErrors.WithLabelValues("invalid_term").Inc()
				s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("quote %q: %v", qc.Name, err))
				return
			}
			metrics.QuoteRequests.WithLabelValues("error").Inc()
			metrics.CalculationErrors.WithLabelValues("internal").Inc()
			s.logger.Error("quote computation failed",
				zap.String("op", "server.handleConfigQuotes"),
				zap.String("name", qc.Name),
				zap.Error(err),
			)
			s.respondError(w, http.StatusInternalServerError, "quote computation failed")
			return
		}
		resp.Quotes = append(resp.Quotes, toResponse(q, true))
	}

	metrics.QuoteRequests.WithLabelValues("success").Inc()
	metrics.QuoteDuration.Observe(time.Since(start).Seconds())
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	quotes, err := s.storage.ListQuotes()
	if err != nil {
		s.logger.Error("failed to list quotes",
			zap.String("op", "server.handleListQuotes"),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, "failed to list quotes")
		return
	}

	responses := make([]quoteResponse, 0, len(quotes))
	for _, q := range quotes {
		responses = append(responses, toResponse(q, false))
	}
	s.writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, ok := s.loadQuote(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(q, true))
}

func (s *Server) handleDeleteQuote(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	if err := s.storage.DeleteQuote(id); err != nil {
		if errors.Is(err, store.ErrQuoteNotFound) {
			s.respondError(w, http.StatusNotFound, "quote not found")
			return
		}
		s.logger.Error("failed to delete quote",
			zap.String("op", "server.handleDeleteQuote"),
			zap.String("id", id.String()),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, "failed to delete quote")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuoteCsv(w http.ResponseWriter, r *http.Request) {
	q, ok := s.loadQuote(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", q.Name+".csv"))
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, output.CsvString(q))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// loadQuote parses the {id} route variable and fetches the quote, writing the
// error response itself on failure.
func (s *Server) loadQuote(w http.ResponseWriter, r *http.Request) (*quote.Quote, bool) {
	if s.storage == nil {
		s.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid quote id")
		return nil, false
	}

	q, err := s.storage.GetQuote(id)
	if err != nil {
		if errors.Is(err, store.ErrQuoteNotFound) {
			s.respondError(w, http.StatusNotFound, "quote not found")
			return nil, false
		}
		s.logger.Error("failed to load quote",
			zap.String("op", "server.loadQuote"),
			zap.String("id", id.String()),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, "failed to load quote")
		return nil, false
	}
	return q, true
}

// resolveVehicleLabel looks the vehicle up in the catalog when one is named.
// Lookup failure is not fatal: the quote falls back to the raw make/model.
func (s *Server) resolveVehicleLabel(r *http.Request, v vehicle) string {
	if v.Make == "" && v.Model == "" {
		return ""
	}

	fallback := catalog.Vehicle{Make: v.Make, Model: v.Model, Year: v.Year}.Label()
	if s.source == nil {
		return fallback
	}

	found, err := s.source.Lookup(r.Context(), v.Make, v.Model, v.Year)
	if err != nil {
		metrics.CatalogLookups.WithLabelValues("miss").Inc()
		s.logger.Warn("vehicle lookup failed",
			zap.String("op", "server.resolveVehicleLabel"),
			zap.String("make", v.Make),
			zap.String("model", v.Model),
			zap.Error(err),
		)
		return fallback
	}

	metrics.CatalogLookups.WithLabelValues("hit").Inc()
	return found.Label()
}

func toResponse(q *quote.Quote, includeDetail bool) quoteResponse {
	resp := quoteResponse{
		Name:           q.Name,
		VehicleLabel:   q.VehicleLabel,
		StartDate:      q.StartDate,
		LoanAmount:     q.LoanAmount,
		MonthlyPayment: q.MonthlyPayment,
		TotalInterest:  q.TotalInterest,
		TotalCost:      q.TotalCost,
	}
	if q.ID != uuid.Nil {
		resp.ID = q.ID.String()
	}
	if !q.CreatedAt.IsZero() {
		resp.CreatedAt = q.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !includeDetail {
		return resp
	}

	resp.Inputs = &quoteInputs{
		VehiclePrice:           q.Inputs.VehiclePrice,
		DownPayment:            q.Inputs.DownPayment,
		TradeInValue:           q.Inputs.TradeInValue,
		AmountOwedOnTradeIn:    q.Inputs.AmountOwedOnTradeIn,
		CashIncentives:         q.Inputs.CashIncentives,
		SalesTaxPercent:        q.Inputs.SalesTaxPercent,
		TitleAndFees:           q.Inputs.TitleAndFees,
		IncludeFeesInPrincipal: q.Inputs.IncludeFeesInPrincipal,
		AnnualInterestRate:     q.Inputs.AnnualInterestRate,
		TermMonths:             q.Inputs.TermMonths,
	}
	resp.Schedule = make([]scheduleRow, len(q.Schedule))
	for i, row := range q.Schedule {
		resp.Schedule[i] = scheduleRow{
			Month:            row.Month,
			Payment:          row.Payment,
			PrincipalPortion: row.PrincipalPortion,
			InterestPortion:  row.InterestPortion,
			RemainingBalance: row.RemainingBalance,
		}
	}
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
