package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tmorand/auto-loan-calc/internal/catalog"
	"github.com/tmorand/auto-loan-calc/internal/quote"
	"github.com/tmorand/auto-loan-calc/internal/store"
	"github.com/tmorand/auto-loan-calc/pkg/loan"
)

// memStorage is an in-memory store.Storage for handler tests.
type memStorage struct {
	quotes map[uuid.UUID]*quote.Quote
	order  []uuid.UUID
}

func newMemStorage() *memStorage {
	return &memStorage{quotes: make(map[uuid.UUID]*quote.Quote)}
}

func (m *memStorage) SaveQuote(q *quote.Quote) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	m.quotes[q.ID] = q
	m.order = append(m.order, q.ID)
	return nil
}

func (m *memStorage) GetQuote(id uuid.UUID) (*quote.Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, store.ErrQuoteNotFound
	}
	return q, nil
}

func (m *memStorage) ListQuotes() ([]*quote.Quote, error) {
	quotes := make([]*quote.Quote, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		q := m.quotes[m.order[i]]
		summary := *q
		summary.Schedule = nil
		quotes = append(quotes, &summary)
	}
	return quotes, nil
}

func (m *memStorage) DeleteQuote(id uuid.UUID) error {
	if _, ok := m.quotes[id]; !ok {
		return store.ErrQuoteNotFound
	}
	delete(m.quotes, id)
	return nil
}

func (m *memStorage) Close() error { return nil }

func testServer(storage store.Storage) *Server {
	source := catalog.NewStaticSource([]catalog.Vehicle{
		{Make: "Toyota", Model: "Camry", Year: 2024},
	})
	return New(Options{
		Storage: storage,
		Source:  source,
		Version: "test",
	})
}

func postQuote(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/quote", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestCreateQuote(t *testing.T) {
	srv := testServer(newMemStorage())

	body := `{
		"name": "basic",
		"vehiclePrice": 20000,
		"annualInterestRate": 6.0,
		"termMonths": 60
	}`
	rec := postQuote(t, srv, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp quoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if math.Abs(resp.LoanAmount-20000.0) > 0.005 {
		t.Errorf("expected loan amount 20000, got %.4f", resp.LoanAmount)
	}
	if math.Abs(resp.MonthlyPayment-386.66) > 0.005 {
		t.Errorf("expected monthly payment 386.66, got %.4f", resp.MonthlyPayment)
	}
	if len(resp.Schedule) != 60 {
		t.Errorf("expected 60 schedule rows, got %d", len(resp.Schedule))
	}
	if resp.Inputs == nil || resp.Inputs.TermMonths != 60 {
		t.Error("expected echoed inputs with term 60")
	}
}

func TestCreateQuoteResolvesVehicleLabel(t *testing.T) {
	srv := testServer(newMemStorage())

	body := `{
		"name": "with vehicle",
		"vehicle": {"make": "toyota", "model": "camry"},
		"vehiclePrice": 28000,
		"annualInterestRate": 5.0,
		"termMonths": 48
	}`
	rec := postQuote(t, srv, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp quoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.VehicleLabel != "2024 Toyota Camry" {
		t.Errorf("expected catalog label, got %q", resp.VehicleLabel)
	}
}

func TestCreateQuoteUnknownVehicleFallsBack(t *testing.T) {
	srv := testServer(newMemStorage())

	body := `{
		"name": "unknown vehicle",
		"vehicle": {"make": "Rivian", "model": "R1T", "year": 2025},
		"vehiclePrice": 70000,
		"annualInterestRate": 7.0,
		"termMonths": 72
	}`
	rec := postQuote(t, srv, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp quoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.VehicleLabel != "2025 Rivian R1T" {
		t.Errorf("expected fallback label, got %q", resp.VehicleLabel)
	}
}

func TestCreateQuoteInvalidTerm(t *testing.T) {
	srv := testServer(newMemStorage())

	body := `{"name": "bad term", "vehiclePrice": 20000, "annualInterestRate": 6.0, "termMonths": 0}`
	rec := postQuote(t, srv, body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp.Error, "positive number of months") {
		t.Errorf("unexpected error message %q", resp.Error)
	}
}

func TestCreateQuoteMalformedBody(t *testing.T) {
	srv := testServer(newMemStorage())

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"name": `},
		{name: "unknown field", body: `{"name": "x", "vehiclePrice": 1, "termMonths": 12, "bogus": true}`},
	}
	for _, test := range tests {
		rec := postQuote(t, srv, test.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", test.name, rec.Code)
		}
	}
}

func TestCreateQuoteSaves(t *testing.T) {
	storage := newMemStorage()
	srv := testServer(storage)

	body := `{
		"name": "saved",
		"vehiclePrice": 25000,
		"downPayment": 3000,
		"annualInterestRate": 5.9,
		"termMonths": 24,
		"save": true
	}`
	rec := postQuote(t, srv, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp quoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("expected assigned id in response")
	}
	id, err := uuid.Parse(resp.ID)
	if err != nil {
		t.Fatalf("response id is not a uuid: %v", err)
	}
	if _, err := storage.GetQuote(id); err != nil {
		t.Errorf("expected quote persisted: %v", err)
	}
}

func TestCreateQuoteSaveWithoutStorage(t *testing.T) {
	srv := New(Options{Version: "test"})

	body := `{"name": "x", "vehiclePrice": 20000, "annualInterestRate": 6.0, "termMonths": 60, "save": true}`
	rec := postQuote(t, srv, body)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func postConfig(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/config", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/yaml")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestConfigQuotes(t *testing.T) {
	srv := testServer(newMemStorage())

	body := `quotes:
  - name: compact sedan
    vehicle:
      make: Toyota
      model: Camry
      year: 2024
    vehiclePrice: 20000.0
    interestRate: 6.0
    term: 60
  - name: promo financing
    vehiclePrice: 24000.0
    interestRate: 0.0
    term: 48
`
	rec := postConfig(t, srv, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp configQuotesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(resp.Quotes))
	}
	first := resp.Quotes[0]
	if first.Name != "compact sedan" {
		t.Errorf("expected name %q, got %q", "compact sedan", first.Name)
	}
	if first.VehicleLabel != "2024 Toyota Camry" {
		t.Errorf("expected catalog label, got %q", first.VehicleLabel)
	}
	if math.Abs(first.MonthlyPayment-386.66) > 0.005 {
		t.Errorf("expected monthly payment 386.66, got %.4f", first.MonthlyPayment)
	}
	if len(first.Schedule) != 60 {
		t.Errorf("expected 60 schedule rows, got %d", len(first.Schedule))
	}
	if math.Abs(resp.Quotes[1].MonthlyPayment-500.00) > 0.005 {
		t.Errorf("expected zero-rate payment 500.00, got %.4f", resp.Quotes[1].MonthlyPayment)
	}
}

func TestConfigQuotesWarnings(t *testing.T) {
	srv := testServer(newMemStorage())

	body := `quotes:
  - name: suspicious
    vehiclePrice: 15000.0
    interestRate: 45.0
    term: 36
`
	rec := postConfig(t, srv, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp configQuotesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Warnings) == 0 {
		t.Fatal("expected a warning for the implausible rate")
	}
	if !strings.Contains(resp.Warnings[0], "far above market norms") {
		t.Errorf("unexpected warning %q", resp.Warnings[0])
	}
	if len(resp.Quotes) != 1 {
		t.Errorf("expected the quote to compute despite warnings, got %d quotes", len(resp.Quotes))
	}
}

func TestConfigQuotesMalformed(t *testing.T) {
	srv := testServer(newMemStorage())

	rec := postConfig(t, srv, "quotes: [\n")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestConfigQuotesInvalidTerm(t *testing.T) {
	srv := testServer(newMemStorage())

	body := `quotes:
  - name: bad term
    vehiclePrice: 20000.0
    interestRate: 6.0
    term: 0
`
	rec := postConfig(t, srv, body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp.Error, "bad term") {
		t.Errorf("expected the quote name in the error, got %q", resp.Error)
	}
}

func TestGetQuote(t *testing.T) {
	storage := newMemStorage()
	srv := testServer(storage)

	saved := mustSaveQuote(t, storage, "stored quote")

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/"+saved.ID.String(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp quoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "stored quote" {
		t.Errorf("expected name %q, got %q", "stored quote", resp.Name)
	}
	if len(resp.Schedule) == 0 {
		t.Error("expected schedule rows in detail response")
	}
}

func TestGetQuoteErrors(t *testing.T) {
	srv := testServer(newMemStorage())

	tests := []struct {
		name     string
		path     string
		expected int
	}{
		{name: "invalid id", path: "/api/quotes/not-a-uuid", expected: http.StatusBadRequest},
		{name: "not found", path: "/api/quotes/" + uuid.New().String(), expected: http.StatusNotFound},
	}
	for _, test := range tests {
		req := httptest.NewRequest(http.MethodGet, test.path, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != test.expected {
			t.Errorf("%s: expected status %d, got %d", test.name, test.expected, rec.Code)
		}
	}
}

func TestListQuotes(t *testing.T) {
	storage := newMemStorage()
	srv := testServer(storage)

	mustSaveQuote(t, storage, "first")
	mustSaveQuote(t, storage, "second")

	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp []quoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(resp))
	}
	if resp[0].Name != "second" {
		t.Errorf("expected newest first, got %q", resp[0].Name)
	}
	for _, r := range resp {
		if len(r.Schedule) != 0 {
			t.Errorf("quote %q: expected no schedule in list response", r.Name)
		}
	}
}

func TestDeleteQuote(t *testing.T) {
	storage := newMemStorage()
	srv := testServer(storage)

	saved := mustSaveQuote(t, storage, "doomed")

	req := httptest.NewRequest(http.MethodDelete, "/api/quotes/"+saved.ID.String(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on repeat delete, got %d", rec.Code)
	}
}

func TestQuoteCsv(t *testing.T) {
	storage := newMemStorage()
	srv := testServer(storage)

	saved := mustSaveQuote(t, storage, "csv quote")

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/"+saved.ID.String()+"/csv", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("expected text/csv content type, got %q", got)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, `"vehicle",`) {
		t.Errorf("expected csv summary to lead with the vehicle, got:\n%s", body)
	}
	if !strings.Contains(body, `"month","payment","principal","interest","balance"`) {
		t.Errorf("expected schedule header in csv, got:\n%s", body)
	}
}

func TestVersion(t *testing.T) {
	srv := testServer(newMemStorage())

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "test" {
		t.Errorf("expected version %q, got %q", "test", resp["version"])
	}
}

func mustSaveQuote(t *testing.T, storage store.Storage, name string) *quote.Quote {
	t.Helper()
	q, err := quote.Compute(nil, quote.Request{
		Name: name,
		Inputs: loan.Inputs{
			VehiclePrice:       20000.0,
			AnnualInterestRate: 6.0,
			TermMonths:         12,
		},
	})
	if err != nil {
		t.Fatalf("failed to compute quote: %v", err)
	}
	if err := storage.SaveQuote(q); err != nil {
		t.Fatalf("failed to save quote: %v", err)
	}
	return q
}
