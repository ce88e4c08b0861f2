package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tmorand/auto-loan-calc/internal/quote"
	"github.com/tmorand/auto-loan-calc/pkg/loan"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
// Monetary values are stored as decimal TEXT so no precision is lost between
// save and load.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS quotes (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		name TEXT NOT NULL,
		vehicle_label TEXT NOT NULL,
		start_date TEXT NOT NULL DEFAULT '',
		vehicle_price TEXT NOT NULL,
		down_payment TEXT NOT NULL,
		trade_in_value TEXT NOT NULL,
		amount_owed_on_trade_in TEXT NOT NULL,
		cash_incentives TEXT NOT NULL,
		sales_tax_percent TEXT NOT NULL,
		title_and_fees TEXT NOT NULL,
		include_fees_in_principal INTEGER NOT NULL,
		interest_rate TEXT NOT NULL,
		term_months INTEGER NOT NULL,
		loan_amount TEXT NOT NULL,
		monthly_payment TEXT NOT NULL,
		total_interest TEXT NOT NULL,
		total_cost TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS schedule_rows (
		quote_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		payment TEXT NOT NULL,
		principal_portion TEXT NOT NULL,
		interest_portion TEXT NOT NULL,
		remaining_balance TEXT NOT NULL,
		PRIMARY KEY (quote_id, month),
		FOREIGN KEY (quote_id) REFERENCES quotes(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveQuote persists a quote and its schedule in one transaction.
func (s *SQLiteStore) SaveQuote(q *quote.Quote) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(
		`INSERT INTO quotes (
			id, created_at, name, vehicle_label, start_date,
			vehicle_price, down_payment, trade_in_value, amount_owed_on_trade_in,
			cash_incentives, sales_tax_percent, title_and_fees, include_fees_in_principal,
			interest_rate, term_months, loan_amount, monthly_payment, total_interest, total_cost
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID.String(), q.CreatedAt, q.Name, q.VehicleLabel, q.StartDate,
		text(q.Inputs.VehiclePrice), text(q.Inputs.DownPayment), text(q.Inputs.TradeInValue),
		text(q.Inputs.AmountOwedOnTradeIn), text(q.Inputs.CashIncentives),
		text(q.Inputs.SalesTaxPercent), text(q.Inputs.TitleAndFees), q.Inputs.IncludeFeesInPrincipal,
		text(q.Inputs.AnnualInterestRate), q.Inputs.TermMonths,
		text(q.LoanAmount), text(q.MonthlyPayment), text(q.TotalInterest), text(q.TotalCost),
	)
	if err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}

	for _, row := range q.Schedule {
		_, err = tx.Exec(
			`INSERT INTO schedule_rows (quote_id, month, payment, principal_portion, interest_portion, remaining_balance)
			VALUES (?, ?, ?, ?, ?, ?)`,
			q.ID.String(), row.Month, text(row.Payment), text(row.PrincipalPortion),
			text(row.InterestPortion), text(row.RemainingBalance),
		)
		if err != nil {
			return fmt.Errorf("failed to save schedule row %d: %w", row.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quote: %w", err)
	}
	return nil
}

// GetQuote loads a quote including its schedule rows.
func (s *SQLiteStore) GetQuote(id uuid.UUID) (*quote.Quote, error) {
	row := s.db.QueryRow(
		`SELECT id, created_at, name, vehicle_label, start_date,
			vehicle_price, down_payment, trade_in_value, amount_owed_on_trade_in,
			cash_incentives, sales_tax_percent, title_and_fees, include_fees_in_principal,
			interest_rate, term_months, loan_amount, monthly_payment, total_interest, total_cost
		FROM quotes WHERE id = ?`, id.String(),
	)

	q, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, ErrQuoteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quote: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT month, payment, principal_portion, interest_portion, remaining_balance
		FROM schedule_rows WHERE quote_id = ? ORDER BY month`, id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var r loan.Row
		var payment, principal, interest, balance string
		if err := rows.Scan(&r.Month, &payment, &principal, &interest, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		fields := []struct {
			dst *float64
			src string
		}{
			{&r.Payment, payment},
			{&r.PrincipalPortion, principal},
			{&r.InterestPortion, interest},
			{&r.RemainingBalance, balance},
		}
		for _, f := range fields {
			v, err := number(f.src)
			if err != nil {
				return nil, fmt.Errorf("schedule row %d: %w", r.Month, err)
			}
			*f.dst = v
		}
		q.Schedule = append(q.Schedule, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule rows: %w", err)
	}

	return q, nil
}

// ListQuotes returns all saved quotes without their schedules, newest first.
func (s *SQLiteStore) ListQuotes() ([]*quote.Quote, error) {
	rows, err := s.db.Query(
		`SELECT id, created_at, name, vehicle_label, start_date,
			vehicle_price, down_payment, trade_in_value, amount_owed_on_trade_in,
			cash_incentives, sales_tax_percent, title_and_fees, include_fees_in_principal,
			interest_rate, term_months, loan_amount, monthly_payment, total_interest, total_cost
		FROM quotes ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var quotes []*quote.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}
	return quotes, nil
}

// DeleteQuote removes a quote; schedule rows cascade.
func (s *SQLiteStore) DeleteQuote(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM quotes WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", id, ErrQuoteNotFound)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanQuote(row scanner) (*quote.Quote, error) {
	var q quote.Quote
	var idStr string
	var price, down, tradeIn, owed, incentives, tax, fees, rate string
	var amount, payment, interest, cost string

	err := row.Scan(
		&idStr, &q.CreatedAt, &q.Name, &q.VehicleLabel, &q.StartDate,
		&price, &down, &tradeIn, &owed, &incentives, &tax, &fees, &q.Inputs.IncludeFeesInPrincipal,
		&rate, &q.Inputs.TermMonths, &amount, &payment, &interest, &cost,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid quote id %q: %w", idStr, err)
	}
	q.ID = id

	fields := []struct {
		dst  *float64
		name string
		src  string
	}{
		{&q.Inputs.VehiclePrice, "vehicle_price", price},
		{&q.Inputs.DownPayment, "down_payment", down},
		{&q.Inputs.TradeInValue, "trade_in_value", tradeIn},
		{&q.Inputs.AmountOwedOnTradeIn, "amount_owed_on_trade_in", owed},
		{&q.Inputs.CashIncentives, "cash_incentives", incentives},
		{&q.Inputs.SalesTaxPercent, "sales_tax_percent", tax},
		{&q.Inputs.TitleAndFees, "title_and_fees", fees},
		{&q.Inputs.AnnualInterestRate, "interest_rate", rate},
		{&q.LoanAmount, "loan_amount", amount},
		{&q.MonthlyPayment, "monthly_payment", payment},
		{&q.TotalInterest, "total_interest", interest},
		{&q.TotalCost, "total_cost", cost},
	}
	for _, f := range fields {
		v, err := number(f.src)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.name, err)
		}
		*f.dst = v
	}

	return &q, nil
}

// text serializes a float to a decimal TEXT column. decimal.NewFromFloat
// produces the shortest string that round-trips the float exactly.
func text(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func number(v string) (float64, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal value %q: %w", v, err)
	}
	f, _ := d.Float64()
	return f, nil
}
