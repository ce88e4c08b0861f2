// Package quote orchestrates a full loan quote: it derives the financed
// amount from the raw inputs, computes the fixed monthly payment, generates
// the amortization schedule, and attaches the aggregate totals used for
// display and export.
package quote

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmorand/auto-loan-calc/pkg/datetime"
	"github.com/tmorand/auto-loan-calc/pkg/loan"
	"github.com/tmorand/auto-loan-calc/pkg/mathutil"
	"go.uber.org/zap"
)

// Request names a single quote computation.
type Request struct {
	Name         string
	VehicleLabel string
	StartDate    string // optional first-payment month, YYYY-MM
	Inputs       loan.Inputs
}

// Quote holds the results of one computation. The schedule and totals are
// recomputed wholesale per request; a Quote is never updated in place.
type Quote struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Name           string
	VehicleLabel   string
	StartDate      string
	Inputs         loan.Inputs
	LoanAmount     float64
	MonthlyPayment float64
	TotalInterest  float64
	TotalCost      float64
	Schedule       []loan.Row
}

// Compute derives the financed amount once and threads it through the payment
// formula, the schedule generator, and the aggregate totals. The only
// computation failure is loan.ErrInvalidTerm; implausible inputs pass through
// and surface as implausible output.
func Compute(logger *zap.Logger, req Request) (*Quote, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	amount := loan.DeriveLoanAmount(req.Inputs)
	if !mathutil.IsPositive(amount) {
		logger.Warn("derived loan amount is not positive",
			zap.String("op", "quote.Compute"),
			zap.String("name", req.Name),
			zap.Float64("loanAmount", amount),
		)
	}

	payment, err := loan.CalculateMonthlyPayment(amount, req.Inputs.AnnualInterestRate, req.Inputs.TermMonths)
	if err != nil {
		return nil, fmt.Errorf("quote %q: %w", req.Name, err)
	}

	schedule, err := loan.GenerateAmortizationSchedule(amount, req.Inputs.AnnualInterestRate, req.Inputs.TermMonths)
	if err != nil {
		return nil, fmt.Errorf("quote %q: %w", req.Name, err)
	}

	totalInterest := loan.CalculateTotalInterest(amount, payment, req.Inputs.TermMonths)
	totalCost := loan.CalculateTotalLoanCost(amount, totalInterest, req.Inputs.TitleAndFees, req.Inputs.IncludeFeesInPrincipal)

	logger.Debug("computed quote",
		zap.String("op", "quote.Compute"),
		zap.String("name", req.Name),
		zap.Float64("loanAmount", amount),
		zap.Float64("monthlyPayment", payment),
		zap.Int("termMonths", req.Inputs.TermMonths),
	)

	return &Quote{
		Name:           req.Name,
		VehicleLabel:   req.VehicleLabel,
		StartDate:      req.StartDate,
		Inputs:         req.Inputs,
		LoanAmount:     amount,
		MonthlyPayment: payment,
		TotalInterest:  totalInterest,
		TotalCost:      totalCost,
		Schedule:       schedule,
	}, nil
}

// ScheduleDates returns the YYYY-MM label for every schedule row when the
// quote carries a start date, or nil when it does not.
func (q *Quote) ScheduleDates() ([]string, error) {
	if q.StartDate == "" {
		return nil, nil
	}

	dates := make([]string, len(q.Schedule))
	for i := range q.Schedule {
		date, err := datetime.OffsetDate(q.StartDate, datetime.DateTimeLayout, i)
		if err != nil {
			return nil, fmt.Errorf("quote %q: invalid start date %q: %w", q.Name, q.StartDate, err)
		}
		dates[i] = date
	}
	return dates, nil
}
