// Package loan implements the amortization math for fixed-rate auto loans:
// financed-amount derivation, monthly payment calculation, schedule
// generation, and the aggregate totals derived from them. Every function is
// pure and deterministic; the package holds no state and is safe for
// concurrent callers.
package loan

import (
	"errors"
	"fmt"
	"math"

	"github.com/tmorand/auto-loan-calc/pkg/constants"
	"github.com/tmorand/auto-loan-calc/pkg/mathutil"
)

// ErrInvalidTerm is returned when a loan term is zero or negative; the
// amortization formula is undefined there and would otherwise produce
// NaN or Inf.
var ErrInvalidTerm = errors.New("loan term must be a positive number of months")

// Inputs holds the user-supplied financial figures for one calculation. It is
// constructed fresh per calculation and never mutated mid-calculation.
//
// Only the term is ever validated. Negative adjustments (e.g. negative equity
// where the amount owed exceeds the trade-in value) are legitimate inputs and
// pass through the math unmodified.
type Inputs struct {
	VehiclePrice           float64
	DownPayment            float64
	TradeInValue           float64
	AmountOwedOnTradeIn    float64
	CashIncentives         float64
	SalesTaxPercent        float64
	TitleAndFees           float64
	IncludeFeesInPrincipal bool
	AnnualInterestRate     float64 // nominal annual rate, percent
	TermMonths             int
}

// Row holds one month of an amortization schedule. Payment is constant
// across all rows of a given loan, and PrincipalPortion+InterestPortion
// equals Payment up to floating-point error.
type Row struct {
	Month            int
	Payment          float64
	PrincipalPortion float64
	InterestPortion  float64
	RemainingBalance float64
}

// DeriveLoanAmount combines price, taxes, credits, and trade-in adjustments
// into the financed principal. Sales tax applies to the price net of
// incentives; title and fees are folded in only when IncludeFeesInPrincipal
// is set. No floor is applied: credits exceeding the price yield a negative
// amount, which is passed through rather than rejected.
func DeriveLoanAmount(in Inputs) float64 {
	baseAmount := in.VehiclePrice - in.DownPayment - in.TradeInValue + in.AmountOwedOnTradeIn - in.CashIncentives
	taxAmount := mathutil.ApplyPercentage(in.VehiclePrice-in.CashIncentives, in.SalesTaxPercent)

	amount := baseAmount + taxAmount
	if in.IncludeFeesInPrincipal {
		amount += in.TitleAndFees
	}
	return amount
}

// CalculateMonthlyPayment calculates the fixed monthly payment for a loan
// using the standard amortization formula. A zero rate falls back to a
// straight-line split of the principal, since the formula's denominator is
// zero there. A non-positive term fails with ErrInvalidTerm.
func CalculateMonthlyPayment(principal, annualInterestRate float64, termMonths int) (float64, error) {
	if termMonths <= 0 {
		return 0, fmt.Errorf("calculate payment for term %d: %w", termMonths, ErrInvalidTerm)
	}

	periodicInterestRate := monthlyRate(annualInterestRate)
	if periodicInterestRate == 0 {
		return principal / float64(termMonths), nil
	}

	power := math.Pow(1.00+periodicInterestRate, float64(termMonths))
	discountFactor := (power - 1.00) / power
	return principal * periodicInterestRate / discountFactor, nil
}

// CalculateInterestPayment calculates the interest portion of one payment on
// the given outstanding balance.
func CalculateInterestPayment(remainingBalance, annualInterestRate float64) float64 {
	return remainingBalance * monthlyRate(annualInterestRate)
}

// GenerateAmortizationSchedule produces the month-by-month payment breakdown
// for a loan. The result always has exactly termMonths rows, numbered from 1,
// and recomputing from the same inputs yields an identical sequence.
//
// The running balance carried between iterations is never floored; only the
// emitted RemainingBalance field is clamped at zero. If floating-point drift
// pushes the balance slightly negative before the final row, later rows
// compute interest on that negative balance. No per-row rounding is applied;
// values are rounded at display time only.
func GenerateAmortizationSchedule(principal, annualInterestRate float64, termMonths int) ([]Row, error) {
	payment, err := CalculateMonthlyPayment(principal, annualInterestRate, termMonths)
	if err != nil {
		return nil, err
	}

	schedule := make([]Row, 0, termMonths)
	balance := principal
	for month := 1; month <= termMonths; month++ {
		interest := CalculateInterestPayment(balance, annualInterestRate)
		principalPortion := payment - interest
		balance -= principalPortion

		schedule = append(schedule, Row{
			Month:            month,
			Payment:          payment,
			PrincipalPortion: principalPortion,
			InterestPortion:  interest,
			RemainingBalance: math.Max(balance, 0),
		})
	}

	return schedule, nil
}

// CalculateTotalInterest derives the total interest paid over the life of the
// loan from the constant payment and term alone. It matches the sum of the
// schedule's interest portions up to floating-point tolerance.
func CalculateTotalInterest(principal, monthlyPayment float64, termMonths int) float64 {
	return monthlyPayment*float64(termMonths) - principal
}

// CalculateTotalLoanCost derives the total cost of financing. Title and fees
// are added here only when they were excluded from the financed amount, so
// they are never double-counted.
func CalculateTotalLoanCost(loanAmount, totalInterest, titleAndFees float64, includeFeesInPrincipal bool) float64 {
	cost := loanAmount + totalInterest
	if !includeFeesInPrincipal {
		cost += titleAndFees
	}
	return cost
}

func monthlyRate(annualInterestRate float64) float64 {
	return annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
}
