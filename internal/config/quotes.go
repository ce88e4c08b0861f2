package config

import (
	"fmt"
	"time"

	"github.com/tmorand/auto-loan-calc/pkg/constants"
	"github.com/tmorand/auto-loan-calc/pkg/datetime"
	"github.com/tmorand/auto-loan-calc/pkg/loan"
	"github.com/tmorand/auto-loan-calc/pkg/mathutil"
)

// QuoteConfig indicates one requested quote and its parameters.
type QuoteConfig struct {
	Name                   string
	Vehicle                VehicleConfig `yaml:"vehicle,omitempty"`
	StartDate              string        `yaml:"startDate,omitempty"` // YYYY-MM
	VehiclePrice           float64
	DownPayment            float64
	TradeInValue           float64
	AmountOwedOnTradeIn    float64
	CashIncentives         float64
	SalesTaxPercent        float64
	TitleAndFees           float64
	IncludeFeesInPrincipal bool
	InterestRate           float64 // nominal annual rate, percent
	Term                   int     // months
}

// LoanInputs converts the configured figures into the calculation inputs.
func (q *QuoteConfig) LoanInputs() loan.Inputs {
	return loan.Inputs{
		VehiclePrice:           q.VehiclePrice,
		DownPayment:            q.DownPayment,
		TradeInValue:           q.TradeInValue,
		AmountOwedOnTradeIn:    q.AmountOwedOnTradeIn,
		CashIncentives:         q.CashIncentives,
		SalesTaxPercent:        q.SalesTaxPercent,
		TitleAndFees:           q.TitleAndFees,
		IncludeFeesInPrincipal: q.IncludeFeesInPrincipal,
		AnnualInterestRate:     q.InterestRate,
		TermMonths:             q.Term,
	}
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Warnings flag financially implausible values but never
// block a calculation; the only hard failure in the math is a non-positive
// term, surfaced when the quote is computed.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if len(c.Quotes) == 0 {
		warnings = append(warnings, "no quotes configured")
	}

	seen := make(map[string]struct{})
	for i, q := range c.Quotes {
		label := q.Name
		if label == "" {
			label = fmt.Sprintf("quote %d", i+1)
			warnings = append(warnings, fmt.Sprintf("%s has no name", label))
		}

		if _, dup := seen[q.Name]; dup && q.Name != "" {
			warnings = append(warnings, fmt.Sprintf("duplicate quote name %q", q.Name))
		}
		seen[q.Name] = struct{}{}

		if mathutil.IsNegative(q.VehiclePrice) {
			warnings = append(warnings, fmt.Sprintf("%s has a negative vehicle price", label))
		} else if mathutil.IsZero(q.VehiclePrice) {
			warnings = append(warnings, fmt.Sprintf("%s has no vehicle price", label))
		}
		if mathutil.IsNegative(q.InterestRate) {
			warnings = append(warnings, fmt.Sprintf("%s has a negative interest rate", label))
		}
		if q.InterestRate > constants.ImplausibleRateThreshold {
			warnings = append(warnings, fmt.Sprintf("%s has an interest rate of %.2f%%, far above market norms", label, q.InterestRate))
		}
		if q.Term <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s has a non-positive term and will fail to compute", label))
		}
		if q.Term > constants.MaxReasonableTermMonths {
			warnings = append(warnings, fmt.Sprintf("%s has a term of %d months, unusually long for an auto loan", label, q.Term))
		}
		if q.StartDate != "" {
			past, err := datetime.DateBeforeDate(q.StartDate, time.Now().Format(constants.DateTimeLayout))
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s has an invalid start date %q, expected YYYY-MM", label, q.StartDate))
			} else if past {
				warnings = append(warnings, fmt.Sprintf("%s has a start date %s in the past", label, q.StartDate))
			}
		}
	}

	return warnings
}
