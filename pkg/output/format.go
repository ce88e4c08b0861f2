// Package output provides utilities for formatting and displaying quote
// results. All rounding happens here, at display time; the calculation core
// never rounds.
package output

import (
	"fmt"
	"strings"

	"github.com/tmorand/auto-loan-calc/internal/quote"
	"github.com/tmorand/auto-loan-calc/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(quotes []*quote.Quote) {
	for i, q := range quotes {
		fmt.Print(PrettyString(q))
		if i < len(quotes)-1 {
			fmt.Printf("\n")
		}
	}
}

// PrettyString renders one quote as a human-readable summary and schedule.
func PrettyString(q *quote.Quote) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	_, _ = p.Fprintf(&b, "--- Quote %s ---\n", q.Name)
	if q.VehicleLabel != "" {
		_, _ = p.Fprintf(&b, "Vehicle: %s\n", q.VehicleLabel)
	}
	_, _ = p.Fprintf(&b, "Loan amount:     $%.2f\n", mathutil.Round(q.LoanAmount))
	_, _ = p.Fprintf(&b, "Monthly payment: $%.2f\n", mathutil.Round(q.MonthlyPayment))
	_, _ = p.Fprintf(&b, "Total interest:  $%.2f\n", mathutil.Round(q.TotalInterest))
	_, _ = p.Fprintf(&b, "Total cost:      $%.2f\n", mathutil.Round(q.TotalCost))

	dates, err := q.ScheduleDates()
	if err != nil {
		dates = nil
	}

	if dates != nil {
		_, _ = p.Fprintf(&b, "Month   | Date    | Payment       | Principal     | Interest      | Balance\n")
		_, _ = p.Fprintf(&b, "_____   | ____    | _______       | _________     | ________      | _______\n")
	} else {
		_, _ = p.Fprintf(&b, "Month   | Payment       | Principal     | Interest      | Balance\n")
		_, _ = p.Fprintf(&b, "_____   | _______       | _________     | ________      | _______\n")
	}

	for i, row := range q.Schedule {
		if dates != nil {
			_, _ = p.Fprintf(&b, "%d | %s | $%.2f | $%.2f | $%.2f | $%.2f\n",
				row.Month, dates[i], mathutil.Round(row.Payment), mathutil.Round(row.PrincipalPortion),
				mathutil.Round(row.InterestPortion), mathutil.Round(row.RemainingBalance))
		} else {
			_, _ = p.Fprintf(&b, "%d | $%.2f | $%.2f | $%.2f | $%.2f\n",
				row.Month, mathutil.Round(row.Payment), mathutil.Round(row.PrincipalPortion),
				mathutil.Round(row.InterestPortion), mathutil.Round(row.RemainingBalance))
		}
	}

	return b.String()
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(quotes []*quote.Quote) {
	for _, q := range quotes {
		fmt.Print(CsvString(q))
	}
}

// CsvString renders one quote as CSV: a summary block followed by the
// schedule rows. The summary field order is fixed and relied upon by
// downstream consumers of exports.
func CsvString(q *quote.Quote) string {
	var b strings.Builder

	summary := []struct {
		field string
		value string
	}{
		{"vehicle", q.VehicleLabel},
		{"vehicle price", money(q.Inputs.VehiclePrice)},
		{"down payment", money(q.Inputs.DownPayment)},
		{"trade-in value", money(q.Inputs.TradeInValue)},
		{"amount owed on trade-in", money(q.Inputs.AmountOwedOnTradeIn)},
		{"cash incentives", money(q.Inputs.CashIncentives)},
		{"sales tax percent", money(q.Inputs.SalesTaxPercent)},
		{"title and fees", money(q.Inputs.TitleAndFees)},
		{"loan amount", money(q.LoanAmount)},
		{"interest rate", money(q.Inputs.AnnualInterestRate)},
		{"term months", fmt.Sprintf("%d", q.Inputs.TermMonths)},
		{"monthly payment", money(q.MonthlyPayment)},
		{"total interest", money(q.TotalInterest)},
		{"total cost", money(q.TotalCost)},
	}

	for _, item := range summary {
		fmt.Fprintf(&b, "%q,%q\n", item.field, item.value)
	}

	dates, err := q.ScheduleDates()
	if err != nil {
		dates = nil
	}

	if dates != nil {
		fmt.Fprintf(&b, "%q,%q,%q,%q,%q,%q\n", "month", "date", "payment", "principal", "interest", "balance")
	} else {
		fmt.Fprintf(&b, "%q,%q,%q,%q,%q\n", "month", "payment", "principal", "interest", "balance")
	}

	for i, row := range q.Schedule {
		if dates != nil {
			fmt.Fprintf(&b, "\"%d\",%q,%q,%q,%q,%q\n",
				row.Month, dates[i], money(row.Payment), money(row.PrincipalPortion),
				money(row.InterestPortion), money(row.RemainingBalance))
		} else {
			fmt.Fprintf(&b, "\"%d\",%q,%q,%q,%q\n",
				row.Month, money(row.Payment), money(row.PrincipalPortion),
				money(row.InterestPortion), money(row.RemainingBalance))
		}
	}

	return b.String()
}

// money renders a value rounded to cents. Display rounding happens here and
// nowhere upstream.
func money(v float64) string {
	return fmt.Sprintf("%.2f", mathutil.Round(v))
}
