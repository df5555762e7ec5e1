// Package output renders loan summaries and growth series for the terminal
// or for spreadsheets.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/format"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary pairs a record with its status as of the report date.
type Summary struct {
	Record loans.Record
	Status loans.LoanStatus
}

// PrettyFormat writes a human-readable table of loan summaries.
func PrettyFormat(w io.Writer, summaries []Summary, currency string) error {
	p := message.NewPrinter(language.English)

	if _, err := fmt.Fprintf(w, "Title                | Type  | Status    | Principal       | Interest        | Total Due       | Days\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "_____                | ____  | ______    | _________       | ________        | _________       | ____\n"); err != nil {
		return err
	}

	totalDue := 0.0
	for _, summary := range summaries {
		record, status := summary.Record, summary.Status
		if _, err := p.Fprintf(w, "%-20s | %-5s | %-9s | %15s | %15s | %15s | %d\n",
			truncate(record.Title, 20),
			record.Kind,
			record.Status,
			format.Currency(status.CurrentPrincipal, currency),
			format.Currency(status.AccruedInterest, currency),
			format.Currency(status.TotalDue, currency),
			status.DaysElapsed,
		); err != nil {
			return err
		}
		if record.Status == loans.StateActive {
			totalDue += status.TotalDue
		}
	}

	_, err := fmt.Fprintf(w, "\n%d loans, %s due on active loans\n", len(summaries), format.Currency(totalDue, currency))
	return err
}

// CsvFormat writes loan summaries in comma-separated value format.
func CsvFormat(w io.Writer, summaries []Summary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "title", "type", "status", "start date", "principal", "rate", "tenure", "current principal", "accrued interest", "total due", "days elapsed", "emi"}); err != nil {
		return err
	}
	for _, summary := range summaries {
		record, status := summary.Record, summary.Status
		tenure := ""
		if record.Kind == loans.KindEMI {
			tenure = strconv.Itoa(record.Tenure)
		}
		if err := writer.Write([]string{
			record.ID,
			record.Title,
			string(record.Kind),
			string(record.Status),
			record.StartDate.Format(constants.DateLayout),
			format.Plain(record.Principal),
			strconv.FormatFloat(record.Rate, 'f', -1, 64),
			tenure,
			format.Plain(status.CurrentPrincipal),
			format.Plain(status.AccruedInterest),
			format.Plain(status.TotalDue),
			strconv.Itoa(status.DaysElapsed),
			format.Plain(status.EMIAmount),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// PrettySeries writes a growth series as a table under the loan's title.
func PrettySeries(w io.Writer, title string, points []loans.GrowthPoint, currency string) error {
	if _, err := fmt.Fprintf(w, "--- Growth for %s ---\n", title); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Date         | Interest        | Total\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "____         | ________        | _____\n"); err != nil {
		return err
	}
	for _, point := range points {
		if _, err := fmt.Fprintf(w, "%-12s | %15s | %s\n",
			point.Label,
			format.Currency(point.Interest, currency),
			format.Currency(point.Total, currency),
		); err != nil {
			return err
		}
	}
	return nil
}

// CsvSeries writes a growth series in comma-separated value format.
func CsvSeries(w io.Writer, points []loans.GrowthPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "label", "interest", "total"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{
			point.Date.Format(constants.DateLayout),
			point.Label,
			format.Plain(point.Interest),
			format.Plain(point.Total),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// PrettyEMI writes an installment quote.
func PrettyEMI(w io.Writer, principal, rate float64, months int, result loans.EMIResult, currency string) error {
	p := message.NewPrinter(language.English)
	_, err := p.Fprintf(w, "Principal:      %s\nRate:           %.2f%%\nTenure:         %d months\nInstallment:    %s\nTotal interest: %s\nTotal payment:  %s\n",
		format.Currency(principal, currency),
		rate,
		months,
		format.Currency(result.Installment, currency),
		format.Currency(result.TotalInterest, currency),
		format.Currency(result.TotalPayment, currency),
	)
	return err
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
