package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/google/subcommands"
	"github.com/iwvelando/loan-tracker/internal/tracker"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/format"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"github.com/iwvelando/loan-tracker/pkg/output"
	"go.uber.org/zap"
)

// optionalFloat is a float flag that remembers whether it was given.
type optionalFloat struct {
	value float64
	set   bool
}

func (o *optionalFloat) String() string {
	if o == nil || !o.set {
		return ""
	}
	return strconv.FormatFloat(o.value, 'f', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

func (o *optionalFloat) pointer() *float64 {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// loanID returns the single positional loan id argument.
func loanID(f *flag.FlagSet) (string, bool) {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one loan id is required")
		return "", false
	}
	return f.Arg(0), true
}

type listCmd struct {
	query string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list loans with their status as of a date" }
func (*listCmd) Usage() string {
	return `loan-tracker [-as-of <date>] list [-q <terms>]

  Lists every loan, or those matching all of the search terms, with the
  amount due as of the report date.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "search terms matched against title, principal, status and start date")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	records := rt.tracker.Search(c.query)
	summaries := make([]output.Summary, 0, len(records))
	for _, record := range records {
		loanStatus, err := loans.Status(record, rt.asOf)
		if err != nil {
			rt.logger.Warn("skipping loan whose status cannot be computed",
				zap.String("op", "main.list"),
				zap.String("id", record.ID),
				zap.Error(err),
			)
			continue
		}
		summaries = append(summaries, output.Summary{Record: record, Status: loanStatus})
	}

	var err error
	switch rt.outputFormat {
	case constants.OutputFormatCSV:
		err = output.CsvFormat(os.Stdout, summaries)
	default:
		err = output.PrettyFormat(os.Stdout, summaries, rt.conf.Display.Currency)
	}
	if err != nil {
		rt.logger.Error("failed to write report", zap.String("op", "main.list"), zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show one loan, its ledger and any warnings" }
func (*statusCmd) Usage() string {
	return `loan-tracker [-as-of <date>] status <id>
`
}

func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (c *statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := loanID(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	record, loanStatus, err := rt.tracker.Status(id, rt.asOf)
	if err != nil {
		rt.logger.Error("failed to compute loan status", zap.String("op", "main.status"), zap.Error(err))
		return subcommands.ExitFailure
	}

	summaries := []output.Summary{{Record: record, Status: loanStatus}}
	if rt.outputFormat == constants.OutputFormatCSV {
		if err := output.CsvFormat(os.Stdout, summaries); err != nil {
			rt.logger.Error("failed to write report", zap.String("op", "main.status"), zap.Error(err))
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	if err := output.PrettyFormat(os.Stdout, summaries, rt.conf.Display.Currency); err != nil {
		rt.logger.Error("failed to write report", zap.String("op", "main.status"), zap.Error(err))
		return subcommands.ExitFailure
	}

	repayments := loans.SortedRepayments(record.Repayments)
	if len(repayments) > 0 {
		fmt.Printf("\nRepayments\n")
		for _, r := range repayments {
			fmt.Printf("%s  %14s  principal %14s  interest %14s  %s\n",
				r.Date.Format(constants.DateLayout),
				format.Currency(r.AmountPaid, rt.conf.Display.Currency),
				format.Currency(r.PrincipalComponent, rt.conf.Display.Currency),
				format.Currency(r.InterestComponent, rt.conf.Display.Currency),
				r.ID,
			)
		}
	}

	for _, warning := range rt.tracker.Warnings() {
		rt.logger.Warn("Ledger warning: "+warning, zap.String("op", "main.status"))
	}
	return subcommands.ExitSuccess
}

type seriesCmd struct{}

func (*seriesCmd) Name() string     { return "series" }
func (*seriesCmd) Synopsis() string { return "show how a loan's balance grew up to a date" }
func (*seriesCmd) Usage() string {
	return `loan-tracker [-as-of <date>] [-output-format csv] series <id>
`
}

func (*seriesCmd) SetFlags(*flag.FlagSet) {}

func (c *seriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := loanID(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	record, err := rt.tracker.Get(id)
	if err != nil {
		rt.logger.Error("failed to find loan", zap.String("op", "main.series"), zap.Error(err))
		return subcommands.ExitFailure
	}
	points, err := rt.tracker.Series(id, rt.asOf)
	if err != nil {
		rt.logger.Error("failed to compute growth series", zap.String("op", "main.series"), zap.Error(err))
		return subcommands.ExitFailure
	}

	switch rt.outputFormat {
	case constants.OutputFormatCSV:
		err = output.CsvSeries(os.Stdout, points)
	default:
		err = output.PrettySeries(os.Stdout, record.Title, points, rt.conf.Display.Currency)
	}
	if err != nil {
		rt.logger.Error("failed to write report", zap.String("op", "main.series"), zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type addCmd struct {
	title     string
	principal float64
	rate      float64
	start     string
	kind      string
	tenure    int
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a new loan" }
func (*addCmd) Usage() string {
	return `loan-tracker add -title <title> -principal <amount> -rate <percent> -type DAILY|EMI [-tenure <months>] [-start <date>]

  Records a new active loan. EMI loans need a tenure in months.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.title, "title", "", "short description of the loan")
	f.Float64Var(&c.principal, "principal", 0, "amount borrowed")
	f.Float64Var(&c.rate, "rate", 0, "annual interest rate in percent")
	f.StringVar(&c.start, "start", "", "start date in YYYY-MM-DD form (defaults to today)")
	f.StringVar(&c.kind, "type", "", "interest model: DAILY or EMI")
	f.IntVar(&c.tenure, "tenure", 0, "number of monthly installments, EMI only")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	start := datetime.Today()
	if c.start != "" {
		parsed, err := datetime.Parse(c.start)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		start = parsed
	}

	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	record, err := rt.tracker.Create(ctx, tracker.Terms{
		Title:     c.title,
		Principal: c.principal,
		Rate:      c.rate,
		StartDate: start,
		Kind:      loans.Kind(c.kind),
		Tenure:    c.tenure,
	})
	if err != nil {
		rt.logger.Error("failed to add loan", zap.String("op", "main.add"), zap.Error(err))
		return subcommands.ExitFailure
	}

	fmt.Println(record.ID)
	return subcommands.ExitSuccess
}

type repayCmd struct {
	amount    float64
	date      string
	principal optionalFloat
	interest  optionalFloat
}

func (*repayCmd) Name() string     { return "repay" }
func (*repayCmd) Synopsis() string { return "record a repayment against a loan" }
func (*repayCmd) Usage() string {
	return `loan-tracker repay -amount <amount> [-date <date>] [-principal <part>] [-interest <part>] <id>

  Appends a repayment. Without -principal and -interest the amount is split
  by settling interest first.
`
}

func (c *repayCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.amount, "amount", 0, "amount paid")
	f.StringVar(&c.date, "date", "", "payment date in YYYY-MM-DD form (defaults to today)")
	f.Var(&c.principal, "principal", "part of the amount that reduces principal")
	f.Var(&c.interest, "interest", "part of the amount that pays interest")
}

func (c *repayCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := loanID(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	var date datetime.Date
	if c.date != "" {
		parsed, err := datetime.Parse(c.date)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		date = parsed
	}

	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	repayment, err := rt.tracker.AddRepayment(ctx, id, tracker.RepaymentInput{
		Date:      date,
		Amount:    c.amount,
		Principal: c.principal.pointer(),
		Interest:  c.interest.pointer(),
	})
	if err != nil {
		rt.logger.Error("failed to record repayment", zap.String("op", "main.repay"), zap.Error(err))
		return subcommands.ExitFailure
	}

	currency := rt.conf.Display.Currency
	fmt.Printf("%s  %s paid on %s: %s principal, %s interest\n",
		repayment.ID,
		format.Currency(repayment.AmountPaid, currency),
		repayment.Date,
		format.Currency(repayment.PrincipalComponent, currency),
		format.Currency(repayment.InterestComponent, currency),
	)
	return subcommands.ExitSuccess
}

type completeCmd struct{}

func (*completeCmd) Name() string     { return "complete" }
func (*completeCmd) Synopsis() string { return "mark a loan as fully repaid" }
func (*completeCmd) Usage() string {
	return `loan-tracker complete <id>
`
}

func (*completeCmd) SetFlags(*flag.FlagSet) {}

func (c *completeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := loanID(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	if _, err := rt.tracker.Complete(ctx, id); err != nil {
		rt.logger.Error("failed to complete loan", zap.String("op", "main.complete"), zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a loan and its repayments" }
func (*deleteCmd) Usage() string {
	return `loan-tracker delete <id>
`
}

func (*deleteCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := loanID(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	if err := rt.tracker.Delete(ctx, id); err != nil {
		rt.logger.Error("failed to delete loan", zap.String("op", "main.delete"), zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "append overdue EMI installments" }
func (*syncCmd) Usage() string {
	return `loan-tracker [-as-of <date>] sync

  Appends the installments of active EMI loans whose due dates have passed
  without a recorded repayment.
`
}

func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	appended, err := rt.tracker.SyncOverdue(ctx, rt.asOf)
	if err != nil {
		rt.logger.Error("failed to sync overdue installments", zap.String("op", "main.sync"), zap.Error(err))
		return subcommands.ExitFailure
	}

	ids := make([]string, 0, len(appended))
	for id := range appended {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s: %d installment(s) appended\n", id, appended[id])
	}
	if len(ids) == 0 {
		fmt.Println("no overdue installments")
	}
	return subcommands.ExitSuccess
}
