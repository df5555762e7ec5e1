package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/format"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"github.com/iwvelando/loan-tracker/pkg/output"
	"go.uber.org/zap"
)

type emiCmd struct {
	principal float64
	rate      float64
	months    int
}

func (*emiCmd) Name() string     { return "emi" }
func (*emiCmd) Synopsis() string { return "compute the monthly installment of a loan" }
func (*emiCmd) Usage() string {
	return `loan-tracker emi -principal <amount> -rate <percent> -months <n>

  Computes the equated monthly installment and totals without storing
  anything.
`
}

func (c *emiCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.principal, "principal", 0, "amount borrowed")
	f.Float64Var(&c.rate, "rate", 0, "annual interest rate in percent")
	f.IntVar(&c.months, "months", 12, "tenure in months")
}

func (c *emiCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.close()

	result, err := loans.ComputeEMI(c.principal, c.rate, c.months)
	if err != nil {
		rt.logger.Error("failed to compute installment", zap.String("op", "main.emi"), zap.Error(err))
		return subcommands.ExitUsageError
	}

	if rt.outputFormat == constants.OutputFormatCSV {
		writer := csv.NewWriter(os.Stdout)
		_ = writer.Write([]string{"installment", "total interest", "total payment"})
		_ = writer.Write([]string{
			format.Plain(result.Installment),
			format.Plain(result.TotalInterest),
			format.Plain(result.TotalPayment),
		})
		writer.Flush()
		if err := writer.Error(); err != nil {
			rt.logger.Error("failed to write report", zap.String("op", "main.emi"), zap.Error(err))
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	if err := output.PrettyEMI(os.Stdout, c.principal, c.rate, c.months, result, rt.conf.Display.Currency); err != nil {
		rt.logger.Error("failed to write report", zap.String("op", "main.emi"), zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
