package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type exportCmd struct {
	out string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the whole collection as a JSON backup" }
func (*exportCmd) Usage() string {
	return `loan-tracker export [-o <file>]
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "", "backup file to write (defaults to stdout)")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	var w io.Writer = os.Stdout
	if c.out != "" {
		file, err := os.Create(c.out)
		if err != nil {
			rt.logger.Error("failed to create backup file", zap.String("op", "main.export"), zap.Error(err))
			return subcommands.ExitFailure
		}
		defer func() {
			if err := file.Close(); err != nil {
				rt.logger.Warn("failed to close backup file", zap.String("op", "main.export"), zap.Error(err))
			}
		}()
		w = file
	}

	if err := rt.tracker.Export(w); err != nil {
		rt.logger.Error("failed to export collection", zap.String("op", "main.export"), zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace the collection with a JSON backup" }
func (*importCmd) Usage() string {
	return `loan-tracker import <file>

  Replaces every stored loan with the records in the backup. Use "-" to
  read the backup from stdin.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one backup file is required")
		return subcommands.ExitUsageError
	}

	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	var r io.Reader = os.Stdin
	if name := f.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			rt.logger.Error("failed to open backup file", zap.String("op", "main.import"), zap.Error(err))
			return subcommands.ExitFailure
		}
		defer func() { _ = file.Close() }()
		r = file
	}

	count, err := rt.tracker.Import(ctx, r)
	if err != nil {
		rt.logger.Error("failed to import backup", zap.String("op", "main.import"), zap.Error(err))
		return subcommands.ExitFailure
	}
	fmt.Printf("imported %d loan(s)\n", count)
	return subcommands.ExitSuccess
}

type wipeCmd struct {
	yes bool
}

func (*wipeCmd) Name() string     { return "wipe" }
func (*wipeCmd) Synopsis() string { return "delete every stored loan" }
func (*wipeCmd) Usage() string {
	return `loan-tracker wipe -yes
`
}

func (c *wipeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm that every loan should be deleted")
}

func (c *wipeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "refusing to wipe the collection without -yes")
		return subcommands.ExitUsageError
	}

	rt, status := setup(ctx)
	if rt == nil {
		return status
	}
	defer rt.close()

	if err := rt.tracker.Wipe(ctx); err != nil {
		rt.logger.Error("failed to wipe collection", zap.String("op", "main.wipe"), zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
