package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/iwvelando/loan-tracker/internal/server"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"go.uber.org/zap"
)

type serveCmd struct {
	serverConfig  string
	address       string
	maxUploadSize string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the loan API over HTTP" }
func (*serveCmd) Usage() string {
	return `loan-tracker serve [-server-config <file>] [-address <host:port>] [-max-upload-size <size>]

  Serves the JSON API until interrupted. Overdue EMI installments are
  synced once at startup.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.serverConfig, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	f.StringVar(&c.address, "address", "", "listen address override")
	f.StringVar(&c.maxUploadSize, "max-upload-size", "", "backup upload limit override, e.g. 512K or 2M")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	srvConfig, err := server.LoadConfig(c.serverConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main.serve\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": %q}\n", c.serverConfig, err.Error())
		return subcommands.ExitFailure
	}
	if c.address != "" {
		srvConfig.Address = c.address
	}
	if c.maxUploadSize != "" {
		size, err := server.ParseSize(c.maxUploadSize)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		srvConfig.SetUploadSizeBytes(size)
	}

	rt, err := newRuntime(&srvConfig.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main.serve\", \"level\": \"fatal\", \"msg\": \"failed to start\", \"error\": %q}\n", err.Error())
		return subcommands.ExitFailure
	}
	defer rt.close()

	if err := rt.openTracker(ctx); err != nil {
		rt.logger.Error("failed to load loan collection", zap.String("op", "main.serve"), zap.Error(err))
		return subcommands.ExitFailure
	}

	if appended, err := rt.tracker.SyncOverdue(ctx, rt.tracker.Today()); err != nil {
		rt.logger.Warn("startup overdue sync failed", zap.String("op", "main.serve"), zap.Error(err))
	} else if len(appended) > 0 {
		rt.logger.Info("startup overdue sync appended installments",
			zap.String("op", "main.serve"),
			zap.Int("loans", len(appended)),
		)
	}

	handler := server.NewHandler(rt.tracker, rt.logger, server.Options{
		MaxUploadSize: srvConfig.UploadSizeBytes(),
		Version:       version,
		Currency:      rt.conf.Display.Currency,
	})

	httpServer := &http.Server{
		Addr:              srvConfig.Address,
		Handler:           handler,
		ReadTimeout:       srvConfig.ReadTimeoutDuration(),
		ReadHeaderTimeout: srvConfig.ReadTimeoutDuration(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("server listening",
			zap.String("op", "main.serve"),
			zap.String("address", srvConfig.Address),
			zap.Int64("maxUploadSize", srvConfig.UploadSizeBytes()),
			zap.String("version", version),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("server stopped", zap.String("op", "main.serve"), zap.Error(err))
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), srvConfig.ShutdownTimeoutDuration())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error("graceful shutdown failed", zap.String("op", "main.serve"), zap.Error(err))
			return subcommands.ExitFailure
		}
		rt.logger.Info("server shut down", zap.String("op", "main.serve"))
	}
	return subcommands.ExitSuccess
}
