// Command smoke walks every route of a deployed location API once.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/locapi/internal/smoke"
	"github.com/okian/locapi/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	defaultBaseURL = "http://localhost:9080"
	defaultTimeout = 15 * time.Second
	runTimeout     = 2 * time.Minute
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &smoke.Config{}
	var logFormat string

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Check a deployed location API end to end",
		Long: `Runs an unauthenticated probe, then logs in and calls list, create,
get, update and delete once each. Steps that need an id nobody supplied are
skipped. Credentials default to SMOKE_EMAIL and SMOKE_PASSWORD, read from the
environment or a .env file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat)); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if cfg.Email == "" {
				cfg.Email = os.Getenv("SMOKE_EMAIL")
			}
			if cfg.Password == "" {
				cfg.Password = os.Getenv("SMOKE_PASSWORD")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			report, err := smoke.Run(ctx, cfg)
			if report != nil {
				printReport(cmd, report)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", defaultBaseURL, "base URL of the API, including any function prefix")
	f.StringVar(&cfg.Email, "email", "", "login email (default $SMOKE_EMAIL)")
	f.StringVar(&cfg.Password, "password", "", "login password (default $SMOKE_PASSWORD)")
	f.StringVar(&cfg.LocationID, "location-id", "", "existing location to read and update")
	f.StringVar(&cfg.DeleteRequestID, "delete-request-id", "", "location request to delete")
	f.BoolVar(&cfg.SkipProbe, "skip-probe", false, "skip the unauthenticated probe")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "per-request timeout")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log response bodies")
	f.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	return cmd
}

func printReport(cmd *cobra.Command, report *smoke.Report) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STEP\tREQUEST\tSTATUS\tWANT\tTIME")
	for _, s := range report.Steps {
		status := fmt.Sprint(s.Status)
		if s.Skipped {
			status = "skipped (" + s.Reason + ")"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s %s\t%s\t%d\t%s\n", s.Name, s.Method, s.Path, status, s.Expected, s.Duration.Round(time.Millisecond))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%d passed, %d skipped in %s\n",
		report.Passed(), report.Skipped(), report.EndTime.Sub(report.StartTime).Round(time.Millisecond))
}
