package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/p4market/catalogdb/internal/health"
	ophttp "github.com/p4market/catalogdb/internal/http"
	"github.com/p4market/catalogdb/internal/migration"
)

var errDriftDetected = stderrors.New("checksum drift detected")

const shutdownTimeout = 10 * time.Second

func newUpCmd(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long: `Apply every pending migration in version order, one transaction per
migration, stopping at the first failure. Drifted migrations are reported
and left alone; run "repair" once the schema has been checked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			report, runErr := a.runner().Run(a.ctx)
			if report != nil {
				if err := printRunReport(cmd.OutOrStdout(), opts.output, report); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if report.HasDrift() && (strict || a.cfg.Migration.FailOnDrift) {
				return fmt.Errorf("%w: versions %v", errDriftDetected, report.DriftedVersions())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when checksum drift is detected")
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied, pending and drifted migrations without applying anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			report, planErr := a.runner().Plan(a.ctx)
			if report != nil {
				if err := printRunReport(cmd.OutOrStdout(), opts.output, report); err != nil {
					return err
				}
			}
			return planErr
		},
	}
}

func newRepairCmd(opts *rootOptions) *cobra.Command {
	var allDrifted bool

	cmd := &cobra.Command{
		Use:   "repair [versions...]",
		Short: "Overwrite recorded checksums with the current migration checksums",
		Long: `Align the recorded checksum of each given version with the current
migration source. No SQL is executed and the live schema is not checked:
only repair after confirming the schema matches the edited migration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if allDrifted == (len(args) > 0) {
				return fmt.Errorf("pass either versions or --all-drifted")
			}
			versions, err := parseVersions(args)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			var report *migration.RepairReport
			var repairErr error
			if allDrifted {
				report, repairErr = a.repairer().RepairDrifted(a.ctx)
			} else {
				report, repairErr = a.repairer().Repair(a.ctx, versions)
			}
			if err := printRepairReport(cmd.OutOrStdout(), opts.output, report); err != nil {
				return err
			}
			return repairErr
		},
	}

	cmd.Flags().BoolVar(&allDrifted, "all-drifted", false, "Repair every drifted version")
	return cmd
}

func newForgetCmd(opts *rootOptions) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "forget versions...",
		Short: "Delete applied-state records so the migrations run again",
		Long: `Delete the applied-state records of the given versions. The next "up"
re-executes those migrations; schema objects they created are not dropped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to remove applied-state records without --yes")
			}
			versions, err := parseVersions(args)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			report, forgetErr := a.repairer().Forget(a.ctx, versions)
			if err := printRepairReport(cmd.OutOrStdout(), opts.output, report); err != nil {
				return err
			}
			return forgetErr
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the destructive removal")
	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Report existence, columns and row counts of the catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.verifier().Verify(a.ctx, a.tableSpecs())
			if err != nil {
				return err
			}
			return printSchemaReport(cmd.OutOrStdout(), opts.output, report)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only health, migration and schema endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			if !a.cfg.Logging.Development {
				gin.SetMode(gin.ReleaseMode)
			}
			if port == 0 {
				port = a.cfg.Server.Port
			}

			router := ophttp.NewRouter(ophttp.RouterDeps{
				Logger:   a.logger,
				Health:   health.NewHandler(ophttp.NewResponseHandler(a.logger), a.ping, a.runID),
				Planner:  a.runner(),
				Verifier: a.verifier(),
				Tables:   a.tableSpecs(),
			})
			return serve(a.ctx, a, router, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (defaults to server.port)")
	return cmd
}

// serve runs the ops server until ctx is canceled
func serve(ctx context.Context, a *app, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.LogInfo("Ops server listening", map[string]interface{}{"port": port})
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.LogInfo("Shutting down ops server", nil)
	return srv.Shutdown(shutdownCtx)
}

func parseVersions(args []string) ([]int64, error) {
	versions := make([]int64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid version %q", arg)
		}
		versions = append(versions, v)
	}
	return versions, nil
}
