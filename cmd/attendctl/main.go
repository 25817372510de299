package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"communitycentre/internal/attendance"
	"communitycentre/internal/config"
	"communitycentre/internal/logging"
	"communitycentre/internal/store"
)

// AppContext holds the dependencies shared by commands.
type AppContext struct {
	ctx        context.Context
	cfg        config.App
	logger     *zap.Logger
	backend    *store.Backend
	attendance *attendance.Service
}

func main() {
	app := &AppContext{ctx: context.Background()}
	if err := newRootCmd(app).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(app *AppContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "attendctl",
		Short:         "Administer the community centre attendance service",
		Long:          `Manage workers, the centre location, reports and the sign-in QR code from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	rootCmd.AddCommand(workersCmd(app))
	rootCmd.AddCommand(locationCmd(app))
	rootCmd.AddCommand(reportCmd(app))
	rootCmd.AddCommand(qrCmd(app))
	rootCmd.AddCommand(migrateCmd(app))
	return rootCmd
}

// init loads config and opens the store unless a service was supplied.
func (a *AppContext) init() error {
	if a.attendance != nil {
		return nil
	}
	var err error
	a.cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.logger, err = logging.InitLogger("attendctl", a.cfg.Env, a.cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.backend, err = store.OpenBackend(a.ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	a.attendance = attendance.NewService(a.backend.Repo, a.cfg.DedupWindow, a.logger.Named("attendance"))
	return nil
}

func (a *AppContext) close() {
	if a.backend != nil {
		_ = a.backend.Close(context.Background())
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
