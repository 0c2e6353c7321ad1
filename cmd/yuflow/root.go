package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tgienger/yuflow/internal/config"
	"github.com/tgienger/yuflow/internal/database"
	"github.com/tgienger/yuflow/internal/db"
	"github.com/tgienger/yuflow/internal/logging"
	"github.com/tgienger/yuflow/internal/native"
	"github.com/tgienger/yuflow/internal/platform"
	"github.com/tgienger/yuflow/internal/query"
	"github.com/tgienger/yuflow/internal/storage"
	"github.com/tgienger/yuflow/internal/storage/desktop"
	"github.com/tgienger/yuflow/internal/storage/web"
	"github.com/tgienger/yuflow/internal/ui"
	"github.com/tgienger/yuflow/internal/ui/styles"
	"github.com/tgienger/yuflow/internal/ui/views"
)

// env holds what every command needs once the config is loaded
type env struct {
	cfg     config.Config
	logger  *zap.Logger
	service *database.Service
}

func (e *env) close(ctx context.Context) {
	if err := e.service.Close(ctx); err != nil {
		e.logger.Error("close storage", zap.Error(err))
	}
	e.logger.Sync()
}

func setup(configPath string) (*env, error) {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	detect := func() platform.Platform {
		return platform.Detect(cfg.Platform, os.Getenv)
	}
	service := database.NewService(detect, newFactory(cfg.Storage, logger), logger)
	return &env{cfg: cfg, logger: logger, service: service}, nil
}

// newFactory builds the adapter for each platform from the storage config
func newFactory(cfg config.Storage, logger *zap.Logger) database.Factory {
	return func(p platform.Platform) (storage.Adapter, error) {
		switch p {
		case platform.Desktop:
			handler := native.NewHandler(func(ctx context.Context) (*db.DB, error) {
				return db.Open(ctx, cfg.Driver, cfg.DBPath)
			})
			return desktop.New(native.NewLocalInvoker(handler, logger.Named("native"))), nil
		case platform.Web:
			return web.New(cfg.DataFile, web.WithLogger(logger.Named("web"))), nil
		}
		return nil, fmt.Errorf("unsupported platform %q", p)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "yuflow",
		Short:         "A local to-do manager",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(configPath)
			if err != nil {
				return err
			}
			defer e.close(context.Background())
			return runUI(e)
		},
	}
	cmd.SetVersionTemplate("yuflow {{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	cmd.AddCommand(newBackupCmd(&configPath))
	return cmd
}

func runUI(e *env) error {
	if err := styles.Use(e.cfg.UI.Theme); err != nil {
		return err
	}
	opts := views.TaskListOptions{
		Status: views.StatusFilter(e.cfg.UI.DefaultFilter),
		Sort:   query.SortKey(e.cfg.UI.DefaultSort),
	}
	app := ui.NewApp(e.service, opts)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run application: %w", err)
	}
	return nil
}
