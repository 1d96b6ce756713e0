package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/CTAG07/sitekit/pkg/templating"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitekit",
		Short: "Build, publish and preview the bilingual status site",
		Long: `sitekit maintains a static en/zh site: it stamps the footer year and
marks the active navigation link on every page, publishes the logs, tasks and
status pages from their data sources, and serves a local preview.`,
		SilenceUsage: true,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.json", "config file path")

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTemplatesCmd())
	return rootCmd
}

func newBuildCmd() *cobra.Command {
	var siteDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fix the year and navigation of every page in the site",
		Long: `Walk the site directory and rewrite every HTML page: the footer year is
stamped and navigation links pointing at the page itself are marked active.
Pages already built for the current year are skipped unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := NewConfigManager(configPath)
			if err != nil {
				return err
			}
			if siteDir != "" {
				cm.config.Server.SiteDir = siteDir
			}
			app, err := NewApp(cm, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.builder.Build(cmd.Context(), force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pages, %d changed, %d skipped, %d failed\n",
				report.Total, report.Changed, report.Skipped, len(report.Failed))
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d pages could not be fixed", len(report.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&siteDir, "site", "", "site directory (overrides server_config.site_dir)")
	cmd.Flags().BoolVar(&force, "force", false, "rewrite every page, ignoring the build ledger")
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sync <logs|tasks|health|all>",
		Short:     "Publish logs, tasks or status pages into the site",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: append(append([]string{}, jobNames...), jobAll),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := NewConfigManager(configPath)
			if err != nil {
				return err
			}
			app, err := NewApp(cm, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			results, err := app.RunJob(args[0])
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files in %s\n", res.Job, len(res.Files), res.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect the page templates",
	}

	var overwrite bool
	export := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write the built-in templates to a directory as a base for overrides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := exportTemplates(args[0], overwrite)
			for _, name := range written {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return err
		},
	}
	export.Flags().BoolVar(&overwrite, "overwrite", false, "replace files that already exist")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the page templates after applying overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			tm, err := templating.NewTemplateManager(newLogger(config.Server.LogLevel), config.Templates)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tm.GetTemplateNames())
		},
	}

	cmd.AddCommand(export, list)
	return cmd
}

// exportTemplates copies the embedded templates into dir and returns the
// paths it wrote.
func exportTemplates(dir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	var written []string
	err := fs.WalkDir(templating.DefaultTemplates(), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if _, err = os.Stat(dst); err == nil && !overwrite {
			return nil
		}
		data, err := fs.ReadFile(templating.DefaultTemplates(), name)
		if err != nil {
			return err
		}
		if err = atomic.WriteFile(dst, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to write %s: %w", dst, err)
		}
		written = append(written, dst)
		return nil
	})
	return written, err
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve a live preview of the site and the control API",
		Long: `Serve the site directory with pages fixed on the fly, together with the
control API. Publish jobs run on their configured schedules, and templates are
reloaded when the override directory changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

// serve runs server cycles until a shutdown is requested. A restart reloads
// the configuration and rebuilds every component.
func serve() error {
	baseLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan // Wait for a signal
		baseLogger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := run(actionChan)
		if err != nil {
			baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
			return err
		}

		if action == actionRestart {
			baseLogger.Info("--- Server Restarting ---")
			continue
		}
		break
	}

	baseLogger.Info("sitekit has shut down.")
	return nil
}

// run is the main loop that hosts both servers, and returns whenever the server is shutdown or restarted
func run(actionChan chan string) (string, error) {
	cm, err := NewConfigManager(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	app, err := NewApp(cm, nil)
	if err != nil {
		return "", err
	}
	defer app.Close()

	config := cm.Get()
	logger := app.logger
	logger.Info("Starting server cycle...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Server.BuildOnStart {
		if _, err = app.builder.Build(ctx, false); err != nil {
			logger.Error("Initial build failed", "error", err)
		}
	}

	scheduler, err := NewScheduler(config.Publish.Schedules, func(job string) error {
		_, err := app.RunJob(job)
		return err
	}, logger)
	if err != nil {
		return "", fmt.Errorf("failed to create scheduler: %w", err)
	}
	scheduler.Start()

	if config.Server.WatchFiles && app.tm.TemplateDirExists() {
		watcher, err := NewTemplateWatcher(config.Templates.TemplateDir, app.tm, app.clock, logger)
		if err != nil {
			logger.Warn("Template watcher disabled", "error", err)
		} else {
			defer func() {
				cancel()
				_ = watcher.Close()
			}()
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Warn("Template watcher stopped", "error", err)
				}
			}()
		}
	}

	server := NewServer(app, scheduler, actionChan)
	siteHttpServer := &http.Server{Addr: config.Server.SiteAddr, Handler: server.siteRouter}
	apiHttpServer := &http.Server{Addr: config.Server.ApiAddr, Handler: server.apiRouter}

	go func() {
		logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Api server failed", "error", err)
		}
	}()

	go func() {
		logger.Info("Starting site preview server", "address", siteHttpServer.Addr)
		if err := siteHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Site server failed", "error", err)
		}
	}()

	action := <-actionChan // Block here until API or OS signal sends an action.

	logger.Info("Stopping servers for " + action + "...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err = apiHttpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Api server shutdown failed", "error", err)
	}
	if err = siteHttpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Site server shutdown failed", "error", err)
	}
	scheduler.Stop(shutdownCtx)
	logger.Info("HTTP servers stopped.")

	return action, nil
}
