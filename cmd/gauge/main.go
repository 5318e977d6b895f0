package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	serveradapter "github.com/hylla/gauge/internal/adapters/server"
	servercommon "github.com/hylla/gauge/internal/adapters/server/common"
	"github.com/hylla/gauge/internal/adapters/storage/sqlite"
	"github.com/hylla/gauge/internal/app"
	"github.com/hylla/gauge/internal/config"
	"github.com/hylla/gauge/internal/platform"
	"github.com/hylla/gauge/internal/tui"
)

var version = "dev"

type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the CLI. fang renders errors and help; the error is returned for the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if args == nil {
		args = []string{}
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stdout: stdout, stderr: stderr}

	defaultDev := version == "dev"
	if envDev, ok := parseBoolEnv("GAUGE_DEV_MODE"); ok {
		defaultDev = envDev
	}
	defaultApp := "gauge"
	if envApp := strings.TrimSpace(os.Getenv("GAUGE_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:   "gauge",
		Short: "Project-tracking dashboard analytics",
		Long:  "gauge reconstructs issue status history, merges assignment calendars and reports dashboard figures.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, "", "")
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	root.PersistentFlags().StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", defaultDev, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts),
		newDashboardCommand(opts),
		newHeatmapCommand(opts),
		newStatusCommand(opts),
		newImportCommand(opts),
		newExportCommand(opts),
		newServeCommand(opts),
		newTUICommand(opts),
	)
	return root
}

func newPathsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			w := opts.stdout
			_, _ = fmt.Fprintf(w, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(w, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(w, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(w, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(w, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(w, "datasets: %s\n", paths.DatasetDir)
			return nil
		},
	}
}

func newDashboardCommand(opts *globalOptions) *cobra.Command {
	var asOf, format, style string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Compute the dashboard for today (or --as-of)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime(cmd.Context(), "dashboard", func(ctx context.Context, rt *runtimeEnv) error {
				dashboard, err := rt.dashboards.Dashboard(ctx, servercommon.DashboardRequest{AsOf: asOf})
				if err != nil {
					return err
				}
				rt.logger.Info("dashboard computed",
					"computation_id", dashboard.ComputationID,
					"today", dashboard.Window.Today.Format("2006-01-02"),
					"issues", dashboard.Issues.Today.Total,
				)
				if format == "markdown" {
					_, err := fmt.Fprintln(opts.stdout, tui.RenderReport(app.DashboardMarkdown(dashboard), 100, style))
					return err
				}
				return writeResult(opts.stdout, dashboard, format)
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date (end of that day) or RFC3339 instant")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, cbor or markdown")
	cmd.Flags().StringVar(&style, "style", "notty", "glamour style for markdown output")
	return cmd
}

func newHeatmapCommand(opts *globalOptions) *cobra.Command {
	var (
		year   int
		format string
	)
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Compute the weekly workload heatmap for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime(cmd.Context(), "heatmap", func(ctx context.Context, rt *runtimeEnv) error {
				heatmap, err := rt.dashboards.WorkloadHeatmap(ctx, servercommon.HeatmapRequest{Year: year})
				if err != nil {
					return err
				}
				rt.logger.Info("heatmap computed", "year", heatmap.Year, "cells", len(heatmap.Cells))
				return writeResult(opts.stdout, heatmap, format)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default: current year)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or cbor")
	return cmd
}

func newStatusCommand(opts *globalOptions) *cobra.Command {
	var asOf, format string
	cmd := &cobra.Command{
		Use:   "status <issue-id>",
		Short: "Reconstruct one issue's status at a point in time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issueID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid issue id %q: %w", args[0], err)
			}
			return opts.withRuntime(cmd.Context(), "status", func(ctx context.Context, rt *runtimeEnv) error {
				snap, err := rt.dashboards.IssueStatus(ctx, servercommon.IssueStatusRequest{IssueID: issueID, AsOf: asOf})
				if err != nil {
					return err
				}
				rt.logger.Debug("issue status reconstructed", "issue_id", issueID, "status", snap.Status, "from_event", snap.FromEvent)
				return writeResult(opts.stdout, snap, format)
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "cutoff date (end of that day) or RFC3339 instant")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or cbor")
	return cmd
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	var inPath, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON or YAML dataset into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime(cmd.Context(), "import", func(ctx context.Context, rt *runtimeEnv) error {
				if strings.TrimSpace(inPath) == "" {
					latest, err := platform.LatestDataset(platform.DatasetDir(rt.cfg.Database.Path))
					if err != nil {
						return fmt.Errorf("--in not set and no exported dataset found: %w", err)
					}
					inPath = latest
				}
				f, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				defer f.Close()

				dsFormat := app.FormatFromPath(inPath)
				if format != "" {
					if dsFormat, err = app.ParseDatasetFormat(format); err != nil {
						return err
					}
				}
				ds, err := app.DecodeDataset(f, dsFormat)
				if err != nil {
					return err
				}
				if err := rt.svc.ImportDataset(ctx, ds); err != nil {
					return fmt.Errorf("import dataset: %w", err)
				}
				rt.logger.Info("dataset imported", "path", inPath, "issues", len(ds.Issues), "status_changes", len(ds.StatusHistory))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input dataset file (default: newest export beside the database)")
	cmd.Flags().StringVar(&format, "format", "", "dataset format: json or yaml (default: from extension)")
	return cmd
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var outPath, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored row as a JSON or YAML dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime(cmd.Context(), "export", func(ctx context.Context, rt *runtimeEnv) error {
				dsFormat := app.FormatFromPath(outPath)
				if format != "" {
					var err error
					if dsFormat, err = app.ParseDatasetFormat(format); err != nil {
						return err
					}
				}
				if strings.TrimSpace(outPath) == "" {
					paths, err := opts.paths()
					if err != nil {
						return err
					}
					outPath = platform.DatasetFile(platform.DatasetDir(rt.cfg.Database.Path), paths.Stem, time.Now(), string(dsFormat))
				}
				ds, err := rt.svc.ExportDataset(ctx)
				if err != nil {
					return fmt.Errorf("export dataset: %w", err)
				}
				if outPath == "-" {
					return app.EncodeDataset(opts.stdout, ds, dsFormat)
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				if err := app.EncodeDataset(f, ds, dsFormat); err != nil {
					_ = f.Close()
					return err
				}
				rt.logger.Info("dataset exported", "path", outPath, "format", dsFormat)
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file path, '-' for stdout (default: timestamped file in the datasets dir)")
	cmd.Flags().StringVar(&format, "format", "", "dataset format: json or yaml (default: from extension)")
	return cmd
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime(cmd.Context(), "serve", func(ctx context.Context, rt *runtimeEnv) error {
				serverCfg := serveradapter.Config{
					HTTPBind:      rt.cfg.Server.HTTPBind,
					APIEndpoint:   rt.cfg.Server.APIEndpoint,
					MCPEndpoint:   rt.cfg.Server.MCPEndpoint,
					ServerName:    opts.appName,
					ServerVersion: version,
				}
				if cmd.Flags().Changed("http") {
					serverCfg.HTTPBind = httpBind
				}
				if cmd.Flags().Changed("api-endpoint") {
					serverCfg.APIEndpoint = apiEndpoint
				}
				if cmd.Flags().Changed("mcp-endpoint") {
					serverCfg.MCPEndpoint = mcpEndpoint
				}
				rt.logger.Info("serving", "http", serverCfg.HTTPBind, "api", serverCfg.APIEndpoint, "mcp", serverCfg.MCPEndpoint)
				return serveCommandRunner(ctx, serverCfg, serveradapter.Dependencies{
					Dashboards: rt.dashboards,
					Ready:      rt.repo.Ping,
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "127.0.0.1:8080", "HTTP listen address")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "/api/v1", "HTTP API base endpoint")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP endpoint")
	return cmd
}

func newTUICommand(opts *globalOptions) *cobra.Command {
	var asOf, startTab string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard viewer (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, asOf, startTab)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date (end of that day) or RFC3339 instant")
	cmd.Flags().StringVar(&startTab, "tab", "summary", "initial view: summary, rankings, heatmap or report")
	return cmd
}

func runTUI(ctx context.Context, opts *globalOptions, asOf, startTab string) error {
	return opts.withRuntime(ctx, "tui", func(_ context.Context, rt *runtimeEnv) error {
		asOfTime, err := servercommon.ParseAsOf(asOf, rt.svc.Location())
		if err != nil {
			return err
		}
		m := tui.NewModel(rt.svc, tui.WithAsOf(asOfTime), tui.WithTab(startTab))
		rt.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// runtimeEnv is the opened store, service and logger one command runs against.
type runtimeEnv struct {
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
	dashboards *servercommon.AppServiceAdapter
}

func (o *globalOptions) paths() (platform.Paths, error) {
	return platform.Resolve(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// loadConfig resolves config and db paths (flag, then env, then platform default) and loads the TOML file.
func (o *globalOptions) loadConfig() (config.Config, string, error) {
	paths, err := o.paths()
	if err != nil {
		return config.Config{}, "", err
	}
	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("GAUGE_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("GAUGE_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return config.Config{}, configPath, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	return cfg, configPath, nil
}

// withRuntime opens the store for one command, runs fn and logs the command flow around it.
func (o *globalOptions) withRuntime(ctx context.Context, command string, fn func(context.Context, *runtimeEnv) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, configPath, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		logger.SetConsoleEnabled(false)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.consoleActive() {
			_, _ = fmt.Fprintf(o.stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level, "timezone", cfg.Dashboard.Timezone)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	analyticsOpts, err := cfg.Dashboard.Options()
	if err != nil {
		return err
	}
	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{Options: analyticsOpts})
	rt := &runtimeEnv{
		cfg:        cfg,
		logger:     logger,
		repo:       repo,
		svc:        svc,
		dashboards: servercommon.NewAppServiceAdapter(svc),
	}

	logger.Info("command flow start", "command", command)
	if err := fn(ctx, rt); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

// writeResult encodes v as indented JSON or CBOR.
func writeResult(w io.Writer, v any, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "cbor":
		payload, err := servercommon.MarshalCBOR(v)
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		_, err = w.Write(payload)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// parseBoolEnv reports the parsed value and whether the variable held a valid bool.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
