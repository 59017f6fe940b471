package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/config"
	"github.com/dyike/MacroAgent/internal/analysis"
	"github.com/dyike/MacroAgent/internal/service"
	"github.com/dyike/MacroAgent/internal/storage"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

var errNoArtifacts = errors.New("analysis finished without uploading any artifact")

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	// Initialize configuration early
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "macroagent",
		Short: "MacroAgent - LLM macroeconomic briefings",
		Long: `MacroAgent collects Korean, US and global macroeconomic series, asks a
language model for an optimistic and a risk-focused report, and publishes the
reports and their summaries to object storage.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debugFlag, _ := cmd.Flags().GetBool("debug"); debugFlag {
				cfg.Debug = true
			}
			if path, _ := cmd.Flags().GetString("catalog"); path != "" {
				cfg.CatalogPath = path
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newFetchCmd(cfg))
	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("catalog", "", "Series catalog YAML (embedded default if empty)")

	return rootCmd
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the analysis once and upload the reports",
		Long: `Fetch every catalog series, generate the positive and negative reports and
their summaries, and upload them. With --dry-run nothing is uploaded; the
artifacts are kept in memory and printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if noSummary, _ := cmd.Flags().GetBool("no-summary"); noSummary {
				cfg.Summaries = false
			}
			return runAnalysis(cmd, cfg, dryRun)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Keep artifacts in memory instead of uploading")
	cmd.Flags().Bool("no-summary", false, "Skip the summary step")
	return cmd
}

func runAnalysis(cmd *cobra.Command, cfg *config.Config, dryRun bool) error {
	out := cmd.OutOrStdout()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.objectStore(dryRun)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, artifacts, err := a.session(ctx, store)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, titleStyle.Render("MacroAgent analysis"))
	result := session.Execute(ctx)
	fmt.Fprintln(out, renderRunResult(result))

	if dryRun {
		for _, key := range result.UploadedKeys {
			content, err := artifacts.Read(ctx, cfg.S3Bucket, key)
			if err != nil {
				continue
			}
			fmt.Fprintln(out, renderArtifact(key, content))
		}
	}

	if !result.Success {
		return errNoArtifacts
	}
	return nil
}

func newFetchCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the catalog series and print the data table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.ECOSAPIKey == "" {
				return fmt.Errorf("%w: ECOS_API_KEY", config.ErrMissingKey)
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			session := analysis.NewSession(cfg, a.catalog, a.fetcher(), nil, nil,
				analysis.WithLogger(a.logger.Named("session")))
			table, err := session.BuildTable(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest summaries over HTTP and run the analysis on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.ServerAddr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default SERVER_ADDR or :8001)")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := a.objectStore(false)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	session, _, err := a.session(ctx, store)
	if err != nil {
		return err
	}

	reader := storage.NewArtifacts(store, storage.WithLogger(a.logger.Named("storage")))
	cache := service.NewCache(reader, cfg.S3Bucket, cfg.S3Folder, a.logger.Named("cache"))
	jobs := service.NewJobs(session, a.logger.Named("jobs"))
	srv := service.NewServer(ctx, cache, jobs, a.recorder.Handler(), a.logger.Named("http"))

	a.logger.Info("macro agent starting", zap.String("addr", cfg.ServerAddr))
	cache.Refresh(ctx)
	go service.Schedule(ctx, jobs, cache, cfg.SettleDelay, cfg.ScheduleInterval, a.logger.Named("scheduler"))

	err = srv.ListenAndServe(ctx, cfg.ServerAddr)
	stop()
	jobs.Wait()
	return err
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively write a .env file with API keys and storage settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			return runInitWizard(cmd.OutOrStdout(), path)
		},
	}

	cmd.Flags().String("file", ".env", "Environment file to write")
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "MacroAgent %s\n", Version)
			fmt.Fprintln(cmd.OutOrStdout(), "Macroeconomic briefing pipeline")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), renderConfig(cfg))
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and the series catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd, cfg)
		},
	})

	return configCmd
}

func validateConfig(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Validating MacroAgent configuration"))

	check := func(name string, err error) error {
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("✗ "+name+": "+err.Error()))
			return err
		}
		fmt.Fprintln(out, completedStyle.Render("✓ "+name))
		return nil
	}

	if err := check("directories", cfg.EnsureDirectories()); err != nil {
		return err
	}
	if err := check("settings and keys", cfg.Validate()); err != nil {
		return err
	}
	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err := check("series catalog", err); err != nil {
		return err
	}

	if !cfg.HasFRED() {
		fmt.Fprintln(out, warnStyle.Render("! FRED_API_KEY not set, the US section will be skipped"))
	}
	fmt.Fprintf(out, "%d sections, %d series\n", len(catalog.Sections), catalog.SeriesCount())
	return nil
}
