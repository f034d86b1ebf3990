package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Skufu/vitreos/internal/advisor"
	"github.com/Skufu/vitreos/internal/api"
	"github.com/Skufu/vitreos/internal/completion"
	"github.com/Skufu/vitreos/internal/config"
	"github.com/Skufu/vitreos/internal/gate"
	"github.com/Skufu/vitreos/internal/kv"
	"github.com/Skufu/vitreos/internal/logging"
	"github.com/Skufu/vitreos/internal/profile"
	"github.com/Skufu/vitreos/internal/prompts"
	"github.com/Skufu/vitreos/internal/report"
	"github.com/Skufu/vitreos/internal/symptoms"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vitreos",
		Short:        "VITREOS health advisor API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
	root.AddCommand(serveCmd(), profileCmd(), historyCmd(), promptsCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// app is the wired core shared by the server and the CLI commands.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	store     kv.Store
	profile   *profile.Store
	gate      *gate.Policy
	keywords  *symptoms.KeywordSet
	advisor   *advisor.Service
	refresher *advisor.Refresher
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, func(), error) {
	store, closeStore, err := kv.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	profiles := profile.NewStore(store, logger)
	profiles.Restore(ctx)

	policy := gate.NewPolicy(profiles)
	keywords := symptoms.NewKeywordSet()
	ai := completion.New(completionConfig(cfg), logger)
	svc := advisor.New(profiles, policy, ai, keywords, logger)
	refresher := advisor.NewRefresher(svc, cfg.DashboardRefreshDelay, logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		profile:   profiles,
		gate:      policy,
		keywords:  keywords,
		advisor:   svc,
		refresher: refresher,
	}
	cleanup := func() {
		refresher.Stop()
		closeStore()
	}
	return a, cleanup, nil
}

func completionConfig(cfg *config.Config) completion.Config {
	return completion.Config{
		APIKey:      cfg.AIAPIKey,
		Endpoint:    cfg.AIEndpoint,
		Model:       cfg.AIModel,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.AITimeout,
	}
}

func (a *app) router(staticRoot string) *gin.Engine {
	var health kv.HealthChecker
	if hc, ok := a.store.(kv.HealthChecker); ok {
		health = hc
	}
	return api.NewRouter(api.Deps{
		Profile:      a.profile,
		Gate:         a.gate,
		Advisor:      a.advisor,
		Refresher:    a.refresher,
		Keywords:     a.keywords,
		Health:       health,
		Logger:       a.logger,
		MaxBodyBytes: a.cfg.MaxBodyBytes,
		StaticRoot:   staticRoot,
	})
}

// loadApp is the common prologue of every command.
func loadApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	return newApp(ctx, cfg, logger)
}

func runServer() error {
	ctx := context.Background()
	a, cleanup, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(a.cfg.GinMode)
	if !a.cfg.AIConfigured() {
		a.logger.Warn().Msg("AI_API_KEY not set; AI features will report ai_not_configured")
	}

	staticRoot := a.cfg.StaticDir
	if staticRoot == "" {
		staticRoot = api.DetectStaticRoot("")
	}

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.router(staticRoot),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      a.cfg.AITimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	a.logger.Info().
		Str("port", a.cfg.Port).
		Str("store", a.cfg.StoreBackend).
		Bool("profile_complete", a.profile.Complete()).
		Msg("server listening")
	return waitForShutdown(server, a.logger, errCh)
}

func waitForShutdown(server *http.Server, logger zerolog.Logger, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or clear the stored patient profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored profile as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"profile":  a.profile.Snapshot(),
				"complete": a.profile.Complete(),
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the stored profile (history is kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			if err := a.profile.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "profile cleared")
			return nil
		},
	})
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or export submission history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List history entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSUBMITTED\tFIELDS")
			for _, e := range a.profile.History() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", e.ID, e.Timestamp.Format(time.RFC3339), len(e.Profile.ProvidedFields()))
			}
			return tw.Flush()
		},
	})

	export := &cobra.Command{
		Use:   "export",
		Short: "Write history to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			a, cleanup, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			entries := a.profile.History()
			data, err := report.HistoryWorkbook(entries)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", len(entries), out)
			return nil
		},
	}
	export.Flags().String("out", "vitreos-history.xlsx", "Output file")
	cmd.AddCommand(export)
	return cmd
}

func promptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List AI features and their output schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FEATURE\tGATED\tSCHEMA")
			for _, f := range prompts.Features() {
				tpl := prompts.MustLookup(f)
				fmt.Fprintf(tw, "%s\t%t\t%s\n", f, tpl.RequiresProfile, tpl.Describe())
			}
			return tw.Flush()
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
