package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"degree_planner/internal/api"
	"degree_planner/internal/logging"
	"degree_planner/internal/metrics"
	"degree_planner/internal/recommender"
	"degree_planner/internal/risk"
	"degree_planner/internal/service"
	"degree_planner/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	cfg    *Config
	logger logr.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logr.Discard()}
	var (
		configPath string
		dbPath     string
		logLevel   string
	)

	root := &cobra.Command{
		Use:          "advisor",
		Short:        "Course selection and degree planning for students",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DB.Path = dbPath
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			cmd.SetContext(logr.NewContext(cmd.Context(), logger))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./advisor.yaml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides db.path)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "error, info, debug or trace")

	root.AddCommand(
		newServeCmd(a),
		newRecommendCmd(a),
		newPlanCmd(a),
		newAnalyzeCmd(a),
		newEvaluateCmd(a),
		newImportCmd(a),
	)
	return root
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the advisor HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if a.cfg.Log.Level != "debug" && a.cfg.Log.Level != "trace" {
				gin.SetMode(gin.ReleaseMode)
			}
			server := &http.Server{
				Addr:         ":" + a.cfg.Server.Port,
				Handler:      api.NewRouter(svc, a.logger, api.Config{Token: a.cfg.Server.Token}),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				IdleTimeout:  a.cfg.Server.IdleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Starting advisor API", "port", a.cfg.Server.Port, "courses", svc.Catalog().Len())
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down advisor API")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

// open connects the store and builds the service over its catalog.
func (a *app) open(ctx context.Context) (*store.Store, *service.AdvisorService, error) {
	st, err := store.Open(ctx, a.cfg.DB.Path)
	if err != nil {
		return nil, nil, err
	}
	cat, err := st.LoadCatalog(ctx)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := cat.Graph().Validate(); err != nil {
		// ordering queries report the cycle per request
		metrics.CycleErrors.Inc()
		a.logger.Error(err, "Course catalog has prerequisite cycles")
	}

	svc := service.New(cat, a.cfg.Rules, st, a.predictor(ctx),
		service.WithSolveTimeout(a.cfg.Solver.Timeout),
		service.WithPlanHorizon(a.cfg.Planner.Horizon),
		service.WithWorkers(a.cfg.Evaluation.Workers),
		service.WithSeed(a.cfg.Evaluation.Seed),
	)
	return st, svc, nil
}

func (a *app) predictor(ctx context.Context) recommender.Predictor {
	if a.cfg.Risk.URL == "" {
		return risk.Heuristic{}
	}
	client := risk.NewClient(a.cfg.Risk.URL, a.cfg.Risk.Token, a.cfg.Risk.Timeout, a.cfg.Risk.Retry)
	if err := client.Refresh(ctx); err != nil {
		a.logger.Error(err, "Risk model health check failed, scores fall back to heuristic on error", "url", a.cfg.Risk.URL)
	}
	return risk.NewFallback(client)
}
