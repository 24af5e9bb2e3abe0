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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/handlers"
	"healthcare-booking-server/internal/jobs"
	"healthcare-booking-server/internal/logging"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/routes"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthcare-booking-server",
		Short: "Healthcare appointment booking API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(recomputeRatingsCmd())
	rootCmd.AddCommand(issueTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func recomputeRatingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute-ratings",
		Short: "Rebuild doctor ratings from stored reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			return runRecompute(cmd.Context(), doctorID)
		},
	}
	cmd.Flags().String("doctor", "", "Only recompute this doctor")
	return cmd
}

func issueTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Print an access token for an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			password, _ := cmd.Flags().GetString("password")
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			token, err := issueToken(cmd.Context(), a.users, cfg, userID, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "Account id")
	cmd.Flags().String("password", "", "Account password")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// bootstrap loads configuration and the logger shared by every command.
func bootstrap() (*config.Config, *zap.Logger, error) {
	// A missing .env is fine; the environment may already be set
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	if envErr != nil {
		logger.Debug("no .env file loaded", zap.Error(envErr))
	}
	return cfg, logger, nil
}

func runServer(ctx context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.close()

	if cfg.RatingReconcileSpec != "" {
		scheduler, err := jobs.NewRatingReconciler(a.doctors, a.service.Ratings(), logger).Start(cfg.RatingReconcileSpec)
		if err != nil {
			return err
		}
		defer func() { <-scheduler.Stop().Done() }()
		logger.Info("rating reconciliation scheduled", zap.String("spec", cfg.RatingReconcileSpec))
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	h := routes.Handlers{
		Appointments: handlers.NewAppointmentHandler(a.service, logger),
		Doctors:      handlers.NewDoctorHandler(a.doctors, logger),
		Users:        handlers.NewUserHandler(a.users, logger),
	}
	if a.registry != nil {
		h.Metrics = a.registry
	}
	routes.SetupRoutes(router, h, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
			return err
		}
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

func runRecompute(ctx context.Context, doctorID string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if doctorID != "" {
		rating, err := a.service.Ratings().Recompute(ctx, doctorID)
		if err != nil {
			return fmt.Errorf("recompute %s: %w", doctorID, err)
		}
		logger.Info("rating recomputed", zap.String("doctor_id", doctorID),
			zap.Float64("average", rating.Average), zap.Int("count", rating.Count))
		return nil
	}

	failed, err := jobs.NewRatingReconciler(a.doctors, a.service.Ratings(), logger).RunOnce(ctx)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d doctors could not be recomputed", failed)
	}
	return nil
}
