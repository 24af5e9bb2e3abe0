package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/booking"
	"healthcare-booking-server/internal/cache"
	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store/mongostore"
	"healthcare-booking-server/internal/store/sqlstore"
	"healthcare-booking-server/internal/utils"
)

// app holds the wired stores and services shared by every command.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	appointments booking.AppointmentStore
	doctors      cache.DoctorDirectory
	users        cache.UserAccounts
	registry     *prometheus.Registry
	service      *booking.Service
	closers      []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)
		db := client.Database(cfg.Mongo.Database)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			a.close()
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		a.appointments = mongostore.NewAppointmentStore(db)
		a.doctors = mongostore.NewDoctorStore(db)
		a.users = mongostore.NewUserStore(db)
		logger.Info("using mongo store", zap.String("database", cfg.Mongo.Database))
	default:
		db, sqlDB, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
		if err != nil {
			return nil, fmt.Errorf("connect to mysql: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
		a.appointments = sqlstore.NewAppointmentStore(db)
		a.doctors = sqlstore.NewDoctorStore(db)
		a.users = sqlstore.NewUserStore(db)
		logger.Info("using mysql store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
	}

	if cfg.Redis.URL != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			// the cache is optional; serve straight from the store
			logger.Warn("redis unavailable, doctor cache disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
			doctors := cache.NewDoctorCache(a.doctors, cache.NewCache(rdb, "booking:"), cfg.Redis.DoctorTTL, logger)
			a.doctors = doctors
			a.users = cache.NewAccountsInvalidator(a.users, doctors)
			logger.Info("doctor cache enabled", zap.Duration("ttl", cfg.Redis.DoctorTTL))
		}
	}

	opts := []booking.Option{
		booking.WithLogger(logger),
		booking.WithLocation(cfg.Booking.Location),
		booking.WithCancellationCutoff(cfg.Booking.CancellationCutoff),
		booking.WithUpdateCancelCutoff(cfg.Booking.UpdateCancelEnforcesCutoff),
	}
	if cfg.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, booking.WithMetrics(metrics.NewBookingMetrics(a.registry)))
	}
	a.service = booking.NewService(a.appointments, a.doctors, opts...)
	return a, nil
}

// issueToken mints an access token for an active account after checking its
// password. It backs the issue-token command used by operators and local
// clients while login lives outside this service.
func issueToken(ctx context.Context, users userLookup, cfg *config.Config, userID, password string) (string, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	if !user.IsActive {
		return "", fmt.Errorf("user %s is deactivated", userID)
	}
	if !user.CheckPassword(password) {
		return "", errors.New("invalid credentials")
	}
	return utils.GenerateAccessToken(user, cfg)
}

type userLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// close releases connections in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
