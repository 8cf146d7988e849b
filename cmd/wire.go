package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	billingmod "github.com/dmitrymomot/stripekit/modules/billing"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/billing/pgstore"
	"github.com/dmitrymomot/stripekit/pkg/config"
	"github.com/dmitrymomot/stripekit/pkg/logger"
	"github.com/dmitrymomot/stripekit/pkg/mailer"
	"github.com/dmitrymomot/stripekit/pkg/pg"
	"github.com/dmitrymomot/stripekit/pkg/requestid"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

var ErrUnknownStore = errors.New("unknown store driver")

// AppConfig holds process-wide settings, read from APP_* and STORE_* variables.
type AppConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	Name        string `env:"APP_NAME" envDefault:"stripekit"`
	ProductName string `env:"APP_PRODUCT_NAME" envDefault:"your subscription"`
	Store       string `env:"STORE_DRIVER" envDefault:"postgres"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`
	PlanCatalog string `env:"PLAN_CATALOG"`
}

func (c *AppConfig) Validate() error {
	switch c.Store {
	case storePostgres, storeMemory:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownStore, c.Store)
}

type app struct {
	cfg AppConfig
	log *slog.Logger
}

func wireApp() (*app, error) {
	var cfg AppConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			billingmod.LoggerExtractor(),
		),
	)
	logger.SetAsDefault(log)

	return &app{cfg: cfg, log: log}, nil
}

// storage is the billing store plus its readiness checks.
type storage struct {
	store  billing.Store
	checks []func(context.Context) error
	close  func()
}

func (a *app) openStorage(ctx context.Context, migrate bool) (*storage, error) {
	if a.cfg.Store == storeMemory {
		a.log.WarnContext(ctx, "using the in-memory store, data is lost on exit",
			logger.Component("cmd"))
		return &storage{store: billing.NewMemoryStore(), close: func() {}}, nil
	}

	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, a.log); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &storage{
		store:  pgstore.New(pool),
		checks: []func(context.Context) error{pg.Healthcheck(pool)},
		close:  pool.Close,
	}, nil
}

// newService builds the Stripe-backed service on store.
func (a *app) newService(store billing.Store) (*billing.Service, billing.Config, billing.Provider, error) {
	var cfg billing.Config
	if err := config.Load(&cfg); err != nil {
		return nil, cfg, nil, err
	}
	provider, err := billing.NewStripeProvider(cfg, billing.WithStripeLogger(a.log))
	if err != nil {
		return nil, cfg, nil, err
	}

	opts := []billing.ServiceOption{billing.WithLogger(a.log)}
	if cfg.SendReceipts {
		sender, err := a.newMailer()
		if err != nil {
			return nil, cfg, nil, err
		}
		opts = append(opts, billing.WithReceiptSender(mailer.NewReceiptSender(sender, a.cfg.ProductName)))
	}
	return billing.NewService(cfg, provider, store, opts...), cfg, provider, nil
}

// newMailer sends through Postmark when configured and writes to disk otherwise.
func (a *app) newMailer() (mailer.Sender, error) {
	var cfg mailer.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		a.log.Info("postmark is not configured, receipts are written to disk",
			logger.Component("cmd"), slog.String("dir", cfg.DevDir))
		return mailer.NewDevSender(cfg.DevDir), nil
	}
	sender, err := mailer.NewPostmarkSender(cfg)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func (a *app) loadCatalog(ctx context.Context, svc *billing.Service, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return svc.LoadPlanCatalog(ctx, f)
}
