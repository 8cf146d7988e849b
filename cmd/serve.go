package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	billingmod "github.com/dmitrymomot/stripekit/modules/billing"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/clientip"
	"github.com/dmitrymomot/stripekit/pkg/config"
	"github.com/dmitrymomot/stripekit/pkg/httpserver"
	"github.com/dmitrymomot/stripekit/pkg/idempotency"
	"github.com/dmitrymomot/stripekit/pkg/logger"
	"github.com/dmitrymomot/stripekit/pkg/metrics"
	"github.com/dmitrymomot/stripekit/pkg/ratelimit"
	"github.com/dmitrymomot/stripekit/pkg/redis"
	"github.com/dmitrymomot/stripekit/pkg/requestid"
	"github.com/dmitrymomot/stripekit/pkg/websession"
)

// eventGuardTTL bounds how long one delivery may hold an event.
const eventGuardTTL = 2 * time.Minute

func newServeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the billing HTTP server",
		Long:  "serve mounts the billing pages and webhook endpoint, /metrics and /health/{live,ready}, and blocks until SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	st, err := a.openStorage(ctx, a.cfg.AutoMigrate)
	if err != nil {
		return err
	}
	defer st.close()

	svc, billingCfg, provider, err := a.newService(st.store)
	if err != nil {
		return err
	}
	if a.cfg.PlanCatalog != "" {
		n, err := a.loadCatalog(ctx, svc, a.cfg.PlanCatalog)
		if err != nil {
			return err
		}
		a.log.InfoContext(ctx, "plan catalogue loaded",
			logger.Component("cmd"), slog.Int("count", n))
	}

	m := metrics.New(nil)
	checks := st.checks
	eventOpts := []billing.EventProcessorOption{
		billing.WithEventObserver(m),
		billing.WithEventLogger(a.log),
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return err
	}
	var limitStore ratelimit.Store
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		eventOpts = append(eventOpts, billing.WithInFlightGuard(idempotency.NewRedisGuard(client), eventGuardTTL))
		checks = append(checks, redis.Healthcheck(client))
		limitStore = ratelimit.NewRedisStore(client)
	} else {
		eventOpts = append(eventOpts, billing.WithInFlightGuard(idempotency.NewMemoryGuard(), eventGuardTTL))
		mem := ratelimit.NewMemoryStore()
		defer mem.Close()
		limitStore = mem
	}

	events := billing.NewEventProcessor(st.store, eventOpts...)
	svc.RegisterHandlers(events)
	hooks := billing.NewWebhookProcessor(billingCfg, st.store, events, provider,
		billing.WithWebhookObserver(m),
		billing.WithWebhookLogger(a.log),
	)

	var sessionCfg websession.Config
	if err := config.Load(&sessionCfg); err != nil {
		return err
	}
	sessions, err := websession.NewFromConfig(sessionCfg)
	if err != nil {
		return err
	}

	var modCfg billingmod.Config
	if err := config.Load(&modCfg); err != nil {
		return err
	}
	mod := billingmod.New(modCfg, svc, hooks, sessionResolver(sessions),
		billingmod.WithFlashStore(sessions),
		billingmod.WithLogout(sessionLogout(sessions)),
		billingmod.WithLogger(a.log),
	)

	var limitCfg ratelimit.Config
	if err := config.Load(&limitCfg); err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware, m.Middleware)
	if limitCfg.Enabled() {
		limiter, err := ratelimit.NewFromConfig(limitStore, limitCfg)
		if err != nil {
			return err
		}
		r.Use(ratelimit.Middleware(limiter,
			ratelimit.OnlyMethods(ratelimit.ClientIP("form:"), http.MethodPost),
			ratelimit.WithLogger(a.log),
			ratelimit.WithSkipFunc(isWebhook),
		))
	}
	r.Get("/health/live", httpserver.HealthCheckHandler(a.log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(a.log, checks...))
	r.Handle("/metrics", m.Handler())
	mountLogin(r, sessions, modCfg, a.log)
	r.Mount(modCfg.BasePath, mod.Handle())

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(a.log)).Run(ctx, r)
}

// isWebhook exempts Stripe deliveries from the form limiter.
func isWebhook(r *http.Request) bool {
	return strings.HasSuffix(r.URL.Path, "/webhook")
}
