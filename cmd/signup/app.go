package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signup/internal/platform/config"
	"signup/internal/platform/httpserver"
	"signup/internal/platform/metrics"
	"signup/internal/platform/middleware"
	"signup/internal/platform/postgres"
	"signup/internal/platform/redis"
	"signup/internal/platform/tracing"
	"signup/internal/registration/handler"
	regmetrics "signup/internal/registration/metrics"
	"signup/internal/registration/mirror"
	"signup/internal/registration/pipeline"
	"signup/internal/registration/store"
	"signup/internal/registration/validation"
	"signup/pkg/platform/circuit"
	"signup/pkg/platform/httputil"
)

// app holds the wired service and the resources to release on exit.
type app struct {
	server     *http.Server
	dispatcher *mirror.Dispatcher
	checks     map[string]func(context.Context) error
	closers    []func()
	log        *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{log: log, checks: map[string]func(context.Context) error{}}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	tp, shutdownTracing, err := tracing.Setup(cfg.Tracing.Enabled, os.Stdout)
	if err != nil {
		return nil, err
	}
	a.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.New(reg)
	registrationMetrics := regmetrics.New(reg)

	registrations, err := a.openRegistrations(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	sessions, err := a.openSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m, err := a.openMirror(cfg.Mirror, registrationMetrics)
	if err != nil {
		return nil, err
	}

	svc := pipeline.New(sessions, registrations,
		pipeline.WithMirror(m),
		pipeline.WithValidator(validation.New(validation.WithCountryCode(cfg.Phone.CountryCode))),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(registrationMetrics),
		pipeline.WithTracer(tp.Tracer(tracing.TracerName)),
		pipeline.WithInFlightTimeout(2*cfg.RequestTimeout),
	)

	router := newRouter(cfg, log, httpMetrics, reg, a.health)
	handler.New(svc, log, cfg.Admin.Token).Register(router)
	a.server = httpserver.New(cfg.Addr, router)
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) openRegistrations(ctx context.Context, cfg config.DatabaseConfig) (pipeline.RegistrationStore, error) {
	if cfg.URL == "" {
		a.log.Warn("database.url not set, registrations are kept in memory")
		return store.NewInMemory(), nil
	}
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = db.Close() })
	if cfg.AutoMigrate {
		if err := postgres.Migrate(db, store.Migrations, store.MigrationsDir); err != nil {
			return nil, err
		}
	}
	a.checks["database"] = db.PingContext
	return store.NewPostgres(db), nil
}

func (a *app) openSessions(ctx context.Context, cfg config.Config) (pipeline.SessionStore, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		a.log.Warn("redis.url not set, sessions are kept in process memory")
		return pipeline.NewInMemorySessionStore(cfg.Session.TTL), nil
	}
	a.onClose(func() { _ = client.Close() })
	a.checks["redis"] = client.Health
	return pipeline.NewRedisSessionStore(client.Client, cfg.Session.TTL), nil
}

func (a *app) openMirror(cfg config.MirrorConfig, m *regmetrics.Metrics) (pipeline.Mirror, error) {
	if !cfg.Enabled() {
		a.log.Info("analytics mirror disabled")
		return mirror.Disabled{}, nil
	}

	var sink mirror.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := mirror.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		a.onClose(kafka.Close)
		sink = kafka
		a.log.Info("analytics mirror enabled", "sink", "kafka", "topic", cfg.Kafka.Topic)
	} else {
		sink = mirror.NewHTTPSink(cfg.Endpoint, &http.Client{Timeout: cfg.Timeout})
		a.log.Info("analytics mirror enabled", "sink", "http")
	}

	breaker := circuit.New("mirror",
		circuit.WithFailureThreshold(cfg.BreakerThreshold),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)
	a.dispatcher = mirror.NewDispatcher(sink,
		mirror.WithLogger(a.log),
		mirror.WithMetrics(m),
		mirror.WithSource(cfg.Source),
		mirror.WithQueueSize(cfg.QueueSize),
		mirror.WithTimeout(cfg.Timeout),
		mirror.WithBreaker(breaker),
	)
	return a.dispatcher, nil
}

// health pings every configured backing service.
func (a *app) health(ctx context.Context) map[string]string {
	status := make(map[string]string, len(a.checks))
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			continue
		}
		status[name] = "ok"
	}
	return status
}

// newRouter builds the chi router with the shared middleware stack and the
// operational endpoints.
func newRouter(
	cfg config.Config,
	log *slog.Logger,
	httpMetrics *metrics.Metrics,
	gatherer prometheus.Gatherer,
	health func(context.Context) map[string]string,
) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", middleware.AdminTokenHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.LatencyMiddleware(httpMetrics))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := health(r.Context())
		code := http.StatusOK
		for _, s := range status {
			if s != "ok" {
				code = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": status})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
