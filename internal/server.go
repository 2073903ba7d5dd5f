package internal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/bodylog/internal/config"
	"github.com/2beens/bodylog/internal/livesync"
	"github.com/2beens/bodylog/internal/middleware"
	"github.com/2beens/bodylog/internal/misc"
	"github.com/2beens/bodylog/internal/telemetry/metrics"
	"github.com/2beens/bodylog/internal/telemetry/tracing"
	"github.com/2beens/bodylog/internal/tracker"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config     *config.Config
	entryStore *EntryStore
	sync       *livesync.Holder

	redisClient *redis.Client

	// cancels the request contexts of open event streams on shutdown
	baseCtx       context.Context
	baseCtxCancel context.CancelFunc

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config      *config.Config
	VersionInfo string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(cfg.HoneycombEnabled, "bodylog")
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:       cfg,
		versionInfo:  params.VersionInfo,
		otelShutdown: otelShutdown,
	}

	entryStore, err := OpenEntryStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.entryStore = entryStore

	var collectors []prometheus.Collector
	if entryStore.DBPool != nil {
		collectors = append(collectors, pgxpoolprometheus.NewCollector(
			entryStore.DBPool,
			map[string]string{"db_name": cfg.PostgresDB},
		))
	}

	s.promRegistry, err = metrics.NewRegistry(collectors...)
	if err != nil {
		entryStore.Close()
		return nil, err
	}
	s.metricsManager = metrics.NewManager("bodylog", "main", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	if cfg.RedisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       0, // use default DB
		})

		if cfg.HoneycombEnabled {
			rdb.AddHook(redisotel.NewTracingHook())
		}

		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
		s.redisClient = rdb
	} else {
		log.Warnln("redis host not set, rate limiting disabled")
	}

	s.sync = livesync.NewHolder(func() *livesync.Synchronizer {
		return livesync.New(s.entryStore.Store, s.metricsManager)
	})

	s.baseCtx, s.baseCtxCancel = context.WithCancel(context.Background())

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("bodylog-router"))

	miscHandler := misc.NewHandler(s.redisClient, s.sync, s.versionInfo)
	miscHandler.SetupRoutes(r)

	var reqRateLimiter middleware.RequestRateLimiter
	if s.redisClient != nil {
		reqRateLimiter = redis_rate.NewLimiter(s.redisClient)
	}
	trackerHandler := tracker.NewHandler(s.sync)
	trackerHandler.SetupRoutes(r, reqRateLimiter, s.config.RateLimitPerMinute, s.metricsManager)

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.config.APIToken)
	if !authMiddleware.Enabled() {
		log.Warnf("%s not set, the api is open", config.EnvAPIToken)
	}

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// Serve starts live sync and both http servers. A failed live sync start is not fatal:
// the api reports it and POST /api/sync/retry can recover.
func (s *Server) Serve(ctx context.Context, host string, port int) {
	if err := s.sync.Start(ctx); err != nil {
		log.Errorf("live sync start failed: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      otelhttp.NewHandler(s.routerSetup(), "bodylog"),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		BaseContext: func(net.Listener) context.Context {
			return s.baseCtx
		},
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// ends open event streams, otherwise Shutdown waits for them
	s.baseCtxCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	s.sync.Stop()
	log.Debugln("live sync stopped")

	s.entryStore.Close()

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}
