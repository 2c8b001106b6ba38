package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/policy-desk/internal/company"
	"github.com/nimasrn/policy-desk/internal/config"
	"github.com/nimasrn/policy-desk/internal/handlers"
	"github.com/nimasrn/policy-desk/internal/importer"
	"github.com/nimasrn/policy-desk/internal/queue"
	"github.com/nimasrn/policy-desk/internal/reminder"
	"github.com/nimasrn/policy-desk/internal/repository"
	"github.com/nimasrn/policy-desk/internal/services"
	xhttp "github.com/nimasrn/policy-desk/pkg/http"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/pg"
	"github.com/nimasrn/policy-desk/pkg/prom"
	"github.com/nimasrn/policy-desk/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	location, _ := cfg.ReminderLocation()
	reminderDays, _ := cfg.ReminderDays()

	// transport (tcp for now)
	opts := xhttp.DefaultServerOption
	opts.ReadTimeout = cfg.HttpServerReadTimeout
	opts.WriteTimeout = cfg.HttpServerWriteTimeout
	opts.MaxRequestBodySize = cfg.HttpMaxBodyBytes
	s := xhttp.NewServer(opts)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisOpts := cfg.RedisOptions()
	redisOpts.ClientName = "api"
	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, redisOpts)
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	q, err := queue.NewQueue(context.Background(), redisAdap, queue.Config{
		Name:          cfg.QueueName,
		ConsumerGroup: cfg.QueueConsumerGroup,
		MaxLen:        cfg.QueueMaxLen,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	policyRepo := repository.NewPolicyRepository(db)
	reminderLogRepo := repository.NewReminderLogRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// services
	pipeline := importer.NewPipeline(policyRepo, company.NewNormalizer(company.DefaultTable), importer.Options{
		MaxRows:             cfg.ImportMaxRows,
		ChunkSize:           cfg.ImportChunkSize,
		MaxPoliciesPerOwner: cfg.ImportMaxPoliciesPerOwner,
	}).WithHeaderRows(1)
	scheduler, err := reminder.NewScheduler(settingsRepo, policyRepo, reminderLogRepo, location)
	if err != nil {
		logger.Error("failed creating scheduler", "error", err)
		return
	}
	scheduler.WithDefaultDays(reminderDays).WithPublisher(q)

	importService := services.NewImportService(pipeline)
	policyService := services.NewPolicyService(policyRepo, location)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	g := s.Router.Group("/api/v1")
	handlers.RegisterPolicyRoutes(g, handlers.NewPolicyHandler(importService, policyService))
	handlers.RegisterReminderRoutes(g, handlers.NewReminderHandler(scheduler, cfg.SchedulerSecret))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(healthService))

	if cfg.AppDebugMetricsAddr != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed to create prometheus metrics", "error", err)
			return
		}
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
	logger.Sync()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
