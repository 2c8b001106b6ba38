package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/policy-desk/internal/config"
	gateway "github.com/nimasrn/policy-desk/internal/gateways"
	"github.com/nimasrn/policy-desk/internal/processor"
	"github.com/nimasrn/policy-desk/internal/queue"
	"github.com/nimasrn/policy-desk/internal/repository"
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
	logger.Info("starting dispatcher", "version", version, "commit", commit, "date", date)

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisOpts := cfg.RedisOptions()
	redisOpts.ClientName = "dispatcher"
	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, redisOpts)
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	client, err := gateway.NewClient(gateway.Config{
		Providers: []gateway.ProviderConfig{
			{Name: "primary", URL: cfg.WhatsAppPrimaryUrl},
			{Name: "secondary", URL: cfg.WhatsAppSecondaryUrl},
		},
		Token:    cfg.WhatsAppToken,
		Timeout:  cfg.WhatsAppTimeout,
		MaxConns: cfg.DispatchWorkers * 2,
	})
	if err != nil {
		logger.Error("failed to create gateway", "error", err)
		return
	}

	idempotencyConfig := processor.DefaultIdempotencyConfig()
	idempotencyConfig.MaxRetries = cfg.QueueMaxRetries
	idempotencyService := processor.NewIdempotencyService(redisAdap, idempotencyConfig)

	dispatch := processor.NewReminderDispatchProcessor(
		client,
		repository.NewReminderLogRepository(db),
		repository.NewPolicyRepository(db),
		db,
		idempotencyService,
	)

	service, err := processor.NewService(redisAdap, dispatch, processor.ServiceConfig{
		Queue: queue.Config{
			Name:              cfg.QueueName,
			ConsumerGroup:     cfg.QueueConsumerGroup,
			ConsumerName:      cfg.QueueConsumerName,
			MaxRetries:        cfg.QueueMaxRetries,
			VisibilityTimeout: cfg.QueueVisibilityTimeout,
			PollInterval:      cfg.QueuePollInterval,
			BatchSize:         cfg.QueueBatchSize,
			MaxLen:            cfg.QueueMaxLen,
			EnableDLQ:         cfg.QueueEnableDLQ,
		},
		Consumers: cfg.QueueConsumers,
		Workers:   cfg.DispatchWorkers,
	})
	if err != nil {
		logger.Error("failed to create the dispatcher", "error", err)
		return
	}

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	metricsAddr := cfg.AppDebugMetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9100"
	}
	go func() {
		prom.ListenAndServer(metricsAddr, cfg.AppDebugMetricsURI)
	}()

	if err := service.Start(); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		service.Stop()
		return
	}

	<-c
	service.Stop()
	for _, s := range client.Stats() {
		logger.Info("whatsapp provider stats", "provider", s.Name, "requests", s.TotalRequests, "failed", s.FailedReqs, "success_rate", s.SuccessRate)
	}
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
