package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/policy-desk/internal/config"
	"github.com/nimasrn/policy-desk/internal/queue"
	"github.com/nimasrn/policy-desk/internal/reminder"
	"github.com/nimasrn/policy-desk/internal/repository"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/pg"
	"github.com/nimasrn/policy-desk/pkg/prom"
	"github.com/nimasrn/policy-desk/pkg/redis"
)

// scheduler runs the daily reminder pass. With --once it runs a single pass
// and exits, which suits an external cron; otherwise it repeats every
// REMINDER_INTERVAL.
func main() {
	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

	location, _ := cfg.ReminderLocation()
	reminderDays, _ := cfg.ReminderDays()

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), false)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisOpts := cfg.RedisOptions()
	redisOpts.ClientName = "scheduler"
	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, redisOpts)
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q, err := queue.NewQueue(ctx, redisAdap, queue.Config{
		Name:          cfg.QueueName,
		ConsumerGroup: cfg.QueueConsumerGroup,
		MaxLen:        cfg.QueueMaxLen,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	scheduler, err := reminder.NewScheduler(
		repository.NewSettingsRepository(db),
		repository.NewPolicyRepository(db),
		repository.NewReminderLogRepository(db),
		location,
	)
	if err != nil {
		logger.Error("failed creating scheduler", "error", err)
		return
	}
	scheduler.WithDefaultDays(reminderDays).WithPublisher(q)

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

	runOnce(ctx, scheduler)
	if slices.Contains(os.Args[1:], "--once") {
		return
	}

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()
	logger.Info("scheduler started", "interval", cfg.ReminderInterval, "timezone", location.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			logger.Sync()
			return
		case <-ticker.C:
			runOnce(ctx, scheduler)
		}
	}
}

func runOnce(ctx context.Context, scheduler *reminder.Scheduler) {
	summary, err := scheduler.Run(ctx)
	if err != nil {
		logger.Error("reminder run failed", "error", err)
		return
	}
	if len(summary.Errors) > 0 {
		logger.Warn("reminder run finished with errors", "date", summary.Date, "errors", len(summary.Errors))
	}
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
