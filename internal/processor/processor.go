package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/policy-desk/internal/queue"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/prom"
	"github.com/nimasrn/policy-desk/pkg/redis"
	"github.com/nimasrn/policy-desk/pkg/worker"
)

const (
	DefaultProcessingTimeout = 10 * time.Second
	HealthInterval           = 30 * time.Second
	ShutdownTimeout          = time.Minute
)

// Processor handles one queue message type.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type ServiceConfig struct {
	Queue             queue.Config
	Consumers         int
	Workers           int
	ProcessingTimeout time.Duration
}

// Service runs queue consumers that hand messages to a worker pool. Each
// consumer waits for its message's result so acks follow the processor's
// outcome.
type Service struct {
	adapter   redis.RedisAdapter
	config    ServiceConfig
	processor Processor
	queues    []*queue.Queue
	metrics   *ServiceMetrics
	worker    *worker.WorkerManager
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewService(adapter redis.RedisAdapter, processor Processor, config ServiceConfig) (*Service, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if config.Consumers <= 0 {
		config.Consumers = 1
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.ProcessingTimeout <= 0 {
		config.ProcessingTimeout = DefaultProcessingTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		adapter:   adapter,
		config:    config,
		processor: processor,
		metrics:   NewServiceMetrics(),
		worker:    worker.NewWorkerManager(config.Workers*4, config.Workers),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (s *Service) Start() error {
	logger.Info("starting dispatcher", "type", s.processor.GetType(), "consumers", s.config.Consumers, "workers", s.config.Workers)

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(s.ctx); err != nil && !errors.Is(err, worker.ErrPoolStopped) {
			logger.Error("worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < s.config.Consumers; i++ {
		cfg := s.config.Queue
		cfg.ConsumerName = fmt.Sprintf("%s-%d", cfg.ConsumerName, i)

		q, err := queue.NewQueue(s.ctx, s.adapter, cfg)
		if err != nil {
			return fmt.Errorf("failed to create queue consumer %d: %w", i, err)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(1)
	go s.healthChecker()
	return nil
}

func (s *Service) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportHealth()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) reportHealth() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.adapter.Ping(ctx); err != nil {
		logger.Error("dispatcher health check failed", "error", err)
		return
	}

	snap := s.metrics.Snapshot()
	logger.Info("dispatcher stats",
		"processed", snap.Processed,
		"failed", snap.Failed,
		"rate_per_second", snap.RatePerSecond,
		"avg_duration_ms", snap.AvgDuration.Milliseconds(),
		"buffered", s.worker.GetUnreadCount())

	if len(s.queues) == 0 {
		return
	}
	// consumers share one stream and group
	if stats, err := s.queues[0].Stats(ctx); err == nil {
		prom.SetQueuePending(s.queues[0].Name(), stats.PendingMessages)
	}
}

func (s *Service) Stop() {
	logger.Info("shutting down dispatcher")
	s.cancel()

	var wg sync.WaitGroup
	for i, q := range s.queues {
		wg.Add(1)
		go func(index int, q *queue.Queue) {
			defer wg.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("error stopping queue consumer", "consumer", index, "error", err)
			}
		}(i, q)
	}
	wg.Wait()

	s.worker.Exit()
	s.wg.Wait()

	snap := s.metrics.Snapshot()
	logger.Info("dispatcher stopped", "processed", snap.Processed, "failed", snap.Failed)
}

func (s *Service) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

type job struct {
	ctx    context.Context
	msg    *queue.Message
	result chan error
}

// messageHandler runs on a queue consumer goroutine and blocks until a worker
// has processed the message.
func (s *Service) messageHandler(ctx context.Context, msg *queue.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ProcessingTimeout)
	defer cancel()

	j := &job{ctx: ctx, msg: msg, result: make(chan error, 1)}
	if err := s.worker.Enqueue(ctx, j); err != nil {
		return err
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for worker: %w", ctx.Err())
	}
}

func (s *Service) workerHandler(workerIndex int, v interface{}) {
	j, ok := v.(*job)
	if !ok {
		logger.Error("invalid job type in worker", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := s.processor.Process(j.ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
		logger.Warn("message processing failed", "worker", workerIndex, "message_id", j.msg.ID, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	// buffered, never blocks
	j.result <- err
}
