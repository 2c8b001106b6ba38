package config

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/pg"
	"github.com/nimasrn/policy-desk/pkg/redis"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every env-provided setting. Nothing else in the module reads
// the environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=policy_desk"`
	AppDebug            bool   `env:"APP_DEBUG,default=false"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`

	HttpListenAddr         string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpServerReadTimeout  time.Duration `env:"HTTP_SERVER_READ_TIMEOUT,default=30s"`
	HttpServerWriteTimeout time.Duration `env:"HTTP_SERVER_WRITE_TIMEOUT,default=30s"`
	HttpRequestTimeout     time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=60s"`
	HttpMaxBodyBytes       int           `env:"HTTP_MAX_BODY_BYTES,default=16777216"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	MigrationsDir string `env:"MIGRATIONS_DIR,default=migrations"`

	RedisAddr               string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE,default=0"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=policydesk:"`

	PromNamespace string `env:"PROM_NAMESPACE,default=policydesk"`

	ImportMaxRows             int `env:"IMPORT_MAX_ROWS,default=500"`
	ImportChunkSize           int `env:"IMPORT_CHUNK_SIZE,default=50"`
	ImportMaxPoliciesPerOwner int `env:"IMPORT_MAX_POLICIES_PER_OWNER,default=0"`

	ReminderTimezone    string        `env:"REMINDER_TIMEZONE,default=Asia/Kolkata"`
	ReminderDefaultDays string        `env:"REMINDER_DEFAULT_DAYS,default=7 15 30"`
	ReminderInterval    time.Duration `env:"REMINDER_INTERVAL,default=24h"`
	SchedulerSecret     string        `env:"SCHEDULER_SECRET"`

	QueueName              string        `env:"QUEUE_NAME,default=reminders"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=dispatchers"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME,default=dispatcher"`
	QueueConsumers         int           `env:"QUEUE_CONSUMERS,default=2"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=3"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=10"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	DispatchWorkers int `env:"DISPATCH_WORKERS,default=8"`

	WhatsAppPrimaryUrl   string        `env:"WHATSAPP_PRIMARY_URL,default=http://localhost:8090/v1/messages"`
	WhatsAppSecondaryUrl string        `env:"WHATSAPP_SECONDARY_URL"`
	WhatsAppToken        string        `env:"WHATSAPP_TOKEN"`
	WhatsAppTimeout      time.Duration `env:"WHATSAPP_TIMEOUT,default=5s"`

	SandboxListenAddr string  `env:"SANDBOX_LISTEN_ADDR,default=:8090"`
	SandboxFailRate   float64 `env:"SANDBOX_FAIL_RATE,default=0"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}
	if _, err := c.ReminderDays(); err != nil {
		return err
	}
	if _, err := c.ReminderLocation(); err != nil {
		return err
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		panic("config is not initialized")
	}
	return config
}

// Set replaces the active configuration. Tests use it to avoid touching the
// process environment.
func Set(c *Config) {
	config = c
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		User:     c.PostgresReadUser,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		User:     c.PostgresWriteUser,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
	}
}

func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addrs:    []string{c.RedisAddr},
		Username: c.RedisUsername,
		Password: c.RedisPassword,
		DB:       c.RedisDatabase,
	}
}

// ReminderDays parses REMINDER_DEFAULT_DAYS ("7 15 30" or "7,15,30") into
// positive day offsets.
func (c *Config) ReminderDays() ([]int, error) {
	var days []int
	parts := strings.FieldsFunc(c.ReminderDefaultDays, func(r rune) bool {
		return r == ',' || r == ' '
	})
	for _, part := range parts {
		d, err := strconv.Atoi(part)
		if err != nil || d <= 0 {
			return nil, errors.Errorf("invalid REMINDER_DEFAULT_DAYS entry %q", part)
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil, errors.New("REMINDER_DEFAULT_DAYS must list at least one day")
	}
	return days, nil
}

func (c *Config) ReminderLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid REMINDER_TIMEZONE %q", c.ReminderTimezone)
	}
	return loc, nil
}
