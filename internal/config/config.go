package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendSQS      = "sqs"
	BackendSNS      = "sns"
	BackendKafka    = "kafka"
	BackendLog      = "log"
)

type AWS struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	DynamoDBEndpoint string
	SQSEndpoint      string
	SNSEndpoint      string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Queue struct {
	Backend           string
	URL               string
	DeadLetterURL     string
	MaxReceiveCount   int
	VisibilityTimeout time.Duration
	BatchSize         int
	WaitTime          time.Duration
}

type Notifier struct {
	Backend      string
	TopicARN     string
	KafkaBrokers []string
	KafkaTopic   string
}

type Workflow struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	TaskTimeout    time.Duration
	MaxExecutions  int
	ResumeInterval time.Duration
}

type Payment struct {
	Mock         bool
	AccessToken  string
	DeclineAbove float64
}

// Config is the process configuration, read from the environment.
type Config struct {
	AWS               AWS
	OrderStore        string
	OrderTable        string
	ExecutionsTable   string
	ExecutionRegistry string
	Redis             Redis
	Queue             Queue
	Notifier          Notifier
	Workflow          Workflow
	Payment           Payment
	JaegerEndpoint    string
	HTTPPort          string
	LogLevel          string
	WorkerID          string
}

// Load reads the configuration. Malformed numbers and durations fall back to their
// defaults with a warning.
func Load() Config {
	return Config{
		AWS: AWS{
			Region:           getenvDefault("AWS_REGION", "us-east-1"),
			AccessKeyID:      getenvDefault("AWS_ACCESS_KEY_ID", "local"),
			SecretAccessKey:  getenvDefault("AWS_SECRET_ACCESS_KEY", "local"),
			DynamoDBEndpoint: os.Getenv("DYNAMODB_ENDPOINT"),
			SQSEndpoint:      os.Getenv("SQS_ENDPOINT"),
			SNSEndpoint:      os.Getenv("SNS_ENDPOINT"),
		},
		OrderStore:        strings.ToLower(getenvDefault("ORDER_STORE", BackendDynamoDB)),
		OrderTable:        getenvDefault("ORDER_TABLE", "ORDER"),
		ExecutionsTable:   getenvDefault("EXECUTIONS_TABLE", "order_executions"),
		ExecutionRegistry: strings.ToLower(getenvDefault("EXECUTION_REGISTRY", BackendDynamoDB)),
		Redis: Redis{
			Addr:     getenvDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Queue: Queue{
			Backend:           strings.ToLower(getenvDefault("QUEUE_BACKEND", BackendSQS)),
			URL:               os.Getenv("ORDER_QUEUE_URL"),
			DeadLetterURL:     os.Getenv("ORDER_DLQ_URL"),
			MaxReceiveCount:   getenvInt("QUEUE_MAX_RECEIVE_COUNT", 5),
			VisibilityTimeout: getenvDuration("QUEUE_VISIBILITY_TIMEOUT", 300*time.Second),
			BatchSize:         getenvInt("QUEUE_BATCH_SIZE", 10),
			WaitTime:          getenvDuration("QUEUE_WAIT_TIME", 10*time.Second),
		},
		Notifier: Notifier{
			Backend:      strings.ToLower(getenvDefault("NOTIFIER_BACKEND", BackendSNS)),
			TopicARN:     os.Getenv("TOPIC_ARN"),
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:   getenvDefault("KAFKA_NOTIFICATION_TOPIC", "order-notifications"),
		},
		Workflow: Workflow{
			MaxAttempts:    getenvInt("WORKFLOW_MAX_ATTEMPTS", 3),
			InitialBackoff: getenvDuration("WORKFLOW_INITIAL_BACKOFF", time.Second),
			MaxBackoff:     getenvDuration("WORKFLOW_MAX_BACKOFF", 30*time.Second),
			TaskTimeout:    getenvDuration("WORKFLOW_TASK_TIMEOUT", 30*time.Second),
			MaxExecutions:  getenvInt("WORKER_MAX_EXECUTIONS", 64),
			ResumeInterval: getenvDuration("WORKER_RESUME_INTERVAL", time.Minute),
		},
		Payment: Payment{
			Mock:         getenvBool("PAYMENT_GATEWAY_MOCK") || getenvBool("MERCADOPAGO_MOCK"),
			AccessToken:  os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
			DeclineAbove: getenvFloat("PAYMENT_MOCK_DECLINE_ABOVE", 0),
		},
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
		HTTPPort:       getenvDefault("HTTP_PORT", "8080"),
		LogLevel:       getenvDefault("LOG_LEVEL", "debug"),
		WorkerID:       getenvDefault("WORKER_ID", defaultWorkerID()),
	}
}

// SetupLogging applies LOG_LEVEL to the global zerolog logger.
func SetupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("[config] invalid integer, using default")
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Float64("default", def).Msg("[config] invalid number, using default")
		return def
	}
	return f
}

// getenvDuration accepts Go durations ("30s") and bare integers as seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Warn().Str("key", key).Str("value", v).Dur("default", def).Msg("[config] invalid duration, using default")
	return def
}

func getenvBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on", "mock":
		return true
	}
	return false
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "-" + strconv.Itoa(os.Getpid())
}
