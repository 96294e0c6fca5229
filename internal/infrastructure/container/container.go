package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"orderflow/internal/adapter/notification"
	"orderflow/internal/adapter/persistence/repository"
	"orderflow/internal/adapter/queue"
	"orderflow/internal/config"
	"orderflow/internal/domain/entities"
	"orderflow/internal/infrastructure/database"
	"orderflow/internal/infrastructure/messaging"
	"orderflow/internal/infrastructure/observability"
	"orderflow/internal/infrastructure/payments"
	"orderflow/internal/usecase"
	"orderflow/internal/usecase/interfaces"
	"orderflow/internal/workflow"
	"orderflow/internal/worker"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// memoryIdlePoll paces the poll loop when Receive does not long-poll.
const memoryIdlePoll = 200 * time.Millisecond

// Container is the composition root shared by the api and worker processes.
type Container struct {
	Config  config.Config
	Metrics *observability.Metrics

	Orders     interfaces.IOrderRepository
	Executions interfaces.IExecutionRepository
	Queue      interfaces.IOrderQueue
	DeadLetter interfaces.IDeadLetterQueue

	OrderUseCase     usecase.IOrderUseCase
	ExecutionUseCase usecase.IExecutionUseCase
	Engine           *workflow.Engine
	Trigger          *usecase.WorkflowTrigger
	Worker           *worker.Worker

	closers []io.Closer
}

// InProcessWorker reports whether the queue only exists inside this process, in
// which case the api process has to run the worker itself.
func (c *Container) InProcessWorker() bool {
	return c.Config.Queue.Backend == config.BackendMemory
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("[container] close failed")
		}
	}
}

// Build wires every component selected by cfg. Metrics are registered on reg.
func Build(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*Container, error) {
	c := &Container{Config: cfg, Metrics: observability.NewMetrics(reg)}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, err := database.NewAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return aws.Config{}, fmt.Errorf("aws config: %w", err)
		}
		awsCfg = &loaded
		return loaded, nil
	}

	var ddb *dynamodb.Client
	dynamo := func() (*dynamodb.Client, error) {
		if ddb != nil {
			return ddb, nil
		}
		a, err := loadAWS()
		if err != nil {
			return nil, err
		}
		ddb = database.ConnectDynamoDB(a)
		return ddb, nil
	}

	if err := c.buildOrders(cfg, dynamo); err != nil {
		return nil, err
	}
	if err := c.buildExecutions(ctx, cfg, dynamo); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.buildQueue(cfg, loadAWS); err != nil {
		c.Close()
		return nil, err
	}
	publisher, err := c.buildPublisher(cfg, loadAWS)
	if err != nil {
		c.Close()
		return nil, err
	}

	gateway, err := payments.NewMercadoPagoGateway(cfg.Payment)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("payment gateway: %w", err)
	}

	policy := workflow.RetryPolicy{
		MaxAttempts:    cfg.Workflow.MaxAttempts,
		InitialBackoff: cfg.Workflow.InitialBackoff,
		MaxBackoff:     cfg.Workflow.MaxBackoff,
		TaskTimeout:    cfg.Workflow.TaskTimeout,
	}
	tasks := usecase.NewOrderTaskUseCase(c.Orders, gateway, c.Metrics.InstrumentPublisher(publisher))

	c.Engine = workflow.NewEngine(c.Executions, tasks, policy, cfg.WorkerID, cfg.Workflow.MaxExecutions)
	c.Engine.SetObserver(c.Metrics)

	c.Trigger = usecase.NewWorkflowTrigger(c.Queue, c.Executions, c.Engine, c.Engine.Policy().Backoff, cfg.Queue.BatchSize)
	c.Trigger.SetObserver(c.Metrics)

	var idle time.Duration
	if cfg.Queue.Backend == config.BackendMemory || cfg.Queue.WaitTime <= 0 {
		idle = memoryIdlePoll
	}
	c.Worker = worker.New(c.Queue, c.Trigger, c.Engine, c.Executions, worker.Options{
		BatchSize:         cfg.Queue.BatchSize,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		IdlePoll:          idle,
		ResumeInterval:    cfg.Workflow.ResumeInterval,
	})

	c.OrderUseCase = usecase.NewOrderUseCase(c.Orders, c.Queue)
	c.ExecutionUseCase = usecase.NewExecutionUseCase(c.Executions, c.DeadLetter)

	log.Info().Str("execution_registry", cfg.ExecutionRegistry).Str("queue", cfg.Queue.Backend).
		Str("notifier", cfg.Notifier.Backend).Str("worker_id", cfg.WorkerID).Msg("[container] components wired")
	return c, nil
}

func (c *Container) buildOrders(cfg config.Config, dynamo func() (*dynamodb.Client, error)) error {
	switch cfg.OrderStore {
	case config.BackendMemory:
		c.Orders = repository.NewOrderMemoryRepository()
	case config.BackendDynamoDB:
		ddb, err := dynamo()
		if err != nil {
			return err
		}
		c.Orders = repository.NewOrderDynamoRepository(ddb, cfg.OrderTable)
	default:
		return fmt.Errorf("unknown ORDER_STORE %q", cfg.OrderStore)
	}
	return nil
}

func (c *Container) buildExecutions(ctx context.Context, cfg config.Config, dynamo func() (*dynamodb.Client, error)) error {
	switch cfg.ExecutionRegistry {
	case config.BackendMemory:
		c.Executions = repository.NewExecutionMemoryRepository()
	case config.BackendRedis:
		client, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, client)
		c.Executions = repository.NewExecutionRedisRepository(client, "")
	case config.BackendDynamoDB:
		ddb, err := dynamo()
		if err != nil {
			return err
		}
		c.Executions = repository.NewExecutionDynamoRepository(ddb, cfg.ExecutionsTable)
	default:
		return fmt.Errorf("unknown EXECUTION_REGISTRY %q", cfg.ExecutionRegistry)
	}
	return nil
}

func (c *Container) buildQueue(cfg config.Config, loadAWS func() (aws.Config, error)) error {
	switch cfg.Queue.Backend {
	case config.BackendMemory:
		q := queue.NewMemoryQueue(cfg.Queue.MaxReceiveCount)
		q.OnDeadLetter(c.deadLettered)
		c.Queue, c.DeadLetter = q, q
	case config.BackendSQS:
		if cfg.Queue.URL == "" {
			return errors.New("ORDER_QUEUE_URL is required for the sqs queue backend")
		}
		a, err := loadAWS()
		if err != nil {
			return err
		}
		q := queue.NewSQSQueue(messaging.NewSQSClient(a), cfg.Queue.URL, cfg.Queue.DeadLetterURL, cfg.Queue.MaxReceiveCount, cfg.Queue.WaitTime)
		q.OnDeadLetter(c.deadLettered)
		c.Queue, c.DeadLetter = q, q
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.Queue.Backend)
	}
	return nil
}

func (c *Container) buildPublisher(cfg config.Config, loadAWS func() (aws.Config, error)) (interfaces.INotificationPublisher, error) {
	switch cfg.Notifier.Backend {
	case config.BackendLog:
		return notification.LogPublisher{}, nil
	case config.BackendSNS:
		if cfg.Notifier.TopicARN == "" {
			return nil, errors.New("TOPIC_ARN is required for the sns notifier")
		}
		a, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return notification.NewSNSPublisher(messaging.NewSNSClient(a), cfg.Notifier.TopicARN), nil
	case config.BackendKafka:
		if len(cfg.Notifier.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required for the kafka notifier")
		}
		p := notification.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.Notifier.KafkaBrokers, cfg.Notifier.KafkaTopic))
		c.closers = append(c.closers, p)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown NOTIFIER_BACKEND %q", cfg.Notifier.Backend)
	}
}

func (c *Container) deadLettered(msg entities.QueueMessage) {
	c.Metrics.DeadLettered(msg)
}
