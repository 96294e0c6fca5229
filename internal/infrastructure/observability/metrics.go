package observability

import (
	"context"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase"
	"orderflow/internal/usecase/interfaces"
	"orderflow/internal/workflow"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orderflow"

// Metrics is the Prometheus view of the trigger, the engine and the queue.
type Metrics struct {
	executionsStarted    prometheus.Counter
	duplicatesSuppressed prometheus.Counter
	messagesRejected     prometheus.Counter
	deadLetters          prometheus.Counter
	taskAttempts         *prometheus.CounterVec
	executionsFinished   *prometheus.CounterVec
	notifications        *prometheus.CounterVec
}

var (
	_ usecase.TriggerObserver = (*Metrics)(nil)
	_ workflow.Observer       = (*Metrics)(nil)
)

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		executionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "trigger", Name: "executions_started_total",
			Help: "Workflow executions registered by the trigger.",
		}),
		duplicatesSuppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "trigger", Name: "duplicates_suppressed_total",
			Help: "Deliveries acknowledged without starting because the execution already existed.",
		}),
		messagesRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "trigger", Name: "messages_rejected_total",
			Help: "Deliveries left unacknowledged for redelivery.",
		}),
		deadLetters: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "queue", Name: "dead_letters_total",
			Help: "Messages moved to the dead-letter channel.",
		}),
		taskAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "task_attempts_total",
			Help: "Task invocations by task and result.",
		}, []string{"task", "result"}),
		executionsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "executions_finished_total",
			Help: "Executions that reached a terminal state.",
		}, []string{"state"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notification", Name: "published_total",
			Help: "Outcome notifications by outcome and result.",
		}, []string{"outcome", "result"}),
	}
}

func (m *Metrics) ExecutionStarted()    { m.executionsStarted.Inc() }
func (m *Metrics) DuplicateSuppressed() { m.duplicatesSuppressed.Inc() }
func (m *Metrics) MessageRejected()     { m.messagesRejected.Inc() }

func (m *Metrics) DeadLettered(entities.QueueMessage) { m.deadLetters.Inc() }

func (m *Metrics) TaskAttempted(task string, err error) {
	m.taskAttempts.WithLabelValues(task, result(err)).Inc()
}

func (m *Metrics) ExecutionFinished(state entities.ExecutionState) {
	m.executionsFinished.WithLabelValues(string(state)).Inc()
}

// InstrumentPublisher counts every publish attempt of next.
func (m *Metrics) InstrumentPublisher(next interfaces.INotificationPublisher) interfaces.INotificationPublisher {
	return &countingPublisher{next: next, counter: m.notifications}
}

type countingPublisher struct {
	next    interfaces.INotificationPublisher
	counter *prometheus.CounterVec
}

func (p *countingPublisher) Publish(ctx context.Context, n entities.OrderNotification) error {
	err := p.next.Publish(ctx, n)
	p.counter.WithLabelValues(string(n.Outcome), result(err)).Inc()
	return err
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
