package notification

import (
	"context"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/rs/zerolog/log"
)

// LogPublisher only logs notifications. Used when no broker is configured.
type LogPublisher struct{}

var _ interfaces.INotificationPublisher = LogPublisher{}

func (LogPublisher) Publish(_ context.Context, n entities.OrderNotification) error {
	log.Info().Str("order_id", n.OrderID).Str("owner_id", n.OwnerID).Str("outcome", string(n.Outcome)).
		Time("occurred_at", n.OccurredAt).Msg("[notification][log] order finished")
	return nil
}
