package interfaces

import (
	"context"

	"orderflow/internal/domain/entities"
)

// INotificationPublisher announces terminal order outcomes. Delivery is best effort.
type INotificationPublisher interface {
	Publish(ctx context.Context, n entities.OrderNotification) error
}
