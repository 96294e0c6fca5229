package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher fans order outcomes out through an SNS topic. The outcome is also
// set as a message attribute so subscribers can filter on it.
type SNSPublisher struct {
	client   *sns.Client
	topicARN string
}

var _ interfaces.INotificationPublisher = (*SNSPublisher)(nil)

func NewSNSPublisher(client *sns.Client, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

func (p *SNSPublisher) Publish(ctx context.Context, n entities.OrderNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"outcome": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(n.Outcome)),
			},
			"ownerId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.OwnerID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
