package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

// sqsMaxBatch is the largest batch a single ReceiveMessage call may return.
const sqsMaxBatch = 10

const originalMessageIDAttribute = "original_message_id"

// SQSQueue is the ingestion queue on Amazon SQS.
//
// The receive ceiling is enforced here rather than by a queue redrive policy:
// a message whose ApproximateReceiveCount exceeds maxReceiveCount is copied to the
// dead-letter queue and deleted from the main queue before it reaches the caller.
type SQSQueue struct {
	client          *sqs.Client
	queueURL        string
	deadLetterURL   string
	maxReceiveCount int
	waitTime        time.Duration
	onDeadLetter    func(msg entities.QueueMessage)
}

var (
	_ interfaces.IOrderQueue      = (*SQSQueue)(nil)
	_ interfaces.IDeadLetterQueue = (*SQSQueue)(nil)
)

func NewSQSQueue(client *sqs.Client, queueURL, deadLetterURL string, maxReceiveCount int, waitTime time.Duration) *SQSQueue {
	if maxReceiveCount <= 0 {
		maxReceiveCount = DefaultMaxReceiveCount
	}
	return &SQSQueue{
		client:          client,
		queueURL:        queueURL,
		deadLetterURL:   deadLetterURL,
		maxReceiveCount: maxReceiveCount,
		waitTime:        waitTime,
	}
}

func (q *SQSQueue) OnDeadLetter(fn func(msg entities.QueueMessage)) {
	q.onDeadLetter = fn
}

func (q *SQSQueue) Enqueue(ctx context.Context, payload json.RawMessage) (string, error) {
	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return "", fmt.Errorf("sqs send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

func (q *SQSQueue) Receive(ctx context.Context, maxBatch int, visibilityTimeout time.Duration) ([]entities.QueueMessage, error) {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	if maxBatch > sqsMaxBatch {
		maxBatch = sqsMaxBatch
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(maxBatch),
		VisibilityTimeout:   int32(visibilityTimeout / time.Second),
		WaitTimeSeconds:     int32(q.waitTime / time.Second),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
			types.MessageSystemAttributeNameSentTimestamp,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	batch := make([]entities.QueueMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := fromSQSMessage(m)
		if msg.Attempt > q.maxReceiveCount {
			if err := q.deadLetter(ctx, msg); err != nil {
				// Left in place; the next receive retries the redirect.
				log.Error().Err(err).Str("message_id", msg.ID).Msg("[queue][sqs] dead-letter redirect failed")
			}
			continue
		}
		batch = append(batch, msg)
	}
	return batch, nil
}

func (q *SQSQueue) Acknowledge(ctx context.Context, msg entities.QueueMessage) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	return mapReceiptError(err)
}

func (q *SQSQueue) ExtendVisibility(ctx context.Context, msg entities.QueueMessage, d time.Duration) error {
	_, err := q.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.queueURL),
		ReceiptHandle:     aws.String(msg.ReceiptHandle),
		VisibilityTimeout: int32(d / time.Second),
	})
	return mapReceiptError(err)
}

// ListDeadLetters peeks at the dead-letter queue with a zero visibility timeout,
// so inspected messages stay available.
func (q *SQSQueue) ListDeadLetters(ctx context.Context, max int) ([]entities.QueueMessage, error) {
	if q.deadLetterURL == "" {
		return []entities.QueueMessage{}, nil
	}
	if max <= 0 {
		max = sqsMaxBatch
	}

	seen := make(map[string]struct{})
	items := make([]entities.QueueMessage, 0, max)
	for len(items) < max {
		n := max - len(items)
		if n > sqsMaxBatch {
			n = sqsMaxBatch
		}
		out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(q.deadLetterURL),
			MaxNumberOfMessages: int32(n),
			VisibilityTimeout:   0,
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{
				types.MessageSystemAttributeNameApproximateReceiveCount,
				types.MessageSystemAttributeNameSentTimestamp,
			},
			MessageAttributeNames: []string{originalMessageIDAttribute},
		})
		if err != nil {
			return nil, fmt.Errorf("sqs receive dead letters: %w", err)
		}

		added := 0
		for _, m := range out.Messages {
			msg := fromSQSMessage(m)
			msg.ReceiptHandle = ""
			if attr, ok := m.MessageAttributes[originalMessageIDAttribute]; ok && attr.StringValue != nil {
				msg.ID = aws.ToString(attr.StringValue)
			}
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
			items = append(items, msg)
			added++
		}
		if added == 0 {
			break
		}
	}
	return items, nil
}

func (q *SQSQueue) deadLetter(ctx context.Context, msg entities.QueueMessage) error {
	if q.deadLetterURL == "" {
		return errors.New("dead-letter queue url not configured")
	}
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.deadLetterURL),
		MessageBody: aws.String(string(msg.Body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			originalMessageIDAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.ID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs send dead letter: %w", err)
	}
	if err := q.Acknowledge(ctx, msg); err != nil {
		return err
	}

	log.Warn().Str("message_id", msg.ID).Int("receive_count", msg.Attempt).
		Msg("[queue][sqs] message moved to dead-letter queue")
	if q.onDeadLetter != nil {
		q.onDeadLetter(msg)
	}
	return nil
}

func fromSQSMessage(m types.Message) entities.QueueMessage {
	msg := entities.QueueMessage{
		ID:            aws.ToString(m.MessageId),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
		Body:          json.RawMessage(aws.ToString(m.Body)),
	}
	if v, ok := m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
		msg.Attempt, _ = strconv.Atoi(v)
	}
	if v, ok := m.Attributes[string(types.MessageSystemAttributeNameSentTimestamp)]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			msg.EnqueuedAt = time.UnixMilli(ms).UTC()
		}
	}
	return msg
}

func mapReceiptError(err error) error {
	if err == nil {
		return nil
	}
	var invalid *types.ReceiptHandleIsInvalid
	var notInflight *types.MessageNotInflight
	if errors.As(err, &invalid) || errors.As(err, &notInflight) {
		return interfaces.ErrStaleReceipt
	}
	return err
}
