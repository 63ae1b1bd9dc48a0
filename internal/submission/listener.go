package submission

import (
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	awsx "github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/jobs"
)

// NotificationHandler consumes one completion event. Handlers must be
// idempotent on already-handled artifact keys: the polling fallback may have
// observed the same completion first, and SQS may redeliver.
type NotificationHandler func(ctx context.Context, n jobs.Notification)

// CompletionListener is the push half of the dual-path completion signal:
// it long-polls the notification queue and feeds events to the handler.
type CompletionListener struct {
	sqs      awsx.SQSAPI
	queueURL string
	handler  NotificationHandler
}

// NewCompletionListener returns a listener bound to queueURL.
func NewCompletionListener(sqsClient awsx.SQSAPI, queueURL string, handler NotificationHandler) *CompletionListener {
	return &CompletionListener{
		sqs:      sqsClient,
		queueURL: queueURL,
		handler:  handler,
	}
}

// Run long-polls until the context is canceled. Malformed messages are
// deleted and logged rather than retried forever; the poll loop covers any
// completion a bad message would have announced.
func (l *CompletionListener) Run(ctx context.Context) error {
	waitSeconds := int32(20)
	maxMessages := int32(10)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := l.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &l.queueURL,
			WaitTimeSeconds:     waitSeconds,
			MaxNumberOfMessages: maxMessages,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[listener] receive failed: %v", err)
			continue
		}

		for _, m := range out.Messages {
			var n jobs.Notification
			if m.Body != nil {
				if err := json.Unmarshal([]byte(*m.Body), &n); err != nil {
					log.Printf("[listener] dropping malformed notification: %v", err)
				} else {
					l.handler(ctx, n)
				}
			}
			if m.ReceiptHandle != nil {
				if _, err := l.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
					QueueUrl:      &l.queueURL,
					ReceiptHandle: m.ReceiptHandle,
				}); err != nil {
					log.Printf("[listener] delete failed: %v", err)
				}
			}
		}
	}
}
