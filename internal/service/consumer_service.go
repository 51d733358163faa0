package service

import (
	"context"
	"encoding/json"

	"swimcoach-be/internal/dto"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/pkg/rag/ingest"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber    message.Subscriber
	topicName     string
	ingestService IIngestService
	logger        logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ingestService IIngestService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:    subscriber,
		topicName:     topicName,
		ingestService: ingestService,
		logger:        log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. A failed job has already released its staged
// file, so redelivery could never succeed.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var job dto.IngestJobMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal ingest job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	cs.logger.Info("ConsumerService", "Processing ingest job", map[string]interface{}{
		"job_id":    msg.UUID,
		"source_id": job.SourceId,
	})

	res, err := cs.ingestService.Ingest(ctx, ingest.Source{
		Path:     job.Path,
		MimeType: job.MimeType,
		SourceID: job.SourceId,
		Replace:  job.Replace,
		Staged:   job.Staged,
	})
	if err != nil {
		cs.logger.Error("ConsumerService", "Ingest job failed", map[string]interface{}{
			"job_id": msg.UUID,
			"error":  err.Error(),
		})
		return
	}

	cs.logger.Info("ConsumerService", "Ingest job done", map[string]interface{}{
		"job_id":   msg.UUID,
		"passages": res.Passages,
	})
}
