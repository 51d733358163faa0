package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) (string, error)
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

// Publish enqueues payload on the topic and returns the message ID.
func (s *publisherService) Publish(ctx context.Context, payload []byte) (string, error) {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	// Jobs outlive the request that queued them
	msg.SetContext(context.WithoutCancel(ctx))
	if err := s.publisher.Publish(s.topicName, msg); err != nil {
		return "", err
	}
	return msg.UUID, nil
}
