package service

import (
	"context"

	"notefiber-editor/pkg/events"
	pktNats "notefiber-editor/pkg/nats"
)

const mediaStatusDurable = "note-media-status"

// IMediaConsumerService records upload outcomes published by editor sessions,
// possibly on another instance.
type IMediaConsumerService interface {
	Start(ctx context.Context) error
}

type mediaConsumerService struct {
	subscriber *pktNats.Subscriber
	notes      INoteService
}

func NewMediaConsumerService(subscriber *pktNats.Subscriber, notes INoteService) IMediaConsumerService {
	return &mediaConsumerService{
		subscriber: subscriber,
		notes:      notes,
	}
}

func (s *mediaConsumerService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, mediaStatusDurable, s.notes.HandleMediaEvent,
		events.MediaUploaded,
		events.MediaUploadFailed,
	)
}
