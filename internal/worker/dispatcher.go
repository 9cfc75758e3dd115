package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lettermill/lettermill/internal/email"
	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/pkg/logger"
	"github.com/lettermill/lettermill/pkg/messaging"
)

// Dispatcher consumes subscriber events from the broker and delivers the
// matching transactional emails. It is the delivery half of the outbox
// pipeline; the HTTP request that produced the event has long since returned.
type Dispatcher struct {
	broker         messaging.Broker
	emailSvc       email.Service
	subscriberRepo repository.SubscriberRepository
	baseURL        string
	logger         *logger.Logger
}

func NewDispatcher(
	broker messaging.Broker,
	emailSvc email.Service,
	subscriberRepo repository.SubscriberRepository,
	baseURL string,
	logger *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		broker:         broker,
		emailSvc:       emailSvc,
		subscriberRepo: subscriberRepo,
		baseURL:        baseURL,
		logger:         logger,
	}
}

// Start subscribes to all subscriber event channels and blocks until the
// context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	channels := []string{
		model.EventConfirmationRequested,
		model.EventSubscriberConfirmed,
		model.EventSubscriberUnsubscribed,
	}

	for _, channel := range channels {
		msgs, err := d.broker.Subscribe(ctx, channel)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		go d.consume(ctx, channel, msgs)
	}

	<-ctx.Done()
	return nil
}

func (d *Dispatcher) consume(ctx context.Context, channel string, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			if err := d.handle(ctx, channel, raw); err != nil {
				d.logger.Error(err, "failed to handle message", "channel", channel)
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, channel string, raw []byte) error {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	switch channel {
	case model.EventConfirmationRequested:
		return d.sendConfirmation(ctx, msg.Payload)
	case model.EventSubscriberConfirmed:
		return d.sendWelcome(ctx, msg.Payload)
	case model.EventSubscriberUnsubscribed:
		return d.sendGoodbye(ctx, msg.Payload)
	}
	return fmt.Errorf("unexpected channel: %s", channel)
}

func (d *Dispatcher) sendConfirmation(ctx context.Context, raw json.RawMessage) error {
	var payload model.ConfirmationRequestedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to decode confirmation payload: %w", err)
	}

	confirmURL := fmt.Sprintf("%s/api/v1/newsletter/confirm/%s", d.baseURL, payload.ConfirmToken)
	return d.emailSvc.SendConfirmation(ctx, payload.Email, payload.Language, confirmURL)
}

func (d *Dispatcher) sendWelcome(ctx context.Context, raw json.RawMessage) error {
	var payload model.SubscriberEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to decode confirmed payload: %w", err)
	}

	sub, err := d.subscriberRepo.Get(ctx, payload.SubscriberID)
	if err != nil {
		return fmt.Errorf("failed to load subscriber: %w", err)
	}

	unsubURL := fmt.Sprintf("%s/api/v1/newsletter/unsubscribe/%s", d.baseURL, sub.UnsubToken)
	return d.emailSvc.SendWelcome(ctx, sub.Email, sub.Language, unsubURL)
}

func (d *Dispatcher) sendGoodbye(ctx context.Context, raw json.RawMessage) error {
	var payload model.SubscriberEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to decode unsubscribed payload: %w", err)
	}
	return d.emailSvc.SendGoodbye(ctx, payload.Email, payload.Language)
}
