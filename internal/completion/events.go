package completion

import (
	"context"
	"encoding/json"
	"fmt"
)

const eventVendorOnboarded = "VendorOnboarded"

// EventPublisher is satisfied by *aws.SNSClient.
type EventPublisher interface {
	Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error)
}

// EventSink announces the onboarded vendor on the events topic.
type EventSink struct {
	publisher EventPublisher
}

func NewEventSink(publisher EventPublisher) *EventSink {
	return &EventSink{publisher: publisher}
}

func (s *EventSink) Name() string { return "events" }

func (s *EventSink) Deliver(ctx context.Context, rec Record) error {
	body, err := json.Marshal(struct {
		Type   string   `json:"type"`
		Vendor document `json:"vendor"`
	}{Type: eventVendorOnboarded, Vendor: rec.document()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = s.publisher.Publish(ctx, "", string(body), map[string]string{
		"eventType":  eventVendorOnboarded,
		"vendorId":   rec.VendorID,
		"vendorType": rec.document().VendorType,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventVendorOnboarded, err)
	}
	return nil
}
