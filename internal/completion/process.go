package completion

import (
	"context"
	"fmt"
	"time"

	"vendor-onboarding/internal/common/camunda"
)

// MessagePublisher is satisfied by *camunda.Client.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg camunda.Message) (int64, error)
}

// ProcessSink correlates a message to the vendor's downstream process
// instance, keyed by vendor id.
type ProcessSink struct {
	publisher   MessagePublisher
	messageName string
	ttl         time.Duration
}

func NewProcessSink(publisher MessagePublisher, messageName string, ttl time.Duration) *ProcessSink {
	return &ProcessSink{publisher: publisher, messageName: messageName, ttl: ttl}
}

func (p *ProcessSink) Name() string { return "process" }

func (p *ProcessSink) Deliver(ctx context.Context, rec Record) error {
	doc := rec.document()
	_, err := p.publisher.PublishMessage(ctx, camunda.Message{
		Name:           p.messageName,
		CorrelationKey: rec.VendorID,
		MessageID:      "onboarding-completed-" + rec.VendorID,
		TTL:            p.ttl,
		Variables: map[string]interface{}{
			"vendorId":             doc.VendorID,
			"vendorType":           doc.VendorType,
			"businessName":         doc.BusinessName,
			"verificationType":     doc.VerificationType,
			"completionPercentage": doc.Percentage,
			"completedAt":          doc.CompletedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.messageName, err)
	}
	return nil
}
