package completion

import (
	"context"
	"fmt"
	"strings"

	"vendor-onboarding/internal/common/aws"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/common/validation"
)

// EmailSender is satisfied by *aws.SESClient.
type EmailSender interface {
	SendEmail(ctx context.Context, e aws.Email) (string, error)
}

// EmailSink sends the welcome email. Vendors without a usable address are
// skipped.
type EmailSink struct {
	sender EmailSender
	logger logger.Logger
}

func NewEmailSink(sender EmailSender, log logger.Logger) *EmailSink {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &EmailSink{sender: sender, logger: log}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, rec Record) error {
	if !validation.ValidateEmail(rec.Email) {
		s.logger.Warn("welcome email skipped", map[string]interface{}{
			"vendorId": rec.VendorID,
			"reason":   "no valid email on the principal",
		})
		return nil
	}

	name := strings.TrimSpace(rec.Draft.BusinessName)
	id, err := s.sender.SendEmail(ctx, aws.Email{
		To:       rec.Email,
		Subject:  fmt.Sprintf("%s is now onboarded", name),
		TextBody: welcomeText(name, rec),
	})
	if err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	s.logger.Debug("welcome email sent", map[string]interface{}{"vendorId": rec.VendorID, "messageId": id})
	return nil
}

func welcomeText(name string, rec Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	b.WriteString("Your vendor onboarding is complete and your profile is now active.\n\n")
	fmt.Fprintf(&b, "Vendor type: %s\n", rec.document().VendorType)
	fmt.Fprintf(&b, "Verification: %s\n", rec.Draft.VerificationType)
	fmt.Fprintf(&b, "Completed at: %s\n", rec.CompletedAt.UTC().Format("02 Jan 2006 15:04 MST"))
	return b.String()
}
