package completion

import (
	"context"
	"fmt"

	"vendor-onboarding/internal/common/zoho"
)

// AccountUpserter is satisfied by *zoho.CRMClient.
type AccountUpserter interface {
	UpsertAccount(ctx context.Context, account *zoho.Account) (string, error)
}

// CRMSink creates or refreshes the vendor's CRM account.
type CRMSink struct {
	crm AccountUpserter
}

func NewCRMSink(crm AccountUpserter) *CRMSink {
	return &CRMSink{crm: crm}
}

func (s *CRMSink) Name() string { return "crm" }

func (s *CRMSink) Deliver(ctx context.Context, rec Record) error {
	doc := rec.document()
	street := doc.AddressLine1
	if doc.AddressLine2 != "" {
		street += ", " + doc.AddressLine2
	}

	_, err := s.crm.UpsertAccount(ctx, &zoho.Account{
		AccountName:    doc.BusinessName,
		AccountType:    "Vendor - " + doc.VendorType,
		Email:          rec.Email,
		BillingStreet:  street,
		BillingCity:    doc.City,
		BillingState:   doc.State,
		BillingCode:    doc.PostalCode,
		BillingCountry: "India",
		VendorID:       rec.VendorID,
		GSTIN:          doc.GSTNumber,
	})
	if err != nil {
		return fmt.Errorf("upsert crm account: %w", err)
	}
	return nil
}
