package completion

import (
	"context"
	"strings"
	"time"

	"vendor-onboarding/internal/onboarding"
)

// Record is what sinks receive when a vendor finishes onboarding.
type Record struct {
	VendorID    string
	Email       string
	Draft       onboarding.Draft
	Completion  onboarding.Completion
	CompletedAt time.Time
}

func NewRecord(vendorID, email string, ev onboarding.CompletedEvent) Record {
	return Record{
		VendorID:    vendorID,
		Email:       email,
		Draft:       ev.Draft,
		Completion:  ev.Completion,
		CompletedAt: ev.CompletedAt,
	}
}

// Sink delivers a completion record to one downstream system. Deliver must be
// safe to repeat for the same vendor.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, rec Record) error
}

// MaskedDraft returns the draft with the inactive verification branch cleared
// and the personal id number reduced to its last four characters. GSTINs are
// public and kept as is.
func (r Record) MaskedDraft() onboarding.Draft {
	d := r.Draft
	d.VerificationType = onboarding.ActiveVerification(d)
	if d.VerificationType == onboarding.VerificationGST {
		d.IDType, d.IDNumber = "", ""
	} else {
		d.GSTNumber = ""
	}
	d.IDNumber = maskID(d.IDNumber)
	return d
}

func maskID(id string) string {
	id = strings.Join(strings.Fields(id), "")
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}

// document is the vendor view shared by the directory, event and process sinks.
type document struct {
	VendorID         string    `json:"vendorId"`
	VendorType       string    `json:"vendorType"`
	BusinessName     string    `json:"businessName"`
	AddressLine1     string    `json:"addressLine1"`
	AddressLine2     string    `json:"addressLine2,omitempty"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	PostalCode       string    `json:"postalCode"`
	VerificationType string    `json:"verificationType"`
	GSTNumber        string    `json:"gstNumber,omitempty"`
	IDType           string    `json:"idType,omitempty"`
	Percentage       float64   `json:"completionPercentage"`
	CompletedAt      time.Time `json:"completedAt"`
}

func (r Record) document() document {
	d := r.Draft
	doc := document{
		VendorID:         r.VendorID,
		VendorType:       strings.ToUpper(strings.TrimSpace(d.VendorType)),
		BusinessName:     strings.TrimSpace(d.BusinessName),
		AddressLine1:     strings.TrimSpace(d.BusinessAddressLine1),
		AddressLine2:     strings.TrimSpace(d.BusinessAddressLine2),
		City:             strings.TrimSpace(d.City),
		State:            strings.TrimSpace(d.State),
		PostalCode:       strings.TrimSpace(d.PostalCode),
		Percentage:       r.Completion.Percentage,
		CompletedAt:      r.CompletedAt.UTC(),
	}
	// Same branch projection the vendor API received for the verification step.
	if p, err := onboarding.BuildPayload(onboarding.StepVerification, d); err == nil {
		v := p.(onboarding.VerificationPayload)
		doc.VerificationType = v.VerificationType
		doc.GSTNumber = strings.ToUpper(v.GSTNumber)
		doc.IDType = v.IDType
	}
	return doc
}
