package onboarding

import (
	"fmt"
	"strings"
)

// StepPayload is the minimal body a step submission carries.
type StepPayload interface {
	Step() Step
}

type VendorTypePayload struct {
	VendorType string `json:"vendorType"`
}

func (VendorTypePayload) Step() Step { return StepVendorType }

type BusinessInfoPayload struct {
	BusinessName         string `json:"businessName"`
	BusinessAddressLine1 string `json:"businessAddressLine1"`
	BusinessAddressLine2 string `json:"businessAddressLine2"`
	City                 string `json:"city"`
	State                string `json:"state"`
	PostalCode           string `json:"postalCode"`
}

func (BusinessInfoPayload) Step() Step { return StepBusinessInfo }

// VerificationPayload carries only the active branch; the other branch's
// fields stay empty and are omitted from JSON.
type VerificationPayload struct {
	VerificationType string `json:"verificationType"`
	GSTNumber        string `json:"gstNumber,omitempty"`
	IDType           string `json:"idType,omitempty"`
	IDNumber         string `json:"idNumber,omitempty"`
}

func (VerificationPayload) Step() Step { return StepVerification }

// BuildPayload projects the draft down to what step persists. Callers are
// expected to have validated the step first.
func BuildPayload(step Step, d Draft) (StepPayload, error) {
	switch step {
	case StepVendorType:
		return VendorTypePayload{VendorType: normalizeVendorType(d.VendorType)}, nil

	case StepBusinessInfo:
		return BusinessInfoPayload{
			BusinessName:         strings.TrimSpace(d.BusinessName),
			BusinessAddressLine1: strings.TrimSpace(d.BusinessAddressLine1),
			BusinessAddressLine2: strings.TrimSpace(d.BusinessAddressLine2),
			City:                 strings.TrimSpace(d.City),
			State:                strings.TrimSpace(d.State),
			PostalCode:           strings.TrimSpace(d.PostalCode),
		}, nil

	case StepVerification:
		p := VerificationPayload{VerificationType: ActiveVerification(d)}
		if p.VerificationType == VerificationGST {
			p.GSTNumber = strings.TrimSpace(d.GSTNumber)
			return p, nil
		}
		p.IDType = strings.TrimSpace(d.IDType)
		if p.IDType == IDTypeAadhaar {
			p.IDNumber = stripSpaces(d.IDNumber)
		} else {
			p.IDNumber = strings.TrimSpace(d.IDNumber)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownStep, int(step))
}
