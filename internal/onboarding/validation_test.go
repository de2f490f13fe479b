package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func businessDraft() Draft {
	d := NewDraft()
	d.BusinessName = "Acme Traders"
	d.BusinessAddressLine1 = "12 MG Road"
	d.City = "Bengaluru"
	d.State = "Karnataka"
	d.PostalCode = "560001"
	return d
}

// ============================================================================
// Step 1
// ============================================================================

func TestValidate_VendorType(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"manufacturer", "MANUFACTURER", true},
		{"wholesaler", "WHOLESALER", true},
		{"retailer lowercase is normalized", " retailer ", true},
		{"empty", "", false},
		{"blank", "   ", false},
		{"unknown", "DISTRIBUTOR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft()
			d.VendorType = tt.value
			errs := Validate(StepVendorType, d)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.Len(t, errs, 1)
				assert.Contains(t, errs, FieldVendorType)
			}
		})
	}
}

// ============================================================================
// Step 2
// ============================================================================

func TestValidate_BusinessInfo_RequiredFields(t *testing.T) {
	errs := Validate(StepBusinessInfo, NewDraft())
	assert.Len(t, errs, 5)
	for _, f := range []Field{FieldBusinessName, FieldBusinessAddressLine1, FieldCity, FieldState, FieldPostalCode} {
		assert.Contains(t, errs, f)
	}
	assert.NotContains(t, errs, FieldBusinessAddressLine2)
}

func TestValidate_BusinessInfo_WhitespaceOnlyIsEmpty(t *testing.T) {
	d := businessDraft()
	d.City = "   "
	errs := Validate(StepBusinessInfo, d)
	assert.Equal(t, ErrorMap{FieldCity: "City is required"}, errs)
}

func TestValidate_PostalCode(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"560001", true},
		{" 560001 ", true},
		{"5600011", false},
		{"56001", false},
		{"56000A", false},
		{"560 001", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d := businessDraft()
			d.PostalCode = tt.value
			errs := Validate(StepBusinessInfo, d)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, "Postal code must be exactly 6 digits", errs[FieldPostalCode])
			}
		})
	}
}

// ============================================================================
// Step 3
// ============================================================================

func TestValidate_GSTNumber(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"22AAAAA0000A1Z5", true},
		{"27ABCDE1234F2ZK", true},
		{"22aaaaa0000a1z5", false},
		{"22AAAAA0000A1Z", false},
		{"22AAAAA0000A1Y5", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d := NewDraft()
			d.GSTNumber = tt.value
			errs := Validate(StepVerification, d)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.Len(t, errs, 1)
				assert.Contains(t, errs, FieldGSTNumber)
			}
		})
	}
}

func TestValidate_Aadhaar(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"123456789012", true},
		{"1234 5678 9012", true},
		{"12345", false},
		{"1234567890123", false},
		{"1234-5678-9012", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d := NewDraft()
			d.VerificationType = VerificationManual
			d.IDType = IDTypeAadhaar
			d.IDNumber = tt.value
			errs := Validate(StepVerification, d)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, "Aadhaar number must be 12 digits", errs[FieldIDNumber])
			}
		})
	}
}

func TestValidate_PAN(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"ABCDE1234F", true},
		{" ABCDE1234F ", true},
		{"abcde1234f", false},
		{"ABCDE12345", false},
		{"ABCD1234F", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d := NewDraft()
			d.VerificationType = VerificationManual
			d.IDType = IDTypePAN
			d.IDNumber = tt.value
			errs := Validate(StepVerification, d)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, errs, FieldIDNumber)
			}
		})
	}
}

func TestValidate_ManualBranchRequiresIDTypeAndNumber(t *testing.T) {
	d := NewDraft()
	d.VerificationType = VerificationManual
	d.GSTNumber = "not a gst"

	errs := Validate(StepVerification, d)
	assert.Len(t, errs, 2)
	assert.Contains(t, errs, FieldIDType)
	assert.Contains(t, errs, FieldIDNumber)
	assert.NotContains(t, errs, FieldGSTNumber, "inactive branch is never validated")

	d.IDType = "PASSPORT"
	d.IDNumber = "X1234567"
	errs = Validate(StepVerification, d)
	assert.Equal(t, ErrorMap{FieldIDType: "ID type must be AADHAAR or PAN"}, errs)
}

func TestValidate_GSTBranchIgnoresManualFields(t *testing.T) {
	d := NewDraft()
	d.GSTNumber = "22AAAAA0000A1Z5"
	d.IDType = "garbage"
	d.IDNumber = "garbage"
	assert.Empty(t, Validate(StepVerification, d))
}

func TestValidate_UnknownVerificationTypeAndStep(t *testing.T) {
	d := NewDraft()
	d.VerificationType = "EMAIL"
	assert.Contains(t, Validate(StepVerification, d), FieldVerificationType)

	assert.NotEmpty(t, Validate(Step(7), d))
}
