package onboarding

import (
	"regexp"
	"strings"
)

// ErrorMap maps a field to a human-readable message. Empty means valid.
type ErrorMap map[Field]string

func (m ErrorMap) clone() ErrorMap {
	out := make(ErrorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var (
	postalCodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	gstPattern        = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][A-Z0-9]Z[A-Z0-9]$`)
	aadhaarPattern    = regexp.MustCompile(`^[0-9]{12}$`)
	panPattern        = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// Validate checks the fields a step owns. It has no side effects and never
// fails: malformed input always comes back as a field message.
func Validate(step Step, d Draft) ErrorMap {
	errs := ErrorMap{}
	switch step {
	case StepVendorType:
		validateVendorType(d, errs)
	case StepBusinessInfo:
		validateBusinessInfo(d, errs)
	case StepVerification:
		validateVerification(d, errs)
	default:
		errs[fieldStep] = "Unknown onboarding step"
	}
	return errs
}

func normalizeVendorType(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

func isVendorType(v string) bool {
	for _, t := range VendorTypes {
		if v == t {
			return true
		}
	}
	return false
}

func validateVendorType(d Draft, errs ErrorMap) {
	vt := normalizeVendorType(d.VendorType)
	if vt == "" {
		errs[FieldVendorType] = "Please select a vendor type"
		return
	}
	if !isVendorType(vt) {
		errs[FieldVendorType] = "Vendor type must be Manufacturer, Wholesaler or Retailer"
	}
}

func validateBusinessInfo(d Draft, errs ErrorMap) {
	required := []struct {
		field Field
		label string
	}{
		{FieldBusinessName, "Business name"},
		{FieldBusinessAddressLine1, "Address line 1"},
		{FieldCity, "City"},
		{FieldState, "State"},
		{FieldPostalCode, "Postal code"},
	}
	for _, r := range required {
		if strings.TrimSpace(d.Get(r.field)) == "" {
			errs[r.field] = r.label + " is required"
		}
	}

	if _, missing := errs[FieldPostalCode]; !missing {
		if !postalCodePattern.MatchString(strings.TrimSpace(d.PostalCode)) {
			errs[FieldPostalCode] = "Postal code must be exactly 6 digits"
		}
	}
}

func validateVerification(d Draft, errs ErrorMap) {
	switch ActiveVerification(d) {
	case VerificationGST:
		gst := strings.TrimSpace(d.GSTNumber)
		switch {
		case gst == "":
			errs[FieldGSTNumber] = "GST number is required"
		case !gstPattern.MatchString(gst):
			errs[FieldGSTNumber] = "Enter a valid 15-character GSTIN (e.g. 22AAAAA0000A1Z5)"
		}
	case VerificationManual:
		validateManual(d, errs)
	default:
		errs[FieldVerificationType] = "Verification type must be GST or MANUAL"
	}
}

func validateManual(d Draft, errs ErrorMap) {
	idType := strings.TrimSpace(d.IDType)
	switch idType {
	case "":
		errs[FieldIDType] = "Please select an ID type"
	case IDTypeAadhaar, IDTypePAN:
	default:
		errs[FieldIDType] = "ID type must be AADHAAR or PAN"
	}

	if strings.TrimSpace(d.IDNumber) == "" {
		errs[FieldIDNumber] = "ID number is required"
		return
	}

	switch idType {
	case IDTypeAadhaar:
		if !aadhaarPattern.MatchString(stripSpaces(d.IDNumber)) {
			errs[FieldIDNumber] = "Aadhaar number must be 12 digits"
		}
	case IDTypePAN:
		if !panPattern.MatchString(strings.TrimSpace(d.IDNumber)) {
			errs[FieldIDNumber] = "Enter a valid PAN (e.g. ABCDE1234F)"
		}
	}
}

// ActiveVerification returns the verification branch the draft selects,
// trimmed, with an unset type treated as GST.
func ActiveVerification(d Draft) string {
	vt := strings.TrimSpace(d.VerificationType)
	if vt == "" {
		return VerificationGST
	}
	return vt
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
