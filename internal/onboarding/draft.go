package onboarding

import "fmt"

// Step is one independently validated and persisted onboarding phase.
type Step int

const (
	StepVendorType   Step = 1
	StepBusinessInfo Step = 2
	StepVerification Step = 3

	FirstStep    = StepVendorType
	TerminalStep = StepVerification
)

// Steps lists every step in order.
var Steps = []Step{StepVendorType, StepBusinessInfo, StepVerification}

func (s Step) Valid() bool {
	return s >= FirstStep && s <= TerminalStep
}

func (s Step) String() string {
	switch s {
	case StepVendorType:
		return "vendor-type"
	case StepBusinessInfo:
		return "business-info"
	case StepVerification:
		return "verification"
	default:
		return fmt.Sprintf("step-%d", int(s))
	}
}

const (
	VendorTypeManufacturer = "MANUFACTURER"
	VendorTypeWholesaler   = "WHOLESALER"
	VendorTypeRetailer     = "RETAILER"

	VerificationGST    = "GST"
	VerificationManual = "MANUAL"

	IDTypeAadhaar = "AADHAAR"
	IDTypePAN     = "PAN"
)

var VendorTypes = []string{VendorTypeManufacturer, VendorTypeWholesaler, VendorTypeRetailer}

// Field names a draft attribute. Values are the camelCase names used on the
// wire and in error maps.
type Field string

const (
	FieldVendorType           Field = "vendorType"
	FieldBusinessName         Field = "businessName"
	FieldBusinessAddressLine1 Field = "businessAddressLine1"
	FieldBusinessAddressLine2 Field = "businessAddressLine2"
	FieldCity                 Field = "city"
	FieldState                Field = "state"
	FieldPostalCode           Field = "postalCode"
	FieldVerificationType     Field = "verificationType"
	FieldGSTNumber            Field = "gstNumber"
	FieldIDType               Field = "idType"
	FieldIDNumber             Field = "idNumber"

	fieldStep Field = "step"
)

// Fields lists every editable draft field in form order.
var Fields = []Field{
	FieldVendorType,
	FieldBusinessName, FieldBusinessAddressLine1, FieldBusinessAddressLine2,
	FieldCity, FieldState, FieldPostalCode,
	FieldVerificationType, FieldGSTNumber, FieldIDType, FieldIDNumber,
}

// Fields belonging to each verification branch.
var (
	gstFields    = []Field{FieldGSTNumber}
	manualFields = []Field{FieldIDType, FieldIDNumber}
)

// ParseField resolves a wire field name.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Draft is the in-progress vendor record. Values are kept exactly as
// entered; normalization happens in validation and payload building.
type Draft struct {
	VendorType           string `json:"vendorType"`
	BusinessName         string `json:"businessName"`
	BusinessAddressLine1 string `json:"businessAddressLine1"`
	BusinessAddressLine2 string `json:"businessAddressLine2"`
	City                 string `json:"city"`
	State                string `json:"state"`
	PostalCode           string `json:"postalCode"`
	VerificationType     string `json:"verificationType"`
	GSTNumber            string `json:"gstNumber"`
	IDType               string `json:"idType"`
	IDNumber             string `json:"idNumber"`
}

// NewDraft returns an empty draft with the default verification branch.
func NewDraft() Draft {
	return Draft{VerificationType: VerificationGST}
}

func (d *Draft) ref(f Field) *string {
	switch f {
	case FieldVendorType:
		return &d.VendorType
	case FieldBusinessName:
		return &d.BusinessName
	case FieldBusinessAddressLine1:
		return &d.BusinessAddressLine1
	case FieldBusinessAddressLine2:
		return &d.BusinessAddressLine2
	case FieldCity:
		return &d.City
	case FieldState:
		return &d.State
	case FieldPostalCode:
		return &d.PostalCode
	case FieldVerificationType:
		return &d.VerificationType
	case FieldGSTNumber:
		return &d.GSTNumber
	case FieldIDType:
		return &d.IDType
	case FieldIDNumber:
		return &d.IDNumber
	}
	return nil
}

// Set assigns one field.
func (d *Draft) Set(f Field, value string) error {
	p := d.ref(f)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, string(f))
	}
	*p = value
	return nil
}

// Get reads one field; unknown fields read as empty.
func (d Draft) Get(f Field) string {
	if p := d.ref(f); p != nil {
		return *p
	}
	return ""
}

// withDefaults fills values a saved draft may omit.
func (d Draft) withDefaults() Draft {
	if d.VerificationType == "" {
		d.VerificationType = VerificationGST
	}
	return d
}
