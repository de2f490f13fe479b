package vendorapi

import "vendor-onboarding/internal/common/validation"

var nullableString = validation.Property{Type: []string{"string", "null"}}

var completionProperty = validation.Property{
	Type:     "object",
	Required: []string{"steps", "percentage"},
	Properties: map[string]validation.Property{
		"steps": {
			Type: "object",
			PatternProperties: map[string]validation.Property{
				"^[1-3]$": {Type: "boolean"},
			},
		},
		"percentage": {Type: "number", Minimum: validation.Float(0), Maximum: validation.Float(100)},
	},
}

var nullableCompletion = func() validation.Property {
	p := completionProperty
	p.Type = []string{"object", "null"}
	return p
}()

var vendorProperty = validation.Property{
	Type: []string{"object", "null"},
	Properties: map[string]validation.Property{
		"vendorType":           nullableString,
		"businessName":         nullableString,
		"businessAddressLine1": nullableString,
		"businessAddressLine2": nullableString,
		"city":                 nullableString,
		"state":                nullableString,
		"postalCode":           nullableString,
		"verificationType":     nullableString,
		"gstNumber":            nullableString,
		"idType":               nullableString,
		"idNumber":             nullableString,
	},
}

var profileResponseSchema = validation.MustCompile(validation.JSONSchema{
	Type:     "object",
	Required: []string{"success", "data"},
	Properties: map[string]validation.Property{
		"success": {Type: "boolean", Enum: []interface{}{true}},
		"data": {
			Type: "object",
			Properties: map[string]validation.Property{
				"vendor":     vendorProperty,
				"completion": nullableCompletion,
			},
		},
	},
})

var stepResponseSchema = validation.MustCompile(validation.JSONSchema{
	Type:     "object",
	Required: []string{"success"},
	Properties: map[string]validation.Property{
		"success": {Type: "boolean", Enum: []interface{}{true}},
		"data": {
			Type: []string{"object", "null"},
			Properties: map[string]validation.Property{
				"completion": nullableCompletion,
			},
		},
	},
})
