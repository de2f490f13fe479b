package vendorapi

import (
	"encoding/json"
	"strconv"

	"vendor-onboarding/internal/onboarding"
)

// envelope is the response wrapper every vendor API endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wireCompletion struct {
	Steps      map[string]bool `json:"steps"`
	Percentage float64         `json:"percentage"`
}

type profileData struct {
	Vendor     *onboarding.Draft `json:"vendor"`
	Completion *wireCompletion   `json:"completion"`
}

type stepData struct {
	Completion *wireCompletion `json:"completion"`
}

func (w *wireCompletion) toDomain() *onboarding.Completion {
	if w == nil {
		return nil
	}
	c := onboarding.NewCompletion()
	for key, done := range w.Steps {
		n, err := strconv.Atoi(key)
		if err != nil || !onboarding.Step(n).Valid() {
			continue
		}
		c.Steps[onboarding.Step(n)] = done
	}
	c.Percentage = w.Percentage
	return &c
}
