package vendorapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "vendor-onboarding/internal/common/errors"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/onboarding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		BaseURL:         srv.URL + "/api/",
		Timeout:         2 * time.Second,
		FetchRetries:    3,
		RetryBackoff:    time.Millisecond,
		ValidateSchemas: true,
	}, nil, logger.NewTestLogger(t))
	return c.WithToken("vendor-token"), srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// ============================================================================
// FetchDraft
// ============================================================================

func TestFetchDraft_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/vendor/profile", r.URL.Path)
		assert.Equal(t, "Bearer vendor-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, `{
			"success": true,
			"data": {
				"vendor": {"vendorType": "RETAILER", "businessName": "Acme", "businessAddressLine2": null},
				"completion": {"steps": {"1": true, "2": true, "3": false}, "percentage": 66.7}
			}
		}`)
	})

	profile, err := client.FetchDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RETAILER", profile.Draft.VendorType)
	assert.Equal(t, "Acme", profile.Draft.BusinessName)
	require.NotNil(t, profile.Completion)
	assert.Equal(t, map[onboarding.Step]bool{1: true, 2: true, 3: false}, profile.Completion.Steps)
	assert.Equal(t, 66.7, profile.Completion.Percentage)
}

func TestFetchDraft_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"404", http.StatusNotFound, `{"success":false,"error":{"code":"NOT_FOUND","message":"no profile"}}`},
		{"empty profile", http.StatusOK, `{"success":true,"data":{"vendor":null,"completion":null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := client.FetchDraft(context.Background())
			assert.ErrorIs(t, err, onboarding.ErrDraftNotFound)
		})
	}
}

func TestFetchDraft_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, `{"success":false,"error":{"code":"MAINTENANCE","message":"back soon"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"vendor":{"city":"Pune"}}}`)
	})

	profile, err := client.FetchDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Pune", profile.Draft.City)
	assert.Nil(t, profile.Completion)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDraft_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadGateway, `{}`)
	})

	_, err := client.FetchDraft(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVendorAPIServerError))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDraft_DoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"success":false,"error":{"code":"TOKEN_EXPIRED","message":"expired"}}`)
	})

	_, err := client.FetchDraft(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthenticationFailure))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TokenSourceIsReadPerCall(t *testing.T) {
	var seen []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusNotFound, `{"success":false}`)
	})

	var token atomic.Value
	token.Store("first")
	refreshing := client.WithTokenSource(func() string { return token.Load().(string) })

	_, _ = refreshing.FetchDraft(context.Background())
	token.Store("second")
	_, _ = refreshing.FetchDraft(context.Background())

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, seen)
}

// ============================================================================
// Step submissions
// ============================================================================

func TestSubmitSteps_PayloadAndCompletion(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"completion":{"steps":{"1":true,"2":true,"3":true},"percentage":100}}}`)
	})

	res, err := client.SubmitVerification(context.Background(), onboarding.VerificationPayload{
		VerificationType: onboarding.VerificationManual,
		IDType:           onboarding.IDTypePAN,
		IDNumber:         "ABCDE1234F",
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/vendor/onboarding/step-3", gotPath)
	assert.Equal(t, map[string]interface{}{
		"verificationType": "MANUAL",
		"idType":           "PAN",
		"idNumber":         "ABCDE1234F",
	}, gotBody)
	assert.Equal(t, 100.0, res.Completion.Percentage)
	assert.True(t, res.Completion.Done(onboarding.StepVerification))
}

func TestSubmit_NoCompletionInResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vendor/onboarding/step-1", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	res, err := client.SubmitVendorType(context.Background(), onboarding.VendorTypePayload{VendorType: "RETAILER"})
	require.NoError(t, err)
	assert.Nil(t, res.Completion)
}

func TestSubmit_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  apperrors.ErrorCode
		retryable bool
		message   string
	}{
		{"rejected", http.StatusUnprocessableEntity, `{"success":false,"error":{"code":"POSTAL_MISMATCH","message":"Postal code does not match state"}}`,
			apperrors.ErrCodeStepRejected, false, "Postal code does not match state"},
		{"server error", http.StatusInternalServerError, `oops`, apperrors.ErrCodeVendorAPIServerError, true, ""},
		{"success false on 200", http.StatusOK, `{"success":false,"error":{"code":"DUPLICATE","message":"Already submitted"}}`,
			apperrors.ErrCodeStepRejected, false, "Already submitted"},
		{"not json", http.StatusOK, `<html></html>`, apperrors.ErrCodeMalformedResponse, true, ""},
		{"schema violation", http.StatusOK, `{"success":true,"data":{"completion":{"steps":{"1":"yes"},"percentage":40}}}`,
			apperrors.ErrCodeMalformedResponse, true, ""},
		{"percentage out of range", http.StatusOK, `{"success":true,"data":{"completion":{"steps":{},"percentage":140}}}`,
			apperrors.ErrCodeMalformedResponse, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.SubmitBusinessInfo(context.Background(), onboarding.BusinessInfoPayload{PostalCode: "560001"})
			stdErr := apperrors.Normalize(err)
			require.NotNil(t, stdErr)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			if tt.message != "" {
				assert.Equal(t, tt.message, stdErr.Message)
			}
			assert.Equal(t, int32(1), calls.Load(), "submissions are never retried")
		})
	}
}

func TestSubmit_TransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	slow := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil, logger.NewNoOpLogger())
	_, err := slow.SubmitVendorType(context.Background(), onboarding.VendorTypePayload{VendorType: "RETAILER"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVendorAPITimeout), "%v", err)

	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()
	unreachable := NewClient(Config{BaseURL: url, Timeout: time.Second}, nil, logger.NewNoOpLogger())
	_, err = unreachable.SubmitVendorType(context.Background(), onboarding.VendorTypePayload{VendorType: "RETAILER"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVendorAPIUnavailable), "%v", err)
}

func TestClient_DrivesController(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/vendor/profile":
			writeJSON(w, http.StatusNotFound, `{"success":false}`)
		default:
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"completion":{"steps":{"1":true},"percentage":33.3}}}`)
		}
	})

	c := onboarding.NewController(client)
	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.Edit(onboarding.FieldVendorType, "manufacturer"))
	outcome, err := c.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, onboarding.OutcomeAdvanced, outcome)
	assert.Equal(t, 33.3, c.Snapshot().Completion.Percentage)
}
