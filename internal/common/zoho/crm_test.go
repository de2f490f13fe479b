package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vendor-onboarding/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertAccount_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v3/Accounts/upsert", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken tok", r.Header.Get("Authorization"))

		var body struct {
			Data      []Account `json:"data"`
			DupFields []string  `json:"duplicate_check_fields"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"Vendor_ID"}, body.DupFields)
		if assert.Len(t, body.Data, 1) {
			assert.Equal(t, "v-1", body.Data[0].VendorID)
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","action":"insert","status":"success","details":{"id":"5500001"}}]}`))
	}))
	defer server.Close()

	client := NewCRMClient(server.URL+"/crm/v3/", "tok", nil)
	id, err := client.UpsertAccount(context.Background(), &Account{AccountName: "Acme Traders", VendorID: "v-1"})

	require.NoError(t, err)
	assert.Equal(t, "5500001", id)
}

func TestUpsertAccount_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"code":"INVALID_TOKEN"}`, errors.ErrCodeAuthenticationFailure, false},
		{"server error", http.StatusServiceUnavailable, `oops`, errors.ErrCodeExternalService, true},
		{"rate limited", http.StatusTooManyRequests, `{}`, errors.ErrCodeExternalService, true},
		{"record error", http.StatusOK, `{"data":[{"code":"MANDATORY_NOT_FOUND","status":"error","message":"required field not found"}]}`, errors.ErrCodeExternalService, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewCRMClient(server.URL, "tok", nil).UpsertAccount(context.Background(), &Account{VendorID: "v-1"})
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode))
			assert.Equal(t, tt.retryable, errors.IsRetryable(err))
		})
	}
}
