package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vendor-onboarding/internal/common/errors"
	commonhttp "vendor-onboarding/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

type CRMClient struct {
	oauthToken string
	baseURL    string
	httpClient *commonhttp.Client
}

// Account is a vendor organisation in the CRM Accounts module. Vendor_ID
// and GSTIN are custom fields configured on the module.
type Account struct {
	ID             string `json:"id,omitempty"`
	AccountName    string `json:"Account_Name"`
	AccountType    string `json:"Account_Type,omitempty"`
	Email          string `json:"Email,omitempty"`
	BillingStreet  string `json:"Billing_Street,omitempty"`
	BillingCity    string `json:"Billing_City,omitempty"`
	BillingState   string `json:"Billing_State,omitempty"`
	BillingCode    string `json:"Billing_Code,omitempty"`
	BillingCountry string `json:"Billing_Country,omitempty"`
	VendorID       string `json:"Vendor_ID"`
	GSTIN          string `json:"GSTIN,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Action  string `json:"action"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string, httpClient *commonhttp.Client) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = commonhttp.NewClient(30 * time.Second)
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// UpsertAccount creates the account or updates the one with the same
// Vendor_ID, and returns the CRM record id.
func (c *CRMClient) UpsertAccount(ctx context.Context, account *Account) (string, error) {
	url := fmt.Sprintf("%s/Accounts/upsert", c.baseURL)

	payload := map[string]interface{}{
		"data":                   []Account{*account},
		"duplicate_check_fields": []string{"Vendor_ID"},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal account: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.NewExternalServiceError("zoho", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewExternalServiceError("zoho", fmt.Errorf("read response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", errors.NewAuthenticationError(fmt.Sprintf("zoho rejected the oauth token: %s", string(body)))
	case resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK:
		se := errors.NewExternalServiceError("zoho",
			fmt.Errorf("account upsert returned status %d: %s", resp.StatusCode, string(body)))
		se.StatusCode = resp.StatusCode
		se.Retryable = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", se
	}

	var result upsertResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.NewExternalServiceError("zoho", fmt.Errorf("unmarshal response: %w", err))
	}
	if len(result.Data) == 0 {
		return "", errors.NewExternalServiceError("zoho", fmt.Errorf("no data in response"))
	}
	if result.Data[0].Status != "success" {
		se := errors.NewExternalServiceError("zoho",
			fmt.Errorf("account upsert failed: %s (%s)", result.Data[0].Message, result.Data[0].Code))
		se.Retryable = false
		return "", se
	}

	return result.Data[0].Details.ID, nil
}
