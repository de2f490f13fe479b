// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendor-onboarding/internal/common/auth"
	"vendor-onboarding/internal/common/config"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/host"
	"vendor-onboarding/internal/platform"
)

const (
	jwtSecret = "e2e-secret"
	issuer    = "vendor-portal"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// ==========================
// 1. Fake vendor API
// ==========================

// vendorAPI is an in-memory stand-in for the vendor portal: one saved
// record and completion per bearer token.
type vendorAPI struct {
	mu          sync.Mutex
	records     map[string]map[string]string
	steps       map[string]map[int]bool
	submissions []int
	failNext    int
}

func newVendorAPI() *vendorAPI {
	return &vendorAPI{
		records: make(map[string]map[string]string),
		steps:   make(map[string]map[int]bool),
	}
}

func (v *vendorAPI) seed(token string, fields map[string]string, steps ...int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records[token] = fields
	v.steps[token] = map[int]bool{}
	for _, s := range steps {
		v.steps[token][s] = true
	}
}

func (v *vendorAPI) submitted() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.submissions...)
}

func (v *vendorAPI) field(token, name string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.records[token][name]
	return val, ok
}

func (v *vendorAPI) completionLocked(token string) map[string]interface{} {
	steps := map[string]bool{}
	done := 0
	for s := 1; s <= 3; s++ {
		steps[strconv.Itoa(s)] = v.steps[token][s]
		if v.steps[token][s] {
			done++
		}
	}
	return map[string]interface{}{
		"steps":      steps,
		"percentage": float64(done*1000/3) / 10,
	}
}

func (v *vendorAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "UNAUTHORIZED", "message": "missing token"},
		})
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/vendor/profile":
		record, ok := v.records[token]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"vendor": record, "completion": v.completionLocked(token)},
		})

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/vendor/onboarding/step-"):
		step, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/vendor/onboarding/step-"))
		if err != nil || step < 1 || step > 3 {
			http.NotFound(w, r)
			return
		}
		if v.failNext > 0 {
			v.failNext--
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"success": false,
				"error":   map[string]string{"code": "MAINTENANCE", "message": "try again shortly"},
			})
			return
		}

		var fields map[string]string
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false})
			return
		}
		if v.records[token] == nil {
			v.records[token] = map[string]string{}
			v.steps[token] = map[int]bool{}
		}
		for k, val := range fields {
			v.records[token][k] = val
		}
		v.steps[token][step] = true
		v.submissions = append(v.submissions, step)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"completion": v.completionLocked(token)},
		})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ==========================
// 2. Host wiring
// ==========================

type stack struct {
	api      *vendorAPI
	redis    *miniredis.Miniredis
	platform *platform.Platform
	sessions *host.SessionManager
	server   *httptest.Server
	verifier *auth.JWTVerifier
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	api := newVendorAPI()
	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)

	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.VendorAPI = config.VendorAPIConfig{
		BaseURL:         apiServer.URL,
		Timeout:         5000,
		FetchRetries:    2,
		ValidateSchemas: true,
	}
	cfg.Auth.Mode = "jwt"
	cfg.Auth.JWT.Secret = jwtSecret
	cfg.Auth.JWT.Issuer = issuer
	cfg.Database.Redis = config.RedisConfig{Address: mr.Addr(), KeyPrefix: "onboarding"}
	cfg.Completion.Sinks = map[string]config.SinkConfig{
		config.SinkFlag: {Enabled: true, Timeout: 2000},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p, err := platform.New(ctx, cfg, log, platform.Options{ConnectRetries: 1, ConnectDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	require.NotNil(t, p.Flags)

	sessions := host.NewSessionManager(p.StoreFactory(), host.SessionConfig{
		IdleTimeout: time.Minute,
		CallTimeout: 5 * time.Second,
	}, log, host.WithDispatcher(p.Dispatcher), host.WithCompletionChecker(p.Flags))
	t.Cleanup(sessions.CloseAll)

	router := host.NewRouter(host.RouterConfig{
		Mode:    gin.TestMode,
		Checks:  p.ReadinessChecks(),
		Version: "e2e",
	}, host.NewHandler(sessions, log), p.Verifier(), log)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &stack{
		api:      api,
		redis:    mr,
		platform: p,
		sessions: sessions,
		server:   server,
		verifier: auth.NewJWTVerifier(jwtSecret, issuer),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type snapshot struct {
	CurrentStep  int               `json:"currentStep"`
	Phase        string            `json:"phase"`
	Draft        map[string]string `json:"draft"`
	Errors       map[string]string `json:"errors"`
	FurthestStep int               `json:"furthestStep"`
	Completion   struct {
		Steps      map[string]bool `json:"steps"`
		Percentage float64         `json:"percentage"`
	} `json:"completion"`
	Failure *struct {
		Code      string `json:"code"`
		Retryable bool   `json:"retryable"`
	} `json:"failure"`
}

type advanceResult struct {
	Outcome  string   `json:"outcome"`
	Snapshot snapshot `json:"snapshot"`
}

func (s *stack) token(t *testing.T, vendorID string) string {
	t.Helper()
	tok, err := s.verifier.Sign(vendorID, vendorID+"@acme.in", time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *stack) call(t *testing.T, token, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+"/api/v1/onboarding"+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeInto(t *testing.T, raw json.RawMessage, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out))
}

// ==========================
// 3. Flows
// ==========================

func TestE2E_FullOnboarding(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, "vendor-42")

	status, env := s.call(t, tok, http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, status)
	var snap snapshot
	decodeInto(t, env.Data, &snap)
	assert.Equal(t, 1, snap.CurrentStep)
	assert.Equal(t, "ready", snap.Phase)
	assert.Equal(t, "GST", snap.Draft["verificationType"])

	steps := []map[string]string{
		{"vendorType": "manufacturer"},
		{
			"businessName":         "Acme Traders",
			"businessAddressLine1": "12 MG Road",
			"city":                 "Pune",
			"state":                "Maharashtra",
			"postalCode":           "411001",
		},
		{"gstNumber": "27AAPFU0939F1ZV"},
	}
	wantOutcomes := []string{"advanced", "advanced", "completed"}

	for i, fields := range steps {
		status, _ = s.call(t, tok, http.MethodPatch, "/fields", map[string]interface{}{"fields": fields})
		require.Equal(t, http.StatusOK, status, "edit step %d", i+1)

		status, env = s.call(t, tok, http.MethodPost, "/advance", nil)
		require.Equal(t, http.StatusOK, status, "advance step %d", i+1)
		var res advanceResult
		decodeInto(t, env.Data, &res)
		assert.Equal(t, wantOutcomes[i], res.Outcome)
	}

	assert.Equal(t, []int{1, 2, 3}, s.api.submitted())
	vt, _ := s.api.field(tok, "vendorType")
	assert.Equal(t, "MANUFACTURER", vt)
	pc, _ := s.api.field(tok, "postalCode")
	assert.Equal(t, "411001", pc)
	_, hasID := s.api.field(tok, "idNumber")
	assert.False(t, hasID, "inactive verification fields are never sent")

	done, err := s.platform.Flags.IsCompleted(context.Background(), "vendor-42")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 0, s.sessions.Len())

	status, env = s.call(t, tok, http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"completed": true}`, string(env.Data))

	status, env = s.call(t, tok, http.MethodPost, "/advance", nil)
	assert.Equal(t, http.StatusGone, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ONBOARDING_COMPLETED", env.Error.Code)
}

func TestE2E_ResumeSavedDraft(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, "vendor-7")
	s.api.seed(tok, map[string]string{
		"vendorType":           "RETAILER",
		"businessName":         "Sharma Stores",
		"businessAddressLine1": "4 Station Road",
		"city":                 "Indore",
		"state":                "Madhya Pradesh",
		"postalCode":           "452001",
	}, 1, 2)

	status, env := s.call(t, tok, http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, status)
	var snap snapshot
	decodeInto(t, env.Data, &snap)

	assert.Equal(t, 1, snap.CurrentStep, "bootstrap always starts at the first step")
	assert.Equal(t, 3, snap.FurthestStep)
	assert.Equal(t, "Sharma Stores", snap.Draft["businessName"])
	assert.InDelta(t, 66.6, snap.Completion.Percentage, 0.1)
	assert.True(t, snap.Completion.Steps["2"])
}

func TestE2E_ValidationAndUpstreamFailure(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, "vendor-9")

	status, env := s.call(t, tok, http.MethodPost, "/advance", nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Empty(t, s.api.submitted())

	status, _ = s.call(t, tok, http.MethodPatch, "/fields", map[string]interface{}{
		"fields": map[string]string{"vendorType": "WHOLESALER"},
	})
	require.Equal(t, http.StatusOK, status)

	s.api.mu.Lock()
	s.api.failNext = 1
	s.api.mu.Unlock()

	status, env = s.call(t, tok, http.MethodPost, "/advance", nil)
	require.Equal(t, http.StatusBadGateway, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VENDOR_API_SERVER_ERROR", env.Error.Code)

	status, env = s.call(t, tok, http.MethodPost, "/advance", nil)
	require.Equal(t, http.StatusOK, status)
	var res advanceResult
	decodeInto(t, env.Data, &res)
	assert.Equal(t, "advanced", res.Outcome)
	assert.Equal(t, 2, res.Snapshot.CurrentStep)
	assert.Nil(t, res.Snapshot.Failure)

	status, env = s.call(t, tok, http.MethodPost, "/previous", nil)
	require.Equal(t, http.StatusOK, status)
	var snap snapshot
	decodeInto(t, env.Data, &snap)
	assert.Equal(t, 1, snap.CurrentStep)
	assert.Equal(t, "WHOLESALER", snap.Draft["vendorType"])
}

func TestE2E_Probes(t *testing.T) {
	s := newStack(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(s.server.URL + path)
		require.NoError(t, err, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}

	s.redis.Close()
	resp, err := http.Get(s.server.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
