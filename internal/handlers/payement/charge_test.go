package payement

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChargeRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.POST("/api/charge", ChargeCard)
	return r
}

func postCharge(t *testing.T, r *gin.Engine, payload map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/charge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestMockChargeWithTokenSucceeds(t *testing.T) {
	t.Setenv("CHARGE_MODE", "mock")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"token":         "tok_test_visa",
		"amountInCents": 9998,
	})

	require.Equal(t, http.StatusOK, w.Code)
	out := decodeBody(t, w)
	assert.Equal(t, true, out["success"])

	data := out["data"].(map[string]interface{})
	assert.Equal(t, "Success", data["status"])
	assert.Equal(t, float64(9998), data["amountInCents"])
	assert.Equal(t, "ZAR", data["currency"])
}

func TestMockChargeWithFlatCardFieldsSucceeds(t *testing.T) {
	t.Setenv("CHARGE_MODE", "mock")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"cardNumber":    "4111111111111111",
		"expMonth":      "12",
		"expYear":       "2030",
		"cvv":           "123",
		"amountInCents": 5000,
	})

	require.Equal(t, http.StatusOK, w.Code)
	out := decodeBody(t, w)
	assert.Equal(t, true, out["success"])

	data := out["data"].(map[string]interface{})
	assert.Equal(t, "Success", data["status"])
	assert.Equal(t, float64(5000), data["amountInCents"])
	assert.Equal(t, "ZAR", data["currency"])
}

func TestChargeFlatCardMissingCVVIsRejected(t *testing.T) {
	t.Setenv("CHARGE_MODE", "mock")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"cardNumber":    "4111111111111111",
		"expMonth":      "12",
		"expYear":       "2030",
		"amountInCents": 5000,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", decodeBody(t, w)["message"])
}

func TestLiveChargeForwardsFlatCardFields(t *testing.T) {
	var upstream map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&upstream)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"successful"}`))
	}))
	defer srv.Close()

	t.Setenv("CHARGE_MODE", "live")
	t.Setenv("CHARGE_PROCESSOR_URL", srv.URL)
	t.Setenv("CHARGE_SECRET_KEY", "sk_live_abc")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"cardNumber":    "4111111111111111",
		"expMonth":      "12",
		"expYear":       "2030",
		"cvv":           "123",
		"amountInCents": 5000,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4111111111111111", upstream["cardNumber"])
	assert.Equal(t, "12", upstream["expMonth"])
	assert.Equal(t, "2030", upstream["expYear"])
	assert.Equal(t, "123", upstream["cvv"])
	assert.Equal(t, float64(5000), upstream["amountInCents"])
	assert.Equal(t, "ZAR", upstream["currency"])
}

func TestMockChargeWithRawCardSucceeds(t *testing.T) {
	t.Setenv("CHARGE_MODE", "mock")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"card": map[string]interface{}{
			"number":      "4111111111111111",
			"expiryMonth": 12,
			"expiryYear":  2028,
			"cvv":         "123",
		},
		"amountInCents": 4999,
	})

	require.Equal(t, http.StatusOK, w.Code)
	out := decodeBody(t, w)
	assert.Equal(t, true, out["success"])
}

func TestChargeWithoutAmountIsRejected(t *testing.T) {
	var upstream int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&upstream, 1)
	}))
	defer srv.Close()

	t.Setenv("CHARGE_MODE", "live")
	t.Setenv("CHARGE_PROCESSOR_URL", srv.URL)
	t.Setenv("CHARGE_SECRET_KEY", "sk_test")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"token": "tok_test_visa",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	out := decodeBody(t, w)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Missing required fields", out["message"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&upstream), "rien ne doit partir vers le processeur")
}

func TestChargeWithIncompleteCardIsRejected(t *testing.T) {
	t.Setenv("CHARGE_MODE", "mock")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"card": map[string]interface{}{
			"number":      "4111111111111111",
			"expiryMonth": 12,
			"expiryYear":  2028,
		},
		"amountInCents": 4999,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", decodeBody(t, w)["message"])
}

func TestChargeWrongMethodGets405(t *testing.T) {
	r := newChargeRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/charge", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestLiveChargeForwardsSecretHeader(t *testing.T) {
	var gotSecret, gotAuthSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("X-Secret-Key")
		gotAuthSecret = r.Header.Get("X-Auth-Secret-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"successful","id":"ch_123"}`))
	}))
	defer srv.Close()

	t.Setenv("CHARGE_MODE", "live")
	t.Setenv("CHARGE_PROCESSOR_URL", srv.URL)
	t.Setenv("CHARGE_SECRET_KEY", "sk_live_abc")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"token":         "tok_test_visa",
		"amountInCents": 12999,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sk_live_abc", gotSecret)
	assert.Empty(t, gotAuthSecret)

	out := decodeBody(t, w)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "successful", data["status"])
}

func TestLiveChargeAlternateHeaderName(t *testing.T) {
	var gotAuthSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthSecret = r.Header.Get("X-Auth-Secret-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"successful"}`))
	}))
	defer srv.Close()

	t.Setenv("CHARGE_MODE", "live")
	t.Setenv("CHARGE_PROCESSOR_URL", srv.URL)
	t.Setenv("CHARGE_SECRET_KEY", "sk_live_abc")
	t.Setenv("CHARGE_SECRET_HEADER", "X-Auth-Secret-Key")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"token":         "tok_test_visa",
		"amountInCents": 100,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sk_live_abc", gotAuthSecret)
}

func TestLiveChargeProcessorErrorIsMapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"Card declined"}`))
	}))
	defer srv.Close()

	t.Setenv("CHARGE_MODE", "live")
	t.Setenv("CHARGE_PROCESSOR_URL", srv.URL)
	t.Setenv("CHARGE_SECRET_KEY", "sk_live_abc")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"token":         "tok_test_visa",
		"amountInCents": 100,
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	out := decodeBody(t, w)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Card declined", out["message"])
}

func TestLiveChargeWithoutSecretFailsGenerically(t *testing.T) {
	t.Setenv("CHARGE_MODE", "live")
	t.Setenv("CHARGE_SECRET_KEY", "")
	r := newChargeRouter()

	w := postCharge(t, r, map[string]interface{}{
		"token":         "tok_test_visa",
		"amountInCents": 100,
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Payment processor not configured", decodeBody(t, w)["message"])
}
