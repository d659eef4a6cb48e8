package acquirer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/paygo-service/pkg/errors"
	"github.com/kevin07696/paygo-service/pkg/resilience"
	"github.com/kevin07696/paygo-service/test/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCard() *ports.CardData {
	return &ports.CardData{Number: "4272 0012 3456 0366", ExpiryMonth: 3, ExpiryYear: 2029, CVV: "123"}
}

func cardCharge() ports.ChargeRequest {
	return ports.ChargeRequest{
		Card:          testCard(),
		TransactionID: "TXN_T1_1700000000_abcdef12",
		Amount:        decimal.RequireFromString("123.45"),
	}
}

func TestSBP_Charge_Success(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment", r.URL.Path)
		assert.Equal(t, "Bearer sbp-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"status":"success","transaction_id":"SBP-1","receipt_number":"R-77","card_mask":"**** 1111"}`))
	}))
	defer srv.Close()

	b := NewSBP(Config{BaseURL: srv.URL, APIKey: "sbp-key", MerchantID: "M1"}, srv.Client(), mocks.NewMockLogger())
	res, err := b.Charge(context.Background(), ports.ChargeRequest{
		TransactionID: "TXN_T1_1_aa",
		Amount:        decimal.NewFromInt(100),
		QRID:          "QR-1",
		Phone:         "79001234567",
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "SBP-1", res.BankTransactionID)
	assert.Equal(t, "R-77", res.ReceiptNumber)
	assert.Equal(t, "**** 1111", res.CardMask)
	assert.Contains(t, res.BankResponse, `"status":"success"`)

	assert.Equal(t, "M1", body["merchant_id"])
	assert.Equal(t, float64(100), body["amount"])
	assert.Equal(t, "RUB", body["currency"])
	assert.Equal(t, "TXN_T1_1_aa", body["order_id"])
	assert.Equal(t, "QR-1", body["qr_id"])
	assert.Equal(t, "79001234567", body["customer_phone"])
	assert.Equal(t, defaultDescription, body["description"])
}

func TestSBP_Charge_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"rejected","message":"limit exceeded"}`))
	}))
	defer srv.Close()

	b := NewSBP(Config{BaseURL: srv.URL}, srv.Client(), mocks.NewMockLogger())
	res, err := b.Charge(context.Background(), ports.ChargeRequest{Amount: decimal.NewFromInt(1)})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "limit exceeded", res.ErrorMessage)
	assert.NotEmpty(t, res.BankResponse)
}

func TestSBP_Charge_SuccessSentinelNeedsHTTP200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	b := NewSBP(Config{BaseURL: srv.URL}, srv.Client(), mocks.NewMockLogger())
	res, err := b.Charge(context.Background(), ports.ChargeRequest{Amount: decimal.NewFromInt(1)})

	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestVTB_Charge_WireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment", r.URL.Path)
		assert.Equal(t, "Bearer vtb-key", r.Header.Get("Authorization"))

		var req vtbRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(12345), req.Amount)
		assert.Equal(t, "RUB", req.Currency)
		assert.Equal(t, "4272001234560366", req.CardData.PAN)
		assert.Equal(t, 3, req.CardData.ExpMonth)
		assert.Equal(t, 2029, req.CardData.ExpYear)
		assert.Equal(t, "123", req.CardData.CVV)

		_, _ = w.Write([]byte(`{"status":"approved","transaction_id":"V-1","receipt_id":9001}`))
	}))
	defer srv.Close()

	b := NewVTB(Config{BaseURL: srv.URL, APIKey: "vtb-key"}, srv.Client(), mocks.NewMockLogger())
	res, err := b.Charge(context.Background(), cardCharge())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "V-1", res.BankTransactionID)
	assert.Equal(t, "VTB9001", res.ReceiptNumber)
	assert.Equal(t, "**** **** **** 0366", res.CardMask)
}

func TestVTB_Charge_RequiresCard(t *testing.T) {
	client := mocks.NewMockHTTPClient(nil)
	b := NewVTB(Config{BaseURL: "http://vtb.invalid"}, client, mocks.NewMockLogger())

	_, err := b.Charge(context.Background(), ports.ChargeRequest{Amount: decimal.NewFromInt(1)})
	assert.True(t, domain.IsValidationError(err))
	assert.Equal(t, 0, client.CallCount())
}

func TestAlfa_Charge_WireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/payment.do", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(raw))
		assert.NoError(t, err)
		assert.Equal(t, "M-ALFA", form.Get("merchantId"))
		assert.Equal(t, "12345", form.Get("amount"))
		assert.Equal(t, "643", form.Get("currency"))
		assert.Equal(t, "0329", form.Get("expiry"))
		assert.Equal(t, "123", form.Get("cvc"))
		assert.Equal(t, "TXN_T1_1700000000_abcdef12", form.Get("orderNumber"))

		_, _ = w.Write([]byte(`{"errorCode":0,"orderId":"ORD-5"}`))
	}))
	defer srv.Close()

	b := NewAlfa(Config{BaseURL: srv.URL, MerchantID: "M-ALFA"}, srv.Client(), mocks.NewMockLogger())
	res, err := b.Charge(context.Background(), cardCharge())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ORD-5", res.BankTransactionID)
	assert.Equal(t, "ALFAORD-5", res.ReceiptNumber)
}

func TestAlfa_Charge_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errorCode":"5","errorMessage":"insufficient funds"}`))
	}))
	defer srv.Close()

	b := NewAlfa(Config{BaseURL: srv.URL}, srv.Client(), mocks.NewMockLogger())
	res, err := b.Charge(context.Background(), cardCharge())

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient funds", res.ErrorMessage)
}

func TestCentrinvest_Charge_WireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payment", r.URL.Path)
		assert.Equal(t, "ci-key", r.Header.Get("X-API-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 123.45, body["amount"])
		assert.Equal(t, "TXN_T1_1700000000_abcdef12", body["transaction_id"])
		cardBody := body["card"].(map[string]interface{})
		assert.Equal(t, "4272001234560366", cardBody["number"])

		_, _ = w.Write([]byte(`{"result":"success","id":"CI-9","receipt":"77"}`))
	}))
	defer srv.Close()

	b := NewCentrinvest(Config{BaseURL: srv.URL, APIKey: "ci-key"}, srv.Client(), mocks.NewMockLogger())
	res, err := b.Charge(context.Background(), cardCharge())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "CI-9", res.BankTransactionID)
	assert.Equal(t, "CI77", res.ReceiptNumber)
}

func TestCentrinvest_Charge_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"result":"fail","error":"card blocked"}`))
	}))
	defer srv.Close()

	b := NewCentrinvest(Config{BaseURL: srv.URL}, srv.Client(), mocks.NewMockLogger())
	res, err := b.Charge(context.Background(), cardCharge())

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "card blocked", res.ErrorMessage)
}

func TestTransport_ServerErrorIsPaymentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"status":"error","trace":"VTB-502"}`))
	}))
	defer srv.Close()

	b := NewVTB(Config{BaseURL: srv.URL}, srv.Client(), mocks.NewMockLogger())
	_, err := b.Charge(context.Background(), cardCharge())

	var pe *pkgerrors.PaymentError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "GATEWAY_ERROR", pe.Code)
	assert.Equal(t, "vtb", pe.Acquirer)
	assert.Equal(t, `{"status":"error","trace":"VTB-502"}`, pe.RawResponse)
}

func TestTransport_UnreadableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	b := NewSBP(Config{BaseURL: srv.URL}, srv.Client(), mocks.NewMockLogger())
	_, err := b.Charge(context.Background(), ports.ChargeRequest{Amount: decimal.NewFromInt(1)})

	assert.Equal(t, pkgerrors.CategoryBadResponse, pkgerrors.CategoryOf(err))
	assert.Equal(t, `<html>maintenance</html>`, pkgerrors.RawResponseOf(err))
}

func TestTransport_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	b := NewSBP(Config{BaseURL: srv.URL}, srv.Client(), mocks.NewMockLogger(),
		WithTimeouts(&resilience.TimeoutConfig{Acquirer: 50 * time.Millisecond}))

	start := time.Now()
	_, err := b.Charge(context.Background(), ports.ChargeRequest{Amount: decimal.NewFromInt(1)})

	require.Error(t, err)
	assert.Equal(t, pkgerrors.CategoryTimeout, pkgerrors.CategoryOf(err))
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestTransport_NetworkError(t *testing.T) {
	client := mocks.NewMockHTTPClient(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	b := NewVTB(Config{BaseURL: "http://vtb.invalid"}, client, mocks.NewMockLogger())
	_, err := b.Charge(context.Background(), cardCharge())

	assert.Equal(t, pkgerrors.CategoryNetworkError, pkgerrors.CategoryOf(err))
}

func TestTransport_OpenBreakerSkipsBank(t *testing.T) {
	client := mocks.NewMockHTTPClient(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	b := NewVTB(Config{BaseURL: "http://vtb.invalid"}, client, mocks.NewMockLogger(),
		WithCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, Cooldown: time.Hour, MaxRequestsHalfOpen: 1}))

	for i := 0; i < 2; i++ {
		_, _ = b.Charge(context.Background(), cardCharge())
	}
	_, err := b.Charge(context.Background(), cardCharge())

	assert.Equal(t, pkgerrors.CategoryUnavailable, pkgerrors.CategoryOf(err))
	assert.Equal(t, 2, client.CallCount())
}

func TestTransport_DeclineDoesNotTripBreaker(t *testing.T) {
	client := mocks.NewMockHTTPClient(func(*http.Request) (*http.Response, error) {
		return mocks.Response(http.StatusOK, `{"status":"declined","message":"no"}`), nil
	})

	b := NewVTB(Config{BaseURL: "http://vtb.invalid"}, client, mocks.NewMockLogger(),
		WithCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Cooldown: time.Hour, MaxRequestsHalfOpen: 1}))

	for i := 0; i < 3; i++ {
		res, err := b.Charge(context.Background(), cardCharge())
		assert.NoError(t, err)
		assert.False(t, res.Success)
	}
	assert.Equal(t, 3, client.CallCount())
}
