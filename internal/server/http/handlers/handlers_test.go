package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/server/http/dto"
	"github.com/polkiloo/orderhub/internal/server/http/middleware"
	testhelpers "github.com/polkiloo/orderhub/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func performRequest(t *testing.T, method, path string, handler gin.HandlerFunc, setup func(*gin.Context), body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	route := path
	if i := bytes.IndexByte([]byte(path), '?'); i >= 0 {
		route = path[:i]
	}
	router.Handle(method, route, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asUser(id string) func(*gin.Context) {
	return func(c *gin.Context) { c.Set(middleware.UserIDContextKey, id) }
}

func TestCurrentPrincipalID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentPrincipalID(c); got != "" {
		t.Fatalf("expected empty id when not set, got %q", got)
	}

	c.Set(middleware.UserIDContextKey, "usr-42")
	if got := CurrentPrincipalID(c); got != "usr-42" {
		t.Fatalf("expected usr-42, got %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domainErrors.ErrUnauthenticated, http.StatusUnauthorized},
		{domainErrors.ErrInvalidPaymentToken, http.StatusUnauthorized},
		{domainErrors.ErrForbidden, http.StatusForbidden},
		{domainErrors.ErrUserBlocked, http.StatusForbidden},
		{fmt.Errorf("order 1: %w", domainErrors.ErrNotFound), http.StatusNotFound},
		{domainErrors.ErrNotInExpectedState, http.StatusConflict},
		{domainErrors.ErrMessageExpired, http.StatusConflict},
		{fmt.Errorf("%w: expected 100", domainErrors.ErrAmountMismatch), http.StatusBadRequest},
		{domainErrors.ErrPayloadTampered, http.StatusBadRequest},
		{domainErrors.ErrInvalidSignature, http.StatusBadRequest},
		{domainErrors.ErrMinimumOrder, http.StatusBadRequest},
		{domainErrors.ErrWalletDebitFailed, http.StatusBadRequest},
		{domainErrors.ErrLedgerTimeout, http.StatusServiceUnavailable},
		{domainErrors.ErrContractViolation, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestPaymentHandlerInitiate(t *testing.T) {
	var got model.InitiateRequest
	facade := testhelpers.OrderHubFacadeStub{
		InitiateFn: func(_ context.Context, req model.InitiateRequest) (*model.InitiateResult, error) {
			got = req
			return &model.InitiateResult{GatewayOrderID: "order_9", Amount: 52550, Currency: "INR", Token: "tok"}, nil
		},
	}
	handler := NewPaymentHandler(facade)

	body := []byte(`{"amount":"525.50","order_payload":{"order_id":"ord-1","user_id":"usr-1","item_total":50000}}`)
	w := performRequest(t, http.MethodPost, "/api/payment/initiate", handler.Initiate, asUser("usr-1"), body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.PrincipalID != "usr-1" || got.Payload.OrderID != "ord-1" || got.Amount.String() != "525.5" {
		t.Fatalf("unexpected request: %+v", got)
	}
	var result model.InitiateResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.GatewayOrderID != "order_9" || result.Token != "tok" {
		t.Fatalf("unexpected response: %+v", result)
	}

	w = performRequest(t, http.MethodPost, "/api/payment/initiate", handler.Initiate, asUser("usr-1"), []byte("{"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}

	facade.InitiateFn = func(context.Context, model.InitiateRequest) (*model.InitiateResult, error) {
		return nil, domainErrors.ErrForbidden
	}
	handler = NewPaymentHandler(facade)
	w = performRequest(t, http.MethodPost, "/api/payment/initiate", handler.Initiate, asUser("usr-2"), body, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestPaymentHandlerFinalizeStatusFromTag(t *testing.T) {
	cases := []struct {
		name   string
		result *model.FinalizeResult
		err    error
		want   int
	}{
		{"success", &model.FinalizeResult{Status: model.StatusSuccess}, nil, http.StatusOK},
		{"processing", &model.FinalizeResult{Status: model.StatusProcessing}, nil, http.StatusAccepted},
		{"price change", &model.FinalizeResult{Status: model.StatusPriceChange}, nil, http.StatusConflict},
		{"already failed", &model.FinalizeResult{Status: model.StatusAlreadyFailed}, nil, http.StatusConflict},
		{"item gone", &model.FinalizeResult{Status: model.StatusItemDeactivated}, nil, http.StatusGone},
		{"tampered", nil, domainErrors.ErrPayloadTampered, http.StatusBadRequest},
		{"contract violation", nil, domainErrors.ErrContractViolation, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got model.PaymentContext
			handler := NewPaymentHandler(testhelpers.OrderHubFacadeStub{
				FinalizeFn: func(_ context.Context, pc model.PaymentContext) (*model.FinalizeResult, error) {
					got = pc
					return tc.result, tc.err
				},
			})
			body := []byte(`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig","token":"tok","order_payload":{"order_id":"ord-1","user_id":"usr-1"}}`)
			w := performRequest(t, http.MethodPost, "/api/payment/finalize", handler.Finalize, asUser("usr-1"), body, nil)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			if got.GatewayOrderID != "order_1" || got.PaymentID != "pay_1" || got.Signature != "sig" || got.Token != "tok" || got.PrincipalID != "usr-1" {
				t.Fatalf("unexpected payment context: %+v", got)
			}
			if got.Trusted {
				t.Fatal("client finalization must never be trusted")
			}
		})
	}
}

func TestServerErrorsHideDetail(t *testing.T) {
	handler := NewPaymentHandler(testhelpers.OrderHubFacadeStub{
		FinalizeFn: func(context.Context, model.PaymentContext) (*model.FinalizeResult, error) {
			return nil, errors.New("pq: password authentication failed")
		},
	})
	w := performRequest(t, http.MethodPost, "/api/payment/finalize", handler.Finalize, asUser("usr-1"), []byte(`{}`), nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("expected generic error, got %q", resp.Error)
	}
}

func TestWebhookHandlerGateway(t *testing.T) {
	var gotRaw []byte
	var gotSig string
	facade := testhelpers.OrderHubFacadeStub{
		GatewayEventFn: func(_ context.Context, raw []byte, sig string) (*model.FinalizeResult, error) {
			gotRaw, gotSig = raw, sig
			return &model.FinalizeResult{Status: model.StatusSuccess}, nil
		},
	}
	handler := NewWebhookHandler(facade, "", discardLogger())

	body := []byte(`{"event":"order.paid",  "payload":{}}`)
	w := performRequest(t, http.MethodPost, "/webhook/razorpay", handler.Gateway, nil, body, map[string]string{GatewaySignatureHeader: "abc"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Equal(gotRaw, body) || gotSig != "abc" {
		t.Fatalf("raw body or signature not passed through: %q %q", gotRaw, gotSig)
	}
	var resp dto.GatewayWebhookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Status != "success" {
		t.Fatalf("unexpected response %+v", resp)
	}

	cases := map[error]int{
		domainErrors.ErrInvalidSignature: http.StatusBadRequest,
		domainErrors.ErrInvalidPayload:   http.StatusBadRequest,
		errors.New("ledger down"):        http.StatusInternalServerError,
	}
	for err, want := range cases {
		failing := NewWebhookHandler(testhelpers.OrderHubFacadeStub{
			GatewayEventFn: func(context.Context, []byte, string) (*model.FinalizeResult, error) { return nil, err },
		}, "", discardLogger())
		w := performRequest(t, http.MethodPost, "/webhook/razorpay", failing.Gateway, nil, body, nil)
		if w.Code != want {
			t.Fatalf("%v: expected %d, got %d", err, want, w.Code)
		}
	}
}

func TestWebhookHandlerMessagingVerify(t *testing.T) {
	facade := testhelpers.OrderHubFacadeStub{
		HandshakeFn: func(mode, token, challenge string) (string, error) {
			if mode != "subscribe" || token != "secret" {
				return "", domainErrors.ErrForbidden
			}
			return challenge, nil
		},
	}
	handler := NewWebhookHandler(facade, "", discardLogger())

	w := performRequest(t, http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", handler.MessagingVerify, nil, nil, nil)
	if w.Code != http.StatusOK || w.Body.String() != "42" {
		t.Fatalf("expected challenge echo, got %d %q", w.Code, w.Body.String())
	}

	w = performRequest(t, http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", handler.MessagingVerify, nil, nil, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func messagingBody(message string) []byte {
	return []byte(`{"entry":[{"changes":[{"value":{"messages":[` + message + `]}}]}]}`)
}

func TestWebhookHandlerMessagingReceive(t *testing.T) {
	var got []model.InboundMessage
	facade := testhelpers.OrderHubFacadeStub{
		InboundFn: func(_ context.Context, msg model.InboundMessage) error {
			got = append(got, msg)
			return nil
		},
	}
	handler := NewWebhookHandler(facade, "", discardLogger())

	bodies := [][]byte{
		messagingBody(`{"from":"919800000001","timestamp":"1700000000","type":"button","button":{"payload":"ACCEPT_ORDER:ord-1","text":"Accept"}}`),
		messagingBody(`{"from":"919800000001","type":"text","text":{"body":"482913"}}`),
		messagingBody(`{"from":"919800000001","type":"image"}`),
		[]byte(`{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.1"}]}}]}]}`),
	}
	for _, body := range bodies {
		w := performRequest(t, http.MethodPost, "/webhook/whatsapp", handler.MessagingReceive, nil, body, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 dispatched messages, got %d", len(got))
	}
	if got[0].ButtonPayload != "ACCEPT_ORDER:ord-1" || got[0].From != "919800000001" || got[0].Timestamp.Unix() != 1700000000 {
		t.Fatalf("unexpected button message %+v", got[0])
	}
	if got[1].Text != "482913" || got[1].ButtonPayload != "" {
		t.Fatalf("unexpected text message %+v", got[1])
	}

	unauthorized := NewWebhookHandler(testhelpers.OrderHubFacadeStub{
		InboundFn: func(context.Context, model.InboundMessage) error { return domainErrors.ErrVendorUnauthorized },
	}, "", discardLogger())
	w := performRequest(t, http.MethodPost, "/webhook/whatsapp", unauthorized.MessagingReceive, nil, bodies[0], nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	broken := NewWebhookHandler(testhelpers.OrderHubFacadeStub{
		InboundFn: func(context.Context, model.InboundMessage) error { return errors.New("db down") },
	}, "", discardLogger())
	w = performRequest(t, http.MethodPost, "/webhook/whatsapp", broken.MessagingReceive, nil, bodies[0], nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestWebhookHandlerOrderCreated(t *testing.T) {
	var calls []testhelpers.NotifyCall
	facade := testhelpers.OrderHubFacadeStub{
		NotifyPlacedFn: func(_ context.Context, id string, source model.TriggerSource) (bool, error) {
			calls = append(calls, testhelpers.NotifyCall{OrderID: id, Source: source})
			return len(calls) == 1, nil
		},
	}
	handler := NewWebhookHandler(facade, "hook-secret", discardLogger())
	body := []byte(`{"order_id":"ord-7"}`)
	authed := map[string]string{OrderWebhookTokenHeader: "hook-secret"}

	w := performRequest(t, http.MethodPost, "/webhook/order-created", handler.OrderCreated, nil, body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = performRequest(t, http.MethodPost, "/webhook/order-created", handler.OrderCreated, nil, body, authed)
	if w.Code != http.StatusOK || w.Body.String() != `{"sent":true}` {
		t.Fatalf("expected first delivery to send, got %d %s", w.Code, w.Body.String())
	}
	w = performRequest(t, http.MethodPost, "/webhook/order-created", handler.OrderCreated, nil, body, authed)
	if w.Code != http.StatusOK || w.Body.String() != `{"sent":false}` {
		t.Fatalf("expected redelivery to be a no-op, got %d %s", w.Code, w.Body.String())
	}
	if len(calls) != 2 || calls[0] != (testhelpers.NotifyCall{OrderID: "ord-7", Source: model.SourceWebhook}) {
		t.Fatalf("unexpected calls %+v", calls)
	}

	w = performRequest(t, http.MethodPost, "/webhook/order-created", handler.OrderCreated, nil, []byte(`{}`), authed)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without order id, got %d", w.Code)
	}

	failing := NewWebhookHandler(testhelpers.OrderHubFacadeStub{
		NotifyPlacedFn: func(context.Context, string, model.TriggerSource) (bool, error) {
			return false, domainErrors.ErrVendorUnauthorized
		},
	}, "", discardLogger())
	w = performRequest(t, http.MethodPost, "/webhook/order-created", failing.OrderCreated, nil, body, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler(testhelpers.OrderHubFacadeStub{})
	w := performRequest(t, http.MethodGet, "/healthz", handler.Check, nil, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	handler = NewHealthHandler(testhelpers.OrderHubFacadeStub{PingFn: func(context.Context) error { return errors.New("down") }})
	w = performRequest(t, http.MethodGet, "/healthz", handler.Check, nil, nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

var _ OrderHubFacade = testhelpers.OrderHubFacadeStub{}
