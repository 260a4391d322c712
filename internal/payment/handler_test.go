package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	cartpkg "github.com/frahmantamala/mollie-checkout/internal/cart"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
	gatewaytypes "github.com/frahmantamala/mollie-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/mollie-checkout/internal/core/events"
	paymentPkg "github.com/frahmantamala/mollie-checkout/internal/payment"
	"github.com/frahmantamala/mollie-checkout/pkg/logger"
)

type mockCarts struct {
	carts map[int64]*cart.Cart
}

func (m *mockCarts) GetByID(_ context.Context, id int64) (*cart.Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return nil, cartpkg.ErrNotFound
	}
	return c, nil
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("Handler", func() {
	var (
		gateway *mockGateway
		router  chi.Router
	)

	BeforeEach(func() {
		gateway = newMockGateway()
		bus := events.NewEventBus(logger.Discard())
		adapter := paymentPkg.NewAdapter(paymentPkg.AdapterConfig{}, gateway, newMockOrders(), newMockTransactions(), bus, logger.Discard(), nil)

		contract, err := paymentPkg.NewCreateIntentContract()
		Expect(err).ToNot(HaveOccurred())

		h := paymentPkg.NewHandler(adapter, &mockCarts{carts: map[int64]*cart.Cart{7: testCart()}}, contract, logger.Discard())

		router = chi.NewRouter()
		router.Post("/api/v1/payments/{driver}/webhook", h.HandleWebhook)
		router.Post("/api/v1/carts/{cartID}/payment-intents", h.CreateIntent)
		router.Get("/api/v1/payment-intents/{paymentID}", h.GetIntent)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	createIntent := func(cartID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+cartID+"/payment-intents", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return serve(req)
	}

	webhook := func(driver, id string) *httptest.ResponseRecorder {
		form := url.Values{}
		if id != "" {
			form.Set("id", id)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+driver+"/webhook", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return serve(req)
	}

	decodeError := func(rec *httptest.ResponseRecorder) errorEnvelope {
		var env errorEnvelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
		return env
	}

	Describe("POST /api/v1/carts/{cartID}/payment-intents", func() {
		It("should create an intent and return the checkout url", func() {
			rec := createIntent("7", `{"meta":{"payment_method_type":"creditcard"}}`)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			var resp paymentPkg.IntentResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.ID).To(Equal("tr_test"))
			Expect(resp.Driver).To(Equal("mollie"))
			Expect(resp.Amount).To(Equal(int64(2000)))
			Expect(resp.CheckoutURL).To(Equal("https://www.mollie.com/checkout/select-method/tr_test"))
		})

		It("should reject a non-numeric cart id", func() {
			rec := createIntent("abc", `{"meta":{"payment_method_type":"creditcard"}}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Error.Code).To(Equal("INVALID_CART_ID"))
		})

		It("should report unknown carts", func() {
			rec := createIntent("99", `{"meta":{"payment_method_type":"creditcard"}}`)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(decodeError(rec).Error.Code).To(Equal("CART_NOT_FOUND"))
		})

		DescribeTable("should reject bodies that break the contract",
			func(body string) {
				rec := createIntent("7", body)

				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(decodeError(rec).Error.Code).To(Equal("VALIDATION_FAILED"))
				Expect(gateway.requests).To(BeEmpty())
			},
			Entry("no meta", `{}`),
			Entry("meta not an object", `{"meta":"ideal"}`),
			Entry("non-string meta value", `{"meta":{"payment_method_type":3}}`),
			Entry("fractional amount", `{"meta":{"payment_method_type":"ideal"},"amount":1.5}`),
			Entry("unknown field", `{"meta":{},"currency":"USD"}`),
			Entry("not json", `meta=ideal`),
		)

		It("should report missing metadata", func() {
			rec := createIntent("7", `{"meta":{"payment_method_type":"ideal"}}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Error.Code).To(Equal("MISSING_METADATA"))
		})

		It("should report gateway failures as bad gateway", func() {
			gateway.createErr = errBoom

			rec := createIntent("7", `{"meta":{"payment_method_type":"creditcard"}}`)

			Expect(rec.Code).To(Equal(http.StatusBadGateway))
			Expect(decodeError(rec).Error.Code).To(Equal("GATEWAY_ERROR"))
		})
	})

	Describe("POST /api/v1/payments/{driver}/webhook", func() {
		BeforeEach(func() {
			rec := createIntent("7", `{"meta":{"payment_method_type":"creditcard"}}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))
		})

		It("should acknowledge a paid payment", func() {
			gateway.setStatus("tr_test", gatewaytypes.PaymentStatusPaid)

			rec := webhook("mollie", "tr_test")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"message":"success"}`))
		})

		It("should answer unknown event for payments still open", func() {
			rec := webhook("mollie", "tr_test")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"message":"unknown event"}`))
		})

		It("should require the payment id", func() {
			rec := webhook("mollie", "")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(MatchJSON(`{"error":"Payment id is required"}`))
			Expect(gateway.getCalls).To(Equal(0))
		})

		It("should report unknown payments", func() {
			rec := webhook("mollie", "tr_nope")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Body.String()).To(MatchJSON(`{"error":"Payment not found"}`))
		})

		It("should reject other drivers", func() {
			rec := webhook("stripe", "tr_test")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(gateway.getCalls).To(Equal(0))
		})

		It("should answer bad gateway when the gateway is unreachable", func() {
			gateway.getErr = errBoom

			rec := webhook("mollie", "tr_test")

			Expect(rec.Code).To(Equal(http.StatusBadGateway))
			Expect(rec.Body.String()).To(MatchJSON(`{"error":"Payment gateway unavailable"}`))
		})
	})

	Describe("GET /api/v1/payment-intents/{paymentID}", func() {
		It("should return a known intent", func() {
			Expect(createIntent("7", `{"meta":{"payment_method_type":"paypal"}}`).Code).To(Equal(http.StatusCreated))
			gateway.setStatus("tr_test", gatewaytypes.PaymentStatusPending)

			rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/payment-intents/tr_test", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp paymentPkg.IntentResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal("pending"))
			Expect(resp.Meta).To(HaveKeyWithValue("payment_method_type", "paypal"))
		})

		It("should report unknown intents", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/payment-intents/tr_nope", nil))

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(decodeError(rec).Error.Code).To(Equal("PAYMENT_NOT_FOUND"))
		})
	})
})
