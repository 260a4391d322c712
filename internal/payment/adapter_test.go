package payment_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/mollie-checkout/internal"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
	gatewaytypes "github.com/frahmantamala/mollie-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
	"github.com/frahmantamala/mollie-checkout/internal/core/events"
	paymentPkg "github.com/frahmantamala/mollie-checkout/internal/payment"
	"github.com/frahmantamala/mollie-checkout/pkg/logger"
)

func testCart() *cart.Cart {
	return &cart.Cart{
		ID:       7,
		Currency: "EUR",
		Lines: []cart.CartLine{
			{ID: 1, CartID: 7, Description: "Coffee beans", UnitPrice: 750, Quantity: 2},
			{ID: 2, CartID: 7, Description: "Filter papers", UnitPrice: 500, Quantity: 1},
		},
	}
}

var _ = Describe("Adapter", func() {
	var (
		gateway *mockGateway
		orders  *mockOrders
		ledger  *mockTransactions
		bus     *events.EventBus
		adapter *paymentPkg.Adapter
		ctx     context.Context
	)

	BeforeEach(func() {
		gateway = newMockGateway()
		orders = newMockOrders()
		ledger = newMockTransactions()
		bus = events.NewEventBus(logger.Discard())
		adapter = paymentPkg.NewAdapter(paymentPkg.AdapterConfig{}, gateway, orders, ledger, bus, logger.Discard(), nil)
		ctx = context.Background()
	})

	Describe("Driver", func() {
		It("should default to mollie", func() {
			Expect(adapter.Driver()).To(Equal("mollie"))
		})

		It("should use the configured driver", func() {
			custom := paymentPkg.NewAdapter(paymentPkg.AdapterConfig{Driver: "mollie-eu"}, gateway, orders, ledger, bus, logger.Discard(), nil)
			Expect(custom.Driver()).To(Equal("mollie-eu"))
		})
	})

	Describe("CreateIntent", func() {
		It("should create an intent for the cart total", func() {
			in, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType: "creditcard",
			}, nil)

			Expect(err).ToNot(HaveOccurred())
			Expect(in.ID).To(Equal("tr_test"))
			Expect(in.Status).To(Equal("open"))
			Expect(in.Amount).To(Equal(int64(2000)))
			Expect(in.CheckoutURL()).To(Equal("https://www.mollie.com/checkout/select-method/tr_test"))
			Expect(in.Meta).To(HaveKeyWithValue(transaction.MetaPaymentMethodType, "creditcard"))

			Expect(gateway.requests).To(HaveLen(1))
			Expect(gateway.requests[0].Description).To(Equal("Cart #7"))
			Expect(gateway.requests[0].Currency).To(Equal("EUR"))
			Expect(gateway.requests[0].Metadata).To(HaveKeyWithValue("cart_id", "7"))
		})

		It("should record an intent transaction against the draft order", func() {
			_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType:   "ideal",
				transaction.MetaPaymentMethodIssuer: "ideal_INGBNL2A",
			}, nil)
			Expect(err).ToNot(HaveOccurred())

			tx, err := ledger.GetByReference(ctx, "tr_test")
			Expect(err).ToNot(HaveOccurred())
			Expect(tx.Type).To(Equal(transaction.TypeIntent))
			Expect(tx.Driver).To(Equal("mollie"))
			Expect(tx.Status).To(Equal(transaction.StatusOpen))
			Expect(tx.Amount).To(Equal(int64(2000)))
			Expect(tx.CardType).To(Equal("ideal"))
			Expect(tx.Meta).To(Equal(map[string]string{
				transaction.MetaPaymentMethodType:   "ideal",
				transaction.MetaPaymentMethodIssuer: "ideal_INGBNL2A",
				transaction.MetaCheckoutURL:         "https://www.mollie.com/checkout/select-method/tr_test",
			}))

			o, err := orders.GetByID(ctx, tx.OrderID)
			Expect(err).ToNot(HaveOccurred())
			Expect(o.CartID).To(Equal(int64(7)))
		})

		It("should charge the override amount when given", func() {
			amount := int64(1)

			in, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType: "paypal",
			}, &amount)

			Expect(err).ToNot(HaveOccurred())
			Expect(in.Amount).To(Equal(int64(1)))
			Expect(gateway.payments["tr_test"].Amount).To(Equal("0.01"))
		})

		It("should remember the method type of the last intent", func() {
			Expect(adapter.Type()).To(BeEmpty())

			_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType: "bancontact",
			}, nil)

			Expect(err).ToNot(HaveOccurred())
			Expect(adapter.Type()).To(Equal("bancontact"))
		})

		It("should record one intent transaction per payment for every method without an issuer", func() {
			for _, name := range gatewaytypes.SupportedMethods() {
				method := gatewaytypes.PaymentMethod(name)
				if method.RequiresIssuer() {
					continue
				}
				gateway.nextID = "tr_" + name

				_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
					transaction.MetaPaymentMethodType: name,
				}, nil)
				Expect(err).ToNot(HaveOccurred(), name)

				tx, err := ledger.GetByReference(ctx, "tr_"+name)
				Expect(err).ToNot(HaveOccurred(), name)
				Expect(tx.Type).To(Equal(transaction.TypeIntent))
			}
		})

		It("should demand an issuer for every method that needs one", func() {
			for _, name := range gatewaytypes.SupportedMethods() {
				if !gatewaytypes.PaymentMethod(name).RequiresIssuer() {
					continue
				}

				_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
					transaction.MetaPaymentMethodType: name,
				}, nil)

				Expect(errors.HasCode(err, errors.ErrCodeMissingMetadata)).To(BeTrue(), name)
			}
			Expect(gateway.requests).To(BeEmpty())
		})

		DescribeTable("should reject incomplete metadata without calling the gateway",
			func(meta map[string]string, field string) {
				_, err := adapter.CreateIntent(ctx, testCart(), meta, nil)

				Expect(errors.HasCode(err, errors.ErrCodeMissingMetadata)).To(BeTrue())
				appErr, _ := errors.IsAppError(err)
				Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
				details := appErr.Details.(errors.ValidationErrors)
				Expect(details.Errors[0].Field).To(Equal(field))

				Expect(gateway.requests).To(BeEmpty())
				Expect(ledger.byRef).To(BeEmpty())
			},
			Entry("no method type", map[string]string{}, transaction.MetaPaymentMethodType),
			Entry("nil meta", nil, transaction.MetaPaymentMethodType),
			Entry("unsupported method type", map[string]string{transaction.MetaPaymentMethodType: "bitcoin"}, transaction.MetaPaymentMethodType),
			Entry("ideal without issuer", map[string]string{transaction.MetaPaymentMethodType: "ideal"}, transaction.MetaPaymentMethodIssuer),
			Entry("giftcard without issuer", map[string]string{transaction.MetaPaymentMethodType: "giftcard"}, transaction.MetaPaymentMethodIssuer),
			Entry("ideal with a blank issuer", map[string]string{
				transaction.MetaPaymentMethodType:   "ideal",
				transaction.MetaPaymentMethodIssuer: "   ",
			}, transaction.MetaPaymentMethodIssuer),
		)

		It("should send the issuer without surrounding whitespace", func() {
			_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType:   "ideal",
				transaction.MetaPaymentMethodIssuer: " ideal_INGBNL2A ",
			}, nil)

			Expect(err).ToNot(HaveOccurred())
			Expect(gateway.requests).To(HaveLen(1))
			Expect(gateway.requests[0].MethodIssuer).To(Equal("ideal_INGBNL2A"))
		})

		It("should reject an empty cart before drafting an order", func() {
			empty := &cart.Cart{ID: 8, Currency: "EUR"}

			_, err := adapter.CreateIntent(ctx, empty, map[string]string{
				transaction.MetaPaymentMethodType: "creditcard",
			}, nil)

			Expect(errors.HasCode(err, errors.ErrCodeInvalidAmount)).To(BeTrue())
			appErr, _ := errors.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(orders.orders).To(BeEmpty())
			Expect(gateway.requests).To(BeEmpty())
		})

		It("should reject a non-positive override amount", func() {
			amount := int64(0)

			_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType: "creditcard",
			}, &amount)

			Expect(errors.HasCode(err, errors.ErrCodeInvalidAmount)).To(BeTrue())
			Expect(gateway.requests).To(BeEmpty())
			Expect(orders.orders).To(BeEmpty())
		})

		It("should wrap gateway failures and record nothing", func() {
			gateway.createErr = errBoom

			_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType: "creditcard",
			}, nil)

			Expect(errors.HasCode(err, errors.ErrCodeGatewayError)).To(BeTrue())
			Expect(err).To(MatchError(errBoom))
			appErr, _ := errors.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(ledger.byRef).To(BeEmpty())
			Expect(adapter.Type()).To(BeEmpty())
		})

		It("should surface ledger failures as internal errors", func() {
			ledger.createErr = errBoom

			_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType: "creditcard",
			}, nil)

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("should report a reused gateway reference as a conflict", func() {
			meta := map[string]string{transaction.MetaPaymentMethodType: "creditcard"}
			_, err := adapter.CreateIntent(ctx, testCart(), meta, nil)
			Expect(err).ToNot(HaveOccurred())

			_, err = adapter.CreateIntent(ctx, testCart(), meta, nil)

			Expect(errors.HasCode(err, errors.ErrCodeDuplicateReference)).To(BeTrue())
		})
	})

	Describe("ListTransactions", func() {
		It("should list every intent recorded for the order", func() {
			meta := map[string]string{transaction.MetaPaymentMethodType: "creditcard"}
			_, err := adapter.CreateIntent(ctx, testCart(), meta, nil)
			Expect(err).ToNot(HaveOccurred())
			gateway.nextID = "tr_retry"
			_, err = adapter.CreateIntent(ctx, testCart(), meta, nil)
			Expect(err).ToNot(HaveOccurred())

			tx, err := ledger.GetByReference(ctx, "tr_retry")
			Expect(err).ToNot(HaveOccurred())

			txs, err := adapter.ListTransactions(ctx, tx.OrderID)

			Expect(err).ToNot(HaveOccurred())
			Expect(txs).To(HaveLen(2))
		})

		It("should report an order without transactions as not found", func() {
			_, err := adapter.ListTransactions(ctx, 404)

			Expect(errors.HasCode(err, errors.ErrCodeTransactionNotFound)).To(BeTrue())
			appErr, _ := errors.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("FetchIntent", func() {
		It("should combine the gateway payment with the recorded meta", func() {
			_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
				transaction.MetaPaymentMethodType:   "kbc",
				transaction.MetaPaymentMethodIssuer: "kbc",
			}, nil)
			Expect(err).ToNot(HaveOccurred())

			in, found, err := adapter.FetchIntent(ctx, "tr_test")

			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(in.Amount).To(Equal(int64(2000)))
			Expect(in.Meta).To(HaveKeyWithValue(transaction.MetaPaymentMethodIssuer, "kbc"))
		})

		It("should report unknown payments as not found", func() {
			_, found, err := adapter.FetchIntent(ctx, "tr_unknown")

			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})
})
