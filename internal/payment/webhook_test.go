package payment_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	errors "github.com/frahmantamala/mollie-checkout/internal"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
	gatewaytypes "github.com/frahmantamala/mollie-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
	"github.com/frahmantamala/mollie-checkout/internal/core/events"
	"github.com/frahmantamala/mollie-checkout/internal/metrics"
	paymentPkg "github.com/frahmantamala/mollie-checkout/internal/payment"
	"github.com/frahmantamala/mollie-checkout/pkg/logger"
)

var _ = Describe("HandleWebhook", func() {
	var (
		gateway  *mockGateway
		orders   *mockOrders
		ledger   *mockTransactions
		bus      *events.EventBus
		seen     *recorder
		m        *metrics.Metrics
		adapter  *paymentPkg.Adapter
		ctx      context.Context
		localTx  func() *transaction.Transaction
		theOrder func() *order.Order
	)

	BeforeEach(func() {
		gateway = newMockGateway()
		orders = newMockOrders()
		ledger = newMockTransactions()
		bus = events.NewEventBus(logger.Discard())
		seen = &recorder{}
		seen.subscribe(bus)
		m = metrics.New()
		adapter = paymentPkg.NewAdapter(paymentPkg.AdapterConfig{}, gateway, orders, ledger, bus, logger.Discard(), m)
		ctx = context.Background()

		_, err := adapter.CreateIntent(ctx, testCart(), map[string]string{
			transaction.MetaPaymentMethodType: "creditcard",
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		localTx = func() *transaction.Transaction {
			tx, err := ledger.GetByReference(ctx, "tr_test")
			Expect(err).ToNot(HaveOccurred())
			return tx
		}
		theOrder = func() *order.Order {
			o, err := orders.GetByID(ctx, localTx().OrderID)
			Expect(err).ToNot(HaveOccurred())
			return o
		}
	})

	Context("when the request cannot be matched", func() {
		It("should reject an empty id without asking the gateway", func() {
			outcome, err := adapter.HandleWebhook(ctx, "")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(outcome.Body()).To(Equal(map[string]string{"error": "Payment id is required"}))
			Expect(gateway.getCalls).To(Equal(0))
		})

		It("should report payments unknown to the gateway", func() {
			outcome, err := adapter.HandleWebhook(ctx, "tr_unknown")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.StatusCode).To(Equal(http.StatusNotFound))
			Expect(outcome.Body()).To(Equal(map[string]string{"error": "Payment not found"}))
		})

		It("should report gateway payments without a local transaction", func() {
			gateway.payments["tr_foreign"] = &gatewaytypes.Payment{ID: "tr_foreign", Status: gatewaytypes.PaymentStatusPaid, Amount: "5.00"}

			outcome, err := adapter.HandleWebhook(ctx, "tr_foreign")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.StatusCode).To(Equal(http.StatusNotFound))
			Expect(outcome.Body()).To(Equal(map[string]string{"error": "Transaction tr_foreign not found"}))
			Expect(seen.types()).To(BeEmpty())
		})

		It("should report a transaction whose order is gone", func() {
			delete(orders.orders, localTx().OrderID)
			gateway.setStatus("tr_test", gatewaytypes.PaymentStatusPaid)

			outcome, err := adapter.HandleWebhook(ctx, "tr_test")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.StatusCode).To(Equal(http.StatusNotFound))
			Expect(outcome.Error).To(Equal("Transaction tr_test not found"))
			Expect(localTx().Status).To(Equal(transaction.StatusOpen))
		})

		It("should treat ledger lookup failures as unresolvable", func() {
			ledger.getErr = errBoom

			outcome, err := adapter.HandleWebhook(ctx, "tr_test")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	DescribeTable("should follow the gateway status",
		func(status gatewaytypes.PaymentStatus, message, localStatus string, eventTypes []string) {
			gateway.setStatus("tr_test", status)

			outcome, err := adapter.HandleWebhook(ctx, "tr_test")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.StatusCode).To(Equal(http.StatusOK))
			Expect(outcome.Body()).To(Equal(map[string]string{"message": message}))
			Expect(localTx().Status).To(Equal(localStatus))
			Expect(seen.types()).To(Equal(eventTypes))
		},
		Entry("paid", gatewaytypes.PaymentStatusPaid, "success", transaction.StatusPaid, []string{events.EventTypeOrderPaid}),
		Entry("canceled", gatewaytypes.PaymentStatusCanceled, "cancelled", transaction.StatusCancelled, []string{events.EventTypePaymentCanceled}),
		Entry("failed", gatewaytypes.PaymentStatusFailed, "failed", transaction.StatusFailed, []string{events.EventTypePaymentFailed}),
		Entry("expired", gatewaytypes.PaymentStatusExpired, "expired", transaction.StatusExpired, []string{events.EventTypePaymentFailed}),
		Entry("open", gatewaytypes.PaymentStatusOpen, "unknown event", transaction.StatusOpen, []string{}),
		Entry("pending", gatewaytypes.PaymentStatusPending, "unknown event", transaction.StatusOpen, []string{}),
		Entry("authorized", gatewaytypes.PaymentStatusAuthorized, "unknown event", transaction.StatusOpen, []string{}),
	)

	Context("when the payment is paid", func() {
		BeforeEach(func() {
			gateway.setStatus("tr_test", gatewaytypes.PaymentStatusPaid)
		})

		It("should mark the order paid and publish the intent with the driver", func() {
			_, err := adapter.HandleWebhook(ctx, "tr_test")
			Expect(err).ToNot(HaveOccurred())

			Expect(theOrder().Status).To(Equal(order.StatusPaid))
			Expect(seen.events).To(HaveLen(1))
			paid := seen.events[0].(*events.OrderPaidEvent)
			Expect(paid.Driver).To(Equal("mollie"))
			Expect(paid.Order.ID).To(Equal(theOrder().ID))
			Expect(paid.Intent.ID).To(Equal("tr_test"))
			Expect(paid.Intent.Amount).To(Equal(int64(2000)))
			Expect(paid.Intent.CheckoutURL()).To(Equal("https://www.mollie.com/checkout/select-method/tr_test"))
		})

		It("should authorize only once across repeated deliveries", func() {
			first, err := adapter.HandleWebhook(ctx, "tr_test")
			Expect(err).ToNot(HaveOccurred())
			second, err := adapter.HandleWebhook(ctx, "tr_test")
			Expect(err).ToNot(HaveOccurred())

			Expect(first.Message).To(Equal("success"))
			Expect(second.Message).To(Equal("unknown event"))
			Expect(orders.marked).To(Equal(1))
			Expect(seen.types()).To(Equal([]string{events.EventTypeOrderPaid}))
		})

		It("should not authorize again when a subscriber failed on the first delivery", func() {
			failures := 1
			bus.Subscribe(events.EventTypeOrderPaid, func(context.Context, events.Event) error {
				if failures > 0 {
					failures--
					return errBoom
				}
				return nil
			})

			_, err := adapter.HandleWebhook(ctx, "tr_test")
			Expect(err).To(MatchError(errBoom))
			Expect(localTx().Status).To(Equal(transaction.StatusPaid))
			placedAt := theOrder().PlacedAt

			retry, err := adapter.HandleWebhook(ctx, "tr_test")

			Expect(err).ToNot(HaveOccurred())
			Expect(retry.Message).To(Equal("unknown event"))
			Expect(orders.marked).To(Equal(1))
			Expect(theOrder().PlacedAt).To(Equal(placedAt))
			Expect(seen.types()).To(Equal([]string{events.EventTypeOrderPaid}))
		})

		It("should fail when the order cannot be marked paid", func() {
			orders.markErr = errBoom

			_, err := adapter.HandleWebhook(ctx, "tr_test")

			Expect(err).To(MatchError(errBoom))
			Expect(seen.types()).To(BeEmpty())
		})

		It("should fail without dispatching when the ledger cannot be updated", func() {
			ledger.updateErr = errBoom

			_, err := adapter.HandleWebhook(ctx, "tr_test")

			Expect(err).To(MatchError(errBoom))
			Expect(localTx().Status).To(Equal(transaction.StatusOpen))
			Expect(seen.types()).To(BeEmpty())
		})

		It("should finish a half-done authorization on redelivery without marking the order twice", func() {
			ledger.updateErr = errBoom
			_, err := adapter.HandleWebhook(ctx, "tr_test")
			Expect(err).To(HaveOccurred())
			Expect(theOrder().Status).To(Equal(order.StatusPaid))

			ledger.updateErr = nil
			retry, err := adapter.HandleWebhook(ctx, "tr_test")

			Expect(err).ToNot(HaveOccurred())
			Expect(retry.Message).To(Equal("success"))
			Expect(orders.marked).To(Equal(1))
			Expect(localTx().Status).To(Equal(transaction.StatusPaid))
			Expect(seen.types()).To(Equal([]string{events.EventTypeOrderPaid}))
		})
	})

	It("should dispatch again on every repeated cancellation", func() {
		gateway.setStatus("tr_test", gatewaytypes.PaymentStatusCanceled)

		for i := 0; i < 3; i++ {
			outcome, err := adapter.HandleWebhook(ctx, "tr_test")
			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.Message).To(Equal("cancelled"))
		}

		Expect(seen.types()).To(HaveLen(3))
	})

	It("should carry the gateway status as the failure reason", func() {
		gateway.setStatus("tr_test", gatewaytypes.PaymentStatusExpired)

		_, err := adapter.HandleWebhook(ctx, "tr_test")
		Expect(err).ToNot(HaveOccurred())

		failed := seen.events[0].(*events.PaymentFailedEvent)
		Expect(failed.Reason).To(Equal("expired"))
		Expect(failed.Transaction.Reference).To(Equal("tr_test"))
	})

	It("should wrap gateway lookup failures", func() {
		gateway.getErr = errBoom

		_, err := adapter.HandleWebhook(ctx, "tr_test")

		Expect(errors.HasCode(err, errors.ErrCodeGatewayError)).To(BeTrue())
		Expect(testutil.ToFloat64(m.WebhookOutcomes.WithLabelValues("502", "error"))).To(Equal(1.0))
	})

	It("should count outcomes by status and message", func() {
		gateway.setStatus("tr_test", gatewaytypes.PaymentStatusFailed)

		_, _ = adapter.HandleWebhook(ctx, "tr_test")
		_, _ = adapter.HandleWebhook(ctx, "")

		Expect(testutil.ToFloat64(m.WebhookOutcomes.WithLabelValues("200", "failed"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.WebhookOutcomes.WithLabelValues("400", "rejected"))).To(Equal(1.0))
	})
})
