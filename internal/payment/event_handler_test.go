package payment_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/intent"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
	"github.com/frahmantamala/mollie-checkout/internal/core/events"
	"github.com/frahmantamala/mollie-checkout/internal/metrics"
	paymentPkg "github.com/frahmantamala/mollie-checkout/internal/payment"
	"github.com/frahmantamala/mollie-checkout/pkg/logger"
)

var _ = Describe("EventHandler", func() {
	var (
		bus *events.EventBus
		m   *metrics.Metrics
		o   *order.Order
		tx  *transaction.Transaction
		in  intent.Intent
	)

	BeforeEach(func() {
		bus = events.NewEventBus(logger.Discard())
		m = metrics.New()
		paymentPkg.NewEventHandler(logger.Discard(), m).RegisterEventHandlers(bus)

		o = &order.Order{ID: 4, CartID: 7, Status: order.StatusPaid}
		tx = &transaction.Transaction{Reference: "tr_evt", OrderID: 4}
		in = intent.New("tr_evt", "paid", 1500, nil)
	})

	It("should subscribe to every payment event", func() {
		Expect(bus.HandlerCount(events.EventTypeOrderPaid)).To(Equal(1))
		Expect(bus.HandlerCount(events.EventTypePaymentCanceled)).To(Equal(1))
		Expect(bus.HandlerCount(events.EventTypePaymentFailed)).To(Equal(1))
	})

	It("should count dispatched events by type", func() {
		ctx := context.Background()
		Expect(bus.PublishSync(ctx, events.NewOrderPaidEvent(o, "mollie", in))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewPaymentFailedEvent(o, tx, in, "expired"))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewPaymentFailedEvent(o, tx, in, "failed"))).To(Succeed())

		Expect(testutil.ToFloat64(m.PaymentEvents.WithLabelValues(events.EventTypeOrderPaid))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.PaymentEvents.WithLabelValues(events.EventTypePaymentFailed))).To(Equal(2.0))
	})

	It("should reject an event of the wrong shape", func() {
		h := paymentPkg.NewEventHandler(logger.Discard(), m)
		wrong := events.NewPaymentCanceledEvent(o, tx, in)

		Expect(h.HandleOrderPaid(context.Background(), wrong)).ToNot(Succeed())
	})
})
