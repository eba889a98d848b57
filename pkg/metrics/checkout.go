package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts order creation and payment confirmation outcomes.
type CheckoutMetrics struct {
	ordersCreated *prometheus.CounterVec
	paymentsPaid  *prometheus.CounterVec
	gatewayErrors *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout counters on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders persisted, by payment method and provider.",
	}, []string{"method", "provider"})
	paymentsPaid := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Orders flipped to Paid, by provider and confirmation source.",
	}, []string{"provider", "source"})
	gatewayErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gateway_errors_total",
		Help: "Failed payment gateway calls, by provider and operation.",
	}, []string{"provider", "operation"})
	reg.MustRegister(ordersCreated, paymentsPaid, gatewayErrors)
	return &CheckoutMetrics{
		ordersCreated: ordersCreated,
		paymentsPaid:  paymentsPaid,
		gatewayErrors: gatewayErrors,
	}
}

// IncOrderCreated counts a persisted order.
func (c *CheckoutMetrics) IncOrderCreated(method, provider string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(method, labelOrNone(provider)).Inc()
}

// IncPaymentConfirmed counts a Pending to Paid transition.
func (c *CheckoutMetrics) IncPaymentConfirmed(provider, source string) {
	if c == nil || c.paymentsPaid == nil {
		return
	}
	c.paymentsPaid.WithLabelValues(labelOrNone(provider), labelOrNone(source)).Inc()
}

// IncGatewayError counts a failed provider call.
func (c *CheckoutMetrics) IncGatewayError(provider, operation string) {
	if c == nil || c.gatewayErrors == nil {
		return
	}
	c.gatewayErrors.WithLabelValues(labelOrNone(provider), labelOrNone(operation)).Inc()
}

func labelOrNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
