package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncOrderCreated("COD", "")
	m.IncOrderCreated("Prepaid", "razorpay")
	m.IncPaymentConfirmed("phonepe", "callback")
	m.IncGatewayError("phonepe", "initiate")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_created_total", "provider", "none"); err != nil || got != 1 {
		t.Fatalf("expected COD order counted under provider=none, got %v err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "orders_created_total", "provider", "razorpay"); err != nil || got != 1 {
		t.Fatalf("expected razorpay order counted, got %v err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "payments_confirmed_total", "source", "callback"); err != nil || got != 1 {
		t.Fatalf("expected callback confirmation counted, got %v err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "payment_gateway_errors_total", "operation", "initiate"); err != nil || got != 1 {
		t.Fatalf("expected gateway error counted, got %v err=%v", got, err)
	}
}

func TestNilCheckoutMetricsIsNoop(t *testing.T) {
	var m *CheckoutMetrics
	m.IncOrderCreated("COD", "")
	m.IncPaymentConfirmed("razorpay", "verify")
	m.IncGatewayError("razorpay", "create_session")

	NewCheckoutMetrics(nil).IncOrderCreated("COD", "")
}
