package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, status := range OrderStatuses() {
		parsed, err := ParseOrderStatus(string(status))
		if err != nil {
			t.Fatalf("expected %q to parse: %v", status, err)
		}
		if parsed != status {
			t.Fatalf("expected %q got %q", status, parsed)
		}
	}

	for _, bad := range []string{"Shipped", "received", "", "In design"} {
		if _, err := ParseOrderStatus(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestOrderStatusesReturnsCopy(t *testing.T) {
	statuses := OrderStatuses()
	statuses[0] = "Mutated"
	if OrderStatuses()[0] != OrderStatusReceived {
		t.Fatalf("expected internal list to be untouched")
	}
}

func TestParsePaymentProviderNormalizes(t *testing.T) {
	provider, err := ParsePaymentProvider(" PhonePe ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != PaymentProviderPhonePe {
		t.Fatalf("expected phonepe got %s", provider)
	}
	if _, err := ParsePaymentProvider("stripe"); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}
}

func TestPaymentEnums(t *testing.T) {
	if !PaymentStatusPaid.IsValid() || PaymentStatus("Refunded").IsValid() {
		t.Fatalf("unexpected payment status validity")
	}
	if _, err := ParsePaymentMethod("COD"); err != nil {
		t.Fatalf("expected COD to parse: %v", err)
	}
	if _, err := ParseProductCategory("Posters"); err == nil {
		t.Fatalf("expected unknown category to fail")
	}
}
