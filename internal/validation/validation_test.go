package validation

import "testing"

func TestRequired(t *testing.T) {
	v := make(Violations)
	Required("name", "ACME", v)
	Required("taxId", "   ", v)
	Required("date", "", v)
	if v.Empty() {
		t.Fatal("expected violations")
	}
	if _, ok := v["name"]; ok {
		t.Fatal("name should not be flagged")
	}
	if v["taxId"] != "required" || v["date"] != "required" {
		t.Fatalf("unexpected violations: %v", v)
	}
}

func TestNumericChecks(t *testing.T) {
	v := make(Violations)
	PositiveInt("quantity", 0, v)
	PositiveInt("ok", 3, v)
	NonNegativeFloat("unitPrice", -0.01, v)
	NonNegativeFloat("taxRate", 0, v)
	if len(v) != 2 {
		t.Fatalf("expected 2 violations, got %v", v)
	}
	if v["quantity"] != "must_be_positive" {
		t.Fatalf("unexpected: %v", v)
	}
	if v["unitPrice"] != "must_not_be_negative" {
		t.Fatalf("unexpected: %v", v)
	}
}
