package validation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidators(t *testing.T) {
	v := make(Violations)
	Required("name", "  ", v)
	Email("email", "not-an-email", v)
	PositiveInt("quantity", 0, v)
	NonNegativeInt("stock", -1, v)
	PositiveDecimal("unit_price", decimal.Zero, v)
	MaxLen("code", "ABCDEF", 5, v)
	Equal("confirm", "a", "b", v)

	want := map[string]string{
		"name":       "required",
		"email":      "invalid_email",
		"quantity":   "must_be_positive",
		"stock":      "must_not_be_negative",
		"unit_price": "must_be_positive",
		"code":       "too_long",
		"confirm":    "mismatch",
	}
	for field, code := range want {
		if v[field] != code {
			t.Errorf("%s: got %q want %q", field, v[field], code)
		}
	}
	if v.Empty() {
		t.Fatal("expected violations")
	}
}

func TestValidatorsAcceptValidInput(t *testing.T) {
	v := make(Violations)
	Required("name", "Ana", v)
	Email("email", "", v)
	Email("email2", "ana@example.cl", v)
	PositiveInt("quantity", 1, v)
	NonNegativeInt("stock", 0, v)
	PositiveDecimal("unit_price", decimal.RequireFromString("0.01"), v)
	MaxLen("code", "ñandú", 5, v)
	Equal("confirm", "x", "x", v)
	if !v.Empty() {
		t.Fatalf("unexpected violations: %v", v)
	}
}

func TestAddKeepsFirstViolation(t *testing.T) {
	v := make(Violations)
	Required("email", "", v)
	Email("email", "bad", v)
	if v["email"] != "required" {
		t.Fatalf("expected first violation kept, got %q", v["email"])
	}
}
