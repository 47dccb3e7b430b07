package validation

import (
	"errors"
	"testing"
)

type sample struct {
	Name   string `json:"name" validate:"required"`
	Amount int64  `json:"amount" validate:"gte=0"`
	Inner  struct {
		Kind string `json:"kind" validate:"omitempty,oneof=a b"`
	} `json:"inner"`
}

func TestStruct(t *testing.T) {
	s := sample{Name: "x"}
	if err := Struct(s); err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}

	s.Amount = -1
	err := Struct(s)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Field != "amount" {
		t.Errorf("expected field 'amount', got '%s'", ve.Field)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected error to match ErrInvalid")
	}

	s.Amount = 0
	s.Inner.Kind = "c"
	err = Struct(s)
	if !errors.As(err, &ve) || ve.Field != "inner.kind" {
		t.Fatalf("expected inner.kind error, got %v", err)
	}
	if ve.Message != "must be one of: a, b" {
		t.Errorf("unexpected message '%s'", ve.Message)
	}
}

func TestValidateStoreID(t *testing.T) {
	for _, id := range []string{"cu", "gs25", "seven_eleven", "emart-24"} {
		if err := ValidateStoreID(id, "store_id"); err != nil {
			t.Errorf("expected %q to be valid: %v", id, err)
		}
	}
	for _, id := range []string{"", "CU", "-cu", "cu store", "a/b"} {
		if err := ValidateStoreID(id, "store_id"); err == nil {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}

func TestParseAmount(t *testing.T) {
	if v, err := ParseAmount(" 5000 ", "amount"); err != nil || v != 5000 {
		t.Fatalf("expected 5000, got %d (%v)", v, err)
	}
	for _, raw := range []string{"", "-1", "12.5", "abc"} {
		if _, err := ParseAmount(raw, "amount"); !errors.Is(err, ErrInvalid) {
			t.Errorf("expected %q to be rejected, got %v", raw, err)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  cu\x00\x07 "); got != "cu" {
		t.Errorf("expected 'cu', got %q", got)
	}
}

func TestValidateTimeString(t *testing.T) {
	if _, err := ValidateTimeString("2026-10-16T12:00:00+09:00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ValidateTimeString("yesterday"); err == nil {
		t.Fatal("expected error for non-RFC3339 input")
	}
}
