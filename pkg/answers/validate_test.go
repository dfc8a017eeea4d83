package answers

import (
	"errors"
	"testing"
)

// TestValidateText verifies trimming and the empty rejection.
func TestValidateText(t *testing.T) {
	v, err := Validate("  hello  ", TypeText)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if v != "hello" {
		t.Fatalf("expected trimmed value; got %q", v)
	}
	if _, err := Validate("   ", TypeText); err == nil {
		t.Fatalf("expected rejection of blank answer")
	}
}

// TestValidateEmail exercises accept and reject cases for the email rule.
func TestValidateEmail(t *testing.T) {
	ok := []string{"a@b.co", "user.name+tag@example.com.br"}
	for _, s := range ok {
		if _, err := Validate(s, TypeEmail); err != nil {
			t.Fatalf("expected %q to pass: %v", s, err)
		}
	}
	bad := []string{"", "plain", "a@b", "a b@c.de", "a@@b.co"}
	for _, s := range bad {
		if _, err := Validate(s, TypeEmail); err == nil {
			t.Fatalf("expected %q to fail", s)
		}
	}
}

// TestValidateCPF verifies formatting plus mod-11 check digits.
func TestValidateCPF(t *testing.T) {
	if _, err := Validate("111.444.777-35", TypeCPF); err != nil {
		t.Fatalf("valid CPF rejected: %v", err)
	}
	bad := []string{
		"11144477735",    // unformatted
		"111.444.777-36", // wrong check digit
		"111.111.111-11", // repeated digits
		"111.444.777-3",  // short
		"abc.def.ghi-jk", // not digits
	}
	for _, s := range bad {
		if _, err := Validate(s, TypeCPF); err == nil {
			t.Fatalf("expected %q to fail", s)
		}
	}
}

// TestValidateWpp verifies the phone mask.
func TestValidateWpp(t *testing.T) {
	ok := []string{"+55 (81) 99999-8888", "+1 (212) 5551-2345"}
	for _, s := range ok {
		if _, err := Validate(s, TypeWpp); err != nil {
			t.Fatalf("expected %q to pass: %v", s, err)
		}
	}
	bad := []string{"+55 81 99999-8888", "(81) 99999-8888", "+55 (81) 99999 8888"}
	for _, s := range bad {
		if _, err := Validate(s, TypeWpp); err == nil {
			t.Fatalf("expected %q to fail", s)
		}
	}
}

// TestValidateNumber verifies the digits-only rule.
func TestValidateNumber(t *testing.T) {
	if v, err := Validate(" 42 ", TypeNumber); err != nil || v != "42" {
		t.Fatalf("expected 42; got %q err=%v", v, err)
	}
	for _, s := range []string{"", "4.2", "-1", "abc"} {
		if _, err := Validate(s, TypeNumber); err == nil {
			t.Fatalf("expected %q to fail", s)
		}
	}
}

// TestValidationErrorShape verifies rejections surface as *ValidationError
// carrying the capture type, so handlers can map them to 422 responses.
func TestValidationErrorShape(t *testing.T) {
	_, err := Validate("nope", TypeEmail)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError; got %T", err)
	}
	if verr.Type != TypeEmail {
		t.Fatalf("expected type email; got %s", verr.Type)
	}
	if !IsValidation(err) {
		t.Fatalf("IsValidation should report true")
	}
}

// TestValidateUnknownType verifies unknown types fail with a plain error,
// not a recoverable validation error.
func TestValidateUnknownType(t *testing.T) {
	_, err := Validate("x", CaptureType("zipcode"))
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if IsValidation(err) {
		t.Fatalf("unknown type must not be a validation error")
	}
}
