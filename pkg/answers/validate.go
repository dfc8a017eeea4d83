// Package answers validates viewer input against a question's capture type.
package answers

import (
	"fmt"
	"regexp"
	"strings"
)

// CaptureType selects the validation rule for a question answer.
type CaptureType string

const (
	TypeText   CaptureType = "text"
	TypeEmail  CaptureType = "email"
	TypeCPF    CaptureType = "cpf"
	TypeWpp    CaptureType = "wpp"
	TypeNumber CaptureType = "number"
)

// ValidationError is a recoverable rejection of a viewer answer. The
// sequencer surfaces Reason to the viewer and does not advance.
type ValidationError struct {
	Type   CaptureType
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s answer: %s", e.Type, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

var (
	// RFC-light: local@domain.tld, no whitespace, exactly one '@'.
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// Strict formatted Brazilian CPF: NNN.NNN.NNN-NN.
	cpfRe = regexp.MustCompile(`^(\d{3})\.(\d{3})\.(\d{3})-(\d{2})$`)
	// Tolerated alternative: formatted CNPJ NN.NNN.NNN/NNNN-NN.
	cnpjRe = regexp.MustCompile(`^(\d{2})\.(\d{3})\.(\d{3})/(\d{4})-(\d{2})$`)
	// Phone: +CC (DDD) NNNNN-NNNN.
	wppRe = regexp.MustCompile(`^\+\d{1,3} \(\d{2,3}\) \d{4,5}-\d{4}$`)
	// Digits only.
	numberRe = regexp.MustCompile(`^\d+$`)
)

// Validate checks raw against the capture type and returns the value to
// persist (trimmed). On failure it returns a *ValidationError; the caller
// must not advance the cursor nor write a capture.
func Validate(raw string, t CaptureType) (string, error) {
	v := strings.TrimSpace(raw)
	switch t {
	case TypeText:
		if v == "" {
			return "", &ValidationError{Type: t, Reason: "answer is empty"}
		}
		return v, nil
	case TypeEmail:
		if !emailRe.MatchString(v) {
			return "", &ValidationError{Type: t, Reason: "not a valid email address"}
		}
		return v, nil
	case TypeCPF:
		if cpfRe.MatchString(v) {
			if !cpfDigitsValid(digitsOf(v)) {
				return "", &ValidationError{Type: t, Reason: "CPF check digits do not match"}
			}
			return v, nil
		}
		if cnpjRe.MatchString(v) {
			if !cnpjDigitsValid(digitsOf(v)) {
				return "", &ValidationError{Type: t, Reason: "CNPJ check digits do not match"}
			}
			return v, nil
		}
		return "", &ValidationError{Type: t, Reason: "expected format NNN.NNN.NNN-NN"}
	case TypeWpp:
		if !wppRe.MatchString(v) {
			return "", &ValidationError{Type: t, Reason: "expected format +CC (DDD) NNNNN-NNNN"}
		}
		return v, nil
	case TypeNumber:
		if !numberRe.MatchString(v) {
			return "", &ValidationError{Type: t, Reason: "digits only"}
		}
		return v, nil
	default:
		return "", fmt.Errorf("unknown capture type %q", t)
	}
}

func digitsOf(s string) []int {
	out := make([]int, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, int(r-'0'))
		}
	}
	return out
}

// cpfDigitsValid runs the standard mod-11 verification over the 11 CPF
// digits. Sequences of one repeated digit pass the arithmetic but are
// not real registrations, so they are rejected too.
func cpfDigitsValid(d []int) bool {
	if len(d) != 11 {
		return false
	}
	same := true
	for i := 1; i < 11; i++ {
		if d[i] != d[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}
	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += d[i] * (n + 1 - i)
		}
		dv := (sum * 10) % 11 % 10
		if dv != d[n] {
			return false
		}
	}
	return true
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

func cnpjDigitsValid(d []int) bool {
	if len(d) != 14 {
		return false
	}
	check := func(weights []int, upto int) int {
		sum := 0
		for i := 0; i < upto; i++ {
			sum += d[i] * weights[i]
		}
		r := sum % 11
		if r < 2 {
			return 0
		}
		return 11 - r
	}
	if check(cnpjWeights1, 12) != d[12] {
		return false
	}
	return check(cnpjWeights2, 13) == d[13]
}
