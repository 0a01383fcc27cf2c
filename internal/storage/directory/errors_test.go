package directory

import (
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	t.Run("constructors", func(t *testing.T) {
		tests := []struct {
			name    string
			err     *Error
			code    ErrorCode
			field   string
			message string
		}{
			{"missing field", MissingField("email"), ErrorCodeMissingField, "email", "missing required field: email"},
			{"invalid", Invalid("expiry_date", "bad date"), ErrorCodeValidationFailed, "expiry_date", "bad date"},
			{"not found", NotFound("license"), ErrorCodeNotFound, "", "license not found"},
			{"conflict", Conflict("cycle"), ErrorCodeConflict, "", "cycle"},
			{"no seat", NoSeatAvailable(), ErrorCodeNoSeatAvailable, "", "no seat available"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.err.Code() != tt.code {
					t.Errorf("Code() = %q, want %q", tt.err.Code(), tt.code)
				}
				if tt.err.Field() != tt.field {
					t.Errorf("Field() = %q, want %q", tt.err.Field(), tt.field)
				}
				if tt.err.Error() != tt.message {
					t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.message)
				}
			})
		}
	})

	t.Run("predicates see through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("person %q: %w", "Alice", MissingField("email"))
		if !IsValidation(wrapped) {
			t.Errorf("IsValidation(%v) = false, want true", wrapped)
		}
		if IsNotFound(wrapped) {
			t.Errorf("IsNotFound(%v) = true, want false", wrapped)
		}
		if !IsNoSeatAvailable(fmt.Errorf("assign: %w", NoSeatAvailable())) {
			t.Error("IsNoSeatAvailable through wrapping = false, want true")
		}
	})
}
