package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `validate:"notblank"`
	Email string `validate:"omitempty,email"`
	Count int    `validate:"gt=0"`
}

func TestValidate(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(sample{Name: "Alice", Count: 1}))

	err := v.Validate(sample{Name: "   ", Email: "nope", Count: 0})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "Name is required")
		assert.Contains(t, err.Error(), "Email must be a valid email")
		assert.Contains(t, err.Error(), "Count must be greater than 0")
	}
}

func TestValidateField(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateField("secret", "long-enough", "min=8"))

	err := v.ValidateField("secret", "short", "min=8")
	assert.EqualError(t, err, "secret must be at least 8")
}
