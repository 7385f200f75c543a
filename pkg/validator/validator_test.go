package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemPayload struct {
	ProductID string `validate:"required"`
	Quantity  int    `validate:"required,gte=1"`
}

func TestValidate_OK(t *testing.T) {
	err := Validate(addItemPayload{ProductID: "prod-1", Quantity: 2})
	assert.NoError(t, err)
}

func TestValidate_MissingFields(t *testing.T) {
	err := Validate(addItemPayload{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Contains(t, fields, "ProductID")
	assert.Contains(t, fields, "Quantity")
	assert.Equal(t, "is required", fields["ProductID"])
}

func TestValidate_GTE(t *testing.T) {
	err := Validate(addItemPayload{ProductID: "prod-1", Quantity: -2})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "Quantity")
	assert.Contains(t, valErr.Error(), "greater than or equal to 1")
}
