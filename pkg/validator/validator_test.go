package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addRequest struct {
	ID    string  `json:"id" validate:"required,max=128"`
	Price float64 `json:"price" validate:"gte=0"`
	Qty   int     `json:"qty" validate:"gte=0,lte=1000"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(addRequest{ID: "7", Price: 100, Qty: 2}))
}

func TestValidate_FieldsUseJSONNames(t *testing.T) {
	err := Validate(addRequest{Price: -1, Qty: 2000})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["id"])
	assert.Equal(t, "must be greater than or equal to 0", fields["price"])
	assert.Equal(t, "must be less than or equal to 1000", fields["qty"])
	assert.Contains(t, err.Error(), "field 'id' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"9","price":50,"qty":1}`))
	var dst addRequest
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, "9", dst.ID)

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	err := DecodeAndValidate(bad, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
