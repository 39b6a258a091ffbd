package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariant_JSON(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
	}{
		{in: `null`, want: NoVariant},
		{in: `"M"`, want: VariantOf("M")},
		{in: `""`, want: VariantOf("")},
		{in: `42`, want: VariantOf("42")},
		{in: `4.5`, want: VariantOf("4.5")},
		{in: `true`, want: NoVariant},
		{in: `{"a":1}`, want: NoVariant},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v Variant
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.want, v)
		})
	}

	data, err := json.Marshal(struct {
		A Variant `json:"a"`
		B Variant `json:"b"`
	}{A: NoVariant, B: VariantOf("L")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":"L"}`, string(data))
}

func TestVariant_Ptr(t *testing.T) {
	assert.Nil(t, NoVariant.Ptr())
	assert.Equal(t, NoVariant, VariantFromPtr(nil))

	s := "XL"
	v := VariantFromPtr(&s)
	assert.Equal(t, VariantOf("XL"), v)
	require.NotNil(t, v.Ptr())
	assert.Equal(t, "XL", *v.Ptr())
	assert.Equal(t, "<none>", NoVariant.String())
	assert.Equal(t, "XL", v.String())
}

func TestLine_Clamp(t *testing.T) {
	l := Line{Quantity: 2, MaxQuantity: 4}
	assert.Equal(t, 1, l.Clamp(0))
	assert.Equal(t, 3, l.Clamp(3))
	assert.Equal(t, 4, l.Clamp(9))

	unbounded := Line{Quantity: 2}
	assert.Equal(t, 9, unbounded.Clamp(9))
	assert.Equal(t, 1, unbounded.Clamp(-1))
}

func TestLine_AtLimitAndSubtotal(t *testing.T) {
	l := Line{UnitPrice: 2.5, Quantity: 4, MaxQuantity: 4}
	assert.True(t, l.AtLimit())
	assert.Equal(t, 10.0, l.Subtotal())

	l.Quantity = 3
	assert.False(t, l.AtLimit())
}

func TestSanitizePrice(t *testing.T) {
	assert.Equal(t, 0.0, SanitizePrice(math.NaN()))
	assert.Equal(t, 0.0, SanitizePrice(math.Inf(1)))
	assert.Equal(t, 0.0, SanitizePrice(-1))
	assert.Equal(t, 19.99, SanitizePrice(19.99))
}

func TestNormalizeQuantity(t *testing.T) {
	assert.Equal(t, 0, NormalizeQuantity(math.NaN()))
	assert.Equal(t, 0, NormalizeQuantity(math.Inf(1)))
	assert.Equal(t, 0, NormalizeQuantity(-3))
	assert.Equal(t, 2, NormalizeQuantity(2.9))
	assert.Equal(t, math.MaxInt32, NormalizeQuantity(1e20))
}

func TestAddQuantities(t *testing.T) {
	assert.Equal(t, 5, AddQuantities(2, 3))
	assert.Equal(t, MaxQuantity, AddQuantities(MaxQuantity-1, 2))
	assert.Equal(t, MaxQuantity, AddQuantities(1, math.MaxInt64))
	assert.Equal(t, MaxQuantity, AddQuantities(math.MaxInt64, math.MaxInt64))
}

func TestTotalsAndView(t *testing.T) {
	lines := []Line{
		{ProductID: "1", UnitPrice: 100, Quantity: 2, MaxQuantity: 5},
		{ProductID: "2", Variant: VariantOf("M"), UnitPrice: 0.5, Quantity: 3, MaxQuantity: 3},
	}
	assert.Equal(t, 5, TotalQuantity(lines))
	assert.Equal(t, 201.5, TotalPrice(lines))
	assert.Equal(t, 1, FindLine(lines, LineKey{ProductID: "2", Variant: VariantOf("M")}))
	assert.Equal(t, -1, FindLine(lines, LineKey{ProductID: "2"}))

	view := NewView("cart:u1", lines)
	lines[0].Quantity = 99
	assert.Equal(t, 2, view.Items[0].Quantity, "view owns its items")
	assert.Equal(t, 5, view.TotalQuantity)
	assert.Equal(t, 201.5, view.TotalPrice)

	empty := NewView(GuestPartition, nil)
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"partition":"cart:guest","items":[],"totalQuantity":0,"totalPrice":0}`, string(data))
}

func TestPartitionKey(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		want     string
	}{
		{name: "nil", identity: nil, want: "cart:guest"},
		{name: "empty", identity: &Identity{}, want: "cart:guest"},
		{name: "id", identity: &Identity{ID: "17", UserID: "u", Email: "e@x"}, want: "cart:17"},
		{name: "user id", identity: &Identity{UserID: "u-9", Email: "e@x"}, want: "cart:u-9"},
		{name: "email", identity: &Identity{Email: "e@x"}, want: "cart:e@x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PartitionKey(tt.identity))
			assert.Equal(t, tt.want == GuestPartition, tt.identity.IsGuest())
		})
	}
}
