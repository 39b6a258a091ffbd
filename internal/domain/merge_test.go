package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLines_SumsQuantities(t *testing.T) {
	a := []Line{{ProductID: "1", Quantity: 2, MaxQuantity: 5, UnitPrice: 10}}
	b := []Line{{ProductID: "1", Quantity: 3, MaxQuantity: 5, UnitPrice: 10}}

	merged := MergeLines(a, b)
	require.Len(t, merged, 1)
	assert.Equal(t, 5, merged[0].Quantity)
	assert.Equal(t, 2, a[0].Quantity, "inputs are not modified")
}

func TestMergeLines_LastLineWinsAndOrder(t *testing.T) {
	a := []Line{
		{ProductID: "1", Variant: VariantOf("M"), Name: "a", Quantity: 1, MaxQuantity: 2, UnitPrice: 1},
		{ProductID: "2", Quantity: 1, MaxQuantity: 1},
	}
	b := []Line{
		{ProductID: "3", Quantity: 1, MaxQuantity: 1},
		{ProductID: "1", Variant: VariantOf("M"), Name: "b", Quantity: 2, MaxQuantity: 2, UnitPrice: 3},
		{ProductID: "1", Variant: VariantOf("L"), Quantity: 1, MaxQuantity: 1},
	}

	merged := MergeLines(a, b)
	require.Len(t, merged, 4)
	assert.Equal(t, []LineKey{
		{ProductID: "1", Variant: VariantOf("M")},
		{ProductID: "2"},
		{ProductID: "3"},
		{ProductID: "1", Variant: VariantOf("L")},
	}, []LineKey{merged[0].Key(), merged[1].Key(), merged[2].Key(), merged[3].Key()})

	assert.Equal(t, Line{ProductID: "1", Variant: VariantOf("M"), Name: "b", Quantity: 3, MaxQuantity: 2, UnitPrice: 3}, merged[0])
}

func TestMergeLines_FloorsEachSourceAtOne(t *testing.T) {
	merged := MergeLines(
		[]Line{{ProductID: "1", Quantity: 0, MaxQuantity: 1}},
		[]Line{{ProductID: "1", Quantity: -4, MaxQuantity: 1}},
	)
	require.Len(t, merged, 1)
	assert.Equal(t, 2, merged[0].Quantity)
}

func TestMergeLines_Empty(t *testing.T) {
	merged := MergeLines(nil, []Line{})
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}

func TestMergeLines_SaturatesAtMaxQuantity(t *testing.T) {
	a := []Line{{ProductID: "1", Quantity: MaxQuantity, MaxQuantity: MaxQuantity}}
	b := []Line{{ProductID: "1", Quantity: math.MaxInt64, MaxQuantity: MaxQuantity}}

	merged := MergeLines(a, b)
	require.Len(t, merged, 1)
	assert.Equal(t, MaxQuantity, merged[0].Quantity)
}
