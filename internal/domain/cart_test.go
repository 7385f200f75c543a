package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRecompute_Empty(t *testing.T) {
	c := &Cart{Items: []CartItem{}}
	c.Recompute()

	assert.Equal(t, 0, c.TotalItems)
	assert.True(t, c.TotalPrice.IsZero())
}

func TestRecompute_SumsLines(t *testing.T) {
	c := &Cart{Items: []CartItem{
		{ProductID: "prod-1", Quantity: 3, Price: dec("10.00")},
		{ProductID: "prod-2", Quantity: 2, Price: dec("4.25")},
	}}
	c.Recompute()

	assert.Equal(t, 5, c.TotalItems)
	assert.True(t, c.TotalPrice.Equal(dec("38.50")), "got %s", c.TotalPrice)
}

func TestRecompute_NoFloatDrift(t *testing.T) {
	// 0.1 * 3 is the classic binary-float trap; decimals must sum exactly.
	c := &Cart{Items: []CartItem{
		{ProductID: "prod-1", Quantity: 3, Price: dec("0.10")},
	}}
	c.Recompute()

	assert.True(t, c.TotalPrice.Equal(dec("0.30")), "got %s", c.TotalPrice)
}

func TestRecompute_Overwrites(t *testing.T) {
	c := &Cart{
		Items:      []CartItem{{ProductID: "prod-1", Quantity: 1, Price: dec("5.00")}},
		TotalItems: 99,
		TotalPrice: dec("999.99"),
	}
	c.Recompute()

	assert.Equal(t, 1, c.TotalItems)
	assert.True(t, c.TotalPrice.Equal(dec("5.00")))
}

func TestFindItem(t *testing.T) {
	c := &Cart{Items: []CartItem{
		{ProductID: "prod-1", Quantity: 1, Price: dec("1.00")},
		{ProductID: "prod-2", Quantity: 1, Price: dec("2.00")},
	}}

	assert.Equal(t, 0, c.FindItem("prod-1"))
	assert.Equal(t, 1, c.FindItem("prod-2"))
	assert.Equal(t, -1, c.FindItem("prod-3"))
}

func TestRemoveItemAt_PreservesOrder(t *testing.T) {
	c := &Cart{Items: []CartItem{
		{ProductID: "prod-1"},
		{ProductID: "prod-2"},
		{ProductID: "prod-3"},
	}}

	c.RemoveItemAt(1)

	require.Len(t, c.Items, 2)
	assert.Equal(t, "prod-1", c.Items[0].ProductID)
	assert.Equal(t, "prod-3", c.Items[1].ProductID)
}

func TestSubtotal(t *testing.T) {
	it := CartItem{ProductID: "prod-1", Quantity: 4, Price: dec("2.50")}
	assert.True(t, it.Subtotal().Equal(dec("10.00")))
}

func TestIsEmpty(t *testing.T) {
	c := &Cart{}
	assert.True(t, c.IsEmpty())

	c.Items = append(c.Items, CartItem{ProductID: "prod-1", Quantity: 1})
	assert.False(t, c.IsEmpty())
}
