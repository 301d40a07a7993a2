package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyPurchase(t *testing.T) {
	tests := []struct {
		name     string
		stock    float64
		avg      float64
		qty      float64
		price    float64
		expected float64
	}{
		{name: "bootstrap from empty", stock: 0, avg: 0, qty: 10, price: 3.5, expected: 3.5},
		{name: "bootstrap when stock is zero", stock: 0, avg: 2, qty: 5, price: 4, expected: 4},
		{name: "bootstrap when average is zero", stock: 8, avg: 0, qty: 2, price: 6, expected: 6},
		{name: "weighted blend", stock: 10, avg: 2, qty: 10, price: 4, expected: 3},
		{name: "uneven blend", stock: 30, avg: 1, qty: 10, price: 5, expected: 2},
		{name: "zero quantity keeps average", stock: 10, avg: 2, qty: 0, price: 9, expected: 2},
		{name: "net zero stock is a no-op", stock: 5, avg: 2, qty: -5, price: 9, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyPurchase(tt.stock, NewMoney(tt.avg), tt.qty, NewMoney(tt.price))
			assert.True(t, got.Equal(NewMoney(tt.expected)), "got %s", got)
		})
	}
}

func TestReversePurchase(t *testing.T) {
	// 10 @ 2 + 10 @ 4 = 20 @ 3; removing the second purchase restores 2.
	got := ReversePurchase(20, NewMoney(3), 10, NewMoney(4))
	assert.True(t, got.Equal(NewMoney(2)), "got %s", got)

	got = ReversePurchase(10, NewMoney(3), 10, NewMoney(4))
	assert.True(t, got.Equal(NewMoney(3)), "nothing left keeps the average")

	got = ReversePurchase(12, NewMoney(1), 10, NewMoney(5))
	assert.True(t, got.Equal(NewMoney(1)), "negative result keeps the average")
}
