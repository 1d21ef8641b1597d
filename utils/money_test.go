package utils

import (
	"testing"

	"agendazap/models"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"exact", 50.00, 50.00},
		{"half up at third decimal", 50.005, 50.01},
		{"below midpoint", 50.004, 50.00},
		{"above midpoint", 50.006, 50.01},
		{"long tail", 19.999, 20.00},
		{"negative half up", -50.005, -50.01},
		{"zero", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, RoundMoney(tc.in), 1e-9)
		})
	}
}

func TestSumLineItems(t *testing.T) {
	items := []models.LineItem{
		{Title: "Corte social", Quantity: 1, UnitPrice: 35},
		{Title: "Barba", Quantity: 2, UnitPrice: 25},
	}
	assert.InDelta(t, 85.0, SumLineItems(items), 1e-9)

	t.Run("zero quantity counts as one", func(t *testing.T) {
		items := []models.LineItem{{Title: "Degradê", Quantity: 0, UnitPrice: 40}}
		assert.InDelta(t, 40.0, SumLineItems(items), 1e-9)
	})

	t.Run("half cent rounds up", func(t *testing.T) {
		items := []models.LineItem{{Title: "Promo", Quantity: 1, UnitPrice: 50.005}}
		assert.InDelta(t, 50.01, SumLineItems(items), 1e-9)
	})
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{50.01, "R$ 50,01"},
		{50.005, "R$ 50,01"},
		{1234.56, "R$ 1.234,56"},
		{1234567.89, "R$ 1.234.567,89"},
		{0, "R$ 0,00"},
		{35, "R$ 35,00"},
		{-9.9, "-R$ 9,90"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatBRL(tc.in))
	}
}
