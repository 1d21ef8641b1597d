package utils

import (
	"strconv"
	"strings"

	"agendazap/models"
)

// RoundMoney rounds v to two decimal places using round-half-up. It works on
// the shortest decimal representation of v, so 50.005 rounds to 50.01 even
// though the nearest float64 sits just below the midpoint.
func RoundMoney(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	for len(fracPart) < 3 {
		fracPart += "0"
	}
	cents, err := strconv.ParseInt(intPart+fracPart[:2], 10, 64)
	if err != nil {
		return v
	}
	if fracPart[2] >= '5' {
		cents++
	}
	out := float64(cents) / 100
	if neg {
		out = -out
	}
	return out
}

// SumLineItems totals unit price times quantity over items, rounded to two
// decimal places.
func SumLineItems(items []models.LineItem) float64 {
	total := 0.0
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += it.UnitPrice * float64(qty)
	}
	return RoundMoney(total)
}

// FormatBRL renders a value as Brazilian currency, e.g. "R$ 1.234,56".
// Display only; stored values keep plain decimals.
func FormatBRL(v float64) string {
	v = RoundMoney(v)
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(v*100 + 0.5)

	intDigits := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, d := range intDigits {
		if i > 0 && (len(intDigits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}

	out := "R$ " + grouped.String() + "," + pad2(cents%100)
	if neg {
		out = "-" + out
	}
	return out
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
