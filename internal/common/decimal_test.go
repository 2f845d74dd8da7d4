package common

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecimalPlaces(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"10", 0},
		{"-3", 0},
		{"1.5", 1},
		{"1.50", 1},
		{"1.001", 3},
		{"100.000", 0},
		{"-0.25", 2},
	}
	for _, c := range cases {
		got := DecimalPlaces(decimal.RequireFromString(c.in))
		if got != c.want {
			t.Errorf("DecimalPlaces(%s) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatDecimal(t *testing.T) {
	cases := map[string]string{
		"1.500":  "1.5",
		"10.00":  "10",
		"-0.250": "-0.25",
		"0.000":  "0",
	}
	for in, want := range cases {
		if got := FormatDecimal(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatDecimal(%s) = %s, want %s", in, got, want)
		}
	}
}
