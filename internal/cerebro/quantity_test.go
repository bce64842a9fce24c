package cerebro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToPrecision(t *testing.T) {
	cases := []struct {
		name      string
		qty       float64
		precision int
		want      float64
	}{
		{"zero precision truncates to integer", 12.97, 0, 12},
		{"negative precision truncates to integer", 12.97, -1, 12},
		{"two decimal places", 12.9799, 2, 12.97},
		{"eight decimal places for crypto", 0.123456789, 8, 0.12345678},
		{"already exact", 5.0, 2, 5.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, roundToPrecision(tc.qty, tc.precision), 1e-9)
		})
	}
}
