package contracts

import (
	"math/big"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func ether(tenths int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(tenths), big.NewInt(1e17))
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name  string
		want  *big.Int
		label string
	}{
		{"", ether(5), "0.5"},
		{"a", ether(5), "0.5"},
		{"abc", ether(5), "0.5"},
		{"abcd", ether(2), "0.2"},
		{"abcdef", ether(2), "0.2"},
		{"abcdefg", ether(1), "0.1"},
		{strings.Repeat("x", 40), ether(1), "0.1"},
		{"日本語", ether(5), "0.5"},
		{"ñandú", ether(2), "0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Price(tt.name))
			assert.Equal(t, tt.label, PriceLabel(tt.name))
		})
	}
}

func TestPrice_ReturnsCopy(t *testing.T) {
	p := Price("abc")
	p.SetInt64(0)
	assert.Equal(t, ether(5), Price("abc"))
}

func TestPrice_Tiers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")
		n := utf8.RuneCountInString(name)
		got := Price(name)

		var want *big.Int
		switch {
		case n <= 3:
			want = ether(5)
		case n <= 6:
			want = ether(2)
		default:
			want = ether(1)
		}
		if got.Cmp(want) != 0 {
			t.Fatalf("Price(%q) = %s, want %s", name, got, want)
		}

		longer := name + rapid.StringN(1, 8, -1).Draw(t, "suffix")
		if Price(longer).Cmp(got) > 0 {
			t.Fatalf("Price(%q) = %s exceeds shorter name price %s", longer, Price(longer), got)
		}
	})
}
