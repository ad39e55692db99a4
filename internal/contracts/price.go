package contracts

import (
	"math/big"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/params"
)

var (
	priceShort  = big.NewInt(params.Ether / 2)
	priceMedium = big.NewInt(params.Ether / 5)
	priceLong   = big.NewInt(params.Ether / 10)
)

// Price returns the mint price in wei for a bare name (no suffix). Length is
// counted in characters.
func Price(name string) *big.Int {
	return new(big.Int).Set(tier(name))
}

// PriceLabel is Price in whole native-token units, e.g. "0.5".
func PriceLabel(name string) string {
	switch tier(name) {
	case priceShort:
		return "0.5"
	case priceMedium:
		return "0.2"
	default:
		return "0.1"
	}
}

func tier(name string) *big.Int {
	switch n := utf8.RuneCountInString(name); {
	case n <= 3:
		return priceShort
	case n <= 6:
		return priceMedium
	default:
		return priceLong
	}
}
