package util

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
)

func GramToTonString(gram int64) string {
	return fmt.Sprintf("%v Ton", humanize.Commaf(float64(gram)/1000000000))
}

// TokenString formats a jetton amount given in base units, e.g. 1234500 with 3 decimals
// is "1,234.5".
func TokenString(amount *big.Int, decimals int) string {
	if amount == nil {
		amount = new(big.Int)
	}
	sign := ""
	abs := new(big.Int).Abs(amount)
	if amount.Sign() < 0 {
		sign = "-"
	}
	if decimals <= 0 {
		return sign + humanize.BigComma(abs)
	}

	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, unit, new(big.Int))

	res := sign + humanize.BigComma(whole)
	if frac.Sign() == 0 {
		return res
	}
	digits := fmt.Sprintf("%0*s", decimals, frac.String())
	return res + "." + strings.TrimRight(digits, "0")
}
