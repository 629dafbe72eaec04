package cart

import "github.com/shopspring/decimal"

// Échelle monétaire : deux décimales, arrondi à l'écart supérieur
// (10% de 199.98 donne 20.00, pas 19.998).
const moneyScale = 2

// RoundMoney normalise un montant à l'échelle monétaire.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyScale)
}

// Percentage calcule base × pct / 100, arrondi à l'échelle monétaire.
func Percentage(base, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(pct).Div(decimal.NewFromInt(100)))
}

// MinMoney retourne le plus petit des deux montants.
func MinMoney(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
