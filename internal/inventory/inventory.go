// Package inventory holds the stock arithmetic shared by every repository.
// Products track stock either as a whole-unit count or as a weight; the
// functions here pick the active axis from MeasurementType and never mutate
// their input.
package inventory

import (
	"math"

	"github.com/shopspring/decimal"

	"mustawda/backend/internal/domain"
)

func IsWeighed(p domain.Product) bool {
	return p.MeasurementType == domain.MeasurementWeight
}

// Available returns the current stock on the product's active axis.
func Available(p domain.Product) float64 {
	if IsWeighed(p) {
		return p.Weight
	}
	return float64(p.Quantity)
}

func Minimum(p domain.Product) float64 {
	if IsWeighed(p) {
		return p.MinWeight
	}
	return float64(p.MinQuantity)
}

// AmountFor selects the sold or returned amount for a measurement type.
// Rows written before weight support carry no type; they count whichever
// axis is populated, preferring quantity.
func AmountFor(measurementType string, quantity int, weight float64) float64 {
	switch measurementType {
	case domain.MeasurementWeight:
		return weight
	case domain.MeasurementQuantity:
		return float64(quantity)
	}
	if quantity == 0 && weight > 0 {
		return weight
	}
	return float64(quantity)
}

func SoldAmount(p domain.Product, quantity int, weight float64) float64 {
	if IsWeighed(p) {
		return weight
	}
	return float64(quantity)
}

func ReduceStock(p domain.Product, amount float64) domain.Product {
	out := p
	if IsWeighed(p) {
		out.Weight = decimal.NewFromFloat(p.Weight).Sub(decimal.NewFromFloat(amount)).InexactFloat64()
		return out
	}
	out.Quantity = p.Quantity - int(math.Round(amount))
	return out
}

func IncreaseStock(p domain.Product, amount float64) domain.Product {
	out := p
	if IsWeighed(p) {
		out.Weight = decimal.NewFromFloat(p.Weight).Add(decimal.NewFromFloat(amount)).InexactFloat64()
		return out
	}
	out.Quantity = p.Quantity + int(math.Round(amount))
	return out
}

func IsLowStock(p domain.Product) bool {
	return Available(p) <= Minimum(p)
}

func IsOutOfStock(p domain.Product) bool {
	return Available(p) == 0
}

// Status classifies stock for display. Out of stock wins over low stock.
func Status(p domain.Product) string {
	switch {
	case IsOutOfStock(p):
		return domain.StockOutOfStock
	case IsLowStock(p):
		return domain.StockLow
	default:
		return domain.StockAvailable
	}
}

// LineTotals prices one cart line: total = unitPrice x amount and
// final = total - discount.
func LineTotals(unitPrice, amount, discount float64) (total float64, final float64) {
	t := decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromFloat(amount))
	f := t.Sub(decimal.NewFromFloat(discount))
	return t.InexactFloat64(), f.InexactFloat64()
}

// Sum adds money amounts without accumulating float drift.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

// Covers reports whether available stock can satisfy amount.
func Covers(available, amount float64) bool {
	return decimal.NewFromFloat(amount).LessThanOrEqual(decimal.NewFromFloat(available))
}

// FormatAmount renders a stock amount for user-facing messages.
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).String()
}
