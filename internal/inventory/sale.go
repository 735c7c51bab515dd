package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/store"
)

// UnitPriceFor is the product's list price for a sale type.
func UnitPriceFor(product domain.Product, saleType string) float64 {
	if saleType == domain.SaleTypeWholesale {
		return product.WholesalePrice
	}
	return product.SalePrice
}

// BuildSale prices one cart line against the product's working stock. It
// does not touch stock; callers apply ReduceStock once the sale is stored.
// A zero unit price falls back to the list price for the line's sale type.
// A zero amount is accepted and records an empty sale.
func BuildSale(id string, product domain.Product, line domain.CartLine, checkout domain.Checkout, paymentMethod string, at time.Time) (domain.Sale, error) {
	amount := SoldAmount(product, line.Quantity, line.Weight)
	if amount < 0 {
		return domain.Sale{}, store.Errorf(store.ErrInvalidInput, "الكمية المطلوبة من %s لا يمكن أن تكون سالبة", product.Name)
	}
	if !Covers(Available(product), amount) {
		return domain.Sale{}, store.Errorf(store.ErrInsufficientStock,
			"الكمية المتوفرة من %s غير كافية (المتوفر: %s، المطلوب: %s)",
			product.Name, FormatAmount(Available(product)), FormatAmount(amount))
	}

	saleType := line.SaleType
	if saleType == "" {
		saleType = domain.SaleTypeRetail
	}
	unitPrice := line.UnitPrice
	if unitPrice == 0 {
		unitPrice = UnitPriceFor(product, saleType)
	}
	total, final := LineTotals(unitPrice, amount, line.Discount)
	if final < 0 {
		return domain.Sale{}, store.Errorf(store.ErrInvalidInput, "الخصم على %s (%s) أكبر من إجمالي السعر (%s)",
			product.Name, FormatAmount(line.Discount), FormatAmount(total))
	}

	sale := domain.Sale{
		ID:            id,
		ProductID:     product.ID,
		SaleType:      saleType,
		UnitPrice:     unitPrice,
		TotalPrice:    total,
		Discount:      line.Discount,
		FinalPrice:    final,
		CustomerName:  checkout.CustomerName,
		PaymentMethod: paymentMethod,
		SaleDate:      at,
	}
	if IsWeighed(product) {
		sale.Weight = line.Weight
	} else {
		sale.Quantity = line.Quantity
	}
	if paymentMethod == domain.PaymentDebt {
		sale.DebtCustomerID = checkout.DebtCustomerID
	}
	return sale, nil
}

// PrepareReturn validates a return against its sale and the returns already
// recorded for it, and fills in the product, unit price and refund. The
// returned amounts for one sale may never add up to more than was sold.
func PrepareReturn(product domain.Product, sale domain.Sale, previous []domain.Return, ret domain.Return) (domain.Return, error) {
	amount := SoldAmount(product, ret.ReturnedQuantity, ret.ReturnedWeight)
	if amount <= 0 {
		return domain.Return{}, store.Errorf(store.ErrInvalidInput, "الكمية المرتجعة من %s يجب أن تكون أكبر من صفر", product.Name)
	}

	sold := AmountFor(product.MeasurementType, sale.Quantity, sale.Weight)
	returned := decimal.Zero
	for _, r := range previous {
		returned = returned.Add(decimal.NewFromFloat(AmountFor(product.MeasurementType, r.ReturnedQuantity, r.ReturnedWeight)))
	}
	left := decimal.NewFromFloat(sold).Sub(returned)
	if decimal.NewFromFloat(amount).GreaterThan(left) {
		return domain.Return{}, store.Errorf(store.ErrInvalidInput,
			"لا يمكن إرجاع %s من %s (المباع: %s، المرتجع سابقاً: %s)",
			FormatAmount(amount), product.Name, FormatAmount(sold), returned.String())
	}

	out := ret
	out.ProductID = product.ID
	out.UnitPrice = sale.UnitPrice
	out.TotalRefund = decimal.NewFromFloat(sale.UnitPrice).Mul(decimal.NewFromFloat(amount)).InexactFloat64()
	if IsWeighed(product) {
		out.ReturnedQuantity = 0
	} else {
		out.ReturnedWeight = 0
	}
	return out, nil
}
