// Package stats derives dashboard figures from full snapshots of products,
// sales, returns and debts. Nothing is cached; callers recompute on demand.
package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/inventory"
)

const topProductsLimit = 5

type Input struct {
	Products []domain.Product
	Sales    []domain.Sale
	Returns  []domain.Return
	Debts    []domain.Debt
}

type totals struct {
	revenue decimal.Decimal
	profit  decimal.Decimal
	count   int
}

func (t totals) axis() domain.AxisTotals {
	return domain.AxisTotals{
		Revenue:    t.revenue.InexactFloat64(),
		Profit:     t.profit.InexactFloat64(),
		SalesCount: t.count,
	}
}

// window holds the all-time, today and month buckets for one slice of sales.
type window struct {
	all, today, month totals
}

func (w *window) add(at time.Time, bounds bounds, revenue, profit decimal.Decimal, counted bool) {
	apply := func(t *totals) {
		t.revenue = t.revenue.Add(revenue)
		t.profit = t.profit.Add(profit)
		if counted {
			t.count++
		}
	}
	apply(&w.all)
	if !at.Before(bounds.month) {
		apply(&w.month)
	}
	if !at.Before(bounds.today) {
		apply(&w.today)
	}
}

func (w window) breakdown() domain.SaleTypeBreakdown {
	return domain.SaleTypeBreakdown{All: w.all.axis(), Today: w.today.axis(), Month: w.month.axis()}
}

type bounds struct {
	today time.Time
	month time.Time
}

func boundsFor(now time.Time) bounds {
	y, m, d := now.Date()
	loc := now.Location()
	return bounds{
		today: time.Date(y, m, d, 0, 0, 0, 0, loc),
		month: time.Date(y, m, 1, 0, 0, 0, 0, loc),
	}
}

type productTally struct {
	amount  decimal.Decimal
	revenue decimal.Decimal
}

// Compute builds the dashboard. Day and month boundaries follow now's location.
func Compute(in Input, now time.Time) domain.DashboardStats {
	b := boundsFor(now)

	products := make(map[string]domain.Product, len(in.Products))
	out := domain.DashboardStats{TotalProducts: len(in.Products), GeneratedAt: now}
	for _, p := range in.Products {
		products[p.ID] = p
		switch inventory.Status(p) {
		case domain.StockOutOfStock:
			out.OutOfStockProducts++
		case domain.StockLow:
			out.LowStockProducts++
		}
	}

	salesByID := make(map[string]domain.Sale, len(in.Sales))
	var overall, retail, wholesale window
	tallies := make(map[string]*productTally)

	for _, sale := range in.Sales {
		salesByID[sale.ID] = sale
		product, known := products[sale.ProductID]
		measurement := ""
		if known {
			measurement = product.MeasurementType
		}
		amount := decimal.NewFromFloat(inventory.AmountFor(measurement, sale.Quantity, sale.Weight))
		revenue := decimal.NewFromFloat(sale.FinalPrice)

		profit := decimal.Zero
		if known {
			cost := decimal.NewFromFloat(costBasis(product, sale.SaleType))
			profit = decimal.NewFromFloat(sale.UnitPrice).Sub(cost).Mul(amount)
		}

		overall.add(sale.SaleDate, b, revenue, profit, true)
		if isWholesale(sale.SaleType) {
			wholesale.add(sale.SaleDate, b, revenue, profit, true)
		} else {
			retail.add(sale.SaleDate, b, revenue, profit, true)
		}

		tally, ok := tallies[sale.ProductID]
		if !ok {
			tally = &productTally{}
			tallies[sale.ProductID] = tally
		}
		tally.amount = tally.amount.Add(amount)
		tally.revenue = tally.revenue.Add(revenue)
	}

	refunds := decimal.Zero
	for _, ret := range in.Returns {
		refund := decimal.NewFromFloat(ret.TotalRefund)
		refunds = refunds.Add(refund)

		saleType := domain.SaleTypeRetail
		if sale, ok := salesByID[ret.SaleID]; ok {
			saleType = sale.SaleType
		}

		lost := decimal.Zero
		if product, ok := products[ret.ProductID]; ok {
			amount := decimal.NewFromFloat(inventory.AmountFor(product.MeasurementType, ret.ReturnedQuantity, ret.ReturnedWeight))
			cost := decimal.NewFromFloat(costBasis(product, saleType))
			lost = decimal.NewFromFloat(ret.UnitPrice).Sub(cost).Mul(amount)
		}

		overall.add(ret.ReturnDate, b, refund.Neg(), lost.Neg(), false)
		if isWholesale(saleType) {
			wholesale.add(ret.ReturnDate, b, refund.Neg(), lost.Neg(), false)
		} else {
			retail.add(ret.ReturnDate, b, refund.Neg(), lost.Neg(), false)
		}
	}

	out.TotalSales = overall.all.count
	out.TodaySales = overall.today.count
	out.MonthSales = overall.month.count
	out.TotalReturns = len(in.Returns)
	out.TotalRefunds = refunds.InexactFloat64()
	out.TotalRevenue = overall.all.revenue.InexactFloat64()
	out.TodayRevenue = overall.today.revenue.InexactFloat64()
	out.MonthRevenue = overall.month.revenue.InexactFloat64()
	out.TotalProfit = overall.all.profit.InexactFloat64()
	out.TodayProfit = overall.today.profit.InexactFloat64()
	out.MonthProfit = overall.month.profit.InexactFloat64()
	out.Retail = retail.breakdown()
	out.Wholesale = wholesale.breakdown()
	out.TopProducts = topProducts(tallies, products)
	out.Debts = summarizeDebts(in.Debts)
	return out
}

// costBasis is the per-unit cost used for profit. Wholesale sales are
// measured against the purchase cost, retail sales against the wholesale
// price.
func costBasis(p domain.Product, saleType string) float64 {
	if isWholesale(saleType) {
		return p.WholesaleCostPrice
	}
	return p.WholesalePrice
}

// isWholesale treats a missing sale type as retail.
func isWholesale(saleType string) bool {
	return saleType == domain.SaleTypeWholesale
}

func topProducts(tallies map[string]*productTally, products map[string]domain.Product) []domain.TopProduct {
	result := make([]domain.TopProduct, 0, len(tallies))
	for id, tally := range tallies {
		name := id
		if p, ok := products[id]; ok {
			name = p.Name
		}
		result = append(result, domain.TopProduct{
			ProductID: id,
			Name:      name,
			Quantity:  tally.amount.InexactFloat64(),
			Revenue:   tally.revenue.InexactFloat64(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Quantity != result[j].Quantity {
			return result[i].Quantity > result[j].Quantity
		}
		if result[i].Revenue != result[j].Revenue {
			return result[i].Revenue > result[j].Revenue
		}
		return result[i].ProductID < result[j].ProductID
	})
	if len(result) > topProductsLimit {
		result = result[:topProductsLimit]
	}
	return result
}

func summarizeDebts(debts []domain.Debt) domain.DebtSummary {
	outstanding, paid := decimal.Zero, decimal.Zero
	summary := domain.DebtSummary{}
	for _, d := range debts {
		outstanding = outstanding.Add(decimal.NewFromFloat(d.AmountRemaining))
		paid = paid.Add(decimal.NewFromFloat(d.AmountPaid))
		switch d.Status {
		case domain.DebtPaid:
			summary.Paid++
		case domain.DebtPartial:
			summary.Partial++
		default:
			summary.Unpaid++
		}
	}
	summary.TotalOutstanding = outstanding.InexactFloat64()
	summary.TotalPaid = paid.InexactFloat64()
	return summary
}
