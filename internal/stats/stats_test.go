package stats

import (
	"testing"
	"time"

	"mustawda/backend/internal/domain"
)

var baghdad = time.FixedZone("AST", 3*60*60)

func fixtureProduct() domain.Product {
	return domain.Product{
		ID:                 "p-rice",
		Name:               "رز",
		MeasurementType:    domain.MeasurementQuantity,
		WholesaleCostPrice: 80,
		WholesalePrice:     100,
		SalePrice:          150,
		Quantity:           20,
		MinQuantity:        5,
	}
}

func TestProfitUsesAsymmetricCostBasis(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, baghdad)
	in := Input{
		Products: []domain.Product{fixtureProduct()},
		Sales: []domain.Sale{
			{ID: "s1", ProductID: "p-rice", SaleType: domain.SaleTypeRetail, Quantity: 1, UnitPrice: 150, TotalPrice: 150, FinalPrice: 150, SaleDate: now},
			{ID: "s2", ProductID: "p-rice", SaleType: domain.SaleTypeWholesale, Quantity: 1, UnitPrice: 110, TotalPrice: 110, FinalPrice: 110, SaleDate: now},
		},
	}

	got := Compute(in, now)
	if got.Retail.All.Profit != 50 {
		t.Fatalf("expected retail profit 50, got %v", got.Retail.All.Profit)
	}
	if got.Wholesale.All.Profit != 30 {
		t.Fatalf("expected wholesale profit 30, got %v", got.Wholesale.All.Profit)
	}
	if got.TotalProfit != 80 {
		t.Fatalf("expected total profit 80, got %v", got.TotalProfit)
	}
	if got.TotalRevenue != 260 {
		t.Fatalf("expected revenue 260, got %v", got.TotalRevenue)
	}
}

func TestMissingSaleTypeCountsAsRetail(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, baghdad)
	in := Input{
		Products: []domain.Product{fixtureProduct()},
		Sales: []domain.Sale{
			{ID: "legacy", ProductID: "p-rice", Quantity: 2, UnitPrice: 150, TotalPrice: 300, FinalPrice: 300, SaleDate: now},
		},
	}

	got := Compute(in, now)
	if got.Retail.All.SalesCount != 1 || got.Wholesale.All.SalesCount != 0 {
		t.Fatalf("expected legacy sale counted as retail, got %+v / %+v", got.Retail.All, got.Wholesale.All)
	}
	if got.Retail.All.Profit != 100 {
		t.Fatalf("expected profit (150-100)*2=100, got %v", got.Retail.All.Profit)
	}
}

func TestWindowsAndReturns(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, baghdad)
	earlyToday := time.Date(2026, 3, 15, 0, 30, 0, 0, baghdad)
	yesterday := now.AddDate(0, 0, -1)
	lastMonth := time.Date(2026, 2, 27, 18, 0, 0, 0, baghdad)

	in := Input{
		Products: []domain.Product{fixtureProduct()},
		Sales: []domain.Sale{
			{ID: "s-today", ProductID: "p-rice", SaleType: domain.SaleTypeRetail, Quantity: 2, UnitPrice: 150, TotalPrice: 300, FinalPrice: 300, SaleDate: earlyToday},
			{ID: "s-yesterday", ProductID: "p-rice", SaleType: domain.SaleTypeRetail, Quantity: 1, UnitPrice: 150, TotalPrice: 150, FinalPrice: 150, SaleDate: yesterday},
			{ID: "s-old", ProductID: "p-rice", SaleType: domain.SaleTypeWholesale, Quantity: 10, UnitPrice: 110, TotalPrice: 1100, FinalPrice: 1000, SaleDate: lastMonth},
		},
		Returns: []domain.Return{
			{ID: "r1", SaleID: "s-today", ProductID: "p-rice", ReturnedQuantity: 1, UnitPrice: 150, TotalRefund: 150, ReturnDate: now},
		},
	}

	got := Compute(in, now)
	if got.TodayRevenue != 150 {
		t.Fatalf("expected today revenue 300-150=150, got %v", got.TodayRevenue)
	}
	if got.MonthRevenue != 300 {
		t.Fatalf("expected month revenue 300+150-150=300, got %v", got.MonthRevenue)
	}
	if got.TotalRevenue != 1300 {
		t.Fatalf("expected total revenue 1450-150=1300, got %v", got.TotalRevenue)
	}
	if got.TodayProfit != 50 {
		t.Fatalf("expected today profit 100-50=50, got %v", got.TodayProfit)
	}
	if got.TotalProfit != 400 {
		t.Fatalf("expected total profit 100+50+300-50=400, got %v", got.TotalProfit)
	}
	if got.TodaySales != 1 || got.MonthSales != 2 || got.TotalSales != 3 {
		t.Fatalf("unexpected sale counts %d/%d/%d", got.TodaySales, got.MonthSales, got.TotalSales)
	}
	if got.TotalRefunds != 150 || got.TotalReturns != 1 {
		t.Fatalf("unexpected refund totals %v/%d", got.TotalRefunds, got.TotalReturns)
	}
}

func TestTopProductsLimitedToFiveByQuantity(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, baghdad)
	var in Input
	for i := 1; i <= 7; i++ {
		id := string(rune('a' + i))
		in.Products = append(in.Products, domain.Product{ID: id, Name: "product " + id, MeasurementType: domain.MeasurementQuantity, Quantity: 100})
		in.Sales = append(in.Sales, domain.Sale{ID: "s" + id, ProductID: id, Quantity: i, UnitPrice: 10, FinalPrice: float64(i * 10), SaleDate: now})
	}

	got := Compute(in, now)
	if len(got.TopProducts) != 5 {
		t.Fatalf("expected 5 top products, got %d", len(got.TopProducts))
	}
	if got.TopProducts[0].Quantity != 7 || got.TopProducts[4].Quantity != 3 {
		t.Fatalf("unexpected ordering %+v", got.TopProducts)
	}
}

func TestStockAndDebtCounters(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, baghdad)
	in := Input{
		Products: []domain.Product{
			{ID: "a", MeasurementType: domain.MeasurementQuantity, Quantity: 0, MinQuantity: 2},
			{ID: "b", MeasurementType: domain.MeasurementQuantity, Quantity: 2, MinQuantity: 2},
			{ID: "c", MeasurementType: domain.MeasurementWeight, Weight: 10, MinWeight: 1},
		},
		Debts: []domain.Debt{
			{ID: "d1", TotalAmount: 100, AmountPaid: 0, AmountRemaining: 100, Status: domain.DebtUnpaid},
			{ID: "d2", TotalAmount: 100, AmountPaid: 40, AmountRemaining: 60, Status: domain.DebtPartial},
			{ID: "d3", TotalAmount: 50, AmountPaid: 50, AmountRemaining: 0, Status: domain.DebtPaid},
		},
	}

	got := Compute(in, now)
	if got.OutOfStockProducts != 1 || got.LowStockProducts != 1 || got.TotalProducts != 3 {
		t.Fatalf("unexpected stock counters %+v", got)
	}
	if got.Debts.TotalOutstanding != 160 || got.Debts.TotalPaid != 90 {
		t.Fatalf("unexpected debt totals %+v", got.Debts)
	}
	if got.Debts.Unpaid != 1 || got.Debts.Partial != 1 || got.Debts.Paid != 1 {
		t.Fatalf("unexpected debt counts %+v", got.Debts)
	}
}
