package domain

import "time"

const (
	MeasurementQuantity = "quantity"
	MeasurementWeight   = "weight"
)

const (
	SaleTypeRetail    = "retail"
	SaleTypeWholesale = "wholesale"
)

const (
	PaymentCash = "cash"
	PaymentDebt = "debt"
)

const (
	DebtUnpaid  = "unpaid"
	DebtPartial = "partial"
	DebtPaid    = "paid"
)

const (
	RoleAdmin          = "admin"
	RoleAssistantAdmin = "assistant-admin"
	RoleUser           = "user"
)

const (
	StockAvailable  = "available"
	StockLow        = "low_stock"
	StockOutOfStock = "out_of_stock"
)

const (
	CurrencyIQD = "IQD"
	CurrencyUSD = "USD"
)

type Product struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Category           string    `json:"category"`
	Subcategory        string    `json:"subcategory"`
	MeasurementType    string    `json:"measurementType"`
	WholesaleCostPrice float64   `json:"wholesaleCostPrice"`
	WholesalePrice     float64   `json:"wholesalePrice"`
	SalePrice          float64   `json:"salePrice"`
	Discount           float64   `json:"discount"`
	Quantity           int       `json:"quantity"`
	MinQuantity        int       `json:"minQuantity"`
	Weight             float64   `json:"weight"`
	MinWeight          float64   `json:"minWeight"`
	WeightUnit         string    `json:"weightUnit"`
	Currency           string    `json:"currency"`
	Barcode            string    `json:"barcode"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type ProductInput struct {
	Name               string  `json:"name" validate:"notblank,max=200"`
	Description        string  `json:"description" validate:"max=2000"`
	Category           string  `json:"category" validate:"max=200"`
	Subcategory        string  `json:"subcategory" validate:"max=200"`
	MeasurementType    string  `json:"measurementType" validate:"omitempty,oneof=quantity weight"`
	WholesaleCostPrice float64 `json:"wholesaleCostPrice" validate:"gte=0"`
	WholesalePrice     float64 `json:"wholesalePrice" validate:"gte=0"`
	SalePrice          float64 `json:"salePrice" validate:"gte=0"`
	Discount           float64 `json:"discount" validate:"gte=0"`
	Quantity           int     `json:"quantity" validate:"gte=0"`
	MinQuantity        int     `json:"minQuantity" validate:"gte=0"`
	Weight             float64 `json:"weight" validate:"gte=0"`
	MinWeight          float64 `json:"minWeight" validate:"gte=0"`
	WeightUnit         string  `json:"weightUnit" validate:"omitempty,oneof=kg g"`
	Currency           string  `json:"currency" validate:"omitempty,oneof=IQD USD"`
	Barcode            string  `json:"barcode" validate:"max=64"`
}

// ProductView decorates a product with its derived stock status.
type ProductView struct {
	Product
	StockStatus string `json:"stockStatus"`
}

type DeleteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Subcategories []Subcategory `json:"subcategories"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type Subcategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CategoryID  string `json:"categoryId"`
}

type CategoryInput struct {
	Name          string             `json:"name" validate:"notblank,max=200"`
	Description   string             `json:"description" validate:"max=2000"`
	Subcategories []SubcategoryInput `json:"subcategories" validate:"dive"`
}

type SubcategoryInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type Sale struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"productId"`
	Product        *Product  `json:"product,omitempty"`
	SaleType       string    `json:"saleType"`
	Quantity       int       `json:"quantity"`
	Weight         float64   `json:"weight"`
	UnitPrice      float64   `json:"unitPrice"`
	TotalPrice     float64   `json:"totalPrice"`
	Discount       float64   `json:"discount"`
	FinalPrice     float64   `json:"finalPrice"`
	CustomerName   string    `json:"customerName"`
	PaymentMethod  string    `json:"paymentMethod"`
	DebtCustomerID string    `json:"debtCustomerId,omitempty"`
	DebtID         string    `json:"debtId,omitempty"`
	SaleDate       time.Time `json:"saleDate"`
}

type CartLine struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gte=0"`
	Weight    float64 `json:"weight" validate:"gte=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
	SaleType  string  `json:"saleType" validate:"omitempty,oneof=retail wholesale"`
}

type CheckoutRequest struct {
	TransactionID  string     `json:"transactionId"`
	Items          []CartLine `json:"items" validate:"dive"`
	PaymentMethod  string     `json:"paymentMethod" validate:"omitempty,oneof=cash debt"`
	DebtCustomerID string     `json:"debtCustomerId"`
	CustomerName   string     `json:"customerName" validate:"max=200"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
}

// Checkout is a validated checkout handed to the repository. Lines keep the
// caller's order; the first created sale anchors the debt.
type Checkout struct {
	TransactionID  string
	Lines          []CartLine
	PaymentMethod  string
	DebtCustomerID string
	CustomerName   string
	DueDate        *time.Time
	SaleDate       time.Time
}

type CheckoutResult struct {
	TransactionID string  `json:"transactionId"`
	SalesCount    int     `json:"salesCount"`
	TotalAmount   float64 `json:"totalAmount"`
	DebtID        string  `json:"debtId,omitempty"`
	Sales         []Sale  `json:"-"`
}

type Return struct {
	ID               string    `json:"id"`
	SaleID           string    `json:"saleId"`
	ProductID        string    `json:"productId"`
	Product          *Product  `json:"product,omitempty"`
	ReturnedQuantity int       `json:"returnedQuantity"`
	ReturnedWeight   float64   `json:"returnedWeight"`
	UnitPrice        float64   `json:"unitPrice"`
	TotalRefund      float64   `json:"totalRefund"`
	Reason           string    `json:"reason"`
	ProcessedBy      string    `json:"processedBy"`
	ReturnDate       time.Time `json:"returnDate"`
}

type ReturnRequest struct {
	SaleID           string  `json:"saleId" validate:"required"`
	ReturnedQuantity int     `json:"returnedQuantity" validate:"gte=0"`
	ReturnedWeight   float64 `json:"returnedWeight" validate:"gte=0"`
	Reason           string  `json:"reason" validate:"max=500"`
	ProcessedBy      string  `json:"processedBy" validate:"max=200"`
}

type DebtCustomer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type DebtCustomerInput struct {
	Name    string `json:"name" validate:"notblank,max=200"`
	Phone   string `json:"phone" validate:"max=32"`
	Address string `json:"address" validate:"max=500"`
}

type Debt struct {
	ID              string        `json:"id"`
	SaleID          string        `json:"saleId"`
	CustomerID      string        `json:"customerId"`
	Customer        *DebtCustomer `json:"customer,omitempty"`
	TotalAmount     float64       `json:"totalAmount"`
	AmountPaid      float64       `json:"amountPaid"`
	AmountRemaining float64       `json:"amountRemaining"`
	Status          string        `json:"status"`
	DueDate         *time.Time    `json:"dueDate,omitempty"`
	Payments        []DebtPayment `json:"payments,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type DebtFilter struct {
	CustomerID string
	Status     string
}

type DebtPayment struct {
	ID            string    `json:"id"`
	DebtID        string    `json:"debtId"`
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"paymentDate"`
	PaymentMethod string    `json:"paymentMethod"`
	Notes         string    `json:"notes"`
}

type DebtPaymentRequest struct {
	Amount        float64    `json:"amount" validate:"gt=0"`
	PaymentMethod string     `json:"paymentMethod" validate:"max=50"`
	Notes         string     `json:"notes" validate:"max=500"`
	PaymentDate   *time.Time `json:"paymentDate,omitempty"`
}

type DebtPaymentResult struct {
	Debt    Debt        `json:"debt"`
	Payment DebtPayment `json:"payment"`
}

type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Password  string     `json:"-"`
	Role      string     `json:"role"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=admin assistant-admin user"`
	FullName string `json:"fullName" validate:"max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=32"`
}

type UserUpdateRequest struct {
	ID       string  `json:"id"`
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=128"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin assistant-admin user"`
	FullName *string `json:"fullName,omitempty" validate:"omitempty,max=200"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	IsActive *bool   `json:"isActive,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success   bool   `json:"success"`
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type Actor struct {
	UserID   string
	Username string
	Role     string
	TokenID  string
}

type MigrationReport struct {
	Success         bool     `json:"success"`
	Changes         []string `json:"changes"`
	AlreadyMigrated bool     `json:"alreadyMigrated"`
}

type BackupDocument struct {
	Products   []Product  `json:"products"`
	Categories []Category `json:"categories"`
	Sales      []Sale     `json:"sales"`
	ExportDate time.Time  `json:"exportDate"`
}

type BackupResult struct {
	Success    bool   `json:"success"`
	Path       string `json:"path"`
	Products   int    `json:"products"`
	Categories int    `json:"categories"`
	Sales      int    `json:"sales"`
}

type AxisTotals struct {
	Revenue    float64 `json:"revenue"`
	Profit     float64 `json:"profit"`
	SalesCount int     `json:"salesCount"`
}

type SaleTypeBreakdown struct {
	All   AxisTotals `json:"all"`
	Today AxisTotals `json:"today"`
	Month AxisTotals `json:"month"`
}

type TopProduct struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

type DebtSummary struct {
	TotalOutstanding float64 `json:"totalOutstanding"`
	TotalPaid        float64 `json:"totalPaid"`
	Unpaid           int     `json:"unpaid"`
	Partial          int     `json:"partial"`
	Paid             int     `json:"paid"`
}

type DashboardStats struct {
	TotalProducts      int               `json:"totalProducts"`
	LowStockProducts   int               `json:"lowStockProducts"`
	OutOfStockProducts int               `json:"outOfStockProducts"`
	TotalSales         int               `json:"totalSales"`
	TodaySales         int               `json:"todaySales"`
	MonthSales         int               `json:"monthSales"`
	TotalReturns       int               `json:"totalReturns"`
	TotalRefunds       float64           `json:"totalRefunds"`
	TotalRevenue       float64           `json:"totalRevenue"`
	TodayRevenue       float64           `json:"todayRevenue"`
	MonthRevenue       float64           `json:"monthRevenue"`
	TotalProfit        float64           `json:"totalProfit"`
	TodayProfit        float64           `json:"todayProfit"`
	MonthProfit        float64           `json:"monthProfit"`
	Retail             SaleTypeBreakdown `json:"retail"`
	Wholesale          SaleTypeBreakdown `json:"wholesale"`
	TopProducts        []TopProduct      `json:"topProducts"`
	Debts              DebtSummary       `json:"debts"`
	GeneratedAt        time.Time         `json:"generatedAt"`
}
