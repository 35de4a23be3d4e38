/*
Package inventory provides the inventory ledger and sale transaction engine.

PURPOSE:
  Stock is never stored. Every stock-affecting event is a signed row in the
  inventory ledger, and the quantity on hand for a product is the sum of
  its rows. Sales are the main producer of ledger rows: each sale writes a
  header, its detail lines and one ledger entry per line that moves stock,
  all inside a single store transaction.

KEY CONCEPTS IN THIS FILE (types.go):
  - IDs: type-safe identifiers for every table
  - Cents: integer money, rendered as decimal for display
  - InventoryLog: one ledger entry (signed delta for one product)
  - Sale / SaleDetail / LineItem: sale header, stored lines, requested lines
  - Product / Category / Customer / User: reference entities

DESIGN PRINCIPLES:
  1. Derived quantity: Product.Quantity is filled from the ledger on read
  2. Integer money: prices and subtotals are int64 cents, never floats
  3. Type safety: distinct ID types prevent mixing product and customer IDs

SEE ALSO:
  - ledger.go: Ledger correction API
  - projection.go: Stock projector
  - sale.go: Sale transaction coordinator
  - store.go: Persistence interfaces
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/inventory-ledger/access"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	ProductID  int64
	CategoryID int64
	CustomerID int64
	UserID     int64
	LogID      int64
	SaleID     int64
	DetailID   int64
)

// =============================================================================
// MONEY
// =============================================================================

// Cents is an amount of money in the smallest currency unit.
type Cents int64

// Decimal returns the amount in currency units (1234 -> 12.34).
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String renders the amount with two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// =============================================================================
// LEDGER
// =============================================================================

// LogType classifies a ledger entry.
type LogType string

const (
	// LogManual is a manual stock correction.
	LogManual LogType = "manual"
	// LogSale is written by the sale coordinator, one per detail line.
	LogSale LogType = "sale"
	// LogRestock records goods arriving from a supplier.
	LogRestock LogType = "restock"
	// LogReturn records goods coming back from a customer.
	LogReturn LogType = "return"
)

// Valid reports whether t is a recognized ledger entry type.
func (t LogType) Valid() bool {
	switch t {
	case LogManual, LogSale, LogRestock, LogReturn:
		return true
	}
	return false
}

// MaxDelta bounds the size of one stock movement and MaxCents the size of
// one amount, so ledger sums and sale totals cannot overflow int64.
const (
	MaxDelta int64 = 1_000_000_000
	MaxCents Cents = 100_000_000_000_000
)

// InventoryLog is one ledger entry. Negative delta = stock leaving.
type InventoryLog struct {
	ID        LogID
	Time      time.Time
	Type      LogType
	ProductID ProductID
	Delta     int64
	Note      string
}

// LogEntry is a ledger entry about to be appended. The store assigns ID and Time.
type LogEntry struct {
	Type      LogType
	ProductID ProductID
	Delta     int64
	Note      string
}

// LogPatch lists the fields of a ledger entry to change. Nil = unchanged.
type LogPatch struct {
	Type      *LogType
	ProductID *ProductID
	Delta     *int64
	Note      *string
}

func (p LogPatch) Empty() bool {
	return p.Type == nil && p.ProductID == nil && p.Delta == nil && p.Note == nil
}

// LogFilter narrows ListLogs. Zero value = every entry.
type LogFilter struct {
	ProductID *ProductID
	Type      *LogType
}

// =============================================================================
// SALES
// =============================================================================

// Sale is a completed transaction. Details are only loaded by GetSale.
type Sale struct {
	ID         SaleID
	Time       time.Time
	TotalCents Cents
	CustomerID CustomerID
	UserID     *UserID // nil once the acting user has been deleted
	Details    []SaleDetail
}

// SaleHeader is the header row written first when a sale is created.
type SaleHeader struct {
	CustomerID CustomerID
	UserID     UserID
	TotalCents Cents
}

// SaleDetail is one stored line of a sale.
//
// LogID is nil for lines without inventory impact. ProductID and Quantity
// are recovered from the owned ledger entry on read (Quantity = -Delta).
type SaleDetail struct {
	ID            DetailID
	SaleID        SaleID
	SubtotalCents Cents
	LogID         *LogID
	Note          string

	ProductID *ProductID
	Quantity  *int64
}

// LineItem is one requested line of a new sale.
type LineItem struct {
	ProductID     *ProductID
	Quantity      *int64
	SubtotalCents Cents
	Note          string
}

// NewSale is the input of CreateSale.
type NewSale struct {
	CustomerID CustomerID
	Lines      []LineItem
}

// =============================================================================
// REFERENCE ENTITIES
// =============================================================================

// Nullable is a patch field for a nullable column: Set=false leaves the
// column alone, Set=true with a nil Value clears it.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Product is a sellable item. Quantity is derived from the ledger on read.
type Product struct {
	ID          ProductID
	SKU         *string
	Active      bool
	Name        string
	PriceCents  Cents
	Description string
	CategoryID  *CategoryID
	Quantity    int64
}

type ProductPatch struct {
	SKU         Nullable[string]
	Active      *bool
	Name        *string
	PriceCents  *Cents
	Description *string
	CategoryID  Nullable[CategoryID]
}

func (p ProductPatch) Empty() bool {
	return !p.SKU.Set && p.Active == nil && p.Name == nil && p.PriceCents == nil &&
		p.Description == nil && !p.CategoryID.Set
}

type Category struct {
	ID          CategoryID
	Name        string
	Description string
}

type CategoryPatch struct {
	Name        *string
	Description *string
}

func (p CategoryPatch) Empty() bool { return p.Name == nil && p.Description == nil }

type Customer struct {
	ID       CustomerID
	Name     string
	Email    string
	Phone    string
	Address  string
	City     string
	State    string
	PostCode string
	Country  string
}

type CustomerPatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Address  *string
	City     *string
	State    *string
	PostCode *string
	Country  *string
}

func (p CustomerPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Address == nil &&
		p.City == nil && p.State == nil && p.PostCode == nil && p.Country == nil
}

// User is an account. PasswordHash is never rendered by the API.
type User struct {
	ID           UserID
	Username     string
	PasswordHash string
	Role         access.Role
}

type UserPatch struct {
	Username     *string
	PasswordHash *string
	Role         *access.Role
}

func (p UserPatch) Empty() bool {
	return p.Username == nil && p.PasswordHash == nil && p.Role == nil
}
