/*
store.go - Persistence interfaces for the ledger, sales and catalog

PURPOSE:
  Defines the contract between the engine and a transactional relational
  store. Every operation of the engine runs inside Store.WithTx; the Tx
  handed to the callback sees its own uncommitted writes and nobody
  else's. The transaction is the only concurrency control the engine uses.

KEY INTERFACES:
  Store:        WithTx - commit when fn returns nil, roll back otherwise
                ReadTx - committed snapshot for queries, never blocks on writers
  LedgerStore:  Append/read/correct/delete ledger entries, sum per product
  SaleStore:    Sale headers and detail lines
  CatalogStore: Categories, customers, products, users

NOT FOUND:
  Updates and deletes report a missing row by returning ErrNotFound when
  zero rows were affected. Nothing is pre-checked.

INTEGRITY:
  Writes that violate a constraint return *ConstraintError carrying one of
  the constraint names below. Implementations must use exactly these names.

IMPLEMENTATIONS:
  - store/sqlite: SQLite via database/sql (production)
  - inventory/store: in-memory (tests)

SEE ALSO:
  - errors.go: ConstraintError and constraint -> error mapping
*/
package inventory

import "context"

// =============================================================================
// CONSTRAINT NAMES
// =============================================================================

const (
	ConstraintLogProduct      = "fk_inventory_logs_product"
	ConstraintLogType         = "ck_inventory_logs_type"
	ConstraintSaleCustomer    = "fk_sales_customer"
	ConstraintSaleUser        = "fk_sales_user"
	ConstraintDetailSale      = "fk_sales_details_sale"
	ConstraintDetailLog       = "fk_sales_details_log"
	ConstraintDetailSubtotal  = "ck_sales_details_subtotal"
	ConstraintProductCategory = "fk_products_category"
	ConstraintProductSKU      = "uq_products_sku"
	ConstraintProductPrice    = "ck_products_price"
	ConstraintUsername        = "uq_users_username"
	ConstraintUserRole        = "ck_users_role"
	ConstraintCustomerEmail   = "ck_customers_email"

	// Restrict constraints fire when deleting a row that is still referenced.
	ConstraintProductInUse  = "rk_inventory_logs_product"
	ConstraintCustomerInUse = "rk_sales_customer"
)

// =============================================================================
// STORE
// =============================================================================

// Store runs units of work atomically.
type Store interface {
	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back and the error returned.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// ReadTx executes fn within a transaction that only reads. It does not
	// wait for in-flight writers and sees only committed data.
	ReadTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the store inside one transaction.
type Tx interface {
	LedgerStore
	SaleStore
	CatalogStore
}

// LedgerReader is the read side of the ledger used by the stock projector.
type LedgerReader interface {
	// SumForProduct returns the signed sum of the product's ledger deltas.
	SumForProduct(ctx context.Context, productID ProductID) (int64, error)
}

// LedgerStore persists inventory ledger entries.
type LedgerStore interface {
	LedgerReader

	// AppendLog inserts an entry with a server-assigned time and returns its id.
	AppendLog(ctx context.Context, entry LogEntry) (LogID, error)

	GetLog(ctx context.Context, id LogID) (InventoryLog, error)

	// ListLogs returns entries in id order.
	ListLogs(ctx context.Context, filter LogFilter) ([]InventoryLog, error)

	UpdateLog(ctx context.Context, id LogID, patch LogPatch) error

	DeleteLog(ctx context.Context, id LogID) error

	// DeleteLogs removes every listed entry. Details referencing them are
	// detached (log reference set to null).
	DeleteLogs(ctx context.Context, ids []LogID) error
}

// SaleStore persists sale headers and detail lines.
type SaleStore interface {
	InsertSale(ctx context.Context, header SaleHeader) (SaleID, error)

	InsertSaleDetail(ctx context.Context, detail SaleDetail) (DetailID, error)

	// SaleLogIDs returns the non-null ledger references of the sale's details.
	SaleLogIDs(ctx context.Context, saleID SaleID) ([]LogID, error)

	DeleteSaleDetails(ctx context.Context, saleID SaleID) error

	// DeleteSale removes the header. ErrNotFound when zero rows were affected.
	DeleteSale(ctx context.Context, saleID SaleID) error

	// GetSale returns the header with its details in id order.
	GetSale(ctx context.Context, saleID SaleID) (Sale, error)

	// ListSales returns headers only.
	ListSales(ctx context.Context) ([]Sale, error)
}

// CatalogStore persists the reference entities.
type CatalogStore interface {
	InsertCategory(ctx context.Context, c Category) (CategoryID, error)
	GetCategory(ctx context.Context, id CategoryID) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, id CategoryID, patch CategoryPatch) error
	DeleteCategory(ctx context.Context, id CategoryID) error

	InsertCustomer(ctx context.Context, c Customer) (CustomerID, error)
	GetCustomer(ctx context.Context, id CustomerID) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	UpdateCustomer(ctx context.Context, id CustomerID, patch CustomerPatch) error
	DeleteCustomer(ctx context.Context, id CustomerID) error

	// Product reads fill Quantity by summing the product's ledger entries.
	InsertProduct(ctx context.Context, p Product) (ProductID, error)
	GetProduct(ctx context.Context, id ProductID) (Product, error)
	ProductExists(ctx context.Context, id ProductID) (bool, error)
	ListProducts(ctx context.Context) ([]Product, error)
	UpdateProduct(ctx context.Context, id ProductID, patch ProductPatch) error
	DeleteProduct(ctx context.Context, id ProductID) error

	InsertUser(ctx context.Context, u User) (UserID, error)
	GetUser(ctx context.Context, id UserID) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id UserID, patch UserPatch) error
	DeleteUser(ctx context.Context, id UserID) error

	// AdminExists reports whether any admin account or an account named
	// "admin" exists.
	AdminExists(ctx context.Context) (bool, error)
}
