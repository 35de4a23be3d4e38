package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// CATALOG STORE (inventory.CatalogStore interface)
// =============================================================================

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, ts *txStore, what string, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := ts.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// queryOne runs query and scans a single row. No row yields ErrNotFound.
func queryOne[T any](ctx context.Context, ts *txStore, scan func(rowScanner) (T, error), query string, args ...any) (T, error) {
	v, err := scan(ts.tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return v, inventory.ErrNotFound
	}
	return v, err
}

// -----------------------------------------------------------------------------
// Categories
// -----------------------------------------------------------------------------

const categoryColumns = "id, name, description"

func scanCategory(row rowScanner) (inventory.Category, error) {
	var (
		c    inventory.Category
		desc sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &desc)
	c.Description = desc.String
	return c, err
}

func (ts *txStore) InsertCategory(ctx context.Context, c inventory.Category) (inventory.CategoryID, error) {
	id, err := ts.insert(ctx, "INSERT INTO categories (name, description) VALUES (?, ?)",
		c.Name, nullString(c.Description))
	return inventory.CategoryID(id), err
}

func (ts *txStore) GetCategory(ctx context.Context, id inventory.CategoryID) (inventory.Category, error) {
	return queryOne(ctx, ts, scanCategory, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
}

func (ts *txStore) ListCategories(ctx context.Context) ([]inventory.Category, error) {
	return queryAll(ctx, ts, "categories", scanCategory, "SELECT "+categoryColumns+" FROM categories ORDER BY id")
}

func (ts *txStore) UpdateCategory(ctx context.Context, id inventory.CategoryID, patch inventory.CategoryPatch) error {
	var u update
	if patch.Name != nil {
		u.set("name", *patch.Name)
	}
	if patch.Description != nil {
		u.set("description", nullString(*patch.Description))
	}
	return u.exec(ctx, ts, "categories", int64(id))
}

func (ts *txStore) DeleteCategory(ctx context.Context, id inventory.CategoryID) error {
	return ts.execAffecting(ctx, "DELETE FROM categories WHERE id = ?", id)
}

// -----------------------------------------------------------------------------
// Customers
// -----------------------------------------------------------------------------

const customerColumns = "id, name, email, phone, address, city, state, post_code, country"

func scanCustomer(row rowScanner) (inventory.Customer, error) {
	var (
		c                                                    inventory.Customer
		email, phone, address, city, state, postCode, country sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &email, &phone, &address, &city, &state, &postCode, &country)
	c.Email, c.Phone, c.Address = email.String, phone.String, address.String
	c.City, c.State, c.PostCode, c.Country = city.String, state.String, postCode.String, country.String
	return c, err
}

func (ts *txStore) InsertCustomer(ctx context.Context, c inventory.Customer) (inventory.CustomerID, error) {
	id, err := ts.insert(ctx, `
		INSERT INTO customers (name, email, phone, address, city, state, post_code, country)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, nullString(c.Email), nullString(c.Phone), nullString(c.Address),
		nullString(c.City), nullString(c.State), nullString(c.PostCode), nullString(c.Country),
	)
	return inventory.CustomerID(id), err
}

func (ts *txStore) GetCustomer(ctx context.Context, id inventory.CustomerID) (inventory.Customer, error) {
	return queryOne(ctx, ts, scanCustomer, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id)
}

func (ts *txStore) ListCustomers(ctx context.Context) ([]inventory.Customer, error) {
	return queryAll(ctx, ts, "customers", scanCustomer, "SELECT "+customerColumns+" FROM customers ORDER BY id")
}

func (ts *txStore) UpdateCustomer(ctx context.Context, id inventory.CustomerID, patch inventory.CustomerPatch) error {
	var u update
	if patch.Name != nil {
		u.set("name", *patch.Name)
	}
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"email", patch.Email},
		{"phone", patch.Phone},
		{"address", patch.Address},
		{"city", patch.City},
		{"state", patch.State},
		{"post_code", patch.PostCode},
		{"country", patch.Country},
	} {
		if f.value != nil {
			u.set(f.column, nullString(*f.value))
		}
	}
	return u.exec(ctx, ts, "customers", int64(id))
}

func (ts *txStore) DeleteCustomer(ctx context.Context, id inventory.CustomerID) error {
	return ts.execAffecting(ctx, "DELETE FROM customers WHERE id = ?", id)
}

// -----------------------------------------------------------------------------
// Products
// -----------------------------------------------------------------------------

// productSelect derives quantity from the ledger; there is no stored column.
const productSelect = `
	SELECT p.id, p.sku, p.active, p.name, p.price_cents, p.description, p.category_id,
	       COALESCE((SELECT SUM(l.delta) FROM inventory_logs l WHERE l.product_id = p.id), 0)
	FROM products p`

func scanProduct(row rowScanner) (inventory.Product, error) {
	var (
		p          inventory.Product
		sku, desc  sql.NullString
		categoryID sql.NullInt64
	)
	err := row.Scan(&p.ID, &sku, &p.Active, &p.Name, &p.PriceCents, &desc, &categoryID, &p.Quantity)
	if sku.Valid {
		p.SKU = &sku.String
	}
	p.Description = desc.String
	if categoryID.Valid {
		id := inventory.CategoryID(categoryID.Int64)
		p.CategoryID = &id
	}
	return p, err
}

func (ts *txStore) InsertProduct(ctx context.Context, p inventory.Product) (inventory.ProductID, error) {
	id, err := ts.insert(ctx, `
		INSERT INTO products (sku, active, name, price_cents, description, category_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullStringPtr(p.SKU), p.Active, p.Name, p.PriceCents, nullString(p.Description), nullInt64Ptr(p.CategoryID),
	)
	return inventory.ProductID(id), err
}

func (ts *txStore) GetProduct(ctx context.Context, id inventory.ProductID) (inventory.Product, error) {
	return queryOne(ctx, ts, scanProduct, productSelect+" WHERE p.id = ?", id)
}

func (ts *txStore) ProductExists(ctx context.Context, id inventory.ProductID) (bool, error) {
	var n int
	err := ts.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

func (ts *txStore) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	return queryAll(ctx, ts, "products", scanProduct, productSelect+" ORDER BY p.id")
}

func (ts *txStore) UpdateProduct(ctx context.Context, id inventory.ProductID, patch inventory.ProductPatch) error {
	var u update
	if patch.SKU.Set {
		u.set("sku", nullStringPtr(patch.SKU.Value))
	}
	if patch.Active != nil {
		u.set("active", *patch.Active)
	}
	if patch.Name != nil {
		u.set("name", *patch.Name)
	}
	if patch.PriceCents != nil {
		u.set("price_cents", *patch.PriceCents)
	}
	if patch.Description != nil {
		u.set("description", nullString(*patch.Description))
	}
	if patch.CategoryID.Set {
		u.set("category_id", nullInt64Ptr(patch.CategoryID.Value))
	}
	return u.exec(ctx, ts, "products", int64(id))
}

func (ts *txStore) DeleteProduct(ctx context.Context, id inventory.ProductID) error {
	return ts.execAffecting(ctx, "DELETE FROM products WHERE id = ?", id)
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

const userColumns = "id, username, password_hash, role"

func scanUser(row rowScanner) (inventory.User, error) {
	var u inventory.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	return u, err
}

func (ts *txStore) InsertUser(ctx context.Context, u inventory.User) (inventory.UserID, error) {
	id, err := ts.insert(ctx, "INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)",
		u.Username, u.PasswordHash, u.Role)
	return inventory.UserID(id), err
}

func (ts *txStore) GetUser(ctx context.Context, id inventory.UserID) (inventory.User, error) {
	return queryOne(ctx, ts, scanUser, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (ts *txStore) GetUserByUsername(ctx context.Context, username string) (inventory.User, error) {
	return queryOne(ctx, ts, scanUser, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

func (ts *txStore) ListUsers(ctx context.Context) ([]inventory.User, error) {
	return queryAll(ctx, ts, "users", scanUser, "SELECT "+userColumns+" FROM users ORDER BY id")
}

func (ts *txStore) UpdateUser(ctx context.Context, id inventory.UserID, patch inventory.UserPatch) error {
	var u update
	if patch.Username != nil {
		u.set("username", *patch.Username)
	}
	if patch.PasswordHash != nil {
		u.set("password_hash", *patch.PasswordHash)
	}
	if patch.Role != nil {
		u.set("role", *patch.Role)
	}
	return u.exec(ctx, ts, "users", int64(id))
}

func (ts *txStore) DeleteUser(ctx context.Context, id inventory.UserID) error {
	return ts.execAffecting(ctx, "DELETE FROM users WHERE id = ?", id)
}

func (ts *txStore) AdminExists(ctx context.Context) (bool, error) {
	var n int
	err := ts.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role = ? OR username = ?",
		access.RoleAdmin, inventory.BootstrapUsername,
	).Scan(&n)
	return n > 0, err
}
