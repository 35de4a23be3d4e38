// Package store provides an in-memory inventory.Store for tests and local
// development. It enforces the same constraints under the same names as the
// SQLite store, so engine tests exercise the real error mapping.
package store

import (
	"context"
	"maps"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a transactional in-memory store. Transactions are serialized.
type Memory struct {
	mu    sync.Mutex
	state *memoryState
	now   func() time.Time
}

type saleRow struct {
	id         inventory.SaleID
	time       time.Time
	totalCents inventory.Cents
	customerID inventory.CustomerID
	userID     *inventory.UserID
}

type memoryState struct {
	now func() time.Time

	lastID map[string]int64

	logs       map[inventory.LogID]inventory.InventoryLog
	sales      map[inventory.SaleID]saleRow
	details    map[inventory.DetailID]inventory.SaleDetail
	categories map[inventory.CategoryID]inventory.Category
	customers  map[inventory.CustomerID]inventory.Customer
	products   map[inventory.ProductID]inventory.Product
	users      map[inventory.UserID]inventory.User
}

func NewMemory() *Memory {
	m := &Memory{now: func() time.Time { return time.Now().UTC() }}
	m.state = &memoryState{
		now:        func() time.Time { return m.now() },
		lastID:     make(map[string]int64),
		logs:       make(map[inventory.LogID]inventory.InventoryLog),
		sales:      make(map[inventory.SaleID]saleRow),
		details:    make(map[inventory.DetailID]inventory.SaleDetail),
		categories: make(map[inventory.CategoryID]inventory.Category),
		customers:  make(map[inventory.CustomerID]inventory.Customer),
		products:   make(map[inventory.ProductID]inventory.Product),
		users:      make(map[inventory.UserID]inventory.User),
	}
	return m
}

// SetClock replaces the time source used for ledger and sale timestamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// ReadTx runs fn against the committed state.
func (m *Memory) ReadTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

// Counts returns the number of rows per table. Tests use it to assert that a
// rejected operation wrote nothing.
func (m *Memory) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	return map[string]int{
		"inventory_logs": len(s.logs),
		"sales":          len(s.sales),
		"sales_details":  len(s.details),
		"categories":     len(s.categories),
		"customers":      len(s.customers),
		"products":       len(s.products),
		"users":          len(s.users),
	}
}

// clone copies every table. Rows are values; pointer fields are never
// mutated in place, so a shallow copy of each map is a full snapshot.
func (s *memoryState) clone() *memoryState {
	return &memoryState{
		now:        s.now,
		lastID:     maps.Clone(s.lastID),
		logs:       maps.Clone(s.logs),
		sales:      maps.Clone(s.sales),
		details:    maps.Clone(s.details),
		categories: maps.Clone(s.categories),
		customers:  maps.Clone(s.customers),
		products:   maps.Clone(s.products),
		users:      maps.Clone(s.users),
	}
}

func (s *memoryState) nextID(table string) int64 {
	s.lastID[table]++
	return s.lastID[table]
}

func violation(name string) error {
	return &inventory.ConstraintError{Kind: inventory.KindOf(name), Constraint: name}
}

func ptr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func sortedKeys[K ~int64, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// =============================================================================
// LEDGER
// =============================================================================

func (s *memoryState) SumForProduct(_ context.Context, productID inventory.ProductID) (int64, error) {
	var sum int64
	for _, l := range s.logs {
		if l.ProductID == productID {
			sum += l.Delta
		}
	}
	return sum, nil
}

func (s *memoryState) checkLog(t inventory.LogType, productID inventory.ProductID) error {
	if _, ok := s.products[productID]; !ok {
		return violation(inventory.ConstraintLogProduct)
	}
	if !t.Valid() {
		return violation(inventory.ConstraintLogType)
	}
	return nil
}

func (s *memoryState) AppendLog(_ context.Context, entry inventory.LogEntry) (inventory.LogID, error) {
	if err := s.checkLog(entry.Type, entry.ProductID); err != nil {
		return 0, err
	}
	id := inventory.LogID(s.nextID("inventory_logs"))
	s.logs[id] = inventory.InventoryLog{
		ID:        id,
		Time:      s.now(),
		Type:      entry.Type,
		ProductID: entry.ProductID,
		Delta:     entry.Delta,
		Note:      entry.Note,
	}
	return id, nil
}

func (s *memoryState) GetLog(_ context.Context, id inventory.LogID) (inventory.InventoryLog, error) {
	l, ok := s.logs[id]
	if !ok {
		return inventory.InventoryLog{}, inventory.ErrNotFound
	}
	return l, nil
}

func (s *memoryState) ListLogs(_ context.Context, filter inventory.LogFilter) ([]inventory.InventoryLog, error) {
	result := []inventory.InventoryLog{}
	for _, id := range sortedKeys(s.logs) {
		l := s.logs[id]
		if filter.ProductID != nil && l.ProductID != *filter.ProductID {
			continue
		}
		if filter.Type != nil && l.Type != *filter.Type {
			continue
		}
		result = append(result, l)
	}
	return result, nil
}

func (s *memoryState) UpdateLog(_ context.Context, id inventory.LogID, patch inventory.LogPatch) error {
	l, ok := s.logs[id]
	if !ok {
		return inventory.ErrNotFound
	}
	if patch.Type != nil {
		l.Type = *patch.Type
	}
	if patch.ProductID != nil {
		l.ProductID = *patch.ProductID
	}
	if patch.Delta != nil {
		l.Delta = *patch.Delta
	}
	if patch.Note != nil {
		l.Note = *patch.Note
	}
	if err := s.checkLog(l.Type, l.ProductID); err != nil {
		return err
	}
	s.logs[id] = l
	return nil
}

func (s *memoryState) DeleteLog(_ context.Context, id inventory.LogID) error {
	if _, ok := s.logs[id]; !ok {
		return inventory.ErrNotFound
	}
	s.deleteLog(id)
	return nil
}

func (s *memoryState) DeleteLogs(_ context.Context, ids []inventory.LogID) error {
	for _, id := range ids {
		s.deleteLog(id)
	}
	return nil
}

// deleteLog removes the entry and detaches details pointing at it.
func (s *memoryState) deleteLog(id inventory.LogID) {
	delete(s.logs, id)
	for did, d := range s.details {
		if d.LogID != nil && *d.LogID == id {
			d.LogID = nil
			s.details[did] = d
		}
	}
}

// =============================================================================
// SALES
// =============================================================================

func (s *memoryState) InsertSale(_ context.Context, h inventory.SaleHeader) (inventory.SaleID, error) {
	if _, ok := s.customers[h.CustomerID]; !ok {
		return 0, violation(inventory.ConstraintSaleCustomer)
	}
	var userID *inventory.UserID
	if h.UserID != 0 {
		if _, ok := s.users[h.UserID]; !ok {
			return 0, violation(inventory.ConstraintSaleUser)
		}
		u := h.UserID
		userID = &u
	}
	id := inventory.SaleID(s.nextID("sales"))
	s.sales[id] = saleRow{
		id:         id,
		time:       s.now(),
		totalCents: h.TotalCents,
		customerID: h.CustomerID,
		userID:     userID,
	}
	return id, nil
}

func (s *memoryState) InsertSaleDetail(_ context.Context, d inventory.SaleDetail) (inventory.DetailID, error) {
	if _, ok := s.sales[d.SaleID]; !ok {
		return 0, violation(inventory.ConstraintDetailSale)
	}
	if d.SubtotalCents == 0 {
		return 0, violation(inventory.ConstraintDetailSubtotal)
	}
	if d.LogID != nil {
		if _, ok := s.logs[*d.LogID]; !ok {
			return 0, violation(inventory.ConstraintDetailLog)
		}
	}
	id := inventory.DetailID(s.nextID("sales_details"))
	s.details[id] = inventory.SaleDetail{
		ID:            id,
		SaleID:        d.SaleID,
		SubtotalCents: d.SubtotalCents,
		LogID:         ptr(d.LogID),
		Note:          d.Note,
	}
	return id, nil
}

func (s *memoryState) SaleLogIDs(_ context.Context, saleID inventory.SaleID) ([]inventory.LogID, error) {
	var ids []inventory.LogID
	for _, did := range sortedKeys(s.details) {
		d := s.details[did]
		if d.SaleID == saleID && d.LogID != nil {
			ids = append(ids, *d.LogID)
		}
	}
	return ids, nil
}

func (s *memoryState) DeleteSaleDetails(_ context.Context, saleID inventory.SaleID) error {
	for did, d := range s.details {
		if d.SaleID == saleID {
			delete(s.details, did)
		}
	}
	return nil
}

func (s *memoryState) DeleteSale(ctx context.Context, saleID inventory.SaleID) error {
	if _, ok := s.sales[saleID]; !ok {
		return inventory.ErrNotFound
	}
	delete(s.sales, saleID)
	// ON DELETE CASCADE
	return s.DeleteSaleDetails(ctx, saleID)
}

func (r saleRow) header() inventory.Sale {
	return inventory.Sale{
		ID:         r.id,
		Time:       r.time,
		TotalCents: r.totalCents,
		CustomerID: r.customerID,
		UserID:     ptr(r.userID),
	}
}

func (s *memoryState) GetSale(_ context.Context, saleID inventory.SaleID) (inventory.Sale, error) {
	row, ok := s.sales[saleID]
	if !ok {
		return inventory.Sale{}, inventory.ErrNotFound
	}
	sale := row.header()
	sale.Details = []inventory.SaleDetail{}
	for _, did := range sortedKeys(s.details) {
		d := s.details[did]
		if d.SaleID != saleID {
			continue
		}
		if d.LogID != nil {
			if l, ok := s.logs[*d.LogID]; ok {
				pid, qty := l.ProductID, -l.Delta
				d.ProductID, d.Quantity = &pid, &qty
			}
		}
		sale.Details = append(sale.Details, d)
	}
	return sale, nil
}

func (s *memoryState) ListSales(_ context.Context) ([]inventory.Sale, error) {
	result := []inventory.Sale{}
	for _, id := range sortedKeys(s.sales) {
		result = append(result, s.sales[id].header())
	}
	return result, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *memoryState) InsertCategory(_ context.Context, c inventory.Category) (inventory.CategoryID, error) {
	c.ID = inventory.CategoryID(s.nextID("categories"))
	s.categories[c.ID] = c
	return c.ID, nil
}

func (s *memoryState) GetCategory(_ context.Context, id inventory.CategoryID) (inventory.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return inventory.Category{}, inventory.ErrNotFound
	}
	return c, nil
}

func (s *memoryState) ListCategories(_ context.Context) ([]inventory.Category, error) {
	result := []inventory.Category{}
	for _, id := range sortedKeys(s.categories) {
		result = append(result, s.categories[id])
	}
	return result, nil
}

func (s *memoryState) UpdateCategory(_ context.Context, id inventory.CategoryID, patch inventory.CategoryPatch) error {
	c, ok := s.categories[id]
	if !ok {
		return inventory.ErrNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	s.categories[id] = c
	return nil
}

func (s *memoryState) DeleteCategory(_ context.Context, id inventory.CategoryID) error {
	if _, ok := s.categories[id]; !ok {
		return inventory.ErrNotFound
	}
	delete(s.categories, id)
	// ON DELETE SET NULL
	for pid, p := range s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			s.products[pid] = p
		}
	}
	return nil
}

// =============================================================================
// CUSTOMERS
// =============================================================================

// emailPattern mirrors the LIKE '%_@_%._%' check of the SQL schema.
var emailPattern = regexp.MustCompile(`^.+@.+\..+$`)

func checkEmail(email string) error {
	if email != "" && !emailPattern.MatchString(email) {
		return violation(inventory.ConstraintCustomerEmail)
	}
	return nil
}

func (s *memoryState) InsertCustomer(_ context.Context, c inventory.Customer) (inventory.CustomerID, error) {
	if err := checkEmail(c.Email); err != nil {
		return 0, err
	}
	c.ID = inventory.CustomerID(s.nextID("customers"))
	s.customers[c.ID] = c
	return c.ID, nil
}

func (s *memoryState) GetCustomer(_ context.Context, id inventory.CustomerID) (inventory.Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return inventory.Customer{}, inventory.ErrNotFound
	}
	return c, nil
}

func (s *memoryState) ListCustomers(_ context.Context) ([]inventory.Customer, error) {
	result := []inventory.Customer{}
	for _, id := range sortedKeys(s.customers) {
		result = append(result, s.customers[id])
	}
	return result, nil
}

func (s *memoryState) UpdateCustomer(_ context.Context, id inventory.CustomerID, patch inventory.CustomerPatch) error {
	c, ok := s.customers[id]
	if !ok {
		return inventory.ErrNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Name, patch.Name)
	set(&c.Email, patch.Email)
	set(&c.Phone, patch.Phone)
	set(&c.Address, patch.Address)
	set(&c.City, patch.City)
	set(&c.State, patch.State)
	set(&c.PostCode, patch.PostCode)
	set(&c.Country, patch.Country)
	if err := checkEmail(c.Email); err != nil {
		return err
	}
	s.customers[id] = c
	return nil
}

func (s *memoryState) DeleteCustomer(_ context.Context, id inventory.CustomerID) error {
	if _, ok := s.customers[id]; !ok {
		return inventory.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.customerID == id {
			return violation(inventory.ConstraintCustomerInUse)
		}
	}
	delete(s.customers, id)
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *memoryState) checkProduct(p inventory.Product, self inventory.ProductID) error {
	if p.PriceCents < 0 {
		return violation(inventory.ConstraintProductPrice)
	}
	if p.CategoryID != nil {
		if _, ok := s.categories[*p.CategoryID]; !ok {
			return violation(inventory.ConstraintProductCategory)
		}
	}
	if p.SKU != nil {
		for id, other := range s.products {
			if id != self && other.SKU != nil && *other.SKU == *p.SKU {
				return violation(inventory.ConstraintProductSKU)
			}
		}
	}
	return nil
}

func (s *memoryState) InsertProduct(_ context.Context, p inventory.Product) (inventory.ProductID, error) {
	if err := s.checkProduct(p, 0); err != nil {
		return 0, err
	}
	p.ID = inventory.ProductID(s.nextID("products"))
	p.SKU = ptr(p.SKU)
	p.CategoryID = ptr(p.CategoryID)
	p.Quantity = 0
	s.products[p.ID] = p
	return p.ID, nil
}

func (s *memoryState) withQuantity(p inventory.Product) inventory.Product {
	p.Quantity, _ = s.SumForProduct(context.Background(), p.ID)
	return p
}

func (s *memoryState) GetProduct(_ context.Context, id inventory.ProductID) (inventory.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return inventory.Product{}, inventory.ErrNotFound
	}
	return s.withQuantity(p), nil
}

func (s *memoryState) ProductExists(_ context.Context, id inventory.ProductID) (bool, error) {
	_, ok := s.products[id]
	return ok, nil
}

func (s *memoryState) ListProducts(_ context.Context) ([]inventory.Product, error) {
	result := []inventory.Product{}
	for _, id := range sortedKeys(s.products) {
		result = append(result, s.withQuantity(s.products[id]))
	}
	return result, nil
}

func (s *memoryState) UpdateProduct(_ context.Context, id inventory.ProductID, patch inventory.ProductPatch) error {
	p, ok := s.products[id]
	if !ok {
		return inventory.ErrNotFound
	}
	if patch.SKU.Set {
		p.SKU = ptr(patch.SKU.Value)
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.PriceCents != nil {
		p.PriceCents = *patch.PriceCents
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.CategoryID.Set {
		p.CategoryID = ptr(patch.CategoryID.Value)
	}
	if err := s.checkProduct(p, id); err != nil {
		return err
	}
	s.products[id] = p
	return nil
}

func (s *memoryState) DeleteProduct(_ context.Context, id inventory.ProductID) error {
	if _, ok := s.products[id]; !ok {
		return inventory.ErrNotFound
	}
	for _, l := range s.logs {
		if l.ProductID == id {
			return violation(inventory.ConstraintProductInUse)
		}
	}
	delete(s.products, id)
	return nil
}

// =============================================================================
// USERS
// =============================================================================

func (s *memoryState) checkUser(u inventory.User, self inventory.UserID) error {
	if !u.Role.Valid() {
		return violation(inventory.ConstraintUserRole)
	}
	for id, other := range s.users {
		if id != self && other.Username == u.Username {
			return violation(inventory.ConstraintUsername)
		}
	}
	return nil
}

func (s *memoryState) InsertUser(_ context.Context, u inventory.User) (inventory.UserID, error) {
	if err := s.checkUser(u, 0); err != nil {
		return 0, err
	}
	u.ID = inventory.UserID(s.nextID("users"))
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *memoryState) GetUser(_ context.Context, id inventory.UserID) (inventory.User, error) {
	u, ok := s.users[id]
	if !ok {
		return inventory.User{}, inventory.ErrNotFound
	}
	return u, nil
}

func (s *memoryState) GetUserByUsername(_ context.Context, username string) (inventory.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return inventory.User{}, inventory.ErrNotFound
}

func (s *memoryState) ListUsers(_ context.Context) ([]inventory.User, error) {
	result := []inventory.User{}
	for _, id := range sortedKeys(s.users) {
		result = append(result, s.users[id])
	}
	return result, nil
}

func (s *memoryState) UpdateUser(_ context.Context, id inventory.UserID, patch inventory.UserPatch) error {
	u, ok := s.users[id]
	if !ok {
		return inventory.ErrNotFound
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if err := s.checkUser(u, id); err != nil {
		return err
	}
	s.users[id] = u
	return nil
}

func (s *memoryState) DeleteUser(_ context.Context, id inventory.UserID) error {
	if _, ok := s.users[id]; !ok {
		return inventory.ErrNotFound
	}
	delete(s.users, id)
	// ON DELETE SET NULL
	for sid, sale := range s.sales {
		if sale.userID != nil && *sale.userID == id {
			sale.userID = nil
			s.sales[sid] = sale
		}
	}
	return nil
}

func (s *memoryState) AdminExists(_ context.Context) (bool, error) {
	for _, u := range s.users {
		if u.Role == access.RoleAdmin || u.Username == inventory.BootstrapUsername {
			return true, nil
		}
	}
	return false, nil
}

var _ inventory.Store = (*Memory)(nil)
var _ inventory.Tx = (*memoryState)(nil)
