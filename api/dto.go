/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the inventory model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Small response wrappers

MONEY:
  Amounts travel as integer cents (price_cents, subtotal_cents,
  total_cents). Responses add a display string in currency units
  (price, total) rendered with shopspring/decimal.

PATCH BODIES:
  Patch requests use optional[T] so a field that is absent stays
  unchanged, while an explicit null clears a nullable column.

VALIDATION:
  Request structs carry go-playground/validator tags for shape checks.
  Business rules (required customer, non-zero subtotal, ...) stay in the
  inventory package so every caller gets the same errors.

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/types.go: Domain types
*/
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// MessageResponse acknowledges a write.
type MessageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// optional is a patch field: Set reports presence in the body, Null an
// explicit JSON null.
type optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// ptr returns the value for a present, non-null field and nil otherwise.
func (o optional[T]) ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// nullable converts the field for a nullable column.
func nullable[T any, U any](o optional[T], conv func(T) U) inventory.Nullable[U] {
	if !o.Set {
		return inventory.Nullable[U]{}
	}
	if o.Null {
		return inventory.Nullable[U]{Set: true}
	}
	v := conv(o.Value)
	return inventory.Nullable[U]{Set: true, Value: &v}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// =============================================================================
// SESSIONS
// =============================================================================

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Message   string  `json:"message"`
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      UserDTO `json:"user"`
}

// =============================================================================
// CATEGORIES
// =============================================================================

type CategoryDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toCategoryDTO(c inventory.Category) CategoryDTO {
	return CategoryDTO{ID: int64(c.ID), Name: c.Name, Description: c.Description}
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description" validate:"max=2000"`
}

type UpdateCategoryRequest struct {
	Name        optional[string] `json:"name"`
	Description optional[string] `json:"description"`
}

func (r UpdateCategoryRequest) patch() inventory.CategoryPatch {
	return inventory.CategoryPatch{Name: r.Name.ptr(), Description: r.Description.ptr()}
}

// =============================================================================
// CUSTOMERS
// =============================================================================

type CustomerDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	PostCode string `json:"post_code"`
	Country  string `json:"country"`
}

func toCustomerDTO(c inventory.Customer) CustomerDTO {
	return CustomerDTO{
		ID:       int64(c.ID),
		Name:     c.Name,
		Email:    c.Email,
		Phone:    c.Phone,
		Address:  c.Address,
		City:     c.City,
		State:    c.State,
		PostCode: c.PostCode,
		Country:  c.Country,
	}
}

type CreateCustomerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone" validate:"max=64"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	PostCode string `json:"post_code" validate:"max=32"`
	Country  string `json:"country"`
}

func (r CreateCustomerRequest) customer() inventory.Customer {
	return inventory.Customer{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Address:  r.Address,
		City:     r.City,
		State:    r.State,
		PostCode: r.PostCode,
		Country:  r.Country,
	}
}

type UpdateCustomerRequest struct {
	Name     optional[string] `json:"name"`
	Email    optional[string] `json:"email"`
	Phone    optional[string] `json:"phone"`
	Address  optional[string] `json:"address"`
	City     optional[string] `json:"city"`
	State    optional[string] `json:"state"`
	PostCode optional[string] `json:"post_code"`
	Country  optional[string] `json:"country"`
}

func (r UpdateCustomerRequest) patch() inventory.CustomerPatch {
	return inventory.CustomerPatch{
		Name:     r.Name.ptr(),
		Email:    r.Email.ptr(),
		Phone:    r.Phone.ptr(),
		Address:  r.Address.ptr(),
		City:     r.City.ptr(),
		State:    r.State.ptr(),
		PostCode: r.PostCode.ptr(),
		Country:  r.Country.ptr(),
	}
}

// =============================================================================
// PRODUCTS
// =============================================================================

type ProductDTO struct {
	ID          int64   `json:"id"`
	SKU         *string `json:"sku"`
	Active      bool    `json:"active"`
	Name        string  `json:"name"`
	PriceCents  int64   `json:"price_cents"`
	Price       string  `json:"price"`
	Description string  `json:"description"`
	CategoryID  *int64  `json:"category_id"`
	Quantity    int64   `json:"quantity"`
}

func toProductDTO(p inventory.Product) ProductDTO {
	dto := ProductDTO{
		ID:          int64(p.ID),
		SKU:         p.SKU,
		Active:      p.Active,
		Name:        p.Name,
		PriceCents:  int64(p.PriceCents),
		Price:       p.PriceCents.String(),
		Description: p.Description,
		Quantity:    p.Quantity,
	}
	if p.CategoryID != nil {
		id := int64(*p.CategoryID)
		dto.CategoryID = &id
	}
	return dto
}

type CreateProductRequest struct {
	SKU         *string `json:"sku" validate:"omitempty,max=64"`
	Active      *bool   `json:"active"`
	Name        string  `json:"name"`
	PriceCents  int64   `json:"price_cents"`
	Description string  `json:"description"`
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
}

func (r CreateProductRequest) product() inventory.Product {
	p := inventory.Product{
		SKU:         r.SKU,
		Active:      *r.Active,
		Name:        r.Name,
		PriceCents:  inventory.Cents(r.PriceCents),
		Description: r.Description,
	}
	if r.CategoryID != nil {
		id := inventory.CategoryID(*r.CategoryID)
		p.CategoryID = &id
	}
	return p
}

type UpdateProductRequest struct {
	SKU         optional[string] `json:"sku"`
	Active      optional[bool]   `json:"active"`
	Name        optional[string] `json:"name"`
	PriceCents  optional[int64]  `json:"price_cents"`
	Description optional[string] `json:"description"`
	CategoryID  optional[int64]  `json:"category_id"`
}

func (r UpdateProductRequest) patch() inventory.ProductPatch {
	patch := inventory.ProductPatch{
		SKU:         nullable(r.SKU, func(s string) string { return s }),
		Active:      r.Active.ptr(),
		Name:        r.Name.ptr(),
		Description: r.Description.ptr(),
		CategoryID:  nullable(r.CategoryID, func(id int64) inventory.CategoryID { return inventory.CategoryID(id) }),
	}
	if price := r.PriceCents.ptr(); price != nil {
		cents := inventory.Cents(*price)
		patch.PriceCents = &cents
	}
	return patch
}

type StockDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// =============================================================================
// USERS
// =============================================================================

// UserDTO never carries the password hash.
type UserDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toUserDTO(u inventory.User) UserDTO {
	return UserDTO{ID: int64(u.ID), Username: u.Username, Role: string(u.Role)}
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type UpdateUserRequest struct {
	Username optional[string] `json:"username"`
	Password optional[string] `json:"password"`
	Role     optional[string] `json:"role"`
}

// update converts the request; role names go through access.ParseRole.
func (r UpdateUserRequest) update() (inventory.UserUpdate, error) {
	upd := inventory.UserUpdate{Username: r.Username.ptr(), Password: r.Password.ptr()}
	if name := r.Role.ptr(); name != nil {
		role, err := access.ParseRole(*name)
		if err != nil {
			return upd, inventory.ErrInvalidRole
		}
		upd.Role = &role
	}
	return upd, nil
}

type MeDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// =============================================================================
// LEDGER
// =============================================================================

type LogDTO struct {
	ID        int64  `json:"id"`
	Time      string `json:"time"`
	Type      string `json:"type"`
	ProductID int64  `json:"product_id"`
	Delta     int64  `json:"delta"`
	Note      string `json:"note"`
}

func toLogDTO(l inventory.InventoryLog) LogDTO {
	return LogDTO{
		ID:        int64(l.ID),
		Time:      formatTime(l.Time),
		Type:      string(l.Type),
		ProductID: int64(l.ProductID),
		Delta:     l.Delta,
		Note:      l.Note,
	}
}

type CreateLogRequest struct {
	Type      string `json:"type"`
	ProductID int64  `json:"product_id"`
	Delta     int64  `json:"delta"`
	Note      string `json:"note"`
}

type UpdateLogRequest struct {
	Type      optional[string] `json:"type"`
	ProductID optional[int64]  `json:"product_id"`
	Delta     optional[int64]  `json:"delta"`
	Note      optional[string] `json:"note"`
}

func (r UpdateLogRequest) patch() inventory.LogPatch {
	patch := inventory.LogPatch{Delta: r.Delta.ptr(), Note: r.Note.ptr()}
	if t := r.Type.ptr(); t != nil {
		lt := inventory.LogType(*t)
		patch.Type = &lt
	}
	if id := r.ProductID.ptr(); id != nil {
		pid := inventory.ProductID(*id)
		patch.ProductID = &pid
	}
	return patch
}

// =============================================================================
// SALES
// =============================================================================

type SaleDTO struct {
	ID         int64           `json:"id"`
	Time       string          `json:"time"`
	TotalCents int64           `json:"total_cents"`
	Total      string          `json:"total"`
	CustomerID int64           `json:"customer_id"`
	UserID     *int64          `json:"user_id"`
	Details    []SaleDetailDTO `json:"details,omitempty"`
}

type SaleDetailDTO struct {
	ID            int64  `json:"id"`
	SubtotalCents int64  `json:"subtotal_cents"`
	LogID         *int64 `json:"log_id"`
	ProductID     *int64 `json:"product_id"`
	Quantity      *int64 `json:"quantity"`
	Note          string `json:"note"`
}

func toSaleDTO(s inventory.Sale) SaleDTO {
	dto := SaleDTO{
		ID:         int64(s.ID),
		Time:       formatTime(s.Time),
		TotalCents: int64(s.TotalCents),
		Total:      s.TotalCents.String(),
		CustomerID: int64(s.CustomerID),
	}
	if s.UserID != nil {
		id := int64(*s.UserID)
		dto.UserID = &id
	}
	for _, d := range s.Details {
		detail := SaleDetailDTO{
			ID:            int64(d.ID),
			SubtotalCents: int64(d.SubtotalCents),
			Quantity:      d.Quantity,
			Note:          d.Note,
		}
		if d.LogID != nil {
			id := int64(*d.LogID)
			detail.LogID = &id
		}
		if d.ProductID != nil {
			id := int64(*d.ProductID)
			detail.ProductID = &id
		}
		dto.Details = append(dto.Details, detail)
	}
	return dto
}

type CreateSaleRequest struct {
	CustomerID int64                   `json:"customer_id"`
	Details    []CreateSaleLineRequest `json:"details" validate:"dive"`
}

type CreateSaleLineRequest struct {
	ProductID     *int64 `json:"product_id"`
	Quantity      *int64 `json:"quantity"`
	SubtotalCents int64  `json:"subtotal_cents"`
	Note          string `json:"note" validate:"max=2000"`
}

func (r CreateSaleRequest) sale() inventory.NewSale {
	sale := inventory.NewSale{CustomerID: inventory.CustomerID(r.CustomerID)}
	for _, d := range r.Details {
		line := inventory.LineItem{
			Quantity:      d.Quantity,
			SubtotalCents: inventory.Cents(d.SubtotalCents),
			Note:          d.Note,
		}
		// product_id 0 means the line has no inventory impact
		if d.ProductID != nil && *d.ProductID != 0 {
			id := inventory.ProductID(*d.ProductID)
			line.ProductID = &id
		}
		sale.Lines = append(sale.Lines, line)
	}
	return sale
}
