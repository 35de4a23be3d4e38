package api

import (
	"net/http"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// CATEGORY ENDPOINTS
// =============================================================================

// GET /api/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]CategoryDTO, len(cats))
	for i, c := range cats {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GET /api/categories/{id}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := h.Catalog.GetCategory(r.Context(), inventory.CategoryID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(cat))
}

// POST /api/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Catalog.CreateCategory(r.Context(), inventory.Category{Name: req.Name, Description: req.Description})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Category has been created.", int64(id))
}

// PATCH /api/categories/{id}
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateCategoryRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.UpdateCategory(r.Context(), inventory.CategoryID(id), req.patch()); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Category has been updated.", 0)
}

// DELETE /api/categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.DeleteCategory(r.Context(), inventory.CategoryID(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Category has been deleted.", 0)
}

// =============================================================================
// CUSTOMER ENDPOINTS
// =============================================================================

// GET /api/customers
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	custs, err := h.Catalog.ListCustomers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]CustomerDTO, len(custs))
	for i, c := range custs {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GET /api/customers/{id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cust, err := h.Catalog.GetCustomer(r.Context(), inventory.CustomerID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(cust))
}

// POST /api/customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Catalog.CreateCustomer(r.Context(), req.customer())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Customer has been created.", int64(id))
}

// PATCH /api/customers/{id}
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateCustomerRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.UpdateCustomer(r.Context(), inventory.CustomerID(id), req.patch()); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Customer has been updated.", 0)
}

// DELETE /api/customers/{id}
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.DeleteCustomer(r.Context(), inventory.CustomerID(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Customer has been deleted.", 0)
}

// =============================================================================
// PRODUCT ENDPOINTS
// =============================================================================

// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.GetProduct(r.Context(), inventory.ProductID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// GetStock returns the quantity on hand, summed from the ledger.
// GET /api/products/{id}/stock
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	qty, err := h.Projector.CurrentStock(r.Context(), inventory.ProductID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StockDTO{ProductID: id, Quantity: qty})
}

// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Active == nil {
		writeError(w, r, inventory.ErrActiveRequired)
		return
	}
	id, err := h.Catalog.CreateProduct(r.Context(), req.product())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Product has been created.", int64(id))
}

// PATCH /api/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateProductRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Active.Set && req.Active.Null {
		writeError(w, r, inventory.ErrActiveRequired)
		return
	}
	if err := h.Catalog.UpdateProduct(r.Context(), inventory.ProductID(id), req.patch()); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product has been updated.", 0)
}

// DELETE /api/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.DeleteProduct(r.Context(), inventory.ProductID(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product has been deleted.", 0)
}
