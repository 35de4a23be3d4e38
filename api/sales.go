package api

import (
	"net/http"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// SALE ENDPOINTS
// =============================================================================

// ListSales returns sale headers without details.
// GET /api/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Sales.ListSales(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSale returns a sale with its details.
// GET /api/sales/{id}
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sale, err := h.Sales.GetSale(r.Context(), inventory.SaleID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// CreateSale records a sale and the stock it moves in one transaction.
// POST /api/sales
//
// Request body:
//
//	{
//	  "customer_id": 1,
//	  "details": [
//	    {"product_id": 5, "quantity": 2, "subtotal_cents": 500, "note": "blue"},
//	    {"subtotal_cents": 150, "note": "gift wrap"}
//	  ]
//	}
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Sales.CreateSale(r.Context(), req.sale())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Sale has been created.", int64(id))
}

// DeleteSale removes a sale and restores the stock it moved.
// DELETE /api/sales/{id}
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Sales.DeleteSale(r.Context(), inventory.SaleID(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Sale has been deleted.", 0)
}
