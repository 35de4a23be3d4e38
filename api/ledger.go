package api

import (
	"net/http"
	"strconv"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// LEDGER ENDPOINTS
// =============================================================================

// ListLogs returns ledger entries, optionally filtered by product_id and type.
// GET /api/logs?product_id=1&type=restock
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	var filter inventory.LogFilter
	q := r.URL.Query()
	if raw := q.Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, errInvalidID)
			return
		}
		pid := inventory.ProductID(id)
		filter.ProductID = &pid
	}
	if raw := q.Get("type"); raw != "" {
		t := inventory.LogType(raw)
		filter.Type = &t
	}

	entries, err := h.Ledger.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]LogDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLogDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GET /api/logs/{id}
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.Ledger.Get(r.Context(), inventory.LogID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLogDTO(entry))
}

// CreateLog appends a manual, restock or return entry.
// POST /api/logs
func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) {
	var req CreateLogRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Ledger.Append(r.Context(), inventory.LogEntry{
		Type:      inventory.LogType(req.Type),
		ProductID: inventory.ProductID(req.ProductID),
		Delta:     req.Delta,
		Note:      req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Log has been created.", int64(id))
}

// PATCH /api/logs/{id}
func (h *Handler) UpdateLog(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateLogRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Ledger.Update(r.Context(), inventory.LogID(id), req.patch()); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Log has been updated.", 0)
}

// DELETE /api/logs/{id}
func (h *Handler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Ledger.Delete(r.Context(), inventory.LogID(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Log has been deleted.", 0)
}
