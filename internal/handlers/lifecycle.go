package handlers

import (
	"net/http"

	"github.com/bidwise/bidcore/internal/service"
	"github.com/google/uuid"
)

type LifecycleHandler struct {
	svc service.LifecycleServicer
}

func NewLifecycleHandler(svc service.LifecycleServicer) (*LifecycleHandler, error) {
	return &LifecycleHandler{
		svc: svc,
	}, nil
}

// Reconcile godoc
//
//	@Summary		Reconcile expired auctions
//	@Description	Transition expired auctions to their terminal state. Pass itemId to reconcile one item, omit it to sweep all
//	@Tags			Admin
//	@Produce		json
//	@Param			itemId	query		string	false	"Item ID"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	map[string]any
//	@Failure		404		{object}	map[string]any
//	@Router			/admin/reconcile [post]
func (h *LifecycleHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("itemId"); raw != "" {
		itemID, err := uuid.Parse(raw)
		if err != nil {
			RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingParam.Error(), "A valid item ID is required", nil)
			return
		}

		transitioned, err := h.svc.ReconcileItem(r.Context(), itemID)
		if err != nil {
			RespondServiceError(w, r, err)
			return
		}

		resp := map[string]any{
			"item_id":      itemID,
			"transitioned": transitioned,
		}
		RespondSuccessJSON(w, r, http.StatusOK, "Item reconciled", resp)
		return
	}

	ids, err := h.svc.ReconcileExpired(r.Context())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"transitioned_items": ids,
		"count":              len(ids),
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Expired auctions reconciled", resp)
}
