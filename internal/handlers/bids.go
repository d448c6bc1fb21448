package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/model"
	"github.com/bidwise/bidcore/internal/service"
	pkgvalidator "github.com/bidwise/bidcore/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	itemParamKey string = "itemId"
	bidParamKey  string = "bidId"
)

var validate = pkgvalidator.GetValidator()

type BidHandler struct {
	svc service.BidServicer
}

func NewBidHandler(svc service.BidServicer) (*BidHandler, error) {
	return &BidHandler{svc: svc}, nil
}

// PlaceBid godoc
//
//	@Summary		Place a Bid on an Item
//	@Description	Place a bid on a specific item by the given item ID
//	@Tags			Bids
//	@Accept			json
//	@Produce		json
//	@Param			itemId	path		string			true	"Item ID"
//	@Param			bid		body		model.PlaceBidRequest	true	"Bid details"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	map[string]any
//	@Failure		401		{object}	map[string]any
//	@Failure		503		{object}	map[string]any
//	@Router			/items/{itemId}/bids [post]
func (h *BidHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, itemParamKey))
	if err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingParam.Error(), "A valid item ID is required", nil)
		return
	}

	var req model.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrInvalidJson.Error(), "Invalid JSON format", nil)
		return
	}

	claims := GetUserClaims(r.Context())
	if claims == nil {
		RespondErrorJSON(w, r, http.StatusUnauthorized, ErrAuthFailed.Error(), "user claims not found in context", nil)
		return
	}

	result, err := h.svc.PlaceBid(r.Context(), itemID, claims.UserID, req.Amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	resp := model.PlaceBidResponse{
		Bid:            result.Bid,
		NextMinimumBid: result.NextMinimumBid,
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Bid placed successfully", resp)
}

// WithdrawBid godoc
//
//	@Summary		Withdraw a Bid
//	@Description	Retract one of your own bids before the auction ends
//	@Tags			Bids
//	@Produce		json
//	@Param			bidId	path		string	true	"Bid ID"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	map[string]any
//	@Failure		403		{object}	map[string]any
//	@Router			/bids/{bidId} [delete]
func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	bidID, err := uuid.Parse(chi.URLParam(r, bidParamKey))
	if err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingParam.Error(), "A valid bid ID is required", nil)
		return
	}

	claims := GetUserClaims(r.Context())
	if claims == nil {
		RespondErrorJSON(w, r, http.StatusUnauthorized, ErrAuthFailed.Error(), "user claims not found in context", nil)
		return
	}

	if err := h.svc.WithdrawBid(r.Context(), bidID, claims.UserID); err != nil {
		RespondServiceError(w, r, err)
		return
	}

	RespondSuccessJSON(w, r, http.StatusOK, "Bid withdrawn successfully", "")
}

// GetItemBids godoc
//
//	@Summary		Get Bids for an Item
//	@Description	Retrieve all bids on an item, highest amount first
//	@Tags			Bids
//	@Produce		json
//	@Param			itemId	path		string	true	"Item ID"
//	@Success		200		{object}	map[string]any
//	@Failure		404		{object}	map[string]any
//	@Router			/items/{itemId}/bids [get]
func (h *BidHandler) GetItemBids(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, itemParamKey))
	if err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingParam.Error(), "A valid item ID is required", nil)
		return
	}

	bids, err := h.svc.GetItemBids(r.Context(), itemID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"bids": bids,
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Bids fetched successfully", resp)
}

// MyBids godoc
//
//	@Summary		Get Current User's Bids
//	@Description	Retrieve the caller's bids, optionally filtered by status (active, outbid, won, lost)
//	@Tags			Bids
//	@Produce		json
//	@Param			status	query		string	false	"Bid status filter"
//	@Success		200		{object}	map[string]any
//	@Failure		401		{object}	map[string]any
//	@Router			/me/bids [get]
func (h *BidHandler) MyBids(w http.ResponseWriter, r *http.Request) {
	claims := GetUserClaims(r.Context())
	if claims == nil {
		RespondErrorJSON(w, r, http.StatusUnauthorized, ErrAuthFailed.Error(), "user claims not found in context", nil)
		return
	}

	status := auction.BidStatus(r.URL.Query().Get("status"))
	switch status {
	case "", auction.BidStatusActive, auction.BidStatusOutbid, auction.BidStatusWon, auction.BidStatusLost:
	default:
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrInvalidRequest.Error(), "unknown bid status filter", nil)
		return
	}

	bids, err := h.svc.GetBidderBids(r.Context(), claims.UserID, status)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"bids": bids,
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Bids fetched successfully", resp)
}
