package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/model"
	"github.com/bidwise/bidcore/internal/service"
	"github.com/bidwise/bidcore/pkg/config"
	"github.com/google/uuid"
)

var requestIDKey = "X-Request-ID"

func writeJson(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to write json response", "status", status, "error", err)
	}
}

func GetUserClaims(ctx context.Context) *config.UserClaims {
	claims, ok := ctx.Value(config.UserClaimKey).(*config.UserClaims)
	if !ok {
		return nil
	}
	return claims
}

func RespondSuccessJSON[T any](w http.ResponseWriter, r *http.Request, status int, message string, data T) {

	// fetch request ID , if not found generate new UUID
	reqID := r.Header.Get(requestIDKey)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	// This ensures the client gets the ID whether they sent it or we created it.
	w.Header().Set(requestIDKey, reqID)

	payload := model.APIResponse[T]{
		Status:  "success",
		Message: message,
		Metadata: model.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: reqID,
		},
		Data:  data,
		Error: nil,
	}
	writeJson(w, status, payload)
}

func RespondErrorJSON(w http.ResponseWriter, r *http.Request, status int, code string, message string, details []model.ErrorDetails) {
	// fetch request ID , if not found generate new UUID
	reqID := r.Header.Get(requestIDKey)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	// This ensures the client gets the ID whether they sent it or we created it.
	w.Header().Set(requestIDKey, reqID)

	payload := model.APIResponse[any]{
		Status: "error",
		Metadata: model.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: reqID,
		},
		Error: &model.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	writeJson(w, status, payload)
}

// rejectionStatus maps a business rejection to its HTTP status. Every
// rejection is a normal client-facing outcome, never a 5xx.
func rejectionStatus(reason auction.RejectReason) int {
	switch reason {
	case auction.RejectUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// RespondServiceError translates service-layer failures: typed business
// rejections keep their reason code, not-found maps to 404, and an
// exhausted transient failure maps to 503 so callers never mistake it
// for a rejection.
func RespondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rej *auction.Rejection
	switch {
	case errors.As(err, &rej):
		var details []model.ErrorDetails
		if rej.Reason == auction.RejectBidTooLow {
			details = []model.ErrorDetails{{Field: "amount", Issue: "minimum acceptable bid is " + rej.Minimum.String()}}
		}
		RespondErrorJSON(w, r, rejectionStatus(rej.Reason), string(rej.Reason), rej.Message, details)
	case errors.Is(err, service.ErrItemNotFound):
		RespondErrorJSON(w, r, http.StatusNotFound, ErrItemNotFound.Error(), "Item not found", nil)
	case errors.Is(err, service.ErrBidNotFound):
		RespondErrorJSON(w, r, http.StatusNotFound, ErrBidNotFound.Error(), "Bid not found", nil)
	case errors.Is(err, service.ErrServiceUnavailable):
		RespondErrorJSON(w, r, http.StatusServiceUnavailable, ErrUnavailable.Error(), "Service temporarily unavailable, please retry", nil)
	default:
		slog.Error("unhandled service error", "error", err)
		RespondErrorJSON(w, r, http.StatusInternalServerError, ErrInternalServer.Error(), "Internal server error", nil)
	}
}
