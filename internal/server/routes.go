package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	authmw "github.com/bidwise/bidcore/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() *chi.Mux {
	mux := chi.NewMux()

	// global middlewares
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)

	auth := authmw.AuthMiddleware(s.Dependencies.JWTManager)

	mux.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthCheck)

		r.Route("/items", func(ir chi.Router) {
			ir.Get("/", s.Dependencies.ListingHandler.ListItems)
			ir.Get("/{itemId}", s.Dependencies.ListingHandler.GetItem)
			ir.Get("/{itemId}/images", s.Dependencies.ListingHandler.GetItemImageUrls)
			ir.Get("/{itemId}/bids", s.Dependencies.BidHandler.GetItemBids)

			ir.Group(func(pr chi.Router) {
				pr.Use(auth)
				pr.With(authmw.RequireCapability(auction.CapCreateListing)).
					Post("/", s.Dependencies.ListingHandler.CreateListing)
				pr.With(authmw.RequireCapability(auction.CapCreateListing)).
					Post("/upload-images", s.Dependencies.ListingHandler.UploadImages)
				pr.With(authmw.RequireCapability(auction.CapManageListing)).
					Put("/{itemId}", s.Dependencies.ListingHandler.UpdateListing)
				pr.With(authmw.RequireCapability(auction.CapManageListing)).
					Delete("/{itemId}", s.Dependencies.ListingHandler.DeleteListing)
				pr.With(authmw.RequireCapability(auction.CapPlaceBid)).
					Post("/{itemId}/bids", s.Dependencies.BidHandler.PlaceBid)
			})
		})

		r.Group(func(pr chi.Router) {
			pr.Use(auth)
			pr.With(authmw.RequireCapability(auction.CapWithdrawBid)).
				Delete("/bids/{bidId}", s.Dependencies.BidHandler.WithdrawBid)
			pr.Get("/me/bids", s.Dependencies.BidHandler.MyBids)
			pr.With(authmw.RequireCapability(auction.CapReconcile)).
				Post("/admin/reconcile", s.Dependencies.LifecycleHandler.Reconcile)
		})
	})

	return mux
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"message": "ok",
		"time":    time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	json.NewEncoder(w).Encode(resp)
}
