package http

import (
	"context"
	"net/http"
	"time"

	"bikeshare-backend/internal/security"
	"bikeshare-backend/internal/service"

	"github.com/gorilla/mux"
)

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter registers the JSON API under /api/v1 and the health probe.
func NewRouter(rentals service.RentalService, sales service.SaleService, tm security.TokenManager, db Pinger) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogger, NewAuthMiddleware(tm).Handler)

	router.HandleFunc("/healthz", healthz(db)).Methods(http.MethodGet)

	rh := NewRentalHandler(rentals)
	sh := NewSaleHandler(sales)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/rentals", rh.Rent).Methods(http.MethodPost)
	api.HandleFunc("/rentals/{id:[0-9]+}/return", rh.Return).Methods(http.MethodPost)
	api.HandleFunc("/rentals/{id:[0-9]+}/payments", rh.Pay).Methods(http.MethodPost)
	api.HandleFunc("/rentals/{id:[0-9]+}/payments", rh.ListPayments).Methods(http.MethodGet)

	api.HandleFunc("/me/rentals", rh.MyRentals).Methods(http.MethodGet)
	api.HandleFunc("/me/waitlist", rh.MyWaitlist).Methods(http.MethodGet)
	api.HandleFunc("/me/notifications", rh.MyNotifications).Methods(http.MethodGet)

	api.HandleFunc("/sale-offers", sh.CreateOffer).Methods(http.MethodPost)
	api.HandleFunc("/sale-offers", sh.ListOffers).Methods(http.MethodGet)
	api.HandleFunc("/basket/items", sh.AddToBasket).Methods(http.MethodPost)
	api.HandleFunc("/purchases/checkout", sh.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/purchases/{id:[0-9]+}", sh.GetPurchase).Methods(http.MethodGet)
	api.HandleFunc("/purchases/{id:[0-9]+}/pay", sh.PayPurchase).Methods(http.MethodPost)

	return router
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
