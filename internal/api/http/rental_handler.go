package http

import (
	"net/http"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/service"
)

type RentalHandler struct {
	rentalSvc service.RentalService
}

func NewRentalHandler(rentalSvc service.RentalService) *RentalHandler {
	return &RentalHandler{rentalSvc: rentalSvc}
}

type rentRequest struct {
	BikeID int64 `json:"bike_id"`
	Days   int   `json:"days"`
}

type returnRequest struct {
	Comment   string `json:"comment"`
	Condition string `json:"condition"`
}

func (h *RentalHandler) Rent(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req rentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.rentalSvc.Rent(r.Context(), req.BikeID, customerID, req.Days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Outcome == domain.RentOutcomeWaitlisted {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (h *RentalHandler) Return(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rentalID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.rentalSvc.ReturnBike(r.Context(), rentalID, domain.ReturnRequest{
		AuthorCustomerID: customerID,
		Comment:          req.Comment,
		Condition:        req.Condition,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RentalHandler) Pay(w http.ResponseWriter, r *http.Request) {
	rentalID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.rentalSvc.PayRental(r.Context(), rentalID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *RentalHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	rentalID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.rentalSvc.ListRentalPayments(r.Context(), rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *RentalHandler) MyRentals(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rentals, err := h.rentalSvc.ListMyRentals(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (h *RentalHandler) MyWaitlist(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.rentalSvc.ListMyWaitlist(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *RentalHandler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	notes, err := h.rentalSvc.ListMyNotifications(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}
