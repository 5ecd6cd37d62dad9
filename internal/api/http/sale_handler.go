package http

import (
	"net/http"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/service"

	"github.com/shopspring/decimal"
)

type SaleHandler struct {
	saleSvc service.SaleService
}

func NewSaleHandler(saleSvc service.SaleService) *SaleHandler {
	return &SaleHandler{saleSvc: saleSvc}
}

type createOfferRequest struct {
	BikeID         int64           `json:"bike_id"`
	SellerKind     string          `json:"seller_kind"`
	AskingPriceEur decimal.Decimal `json:"asking_price_eur"`
}

type addItemRequest struct {
	OfferID int64 `json:"offer_id"`
}

// CreateOffer lists a bike for sale on behalf of the authenticated provider.
func (h *SaleHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := domain.ParseProviderKind(req.SellerKind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	offer, err := h.saleSvc.CreateSaleOffer(r.Context(), domain.ProviderRef{Kind: kind, ID: customerID}, req.BikeID, req.AskingPriceEur)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (h *SaleHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.saleSvc.ListListedOffers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *SaleHandler) AddToBasket(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.saleSvc.AddToBasket(r.Context(), customerID, req.OfferID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *SaleHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	purchase, err := h.saleSvc.Checkout(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

func (h *SaleHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	purchaseID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	purchase, err := h.saleSvc.GetPurchase(r.Context(), customerID, purchaseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchase)
}

func (h *SaleHandler) PayPurchase(w http.ResponseWriter, r *http.Request) {
	customerID, err := CustomerIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	purchaseID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.saleSvc.PayPurchase(r.Context(), customerID, purchaseID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
