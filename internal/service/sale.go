package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/fx"
	"bikeshare-backend/internal/logger"
	"bikeshare-backend/internal/metrics"
	"bikeshare-backend/internal/payment"
	"bikeshare-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type saleService struct {
	store     repository.Store
	converter fx.Converter
	gateway   payment.Gateway
	policy    EligibilityPolicy
	now       func() time.Time
}

func NewSaleService(store repository.Store, converter fx.Converter, gateway payment.Gateway, policy EligibilityPolicy) SaleService {
	if policy == nil {
		policy = eligibilityPolicies[PolicyCorpWithHistory]
	}
	return &saleService{
		store:     store,
		converter: converter,
		gateway:   gateway,
		policy:    policy,
		now:       utcNow,
	}
}

func (s *saleService) CreateSaleOffer(ctx context.Context, seller domain.ProviderRef, bikeID int64, askingPriceEur decimal.Decimal) (offer *domain.SaleOffer, err error) {
	logger.EnterMethod("saleService.CreateSaleOffer", "bikeID", bikeID, "sellerKind", seller.Kind)
	defer func() { metrics.ObserveError("create_sale_offer", err) }()

	if !askingPriceEur.IsPositive() {
		return nil, domain.Validation("asking price must be positive")
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		bike, err := tx.Bikes().LockForUpdate(ctx, bikeID)
		if err != nil {
			return err
		}
		count, err := tx.Rentals().CountByBike(ctx, bikeID)
		if err != nil {
			return err
		}
		if err := s.policy(seller, bike, count); err != nil {
			return err
		}
		exists, err := tx.SaleOffers().ExistsForBike(ctx, bikeID)
		if err != nil {
			return err
		}
		if exists {
			return domain.BusinessRule("this bike already has a sale offer")
		}

		offer = &domain.SaleOffer{
			BikeID:         bikeID,
			Seller:         seller,
			Status:         domain.SaleOfferStatusListed,
			AskingPriceEur: askingPriceEur.Round(fx.AmountScale),
			ListedAt:       s.now(),
		}
		return tx.SaleOffers().Create(ctx, offer)
	})
	if err != nil {
		logger.ExitMethodWithError("saleService.CreateSaleOffer", err, "bikeID", bikeID)
		return nil, err
	}

	logger.Info("Sale offer listed", "offerID", offer.ID, "bikeID", bikeID, "askingPriceEur", offer.AskingPriceEur.String())
	return offer, nil
}

func (s *saleService) ListListedOffers(ctx context.Context) ([]domain.SaleOffer, error) {
	return s.store.SaleOffers().ListListed(ctx)
}

func (s *saleService) AddToBasket(ctx context.Context, customerID uuid.UUID, offerID int64) (item *domain.BasketItem, err error) {
	defer func() { metrics.ObserveError("add_to_basket", err) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		offer, err := tx.SaleOffers().GetByID(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.Status != domain.SaleOfferStatusListed {
			return domain.BusinessRule("offer is not available: %d", offerID)
		}

		now := s.now()
		basket, err := tx.Baskets().LockOpenByCustomer(ctx, customerID)
		if domain.IsNotFound(err) {
			basket = &domain.Basket{CustomerID: customerID, Status: domain.BasketStatusOpen, CreatedAt: now, UpdatedAt: now}
			err = tx.Baskets().Create(ctx, basket)
		}
		if err != nil {
			return err
		}

		item = &domain.BasketItem{
			BasketID:             basket.ID,
			OfferID:              offerID,
			UnitPriceEurSnapshot: offer.AskingPriceEur,
			AddedAt:              now,
		}
		return tx.Baskets().AddItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *saleService) Checkout(ctx context.Context, customerID uuid.UUID) (purchase *domain.Purchase, err error) {
	logger.EnterMethod("saleService.Checkout", "customerID", customerID)
	defer func() { metrics.ObserveError("checkout", err) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		basket, err := tx.Baskets().LockOpenByCustomer(ctx, customerID)
		if domain.IsNotFound(err) {
			return domain.BusinessRule("basket empty")
		}
		if err != nil {
			return err
		}
		items, err := tx.Baskets().ListItems(ctx, basket.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.BusinessRule("basket empty")
		}

		offerIDs := make([]int64, 0, len(items))
		for _, it := range items {
			offerIDs = append(offerIDs, it.OfferID)
		}
		if _, err := lockListedOffers(ctx, tx, offerIDs); err != nil {
			return err
		}

		now := s.now()
		purchase = &domain.Purchase{
			CustomerID:     customerID,
			Status:         domain.PurchaseStatusCreated,
			TotalAmountEur: decimal.Zero,
			CreatedAt:      now,
		}
		for _, it := range items {
			purchase.TotalAmountEur = purchase.TotalAmountEur.Add(it.UnitPriceEurSnapshot)
			purchase.Items = append(purchase.Items, domain.PurchaseItem{
				OfferID:              it.OfferID,
				UnitPriceEurSnapshot: it.UnitPriceEurSnapshot,
			})
		}
		if err := tx.Purchases().Create(ctx, purchase); err != nil {
			return err
		}
		return tx.Baskets().Close(ctx, basket.ID, now)
	})
	if err != nil {
		logger.ExitMethodWithError("saleService.Checkout", err, "customerID", customerID)
		return nil, err
	}

	metrics.PurchasesCheckedOutTotal.Inc()
	logger.Info("Basket checked out", "purchaseID", purchase.ID, "customerID", customerID, "totalEur", purchase.TotalAmountEur.String())
	return purchase, nil
}

// PayPurchase validates everything that can reject the payment before money
// moves: the purchase row and every offer stay locked across the gateway
// calls, so a capture is only ever followed by a successful commit or a
// storage failure.
func (s *saleService) PayPurchase(ctx context.Context, customerID uuid.UUID, purchaseID int64, req domain.PaymentRequest) (paid *domain.SalePayment, err error) {
	logger.EnterMethod("saleService.PayPurchase", "purchaseID", purchaseID, "customerID", customerID, "currency", req.Currency)
	defer func() {
		metrics.SalePaymentsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		metrics.ObserveError("pay_purchase", err)
	}()

	req, err = req.Normalize()
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		purchase, err := tx.Purchases().LockForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if purchase.CustomerID != customerID {
			return domain.BusinessRule("purchase does not belong to customer")
		}
		if purchase.Status != domain.PurchaseStatusCreated {
			return domain.BusinessRule("only CREATED purchases can be paid")
		}

		rate, amountEur, err := fx.Convert(ctx, s.converter, req.Amount, req.Currency)
		if err != nil {
			return err
		}
		if amountEur.LessThan(purchase.TotalAmountEur) {
			return domain.InputRule("insufficient amount to cover purchase total")
		}

		offerIDs := make([]int64, 0, len(purchase.Items))
		for _, it := range purchase.Items {
			offerIDs = append(offerIDs, it.OfferID)
		}
		offerIDs, err = lockListedOffers(ctx, tx, offerIDs)
		if err != nil {
			return err
		}

		captured, err := authorizeAndCapture(ctx, s.gateway, req, fmt.Sprintf("purchase:%d", purchaseID))
		if err != nil {
			return err
		}

		now := s.now()
		paid = &domain.SalePayment{
			PurchaseID:       purchaseID,
			OriginalAmount:   req.Amount,
			OriginalCurrency: req.Currency,
			FxRateToEur:      rate,
			AmountEur:        amountEur,
			Status:           domain.PaymentStatusPaid,
			GatewayReference: captured.PaymentID,
			PaidAt:           now,
		}
		if err := tx.Payments().CreateSalePayment(ctx, paid); err != nil {
			return err
		}
		if err := tx.Purchases().MarkPaid(ctx, purchaseID, now); err != nil {
			return err
		}
		for _, id := range offerIDs {
			if err := tx.SaleOffers().MarkSold(ctx, id, customerID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("saleService.PayPurchase", err, "purchaseID", purchaseID)
		return nil, err
	}

	logger.Info("Purchase paid", "purchaseID", purchaseID, "paymentID", paid.GatewayReference, "amountEur", paid.AmountEur.String())
	return paid, nil
}

func (s *saleService) GetPurchase(ctx context.Context, customerID uuid.UUID, purchaseID int64) (*domain.Purchase, error) {
	purchase, err := s.store.Purchases().GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.CustomerID != customerID {
		return nil, domain.BusinessRule("purchase does not belong to customer")
	}
	return purchase, nil
}

// lockListedOffers locks the offers in ascending id order and fails unless
// every one is still LISTED. It returns the sorted, deduplicated ids.
func lockListedOffers(ctx context.Context, tx repository.Repositories, ids []int64) ([]int64, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	for _, id := range ids {
		offer, err := tx.SaleOffers().LockForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if offer.Status != domain.SaleOfferStatusListed {
			return nil, domain.BusinessRule("offer no longer available: %d", id)
		}
	}
	return ids, nil
}
