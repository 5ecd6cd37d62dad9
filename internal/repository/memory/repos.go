package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"bikeshare-backend/internal/domain"

	"github.com/google/uuid"
)

type customers struct{ t tables }

func (r customers) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	d, done := r.t.read()
	defer done()
	c, ok := d.customers[id]
	if !ok {
		return nil, domain.NotFound("customer not found: %s", id)
	}
	return &c, nil
}

func (r customers) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	d, done := r.t.read()
	defer done()
	_, ok := d.customers[id]
	return ok, nil
}

type bikes struct{ t tables }

func (r bikes) GetByID(ctx context.Context, id int64) (*domain.Bike, error) {
	d, done := r.t.read()
	defer done()
	b, ok := d.bikes[id]
	if !ok {
		return nil, domain.NotFound("bike not found: %d", id)
	}
	return &b, nil
}

// LockForUpdate is a plain read: transactions already run one at a time.
func (r bikes) LockForUpdate(ctx context.Context, id int64) (*domain.Bike, error) {
	return r.GetByID(ctx, id)
}

func (r bikes) UpdateStatus(ctx context.Context, id int64, status domain.BikeStatus) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	b, ok := d.bikes[id]
	if !ok {
		return domain.NotFound("bike not found: %d", id)
	}
	b.Status = status
	d.bikes[id] = b
	return nil
}

type rentals struct{ t tables }

func (r rentals) Create(ctx context.Context, rt *domain.Rental) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	if rt.Status == domain.RentalStatusActive {
		for _, other := range d.rentals {
			if other.BikeID == rt.BikeID && other.Status == domain.RentalStatusActive {
				return domain.BusinessRule("bike %d already has an active rental", rt.BikeID)
			}
		}
	}
	rt.ID = d.nextID()
	d.rentals[rt.ID] = *rt
	return nil
}

func (r rentals) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	d, done := r.t.read()
	defer done()
	rt, ok := d.rentals[id]
	if !ok {
		return nil, domain.NotFound("rental not found: %d", id)
	}
	return &rt, nil
}

func (r rentals) Close(ctx context.Context, id int64, endAt time.Time) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	rt, ok := d.rentals[id]
	if !ok {
		return domain.NotFound("rental not found: %d", id)
	}
	if rt.Status != domain.RentalStatusActive {
		return domain.BusinessRule("only ACTIVE rentals can be returned")
	}
	rt.Status = domain.RentalStatusClosed
	rt.EndAt = &endAt
	d.rentals[id] = rt
	return nil
}

func (r rentals) ExistsActiveForBike(ctx context.Context, bikeID int64) (bool, error) {
	d, done := r.t.read()
	defer done()
	for _, rt := range d.rentals {
		if rt.BikeID == bikeID && rt.Status == domain.RentalStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (r rentals) CountByBike(ctx context.Context, bikeID int64) (int64, error) {
	d, done := r.t.read()
	defer done()
	var n int64
	for _, rt := range d.rentals {
		if rt.BikeID == bikeID {
			n++
		}
	}
	return n, nil
}

func (r rentals) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Rental, error) {
	d, done := r.t.read()
	defer done()
	out := []domain.Rental{}
	for _, rt := range d.rentals {
		if rt.CustomerID == customerID {
			out = append(out, rt)
		}
	}
	slices.SortFunc(out, func(a, b domain.Rental) int {
		if c := b.StartAt.Compare(a.StartAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

type waitingLists struct{ t tables }

func (r waitingLists) GetByBike(ctx context.Context, bikeID int64) (*domain.WaitingList, error) {
	d, done := r.t.read()
	defer done()
	for _, w := range d.waitingLists {
		if w.BikeID == bikeID {
			return &w, nil
		}
	}
	return nil, domain.NotFound("waiting list not found for bike: %d", bikeID)
}

func (r waitingLists) CreateIfAbsent(ctx context.Context, list *domain.WaitingList) (bool, error) {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return false, err
	}
	defer done()
	for _, w := range d.waitingLists {
		if w.BikeID == list.BikeID {
			return false, nil
		}
	}
	list.ID = d.nextID()
	d.waitingLists[list.ID] = *list
	return true, nil
}

func (r waitingLists) HasUnservedEntry(ctx context.Context, listID int64, customerID uuid.UUID) (bool, error) {
	d, done := r.t.read()
	defer done()
	for _, e := range d.entries {
		if e.WaitingListID == listID && e.CustomerID == customerID && !e.Served() {
			return true, nil
		}
	}
	return false, nil
}

func (r waitingLists) CreateEntry(ctx context.Context, e *domain.WaitingListEntry) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	list, ok := d.waitingLists[e.WaitingListID]
	if !ok {
		return domain.NotFound("waiting list not found: %d", e.WaitingListID)
	}
	for _, other := range d.entries {
		if other.WaitingListID == e.WaitingListID && other.CustomerID == e.CustomerID && !other.Served() {
			return domain.BusinessRule("already waiting for this bike")
		}
	}
	e.ID = d.nextID()
	e.BikeID = list.BikeID
	d.entries[e.ID] = *e
	return nil
}

func unserved(d *state, match func(domain.WaitingListEntry) bool) []domain.WaitingListEntry {
	out := []domain.WaitingListEntry{}
	for _, e := range d.entries {
		if !e.Served() && match(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b domain.WaitingListEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r waitingLists) NextUnserved(ctx context.Context, bikeID int64) (*domain.WaitingListEntry, error) {
	d, done := r.t.read()
	defer done()
	queue := unserved(d, func(e domain.WaitingListEntry) bool { return e.BikeID == bikeID })
	if len(queue) == 0 {
		return nil, nil
	}
	return &queue[0], nil
}

func (r waitingLists) FindUnservedByCustomer(ctx context.Context, bikeID int64, customerID uuid.UUID) (*domain.WaitingListEntry, error) {
	d, done := r.t.read()
	defer done()
	found := unserved(d, func(e domain.WaitingListEntry) bool {
		return e.BikeID == bikeID && e.CustomerID == customerID
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r waitingLists) MarkServed(ctx context.Context, entryID int64, servedAt time.Time) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	e, ok := d.entries[entryID]
	if !ok {
		return domain.NotFound("waiting list entry not found: %d", entryID)
	}
	if e.Served() {
		return domain.BusinessRule("waiting list entry %d already served", entryID)
	}
	e.ServedAt = &servedAt
	d.entries[entryID] = e
	return nil
}

func (r waitingLists) ListUnservedByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.WaitingListEntry, error) {
	d, done := r.t.read()
	defer done()
	return unserved(d, func(e domain.WaitingListEntry) bool { return e.CustomerID == customerID }), nil
}

type returnNotes struct{ t tables }

func (r returnNotes) ExistsForRental(ctx context.Context, rentalID int64) (bool, error) {
	d, done := r.t.read()
	defer done()
	for _, n := range d.returnNotes {
		if n.RentalID == rentalID {
			return true, nil
		}
	}
	return false, nil
}

func (r returnNotes) Create(ctx context.Context, n *domain.ReturnNote) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	for _, other := range d.returnNotes {
		if other.RentalID == n.RentalID {
			return domain.BusinessRule("return note already exists for rental %d", n.RentalID)
		}
	}
	n.ID = d.nextID()
	d.returnNotes[n.ID] = *n
	return nil
}

type notifications struct{ t tables }

func (r notifications) Create(ctx context.Context, n *domain.Notification) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	n.ID = d.nextID()
	d.notifications[n.ID] = *n
	return nil
}

func (r notifications) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Notification, error) {
	d, done := r.t.read()
	defer done()
	out := []domain.Notification{}
	for _, n := range d.notifications {
		if n.CustomerID == customerID {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b domain.Notification) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (r notifications) ListUnpublished(ctx context.Context, limit int) ([]domain.Notification, error) {
	d, done := r.t.read()
	defer done()
	out := []domain.Notification{}
	for _, n := range d.notifications {
		if n.PublishedAt == nil {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b domain.Notification) int { return cmp.Compare(a.ID, b.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r notifications) MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	n, ok := d.notifications[id]
	if !ok {
		return domain.NotFound("notification not found: %d", id)
	}
	n.PublishedAt = &publishedAt
	d.notifications[id] = n
	return nil
}

type payments struct{ t tables }

func (r payments) CreateRentalPayment(ctx context.Context, p *domain.RentalPayment) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	p.ID = d.nextID()
	d.rentalPayments[p.ID] = *p
	return nil
}

func (r payments) ListRentalPayments(ctx context.Context, rentalID int64) ([]domain.RentalPayment, error) {
	d, done := r.t.read()
	defer done()
	out := []domain.RentalPayment{}
	for _, p := range d.rentalPayments {
		if p.RentalID == rentalID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.RentalPayment) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (r payments) CreateSalePayment(ctx context.Context, p *domain.SalePayment) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	p.ID = d.nextID()
	d.salePayments[p.ID] = *p
	return nil
}

func (r payments) ListSalePayments(ctx context.Context, purchaseID int64) ([]domain.SalePayment, error) {
	d, done := r.t.read()
	defer done()
	out := []domain.SalePayment{}
	for _, p := range d.salePayments {
		if p.PurchaseID == purchaseID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.SalePayment) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

type saleOffers struct{ t tables }

func (r saleOffers) Create(ctx context.Context, o *domain.SaleOffer) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	for _, other := range d.offers {
		if other.BikeID == o.BikeID {
			return domain.BusinessRule("bike %d already has a sale offer", o.BikeID)
		}
	}
	o.ID = d.nextID()
	d.offers[o.ID] = *o
	return nil
}

func (r saleOffers) GetByID(ctx context.Context, id int64) (*domain.SaleOffer, error) {
	d, done := r.t.read()
	defer done()
	o, ok := d.offers[id]
	if !ok {
		return nil, domain.NotFound("sale offer not found: %d", id)
	}
	return &o, nil
}

func (r saleOffers) ExistsForBike(ctx context.Context, bikeID int64) (bool, error) {
	d, done := r.t.read()
	defer done()
	for _, o := range d.offers {
		if o.BikeID == bikeID {
			return true, nil
		}
	}
	return false, nil
}

func (r saleOffers) LockForUpdate(ctx context.Context, id int64) (*domain.SaleOffer, error) {
	return r.GetByID(ctx, id)
}

func (r saleOffers) MarkSold(ctx context.Context, id int64, buyerID uuid.UUID, soldAt time.Time) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	o, ok := d.offers[id]
	if !ok {
		return domain.NotFound("sale offer not found: %d", id)
	}
	if o.Status != domain.SaleOfferStatusListed {
		return domain.BusinessRule("offer no longer available: %d", id)
	}
	o.Status = domain.SaleOfferStatusSold
	o.BuyerID = &buyerID
	o.SoldAt = &soldAt
	d.offers[id] = o
	return nil
}

func (r saleOffers) ListListed(ctx context.Context) ([]domain.SaleOffer, error) {
	d, done := r.t.read()
	defer done()
	out := []domain.SaleOffer{}
	for _, o := range d.offers {
		if o.Status == domain.SaleOfferStatusListed {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b domain.SaleOffer) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

type baskets struct{ t tables }

func (r baskets) LockOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Basket, error) {
	d, done := r.t.read()
	defer done()
	for _, b := range d.baskets {
		if b.CustomerID == customerID && b.Status == domain.BasketStatusOpen {
			return &b, nil
		}
	}
	return nil, domain.NotFound("no open basket for customer %s", customerID)
}

func (r baskets) Create(ctx context.Context, b *domain.Basket) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	b.ID = d.nextID()
	d.baskets[b.ID] = *b
	return nil
}

func (r baskets) ListItems(ctx context.Context, basketID int64) ([]domain.BasketItem, error) {
	d, done := r.t.read()
	defer done()
	out := []domain.BasketItem{}
	for _, it := range d.basketItems {
		if it.BasketID == basketID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b domain.BasketItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r baskets) AddItem(ctx context.Context, it *domain.BasketItem) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	b, ok := d.baskets[it.BasketID]
	if !ok {
		return domain.NotFound("basket not found: %d", it.BasketID)
	}
	for _, other := range d.basketItems {
		if other.BasketID == it.BasketID && other.OfferID == it.OfferID {
			return domain.BusinessRule("offer %d is already in the basket", it.OfferID)
		}
	}
	it.ID = d.nextID()
	d.basketItems[it.ID] = *it
	b.UpdatedAt = it.AddedAt
	d.baskets[b.ID] = b
	return nil
}

func (r baskets) Close(ctx context.Context, basketID int64, at time.Time) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	b, ok := d.baskets[basketID]
	if !ok {
		return domain.NotFound("basket not found: %d", basketID)
	}
	if b.Status != domain.BasketStatusOpen {
		return domain.BusinessRule("basket %d is not open", basketID)
	}
	b.Status = domain.BasketStatusCheckedOut
	b.UpdatedAt = at
	d.baskets[basketID] = b
	return nil
}

type purchases struct{ t tables }

func (r purchases) Create(ctx context.Context, p *domain.Purchase) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	p.ID = d.nextID()
	for i := range p.Items {
		p.Items[i].ID = d.nextID()
		p.Items[i].PurchaseID = p.ID
	}
	stored := *p
	stored.Items = append([]domain.PurchaseItem(nil), p.Items...)
	d.purchases[p.ID] = stored
	return nil
}

func (r purchases) GetByID(ctx context.Context, id int64) (*domain.Purchase, error) {
	d, done := r.t.read()
	defer done()
	p, ok := d.purchases[id]
	if !ok {
		return nil, domain.NotFound("purchase not found: %d", id)
	}
	p.Items = append([]domain.PurchaseItem{}, p.Items...)
	return &p, nil
}

func (r purchases) LockForUpdate(ctx context.Context, id int64) (*domain.Purchase, error) {
	return r.GetByID(ctx, id)
}

func (r purchases) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	d, done, err := r.t.write(ctx)
	if err != nil {
		return err
	}
	defer done()
	p, ok := d.purchases[id]
	if !ok {
		return domain.NotFound("purchase not found: %d", id)
	}
	if p.Status != domain.PurchaseStatusCreated {
		return domain.BusinessRule("only CREATED purchases can be paid")
	}
	p.Status = domain.PurchaseStatusPaid
	p.PaidAt = &paidAt
	d.purchases[id] = p
	return nil
}
