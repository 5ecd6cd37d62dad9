package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
)

type waitingListRepository struct {
	q querier
}

const entryColumns = `e.id, e.waiting_list_id, w.bike_id, e.customer_id, e.created_at, e.served_at`

func scanEntry(row interface{ Scan(...any) error }) (*domain.WaitingListEntry, error) {
	e := &domain.WaitingListEntry{}
	if err := row.Scan(&e.ID, &e.WaitingListID, &e.BikeID, &e.CustomerID, &e.CreatedAt, &e.ServedAt); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *waitingListRepository) GetByBike(ctx context.Context, bikeID int64) (*domain.WaitingList, error) {
	w := &domain.WaitingList{}
	err := r.q.QueryRowContext(ctx, `SELECT id, bike_id, created_at FROM waiting_lists WHERE bike_id = $1`, bikeID).
		Scan(&w.ID, &w.BikeID, &w.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "waiting list not found for bike: %d", bikeID)
	}
	return w, nil
}

func (r *waitingListRepository) CreateIfAbsent(ctx context.Context, list *domain.WaitingList) (bool, error) {
	logger.DatabaseCall("INSERT", "waiting_lists", "bikeID", list.BikeID)
	query := `INSERT INTO waiting_lists (bike_id, created_at) VALUES ($1, $2)
	          ON CONFLICT (bike_id) DO NOTHING RETURNING id`
	err := r.q.QueryRowContext(ctx, query, list.BikeID, list.CreatedAt).Scan(&list.ID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("INSERT", 0, nil, "bikeID", list.BikeID)
		return false, nil
	}
	if err != nil {
		return false, translateError(err, "create waiting list")
	}
	logger.DatabaseResult("INSERT", 1, nil, "bikeID", list.BikeID, "waitingListID", list.ID)
	return true, nil
}

func (r *waitingListRepository) HasUnservedEntry(ctx context.Context, listID int64, customerID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM waiting_list_entries
	          WHERE waiting_list_id = $1 AND customer_id = $2 AND served_at IS NULL)`
	if err := r.q.QueryRowContext(ctx, query, listID, customerID).Scan(&exists); err != nil {
		return false, translateError(err, "check waiting list entry")
	}
	return exists, nil
}

func (r *waitingListRepository) CreateEntry(ctx context.Context, e *domain.WaitingListEntry) error {
	logger.DatabaseCall("INSERT", "waiting_list_entries", "waitingListID", e.WaitingListID, "customerID", e.CustomerID)
	query := `INSERT INTO waiting_list_entries (waiting_list_id, customer_id, created_at)
	          VALUES ($1, $2, $3) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, e.WaitingListID, e.CustomerID, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.BusinessRule("already waiting for this bike")
		}
		return translateError(err, "create waiting list entry")
	}
	return nil
}

func (r *waitingListRepository) NextUnserved(ctx context.Context, bikeID int64) (*domain.WaitingListEntry, error) {
	query := `SELECT ` + entryColumns + `
	          FROM waiting_list_entries e JOIN waiting_lists w ON w.id = e.waiting_list_id
	          WHERE w.bike_id = $1 AND e.served_at IS NULL
	          ORDER BY e.created_at, e.id
	          LIMIT 1
	          FOR UPDATE OF e`
	e, err := scanEntry(r.q.QueryRowContext(ctx, query, bikeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err, "next waiting list entry")
	}
	return e, nil
}

func (r *waitingListRepository) FindUnservedByCustomer(ctx context.Context, bikeID int64, customerID uuid.UUID) (*domain.WaitingListEntry, error) {
	query := `SELECT ` + entryColumns + `
	          FROM waiting_list_entries e JOIN waiting_lists w ON w.id = e.waiting_list_id
	          WHERE w.bike_id = $1 AND e.customer_id = $2 AND e.served_at IS NULL`
	e, err := scanEntry(r.q.QueryRowContext(ctx, query, bikeID, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err, "find waiting list entry")
	}
	return e, nil
}

func (r *waitingListRepository) MarkServed(ctx context.Context, entryID int64, servedAt time.Time) error {
	logger.DatabaseCall("UPDATE", "waiting_list_entries", "entryID", entryID)
	res, err := r.q.ExecContext(ctx, `UPDATE waiting_list_entries SET served_at = $1 WHERE id = $2 AND served_at IS NULL`,
		servedAt, entryID)
	if err != nil {
		return translateError(err, "mark entry served")
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "entryID", entryID)
	if err != nil {
		return translateError(err, "mark entry served")
	}
	if rows == 0 {
		return domain.BusinessRule("waiting list entry %d already served", entryID)
	}
	return nil
}

func (r *waitingListRepository) ListUnservedByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.WaitingListEntry, error) {
	query := `SELECT ` + entryColumns + `
	          FROM waiting_list_entries e JOIN waiting_lists w ON w.id = e.waiting_list_id
	          WHERE e.customer_id = $1 AND e.served_at IS NULL
	          ORDER BY e.created_at, e.id`
	rows, err := r.q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, translateError(err, "list waiting list entries")
	}
	defer rows.Close()

	entries := []domain.WaitingListEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, translateError(err, "scan waiting list entry")
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
