package postgres

import (
	"context"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"
)

type returnNoteRepository struct {
	q querier
}

func (r *returnNoteRepository) ExistsForRental(ctx context.Context, rentalID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM return_notes WHERE rental_id = $1)`, rentalID).Scan(&exists)
	if err != nil {
		return false, translateError(err, "check return note")
	}
	return exists, nil
}

func (r *returnNoteRepository) Create(ctx context.Context, n *domain.ReturnNote) error {
	logger.DatabaseCall("INSERT", "return_notes", "rentalID", n.RentalID)
	query := `INSERT INTO return_notes (rental_id, author_id, comment, condition, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, n.RentalID, n.AuthorID, n.Comment, n.Condition, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.BusinessRule("return note already exists for rental %d", n.RentalID)
		}
		return translateError(err, "create return note")
	}
	return nil
}
