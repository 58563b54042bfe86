package postgres

import (
	"context"
	"database/sql"
	"time"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/repository"
)

const checkoutColumns = `id, equipment_id, instance_id, user_id, delivery_note_id, status, checkout_date, due_date, return_date, COALESCE(notes, '')`

type checkoutRepository struct {
	db *sql.DB
}

func NewCheckoutRepository(db *sql.DB) repository.CheckoutRepository {
	return &checkoutRepository{db: db}
}

func scanCheckout(row scanner) (domain.Checkout, error) {
	var c domain.Checkout
	err := row.Scan(&c.ID, &c.EquipmentID, &c.InstanceID, &c.UserID, &c.DeliveryNoteID, &c.Status, &c.CheckoutDate, &c.DueDate, &c.ReturnDate, &c.Notes)
	return c, err
}

func collectCheckouts(rows *sql.Rows) ([]domain.Checkout, error) {
	defer rows.Close()
	var out []domain.Checkout
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *checkoutRepository) GetByID(ctx context.Context, id string) (*domain.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE id = $1`
	c, err := scanCheckout(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *checkoutRepository) ListOutstanding(ctx context.Context, equipmentID string) ([]domain.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts
	          WHERE status IN ('active', 'overdue', 'lost') AND ($1 = '' OR equipment_id = $1)
	          ORDER BY checkout_date, id`
	rows, err := r.db.QueryContext(ctx, query, equipmentID)
	if err != nil {
		return nil, err
	}
	return collectCheckouts(rows)
}

// MarkOverdue flips every active checkout whose due day is before today.
func (r *checkoutRepository) MarkOverdue(ctx context.Context, now time.Time) ([]domain.Checkout, error) {
	query := `
		UPDATE checkouts
		SET status = 'overdue'
		WHERE status = 'active'
		  AND due_date < $1
		RETURNING ` + checkoutColumns
	logger.DatabaseCall("checkouts.mark_overdue", query)
	rows, err := r.db.QueryContext(ctx, query, ledger.StartOfDay(now))
	if err != nil {
		logger.DatabaseResult("checkouts.mark_overdue", 0, err)
		return nil, err
	}
	changed, err := collectCheckouts(rows)
	logger.DatabaseResult("checkouts.mark_overdue", int64(len(changed)), err)
	return changed, err
}

func (r *checkoutRepository) GetDeliveryNote(ctx context.Context, id string) (*domain.DeliveryNote, error) {
	n := &domain.DeliveryNote{User: &domain.User{}}
	query := `SELECT n.id, n.number, COALESCE(n.session_id, ''), n.user_id, n.issue_date, n.due_date, COALESCE(n.notes, ''),
	                 u.id, u.first_name, u.last_name, COALESCE(u.email, ''), COALESCE(u.phone, ''), COALESCE(u.department, ''), u.role, u.created_on
	          FROM delivery_notes n JOIN users u ON u.id = n.user_id
	          WHERE n.id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&n.ID, &n.Number, &n.SessionID, &n.UserID, &n.IssueDate, &n.DueDate, &n.Notes,
		&n.User.ID, &n.User.FirstName, &n.User.LastName, &n.User.Email, &n.User.Phone, &n.User.Department, &n.User.Role, &n.User.CreatedOn)
	if err != nil {
		return nil, mapError(err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+checkoutColumns+` FROM checkouts WHERE delivery_note_id = $1 ORDER BY checkout_date, id`, id)
	if err != nil {
		return nil, err
	}
	n.Checkouts, err = collectCheckouts(rows)
	if err != nil {
		return nil, err
	}
	return n, nil
}
