package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/repository"
)

var tracer = otel.Tracer("equiptrack/postgres")

type gateway struct {
	db *sql.DB
}

func NewGateway(db *sql.DB) repository.Gateway {
	return &gateway{db: db}
}

func (g *gateway) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	ctx, span := tracer.Start(ctx, "gateway.tx")
	defer span.End()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rolled back")
		return err
	}
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return mapError(err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) CreateDeliveryNote(ctx context.Context, note *domain.DeliveryNote) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	query := `INSERT INTO delivery_notes (id, session_id, user_id, issue_date, due_date, notes)
	          VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6) RETURNING number`
	logger.DatabaseCall("delivery_notes.create", query, "delivery_note_id", note.ID, "session_id", note.SessionID)
	err := t.tx.QueryRowContext(ctx, query, note.ID, note.SessionID, note.UserID, note.IssueDate, note.DueDate, note.Notes).Scan(&note.Number)
	logger.DatabaseResult("delivery_notes.create", 1, err)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == sessionNoteConstraint {
		return domain.ErrAlreadyCommitted
	}
	return mapError(err)
}

func (t *pgTx) CreateCheckoutRecords(ctx context.Context, records []domain.Checkout) error {
	query := `INSERT INTO checkouts (id, equipment_id, instance_id, user_id, delivery_note_id, status, checkout_date, due_date, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range records {
		c := &records[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, err := t.tx.ExecContext(ctx, query, c.ID, c.EquipmentID, c.InstanceID, c.UserID, c.DeliveryNoteID, c.Status, c.CheckoutDate, c.DueDate, c.Notes); err != nil {
			logger.DatabaseResult("checkouts.create", int64(i), err)
			return mapError(err)
		}
	}
	logger.DatabaseResult("checkouts.create", int64(len(records)), nil)
	return nil
}

func (t *pgTx) UpdateEquipmentAvailability(ctx context.Context, u repository.AvailabilityUpdate) error {
	query := `UPDATE equipment SET available_quantity = $1, status = $2, updated_on = NOW()
	          WHERE id = $3 AND available_quantity = $4 AND status = $5`
	logger.DatabaseCall("equipment.update_availability", query, "equipment_id", u.EquipmentID, "expected", u.ExpectedAvailable, "available", u.Available)
	res, err := t.tx.ExecContext(ctx, query, u.Available, u.Status, u.EquipmentID, u.ExpectedAvailable, u.ExpectedStatus)
	return expectOneRow("equipment.update_availability", res, err)
}

func (t *pgTx) UpdateEquipmentStock(ctx context.Context, u repository.StockUpdate) error {
	query := `UPDATE equipment SET total_quantity = $1, available_quantity = $2, status = $3, updated_on = NOW()
	          WHERE id = $4 AND total_quantity = $5 AND available_quantity = $6 AND status = $7`
	logger.DatabaseCall("equipment.update_stock", query, "equipment_id", u.EquipmentID, "expected_total", u.ExpectedTotal, "total", u.Total)
	res, err := t.tx.ExecContext(ctx, query, u.Total, u.Available, u.Status, u.EquipmentID, u.ExpectedTotal, u.ExpectedAvailable, u.ExpectedStatus)
	return expectOneRow("equipment.update_stock", res, err)
}

func (t *pgTx) CreateInstances(ctx context.Context, instances []domain.Instance) error {
	return insertInstances(ctx, t.tx, instances)
}

func (t *pgTx) UpdateInstanceStatus(ctx context.Context, id string, from, to domain.InstanceStatus) error {
	query := `UPDATE equipment_instances SET status = $1 WHERE id = $2 AND status = $3`
	res, err := t.tx.ExecContext(ctx, query, to, id, from)
	return expectOneRow("equipment_instances.update_status", res, err)
}

func (t *pgTx) MarkReturned(ctx context.Context, c *domain.Checkout) error {
	return t.moveCheckout(ctx, "checkouts.mark_returned", c, domain.CheckoutStatusActive, domain.CheckoutStatusOverdue)
}

func (t *pgTx) MarkLost(ctx context.Context, c *domain.Checkout) error {
	return t.moveCheckout(ctx, "checkouts.mark_lost", c, domain.CheckoutStatusActive, domain.CheckoutStatusOverdue)
}

func (t *pgTx) MarkRecovered(ctx context.Context, c *domain.Checkout) error {
	return t.moveCheckout(ctx, "checkouts.mark_recovered", c, domain.CheckoutStatusLost)
}

func (t *pgTx) moveCheckout(ctx context.Context, op string, c *domain.Checkout, from ...domain.CheckoutStatus) error {
	expected := make([]string, len(from))
	for i, s := range from {
		expected[i] = string(s)
	}
	query := `UPDATE checkouts SET status = $1, return_date = $2, notes = $3 WHERE id = $4 AND status = ANY($5)`
	logger.DatabaseCall(op, query, "checkout_id", c.ID)
	res, err := t.tx.ExecContext(ctx, query, c.Status, c.ReturnDate, c.Notes, c.ID, pq.Array(expected))
	return expectOneRow(op, res, err)
}

// expectOneRow reports a guarded write that matched nothing as a conflict.
func expectOneRow(op string, res sql.Result, err error) error {
	if err != nil {
		logger.DatabaseResult(op, 0, err)
		return mapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.DatabaseResult(op, rows, nil)
	if rows == 0 {
		return domain.ErrConflict
	}
	return nil
}
