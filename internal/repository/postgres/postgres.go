package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/repository"
)

type Store struct {
	db *sql.DB
	repository.EquipmentRepository
	repository.CheckoutRepository
	repository.UserRepository
	repository.Gateway
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                  db,
		EquipmentRepository: NewEquipmentRepository(db),
		CheckoutRepository:  NewCheckoutRepository(db),
		UserRepository:      NewUserRepository(db),
		Gateway:             NewGateway(db),
	}
}

const (
	uniqueViolation = "23505"
	// one delivery note per checkout session
	sessionNoteConstraint = "delivery_notes_session_id_key"
)

// mapError turns driver errors into domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}
