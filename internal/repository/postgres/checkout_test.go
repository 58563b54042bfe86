package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/repository/postgres"
)

var checkoutCols = []string{"id", "equipment_id", "instance_id", "user_id", "delivery_note_id", "status", "checkout_date", "due_date", "return_date", "notes"}

func TestCheckoutRepository_MarkOverdue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCheckoutRepository(db)
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	due := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE checkouts").
		WithArgs(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows(checkoutCols).
			AddRow("C1", "X1", nil, "U1", "N1", "overdue", due.AddDate(0, 0, -7), due, nil, ""))

	changed, err := repo.MarkOverdue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.CheckoutStatusOverdue, changed[0].Status)
	assert.Nil(t, changed[0].InstanceID)
	require.NotNil(t, changed[0].DeliveryNoteID)
	assert.Equal(t, "N1", *changed[0].DeliveryNoteID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_ListOutstanding(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCheckoutRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM checkouts\\s+WHERE status IN").
		WithArgs("X1").
		WillReturnRows(sqlmock.NewRows(checkoutCols).
			AddRow("C1", "X1", "I1", "U1", nil, "active", now, now, nil, "").
			AddRow("C2", "X1", nil, "U2", nil, "lost", now, now, nil, "left on site"))

	open, err := repo.ListOutstanding(context.Background(), "X1")
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.NotNil(t, open[0].InstanceID)
	assert.Equal(t, "I1", *open[0].InstanceID)
	assert.Equal(t, domain.CheckoutStatusLost, open[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_GetDeliveryNote(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCheckoutRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM delivery_notes n JOIN users u").
		WithArgs("N1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "session_id", "user_id", "issue_date", "due_date", "notes", "uid", "first_name", "last_name", "email", "phone", "department", "role", "created_on"}).
			AddRow("N1", "DN-000001", "S1", "U1", now, now, "", "U1", "Ada", "Lovelace", "ada@example.com", "", "", "borrower", now))
	mock.ExpectQuery("SELECT (.+) FROM checkouts WHERE delivery_note_id = \\$1").
		WithArgs("N1").
		WillReturnRows(sqlmock.NewRows(checkoutCols).
			AddRow("C1", "X1", nil, "U1", "N1", "returned", now, now, now, "").
			AddRow("C2", "X1", nil, "U1", "N1", "active", now, now, nil, ""))

	note, err := repo.GetDeliveryNote(context.Background(), "N1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", note.User.DisplayName())
	assert.Equal(t, "S1", note.SessionID)
	assert.Len(t, note.Checkouts, 2)
	assert.Equal(t, domain.DeliveryNoteStatusPartial, note.Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}
