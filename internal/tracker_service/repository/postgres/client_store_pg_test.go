package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colispro/delivery_tracker/internal/tracker_service/domain"
)

func setupStoreTest(t *testing.T) (*PgClientStore, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgClientStore(mockPool, logger), mockPool
}

func clientRows(pool pgxmock.PgxPoolIface, clients ...domain.Client) *pgxmock.Rows {
	rows := pool.NewRows([]string{
		"client_id", "name", "phone", "order_qty", "delivered_qty",
		"status", "status_term", "latitude", "longitude", "last_request_time",
	})
	for _, c := range clients {
		rows.AddRow(c.ClientID, c.Name, c.Phone, c.OrderQty, c.DeliveredQty,
			c.Status, c.StatusTerm, c.Latitude, c.Longitude, c.LastRequestTime)
	}
	return rows
}

func TestPgClientStore_ListClients(t *testing.T) {
	store, pool := setupStoreTest(t)
	defer pool.Close()

	now := time.Now().UTC()
	want := domain.Client{
		ClientID: 7, Name: "Ali", Phone: "21622333444", OrderQty: 3, DeliveredQty: 2,
		Status: domain.StatusRed, StatusTerm: "en route",
		Latitude: 36.8065, Longitude: 10.1815, LastRequestTime: now,
	}

	pool.ExpectQuery(`SELECT .+ FROM clients ORDER BY client_id`).
		WillReturnRows(clientRows(pool, want))

	clients, err := store.ListClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, want, clients[0])
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPgClientStore_ListMessages(t *testing.T) {
	store, pool := setupStoreTest(t)
	defer pool.Close()

	now := time.Now().UTC()
	rows := pool.NewRows([]string{"message_id", "phone", "body", "received_at", "name"}).
		AddRow(int64(2), "21622333444", "second", now, "Ali").
		AddRow(int64(1), "99900011122", "orphaned", now.Add(-time.Minute), "")

	pool.ExpectQuery(`LEFT JOIN clients c ON c.phone = m.phone`).WillReturnRows(rows)

	msgs, err := store.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Ali", msgs[0].ClientName)
	assert.Equal(t, "", msgs[1].ClientName)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPgClientStore_WithinTx_InsertPath(t *testing.T) {
	store, pool := setupStoreTest(t)
	defer pool.Close()

	now := time.Now().UTC()

	pool.ExpectBegin()
	pool.ExpectQuery(`FROM clients WHERE phone = \$1 FOR UPDATE`).
		WithArgs("21622333444").
		WillReturnError(pgx.ErrNoRows)
	pool.ExpectQuery(`INSERT INTO clients`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pool.NewRows([]string{"client_id"}).AddRow(int64(12)))
	pool.ExpectQuery(`INSERT INTO messages`).
		WithArgs("21622333444", "two boxes", now).
		WillReturnRows(pool.NewRows([]string{"message_id"}).AddRow(int64(40)))
	pool.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		_, err := tx.GetClientForUpdate(context.Background(), "21622333444")
		require.ErrorIs(t, err, domain.ErrNotFound)

		id, err := tx.InsertClient(context.Background(), &domain.Client{
			Name: "Ali", Phone: "21622333444", OrderQty: 1,
			Status: domain.StatusRed, StatusTerm: "two boxes",
			Latitude: 36.8065, Longitude: 10.1815, LastRequestTime: now,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(12), id)

		msg := &domain.Message{Phone: "21622333444", Body: "two boxes", ReceivedAt: now}
		require.NoError(t, tx.AppendMessage(context.Background(), msg))
		assert.Equal(t, int64(40), msg.MessageID)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPgClientStore_InsertClient_PhoneRace(t *testing.T) {
	store, pool := setupStoreTest(t)
	defer pool.Close()

	pool.ExpectBegin()
	// ON CONFLICT DO NOTHING yields no row when the phone is already taken.
	pool.ExpectQuery(`INSERT INTO clients`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	pool.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		_, err := tx.InsertClient(context.Background(), &domain.Client{Phone: "216"})
		assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPgClientStore_WithinTx_RollsBackOnError(t *testing.T) {
	store, pool := setupStoreTest(t)
	defer pool.Close()

	boom := errors.New("boom")

	pool.ExpectBegin()
	pool.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPgClientStore_DeleteByID(t *testing.T) {
	store, pool := setupStoreTest(t)
	defer pool.Close()

	pool.ExpectBegin()
	pool.ExpectExec(`DELETE FROM clients WHERE client_id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		deleted, err := tx.DeleteClientByID(context.Background(), 5)
		require.NoError(t, err)
		assert.True(t, deleted)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}
