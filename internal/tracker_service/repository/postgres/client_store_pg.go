package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/colispro/delivery_tracker/internal/tracker_service/domain"
)

const clientColumns = `client_id, name, phone, order_qty, delivered_qty, status, status_term, latitude, longitude, last_request_time`

// DBPool is the subset of pgxpool.Pool the store uses. Narrowed to an
// interface so tests can substitute pgxmock.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// PgClientStore is the PostgreSQL implementation of domain.ClientStore.
type PgClientStore struct {
	db     DBPool
	logger *slog.Logger
}

func NewPgClientStore(db DBPool, logger *slog.Logger) *PgClientStore {
	return &PgClientStore{db: db, logger: logger}
}

// WithinTx runs fn in one database transaction. Row locks taken inside fn
// serialize concurrent webhooks per client row.
func (s *PgClientStore) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to begin transaction", "error", err)
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx, logger: s.logger}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgClientStore) ListClients(ctx context.Context) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY client_id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list clients", "error", err)
		return nil, err
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		var c domain.Client
		if err := scanClient(rows, &c); err != nil {
			s.logger.ErrorContext(ctx, "failed to scan client row", "error", err)
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *PgClientStore) ListMessages(ctx context.Context) ([]domain.MessageWithClientName, error) {
	query := `
		SELECT m.message_id, m.phone, m.body, m.received_at, COALESCE(c.name, '')
		FROM messages m
		LEFT JOIN clients c ON c.phone = m.phone
		ORDER BY m.received_at DESC, m.message_id DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.MessageWithClientName{}
	for rows.Next() {
		var m domain.MessageWithClientName
		if err := rows.Scan(&m.MessageID, &m.Phone, &m.Body, &m.ReceivedAt, &m.ClientName); err != nil {
			s.logger.ErrorContext(ctx, "failed to scan message row", "error", err)
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *PgClientStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// pgTx adapts one pgx transaction to domain.Tx.
type pgTx struct {
	tx     pgx.Tx
	logger *slog.Logger
}

func (t *pgTx) GetClientForUpdate(ctx context.Context, phone string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE phone = $1 FOR UPDATE`

	var c domain.Client
	if err := scanClient(t.tx.QueryRow(ctx, query, phone), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		t.logger.ErrorContext(ctx, "failed to get client by phone", "error", err, "phone", phone)
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) InsertClient(ctx context.Context, c *domain.Client) (int64, error) {
	// ON CONFLICT DO NOTHING keeps the transaction healthy when a concurrent
	// first message already claimed the phone; the caller re-reads the row.
	query := `
		INSERT INTO clients (name, phone, order_qty, delivered_qty, status, status_term, latitude, longitude, last_request_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (phone) DO NOTHING
		RETURNING client_id
	`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		c.Name, c.Phone, c.OrderQty, c.DeliveredQty, c.Status, c.StatusTerm,
		c.Latitude, c.Longitude, c.LastRequestTime,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrDuplicateEntry
		}
		t.logger.ErrorContext(ctx, "failed to insert client", "error", err, "phone", c.Phone)
		return 0, err
	}
	return id, nil
}

func (t *pgTx) UpdateClient(ctx context.Context, c *domain.Client) error {
	query := `
		UPDATE clients
		SET name = $1, order_qty = $2, delivered_qty = $3, status = $4,
		    status_term = $5, latitude = $6, longitude = $7, last_request_time = $8
		WHERE client_id = $9
	`

	_, err := t.tx.Exec(ctx, query,
		c.Name, c.OrderQty, c.DeliveredQty, c.Status, c.StatusTerm,
		c.Latitude, c.Longitude, c.LastRequestTime, c.ClientID,
	)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to update client", "error", err, "client_id", c.ClientID)
	}
	return err
}

func (t *pgTx) GetFirstClientByNameForUpdate(ctx context.Context, name string) (*domain.Client, error) {
	// Names are not unique; the lowest client_id wins deterministically.
	query := `SELECT ` + clientColumns + ` FROM clients WHERE name = $1 ORDER BY client_id LIMIT 1 FOR UPDATE`

	var c domain.Client
	if err := scanClient(t.tx.QueryRow(ctx, query, name), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		t.logger.ErrorContext(ctx, "failed to get client by name", "error", err, "name", name)
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) DeleteClientByID(ctx context.Context, clientID int64) (bool, error) {
	ct, err := t.tx.Exec(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to delete client by id", "error", err, "client_id", clientID)
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (t *pgTx) DeleteFirstClientByName(ctx context.Context, name string) (bool, error) {
	query := `
		DELETE FROM clients
		WHERE client_id = (SELECT client_id FROM clients WHERE name = $1 ORDER BY client_id LIMIT 1)
	`

	ct, err := t.tx.Exec(ctx, query, name)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to delete client by name", "error", err, "name", name)
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (t *pgTx) AppendMessage(ctx context.Context, m *domain.Message) error {
	query := `INSERT INTO messages (phone, body, received_at) VALUES ($1, $2, $3) RETURNING message_id`

	if err := t.tx.QueryRow(ctx, query, m.Phone, m.Body, m.ReceivedAt).Scan(&m.MessageID); err != nil {
		t.logger.ErrorContext(ctx, "failed to append message", "error", err, "phone", m.Phone)
		return err
	}
	return nil
}

func scanClient(row pgx.Row, c *domain.Client) error {
	return row.Scan(
		&c.ClientID, &c.Name, &c.Phone, &c.OrderQty, &c.DeliveredQty,
		&c.Status, &c.StatusTerm, &c.Latitude, &c.Longitude, &c.LastRequestTime,
	)
}
