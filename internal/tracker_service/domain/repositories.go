package domain

import "context"

// Tx is one atomic unit of work against the client/message store. Every
// read-modify-write sequence the reconciler performs runs through a single Tx
// so concurrent webhooks for the same phone serialize on the client row.
type Tx interface {
	// GetClientForUpdate locks and returns the client owning the phone.
	// Returns ErrNotFound when no client exists.
	GetClientForUpdate(ctx context.Context, phone string) (*Client, error)

	// InsertClient creates a new client row and returns its assigned ID.
	// Returns ErrDuplicateEntry when a concurrent insert won the phone.
	InsertClient(ctx context.Context, c *Client) (int64, error)

	// UpdateClient persists the mutable fields of a locked client row.
	UpdateClient(ctx context.Context, c *Client) error

	// GetFirstClientByNameForUpdate locks and returns the client with the
	// lowest client_id matching the display name. Returns ErrNotFound when
	// no client matches.
	GetFirstClientByNameForUpdate(ctx context.Context, name string) (*Client, error)

	// DeleteClientByID removes a client row; reports whether a row existed.
	DeleteClientByID(ctx context.Context, clientID int64) (bool, error)

	// DeleteFirstClientByName removes the lowest-client_id row matching the
	// name; reports whether a row existed.
	DeleteFirstClientByName(ctx context.Context, name string) (bool, error)

	// AppendMessage records one immutable message history row.
	AppendMessage(ctx context.Context, m *Message) error
}

// ClientStore is the persistence boundary of the tracker. WithinTx runs fn in
// one store transaction, committing on nil and rolling back on error.
type ClientStore interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// ListClients returns every client in insertion (client_id) order.
	ListClients(ctx context.Context) ([]Client, error)

	// ListMessages returns the full history joined with client names,
	// newest first.
	ListMessages(ctx context.Context) ([]MessageWithClientName, error)

	// Ping verifies store connectivity for health reporting.
	Ping(ctx context.Context) error
}
