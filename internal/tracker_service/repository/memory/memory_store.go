// Package memory provides an in-memory ClientStore for local development and
// tests, mirroring the semantics of the PostgreSQL store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/colispro/delivery_tracker/internal/tracker_service/domain"
)

// ClientStore keeps all state under one mutex. WithinTx holds the lock for
// the whole unit of work, which gives the same per-phone serialization the
// PostgreSQL row locks provide. Rollback is not simulated; a failing unit of
// work may leave earlier writes applied, which no caller in this service
// relies on.
type ClientStore struct {
	mu            sync.Mutex
	nextClientID  int64
	nextMessageID int64
	clients       []*domain.Client
	messages      []domain.Message
}

func NewClientStore() *ClientStore {
	return &ClientStore{nextClientID: 1, nextMessageID: 1}
}

func (s *ClientStore) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{store: s})
}

func (s *ClientStore) ListClients(ctx context.Context) ([]domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (s *ClientStore) ListMessages(ctx context.Context) ([]domain.MessageWithClientName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.MessageWithClientName, 0, len(s.messages))
	for _, m := range s.messages {
		item := domain.MessageWithClientName{Message: m}
		if c := s.findByPhone(m.Phone); c != nil {
			item.ClientName = c.Name
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.After(out[j].ReceivedAt)
		}
		return out[i].MessageID > out[j].MessageID
	})
	return out, nil
}

func (s *ClientStore) Ping(ctx context.Context) error { return nil }

func (s *ClientStore) findByPhone(phone string) *domain.Client {
	for _, c := range s.clients {
		if c.Phone == phone {
			return c
		}
	}
	return nil
}

type memTx struct {
	store *ClientStore
}

func (t *memTx) GetClientForUpdate(ctx context.Context, phone string) (*domain.Client, error) {
	if c := t.store.findByPhone(phone); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) InsertClient(ctx context.Context, c *domain.Client) (int64, error) {
	if t.store.findByPhone(c.Phone) != nil {
		return 0, domain.ErrDuplicateEntry
	}
	cp := *c
	cp.ClientID = t.store.nextClientID
	t.store.nextClientID++
	t.store.clients = append(t.store.clients, &cp)
	return cp.ClientID, nil
}

func (t *memTx) UpdateClient(ctx context.Context, c *domain.Client) error {
	for i, existing := range t.store.clients {
		if existing.ClientID == c.ClientID {
			cp := *c
			t.store.clients[i] = &cp
			return nil
		}
	}
	return domain.ErrNotFound
}

func (t *memTx) GetFirstClientByNameForUpdate(ctx context.Context, name string) (*domain.Client, error) {
	if c := t.firstByName(name); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) DeleteClientByID(ctx context.Context, clientID int64) (bool, error) {
	for i, c := range t.store.clients {
		if c.ClientID == clientID {
			t.store.clients = append(t.store.clients[:i], t.store.clients[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) DeleteFirstClientByName(ctx context.Context, name string) (bool, error) {
	c := t.firstByName(name)
	if c == nil {
		return false, nil
	}
	return t.DeleteClientByID(ctx, c.ClientID)
}

func (t *memTx) AppendMessage(ctx context.Context, m *domain.Message) error {
	mp := *m
	mp.MessageID = t.store.nextMessageID
	t.store.nextMessageID++
	t.store.messages = append(t.store.messages, mp)
	m.MessageID = mp.MessageID
	return nil
}

func (t *memTx) firstByName(name string) *domain.Client {
	var match *domain.Client
	for _, c := range t.store.clients {
		if c.Name != name {
			continue
		}
		if match == nil || c.ClientID < match.ClientID {
			match = c
		}
	}
	return match
}
