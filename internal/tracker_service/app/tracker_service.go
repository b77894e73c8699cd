// Package app holds the tracker's reconciliation and query services: every
// inbound message mutates cumulative client state in one store transaction,
// and the dashboard reads projections of that state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/colispro/delivery_tracker/internal/platform/events"
	"github.com/colispro/delivery_tracker/internal/tracker_service/domain"
	"github.com/colispro/delivery_tracker/internal/tracker_service/geo"
)

// Event routing keys published after successful mutations.
const (
	eventKeyClientUpdated   = "tracker.client.updated"
	eventKeyClientDelivered = "tracker.client.delivered"
	eventKeyClientDeleted   = "tracker.client.deleted"
)

// ClientEvent is the payload of every client state-change event.
type ClientEvent struct {
	Client  domain.Client `json:"client"`
	Created bool          `json:"created,omitempty"`
}

// TrackerService applies inbound messages to client state and serves the
// dashboard projections.
type TrackerService struct {
	store      domain.ClientStore
	publisher  events.Publisher
	logger     *slog.Logger
	defaultLat float64
	defaultLon float64
}

// NewTrackerService wires the reconciler. The publisher must be non-nil; pass
// events.NopPublisher when event emission is disabled.
func NewTrackerService(store domain.ClientStore, publisher events.Publisher, logger *slog.Logger, defaultLat, defaultLon float64) *TrackerService {
	return &TrackerService{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		defaultLat: defaultLat,
		defaultLon: defaultLon,
	}
}

// Reconcile applies one canonical inbound message: coordinates are extracted
// from the body, the client row is created or updated under a row lock, and a
// message history record is appended — all in a single transaction, so two
// concurrent messages from one phone can never lose an order increment.
func (s *TrackerService) Reconcile(ctx context.Context, msg domain.InboundMessage) (*domain.Client, error) {
	start := time.Now()
	lat, lon := geo.ExtractCoordinates(msg.Body)

	var (
		client  *domain.Client
		created bool
	)
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		now := time.Now().UTC()

		existing, err := tx.GetClientForUpdate(ctx, msg.Phone)
		if errors.Is(err, domain.ErrNotFound) {
			fresh := s.newClient(msg, lat, lon, now)
			id, insErr := tx.InsertClient(ctx, fresh)
			if errors.Is(insErr, domain.ErrDuplicateEntry) {
				// A concurrent first message won the phone; fall through to
				// the update path against the committed row.
				existing, err = tx.GetClientForUpdate(ctx, msg.Phone)
			} else if insErr != nil {
				return insErr
			} else {
				fresh.ClientID = id
				client = fresh
				created = true
				return tx.AppendMessage(ctx, &domain.Message{Phone: msg.Phone, Body: msg.StatusText, ReceivedAt: now})
			}
		}
		if err != nil {
			return err
		}

		applyInbound(existing, msg, lat, lon, now)
		if err := tx.UpdateClient(ctx, existing); err != nil {
			return err
		}
		client = existing
		return tx.AppendMessage(ctx, &domain.Message{Phone: msg.Phone, Body: msg.StatusText, ReceivedAt: now})
	})
	reconcileDurationHist.Observe(time.Since(start).Seconds())
	if err != nil {
		inboundProcessedCounter.WithLabelValues("error").Inc()
		s.logger.ErrorContext(ctx, "failed to reconcile inbound message", "error", err, "phone", msg.Phone)
		return nil, err
	}

	result := "updated"
	if created {
		result = "created"
	}
	inboundProcessedCounter.WithLabelValues(result).Inc()
	s.logger.InfoContext(ctx, "inbound message reconciled",
		"phone", client.Phone,
		"client_id", client.ClientID,
		"order_qty", client.OrderQty,
		"status", client.Status,
		"created", created,
	)

	s.publish(ctx, eventKeyClientUpdated, ClientEvent{Client: *client, Created: created})
	return client, nil
}

// newClient builds the initial state for a first-seen phone. Coordinates fall
// back to the configured defaults when the message carried none.
func (s *TrackerService) newClient(msg domain.InboundMessage, lat, lon *float64, now time.Time) *domain.Client {
	c := &domain.Client{
		Name:            msg.Name,
		Phone:           msg.Phone,
		OrderQty:        1,
		DeliveredQty:    0,
		Status:          domain.StatusRed,
		StatusTerm:      msg.StatusText,
		Latitude:        s.defaultLat,
		Longitude:       s.defaultLon,
		LastRequestTime: now,
	}
	if lat != nil && lon != nil {
		c.Latitude = *lat
		c.Longitude = *lon
	}
	return c
}

// applyInbound mutates an existing client for a repeat message. Previous
// coordinates survive when the current message yields none. Status is always
// recomputed from the quantities, never forced.
func applyInbound(c *domain.Client, msg domain.InboundMessage, lat, lon *float64, now time.Time) {
	c.OrderQty++
	if lat != nil && lon != nil {
		c.Latitude = *lat
		c.Longitude = *lon
	}
	c.StatusTerm = msg.StatusText
	c.Name = msg.Name
	c.Status = domain.StatusFor(c.OrderQty, c.DeliveredQty)
	c.LastRequestTime = now
}

// ConfirmDelivery records qty delivered boxes against the first client (lowest
// client_id) matching the display name and returns the recomputed status.
// Names are not unique, so the lowest-ID rule keeps resolution deterministic.
func (s *TrackerService) ConfirmDelivery(ctx context.Context, name string, qty int) (string, error) {
	if qty <= 0 {
		return "", fmt.Errorf("%w: delivered_qty must be a positive integer", domain.ErrValidation)
	}

	var client *domain.Client
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		c, err := tx.GetFirstClientByNameForUpdate(ctx, name)
		if err != nil {
			return err
		}
		c.DeliveredQty += qty
		c.Status = domain.StatusFor(c.OrderQty, c.DeliveredQty)
		if err := tx.UpdateClient(ctx, c); err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			deliveryConfirmCounter.WithLabelValues("not_found").Inc()
		} else {
			deliveryConfirmCounter.WithLabelValues("error").Inc()
			s.logger.ErrorContext(ctx, "failed to confirm delivery", "error", err, "name", name)
		}
		return "", err
	}

	deliveryConfirmCounter.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "delivery confirmed",
		"client_id", client.ClientID,
		"name", name,
		"delivered_qty", client.DeliveredQty,
		"status", client.Status,
	)

	s.publish(ctx, eventKeyClientDelivered, ClientEvent{Client: *client})
	return client.Status, nil
}

// DeleteClient removes a client by ID or, when no ID is given, the first
// client matching the name. Message history is kept as orphaned audit records.
func (s *TrackerService) DeleteClient(ctx context.Context, name string, clientID *int64) error {
	if clientID == nil && name == "" {
		return fmt.Errorf("%w: either name or client_id is required", domain.ErrValidation)
	}

	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		var (
			deleted bool
			err     error
		)
		if clientID != nil {
			deleted, err = tx.DeleteClientByID(ctx, *clientID)
		} else {
			deleted, err = tx.DeleteFirstClientByName(ctx, name)
		}
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to delete client", "error", err, "name", name)
		}
		return err
	}

	clientsDeletedCounter.Inc()
	s.logger.InfoContext(ctx, "client deleted", "name", name, "client_id_given", clientID != nil)
	s.publish(ctx, eventKeyClientDeleted, ClientEvent{})
	return nil
}

// ListClients returns every client for the dashboard, in insertion order.
func (s *TrackerService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.store.ListClients(ctx)
}

// ListMessages returns the message history joined with client names, newest
// first.
func (s *TrackerService) ListMessages(ctx context.Context) ([]domain.MessageWithClientName, error) {
	return s.store.ListMessages(ctx)
}

// Ping reports store connectivity for the health endpoint.
func (s *TrackerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish emits a state-change event. Emission is best-effort: a broker
// failure is logged, never surfaced to the webhook caller.
func (s *TrackerService) publish(ctx context.Context, key string, data ClientEvent) {
	env := events.Envelope{Meta: events.Meta{Kind: key}, Data: data}
	if err := s.publisher.Publish(ctx, key, env); err != nil {
		s.logger.WarnContext(ctx, "failed to publish client event", "error", err, "key", key)
	}
}
