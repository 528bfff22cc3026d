// Package store owns the session's shipment state: the current page of
// shipments, pagination and filters, the focused shipment, and the backend
// aggregate stats. It is the single writer for that state; everything else
// reads snapshots.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/eraiiz/shipping/internal/broker/messages"
	"github.com/eraiiz/shipping/internal/models"
	"github.com/eraiiz/shipping/internal/status"
)

// API is the backend subset the store drives.
type API interface {
	ListShipments(ctx context.Context, page, limit int, f models.ShipmentFilters) ([]models.Shipment, models.Pagination, error)
	GetShipment(ctx context.Context, id string) (models.Shipment, error)
	UpdateShipmentStatus(ctx context.Context, id string, upd models.StatusUpdate) (models.Shipment, error)
	CancelShipment(ctx context.Context, id, reason string) error
	ShippingStats(ctx context.Context, f models.ShipmentFilters) (models.ShippingStats, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Store struct {
	api      API
	producer Producer
	topic    string

	seq atomic.Uint64

	mu         sync.Mutex
	shipments  []models.Shipment
	current    *models.Shipment
	pagination models.Pagination
	filters    models.ShipmentFilters
	page       int
	limit      int
	stats      models.ShippingStats
	appliedSeq uint64
}

func New(api API) *Store {
	return &Store{
		api:   api,
		page:  1,
		limit: 10,
	}
}

// WithProducer wires status-change event publishing. Publishing is
// best-effort: a broker failure never fails a fetch.
func (s *Store) WithProducer(p Producer, topic string) *Store {
	s.producer = p
	s.topic = topic
	return s
}

func (s *Store) WithPageSize(limit int) *Store {
	if limit > 0 {
		s.limit = limit
	}
	return s
}

// Fetch replaces the in-memory page wholesale with the backend's answer.
// Each fetch carries a sequence number; a response that arrives after a newer
// one has been applied is discarded, so overlapping refreshes resolve by
// request order rather than arrival order.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	page, limit, f := s.page, s.limit, s.filters
	s.mu.Unlock()

	seq := s.seq.Add(1)
	ships, pg, err := s.api.ListShipments(ctx, page, limit, f)
	if err != nil {
		return errors.Wrap(err, "fetch shipments")
	}

	s.apply(ctx, seq, ships, pg)
	return nil
}

func (s *Store) apply(ctx context.Context, seq uint64, ships []models.Shipment, pg models.Pagination) {
	s.mu.Lock()
	if seq <= s.appliedSeq {
		s.mu.Unlock()
		slog.Debug("discarding stale shipment list response", "seq", seq, "applied", s.appliedSeq)
		return
	}
	s.appliedSeq = seq

	changes := diffStatuses(s.shipments, ships)
	s.shipments = ships
	s.pagination = pg
	s.mu.Unlock()

	for _, ch := range changes {
		s.publishChange(ctx, ch)
	}
}

type statusChange struct {
	shipment  models.Shipment
	oldStatus string
}

func diffStatuses(old, fresh []models.Shipment) []statusChange {
	if len(old) == 0 {
		return nil
	}
	prev := make(map[string]string, len(old))
	for _, sh := range old {
		prev[sh.ID] = sh.Status
	}
	var out []statusChange
	for _, sh := range fresh {
		if was, ok := prev[sh.ID]; ok && was != sh.Status {
			out = append(out, statusChange{shipment: sh, oldStatus: was})
		}
	}
	return out
}

func (s *Store) publishChange(ctx context.Context, ch statusChange) {
	if s.producer == nil || s.topic == "" {
		return
	}
	msg := messages.ShipmentStatusChanged{
		ShipmentID:     ch.shipment.ID,
		OrderID:        ch.shipment.OrderID,
		TrackingNumber: ch.shipment.TrackingNumber,
		OldStatus:      ch.oldStatus,
		NewStatus:      ch.shipment.Status,
		ObservedAt:     time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal status change", "shipment_id", ch.shipment.ID, "error", err.Error())
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(ch.shipment.ID), b); err != nil {
		slog.Error("publish status change", "shipment_id", ch.shipment.ID, "error", err.Error())
	}
}

// UpdateFilters replaces the filter set and resets the page to 1. The next
// Fetch uses the new filters.
func (s *Store) UpdateFilters(f models.ShipmentFilters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
	s.page = 1
}

func (s *Store) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
}

// UpdateStatus waits for the server's confirmation and patches the returned
// shipment into the list (and into the focused shipment when ids match).
// There is no optimistic update.
func (s *Store) UpdateStatus(ctx context.Context, id string, upd models.StatusUpdate) (models.Shipment, error) {
	sh, err := s.api.UpdateShipmentStatus(ctx, id, upd)
	if err != nil {
		return models.Shipment{}, err
	}
	s.patch(sh)
	return sh, nil
}

// Cancel asks the backend to cancel, then re-fetches the shipment so the
// applied state is the server's, not a client-side guess. If the follow-up
// read fails the local copy is marked cancelled anyway: the cancel itself
// already succeeded.
func (s *Store) Cancel(ctx context.Context, id, reason string) error {
	if err := s.api.CancelShipment(ctx, id, reason); err != nil {
		return err
	}
	sh, err := s.api.GetShipment(ctx, id)
	if err != nil {
		slog.Warn("reload cancelled shipment", "shipment_id", id, "error", err.Error())
		s.patchStatus(id, models.StatusCancelled)
		return nil
	}
	s.patch(sh)
	return nil
}

func (s *Store) patch(sh models.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shipments {
		if s.shipments[i].ID == sh.ID {
			s.shipments[i] = sh
			break
		}
	}
	if s.current != nil && s.current.ID == sh.ID {
		cp := sh
		s.current = &cp
	}
}

func (s *Store) patchStatus(id, st string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shipments {
		if s.shipments[i].ID == id {
			s.shipments[i].Status = st
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		s.current.Status = st
	}
}

// Focus loads one shipment and makes it the focused record.
func (s *Store) Focus(ctx context.Context, id string) (models.Shipment, error) {
	sh, err := s.api.GetShipment(ctx, id)
	if err != nil {
		return models.Shipment{}, err
	}
	s.mu.Lock()
	cp := sh
	s.current = &cp
	s.mu.Unlock()
	return sh, nil
}

func (s *Store) ClearFocus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// RefreshStats pulls the backend aggregate for the current filters. Stats are
// never derived from the paginated list, which only holds one page.
func (s *Store) RefreshStats(ctx context.Context) error {
	s.mu.Lock()
	f := s.filters
	s.mu.Unlock()

	st, err := s.api.ShippingStats(ctx, f)
	if err != nil {
		return errors.Wrap(err, "fetch shipping stats")
	}
	s.mu.Lock()
	s.stats = st
	s.mu.Unlock()
	return nil
}

// HasActive reports whether any listed shipment is still moving; it gates the
// auto-refresh loop.
func (s *Store) HasActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shipments {
		if status.IsActive(sh.Status) {
			return true
		}
	}
	return false
}

func (s *Store) Shipments() []models.Shipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Shipment, len(s.shipments))
	copy(out, s.shipments)
	return out
}

func (s *Store) CurrentShipment() (models.Shipment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Shipment{}, false
	}
	return *s.current, true
}

func (s *Store) Pagination() models.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

func (s *Store) Filters() models.ShipmentFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Store) Stats() models.ShippingStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
