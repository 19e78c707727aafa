package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
)

// Manager applies the queue workflow on top of a Store: it assigns IDs,
// timestamps and priorities, records metrics and broadcasts changes.
type Manager struct {
	store   Store
	broker  *Broker
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// maxIDAttempts bounds how often Add draws a new ID after a collision.
const maxIDAttempts = 5

// NewManager creates a manager. A nil broker gets a private one.
func NewManager(store Store, broker *Broker, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if broker == nil {
		broker = NewBroker(nil)
	}
	return &Manager{
		store:   store,
		broker:  broker,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		newID:   NewCaseID,
	}
}

// Add normalizes in and queues it as a pending case.
func (m *Manager) Add(ctx context.Context, in *Intake) (*Case, error) {
	c, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	at := m.now()
	now := Timestamp(at)
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Status = StatusPending

	for attempt := 1; ; attempt++ {
		c.ID = m.newID()
		err = m.store.Create(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateID) || attempt == maxIDAttempts {
			return nil, fmt.Errorf("failed to add patient: %w", err)
		}
		m.logger.Warn("Patient ID collision, retrying",
			slog.String("patient_id", c.ID),
			slog.Int("attempt", attempt),
		)
	}

	m.logger.Info("Patient added to queue",
		slog.String("patient_id", c.ID),
		slog.String("triage_level", c.TriageLevel),
		slog.Int("priority", c.Priority),
	)
	m.metrics.RecordCaseCreated(c.TriageLevel)
	m.publish(ctx, at, EventCreated, c.ID, c)

	return c, nil
}

// List returns the queue, optionally filtered by status.
func (m *Manager) List(ctx context.Context, status string) ([]Case, error) {
	var filter Status
	if status != "" {
		var err error
		if filter, err = ParseStatus(status); err != nil {
			return nil, err
		}
	}
	return m.store.List(ctx, filter)
}

// Get returns a single case.
func (m *Manager) Get(ctx context.Context, id string) (*Case, error) {
	return m.store.Get(ctx, id)
}

// UpdateStatus moves a case through the review workflow.
func (m *Manager) UpdateStatus(ctx context.Context, id, status string, notes, reviewedBy, referredTo *string) (*Case, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	at := m.now()
	c, err := m.store.UpdateStatus(ctx, id, Update{
		Status:     st,
		Notes:      notes,
		ReviewedBy: reviewedBy,
		ReferredTo: referredTo,
		UpdatedAt:  Timestamp(at),
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Patient status updated",
		slog.String("patient_id", id),
		slog.String("status", string(st)),
	)
	m.metrics.RecordStatusUpdate(string(st))
	m.publish(ctx, at, EventUpdated, id, c)

	return c, nil
}

// Delete removes a case.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}

	m.logger.Info("Patient deleted", slog.String("patient_id", id))
	m.metrics.RecordCaseDeleted()
	m.publish(ctx, m.now(), EventDeleted, id, nil)

	return nil
}

// Stats summarizes the queue.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	return m.store.Stats(ctx)
}

// Export writes the full queue as CSV.
func (m *Manager) Export(ctx context.Context, w io.Writer) error {
	cases, err := m.store.List(ctx, "")
	if err != nil {
		return err
	}
	return ExportCSV(w, cases)
}

// Subscribe registers a live event listener.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	return m.broker.Subscribe(buffer)
}

// publish refreshes the active gauge and notifies listeners. Failures here
// never undo the change that was already persisted.
func (m *Manager) publish(ctx context.Context, at time.Time, kind EventType, id string, c *Case) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("Failed to refresh queue stats",
			slog.String("patient_id", id),
			slog.String("error", err.Error()),
		)
	} else {
		m.metrics.SetActiveCases(stats.ActiveCount)
	}

	ev := Event{Type: kind, PatientID: id, Case: c, Time: at.UTC()}
	if err == nil {
		ev.Stats = &stats
	}
	delivered := m.broker.Publish(ev)
	m.logger.Debug("Queue event published",
		slog.String("type", string(kind)),
		slog.String("patient_id", id),
		slog.Int("delivered", delivered),
	)
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
