package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents the type of event.
type EventType string

const (
	// EventEvaluationCompleted is emitted after a ranked result is produced.
	EventEvaluationCompleted EventType = "evaluation.completed"
	// EventRulesReloaded is emitted when a new rule snapshot becomes active.
	EventRulesReloaded EventType = "rules.reloaded"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

// EvaluationCompletedData summarizes one evaluation.
type EvaluationCompletedData struct {
	EvaluationID string
	StoreID      string
	Amount       int64
	BestMethod   string
	BestBenefit  int64
	Results      int
	Cached       bool
}

// RulesReloadedData describes the snapshot that replaced the previous one.
type RulesReloadedData struct {
	Source  string
	Version string
	Stores  int
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager fans events out to subscribers. Handlers run on their own
// goroutine and never block the publisher.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	logger   zerolog.Logger
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewManager creates a new event manager. A disabled manager drops every
// subscription and publication.
func NewManager(enabled bool, logger zerolog.Logger) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data any) {
	if m == nil {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	handlers := m.handlers[eventType]
	if !m.enabled || len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: m.now(),
		Data:      data,
	}

	// The request context is cancelled as soon as the response is written.
	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		m.wg.Add(1)
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(ctx, event); err != nil {
				m.logger.Error().Err(err).Str("event", string(event.Type)).Msg("event handler failed")
			}
		}(handler)
	}
}

// PublishEvaluationCompleted publishes an evaluation completed event.
func (m *Manager) PublishEvaluationCompleted(ctx context.Context, data EvaluationCompletedData) {
	m.Publish(ctx, EventEvaluationCompleted, data)
}

// PublishRulesReloaded publishes a rules reloaded event.
func (m *Manager) PublishRulesReloaded(ctx context.Context, data RulesReloadedData) {
	m.Publish(ctx, EventRulesReloaded, data)
}

// Shutdown stops accepting events and waits for in-flight handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}

// LogHandler writes every event it receives to logger.
func LogHandler(logger zerolog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		evt := logger.Info().Str("event", string(event.Type)).Time("at", event.Timestamp)
		switch d := event.Data.(type) {
		case EvaluationCompletedData:
			evt = evt.Str("evaluation_id", d.EvaluationID).
				Str("store_id", d.StoreID).
				Int64("amount", d.Amount).
				Str("best_method", d.BestMethod).
				Int64("best_benefit", d.BestBenefit).
				Int("results", d.Results).
				Bool("cached", d.Cached)
		case RulesReloadedData:
			evt = evt.Str("source", d.Source).Str("version", d.Version).Int("stores", d.Stores)
		}
		evt.Msg("event")
		return nil
	}
}
