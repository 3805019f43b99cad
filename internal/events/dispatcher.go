package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Dispatcher publishes domain events collected from the services. Domain
// methods return events instead of dispatching them so they stay testable
// without a message bus; the dispatcher runs after persistence commits.
type Dispatcher interface {
	Dispatch(ctx context.Context, evts ...Event)
}

type envelope struct {
	ID      string      `json:"id"`
	Subject string      `json:"subject"`
	SentAt  time.Time   `json:"sent_at"`
	Payload interface{} `json:"payload"`
}

type natsDispatcher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSDispatcher publishes events as JSON envelopes to their NATS subjects.
func NewNATSDispatcher(conn *nats.Conn, logger zerolog.Logger) Dispatcher {
	return &natsDispatcher{
		conn:   conn,
		logger: logger.With().Str("component", "event_dispatcher").Logger(),
	}
}

func (d *natsDispatcher) Dispatch(ctx context.Context, evts ...Event) {
	for _, evt := range evts {
		if evt == nil {
			continue
		}

		payload, err := json.Marshal(envelope{
			ID:      uuid.NewString(),
			Subject: evt.Subject(),
			SentAt:  time.Now().UTC(),
			Payload: evt,
		})
		if err != nil {
			d.logger.Warn().Err(err).Str("subject", evt.Subject()).Msg("failed to encode event")
			continue
		}

		if err := d.conn.Publish(evt.Subject(), payload); err != nil {
			d.logger.Warn().Err(err).Str("subject", evt.Subject()).Msg("failed to publish event")
		}
	}
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, ...Event) {}

// NewNoopDispatcher returns a dispatcher that drops all events. Used when no
// broker is configured.
func NewNoopDispatcher() Dispatcher { return noopDispatcher{} }

// Recorder collects dispatched events in memory for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder builds an empty event recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Dispatch appends the events to the recorder.
func (r *Recorder) Dispatch(_ context.Context, evts ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evts...)
}

// Events returns a copy of everything dispatched so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
