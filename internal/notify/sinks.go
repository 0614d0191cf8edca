package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/models"
)

// DBSink persists events as Notification rows for the platform's inbox.
type DBSink struct {
	db *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink { return &DBSink{db: db} }

func (s *DBSink) Deliver(ctx context.Context, ev Event) error {
	md, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	n := models.Notification{
		RecipientID: ev.RecipientID,
		Type:        string(ev.Type),
		Title:       ev.Title,
		Message:     ev.Message,
		Link:        ev.Link,
		Metadata:    string(md),
	}
	return s.db.WithContext(ctx).Create(&n).Error
}

// RedisSink publishes events as JSON on a pub/sub channel so connected
// clients can be pushed in real time. The per-recipient channel is
// "<channel>:<recipientId>".
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Deliver(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.client.Publish(ctx, s.channel+":"+ev.RecipientID.String(), payload).Err()
}

// LogSink writes events to the log. Used when no other sink is configured.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink { return &LogSink{logger: logger} }

func (s *LogSink) Deliver(_ context.Context, ev Event) error {
	s.logger.Info().
		Str("type", string(ev.Type)).
		Str("recipient", ev.RecipientID.String()).
		Str("title", ev.Title).
		Msg(ev.Message)
	return nil
}

// MultiSink fans an event out to every sink concurrently. A failing sink
// does not cancel the others; the first error is returned once all finish.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, ev Event) error {
	var g errgroup.Group
	for _, s := range m {
		g.Go(func() error { return s.Deliver(ctx, ev) })
	}
	return g.Wait()
}

// Recorder keeps delivered events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Deliver(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

// Events returns a snapshot of everything delivered so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType filters the recorded events.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
