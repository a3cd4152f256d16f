package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
)

// LogEmitter writes analytics events to a structured logger. It's the
// simplest sink and a reasonable default for development.
type LogEmitter struct {
	log *slog.Logger
}

// NewLogEmitter creates an emitter over the given logger, defaulting to
// slog.Default().
func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(ctx context.Context, event string, props map[string]any) error {
	e.log.InfoContext(ctx, "analytics event",
		slog.String("event", event), slog.Any("props", props))
	return nil
}

// RedisEmitter publishes analytics events as JSON to a Redis pub/sub
// channel for downstream analytics consumers.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

// NewRedisEmitter creates an emitter publishing to the given channel.
func NewRedisEmitter(client *redis.Client, channel string) (*RedisEmitter, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if channel == "" {
		channel = "experiment:events"
	}
	return &RedisEmitter{client: client, channel: channel}, nil
}

func (e *RedisEmitter) Emit(ctx context.Context, event string, props map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"event": event,
		"props": props,
	})
	if err != nil {
		return err
	}
	if err := e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// EmittedEvent is a captured event as recorded by MemoryEmitter.
type EmittedEvent struct {
	Event string
	Props map[string]any
}

// MemoryEmitter captures events in memory. Intended for tests.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// NewMemoryEmitter creates an empty capturing emitter.
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

func (e *MemoryEmitter) Emit(ctx context.Context, event string, props map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, EmittedEvent{Event: event, Props: props})
	return nil
}

// Events returns a copy of every captured event.
func (e *MemoryEmitter) Events() []EmittedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.events)
}

// EventsNamed returns captured events with the given name.
func (e *MemoryEmitter) EventsNamed(event string) []EmittedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result []EmittedEvent
	for _, ev := range e.events {
		if ev.Event == event {
			result = append(result, ev)
		}
	}
	return result
}
