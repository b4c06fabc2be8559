// Package audit records who did what. Callers hand events to an Emitter and
// move on; persistence happens on background workers and never fails a request.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
)

const (
	maxUserAgent = 500
	writeTimeout = 5 * time.Second
)

// Event is one audit record as seen by the caller.
// OldValue and NewValue are serialized to JSON; nil means absent.
type Event struct {
	UserID      *uint
	Action      string
	Module      string
	EntityType  string
	EntityID    *uint
	OldValue    any
	NewValue    any
	Description string
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	LogAction(ctx context.Context, e Event)
}

// Publisher receives each stored record, e.g. a websocket hub.
type Publisher interface {
	Publish(topic string, payload any)
}

// UsernameLookup resolves the display name stored alongside the user id.
type UsernameLookup interface {
	FindUsername(ctx context.Context, id uint) (string, error)
}

type clientKey struct{}

// Client describes where a request came from.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient stores request origin details for events emitted under ctx.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}

type queued struct {
	entry  model.AuditLog
	userID *uint
}

// AsyncEmitter persists events on a fixed pool of workers fed by a bounded queue.
// When the queue is full the event is dropped and a warning logged.
type AsyncEmitter struct {
	repo      repository.AuditRepository
	users     UsernameLookup
	publisher Publisher
	logger    *slog.Logger

	queue   chan queued
	workers int
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsyncEmitter(repo repository.AuditRepository, users UsernameLookup, publisher Publisher, queueSize, workers int, logger *slog.Logger) *AsyncEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &AsyncEmitter{
		repo:      repo,
		users:     users,
		publisher: publisher,
		logger:    logger,
		queue:     make(chan queued, queueSize),
		workers:   workers,
	}
}

// Start launches the workers.
func (e *AsyncEmitter) Start() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.work()
	}
}

// LogAction snapshots the event and enqueues it.
func (e *AsyncEmitter) LogAction(ctx context.Context, ev Event) {
	client := ClientFromContext(ctx)
	item := queued{
		userID: ev.UserID,
		entry: model.AuditLog{
			UserID:      ev.UserID,
			Action:      ev.Action,
			Module:      ev.Module,
			EntityType:  ev.EntityType,
			EntityID:    ev.EntityID,
			OldValue:    e.marshal(ev.OldValue),
			NewValue:    e.marshal(ev.NewValue),
			IPAddress:   client.IP,
			UserAgent:   truncate(client.UserAgent, maxUserAgent),
			Description: ev.Description,
		},
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.logger.Warn("audit emitter closed, dropping event", "action", ev.Action, "module", ev.Module)
		return
	}
	select {
	case e.queue <- item:
	default:
		e.logger.Warn("audit queue full, dropping event", "action", ev.Action, "module", ev.Module)
	}
}

// Close stops intake and waits for queued events to be written, or for ctx to end.
func (e *AsyncEmitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *AsyncEmitter) work() {
	defer e.wg.Done()
	for item := range e.queue {
		e.write(item)
	}
}

func (e *AsyncEmitter) write(item queued) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	entry := item.entry
	if item.userID != nil && e.users != nil {
		name, err := e.users.FindUsername(ctx, *item.userID)
		if err != nil {
			e.logger.Warn("audit username lookup failed", "user_id", *item.userID, "error", err)
		}
		entry.Username = name
	}
	entry.CreatedAt = time.Now().UTC()

	if err := e.repo.Log(ctx, &entry); err != nil {
		e.logger.Error("failed to write audit log", "action", entry.Action, "module", entry.Module, "error", err)
		return
	}
	if e.publisher != nil {
		e.publisher.Publish("audit", entry)
	}
}

func (e *AsyncEmitter) marshal(v any) *string {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		e.logger.Warn("audit value not serializable", "error", err)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	s := string(b)
	return &s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
