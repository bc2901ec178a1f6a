package eventbus

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindTaskCreated      Kind = "task.created"
	KindTaskUpdated      Kind = "task.updated"
	KindTaskDeleted      Kind = "task.deleted"
	KindPersistSucceeded Kind = "persist.succeeded"
	KindPersistFailed    Kind = "persist.failed"
)

// Notification is a user-visible message about something that happened to the
// board.
type Notification struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	ResourceID string            `json:"resource_id,omitempty"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (n *Notification) Failed() bool {
	return n.Kind == KindPersistFailed
}

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Notification
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *Notification),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Notification) {
	id := ulid.Make().String()
	ch := make(chan *Notification, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish delivers n to every subscriber. A nil Bus discards it.
func (b *Bus) Publish(n *Notification) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- n:
		default:
			// buffer full, drop notification for this subscriber
		}
	}
}

func (b *Bus) PublishNew(kind Kind, resourceID, message string, metadata map[string]string) {
	b.Publish(&Notification{
		ID:         ulid.Make().String(),
		Kind:       kind,
		ResourceID: resourceID,
		Message:    message,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	})
}
