package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	messages []Message
	events   []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) AppendRecord(ctx context.Context, m Message, e Event) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.ContentAttributes = MergeStatus(m.ContentAttributes, e.Status)
	r.messages = append(r.messages, m)
	e.MessageID = m.ID
	r.events = append(r.events, e)
	return m, nil
}

func (r *MemoryRepo) LatestRecord(ctx context.Context, conversationID int64) (Message, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if m.ConversationID == conversationID && m.ContentType == ContentTypeCall {
			return m, true, nil
		}
	}
	return Message{}, false, nil
}

func (r *MemoryRepo) EndRecord(ctx context.Context, messageID int64, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == messageID {
			r.messages[i].ContentAttributes = MergeStatus(r.messages[i].ContentAttributes, e.Status)
			r.messages[i].UpdatedAt = time.Now().UTC()
			r.events = append(r.events, e)
			return nil
		}
	}
	return nil
}

func (r *MemoryRepo) Events(ctx context.Context, conversationID int64) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.ConversationID == conversationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Messages returns a snapshot of every stored message.
func (r *MemoryRepo) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
