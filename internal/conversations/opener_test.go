package conversations

import (
	"context"
	"errors"
	"sync"
	"testing"

	"voice-broker/internal/channels"
	"voice-broker/internal/identity"
)

type memoryStore struct {
	mu    sync.Mutex
	convs []Conversation
	seq   map[int64]int64
}

func (m *memoryStore) Create(ctx context.Context, c Conversation) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq == nil {
		m.seq = map[int64]int64{}
	}
	m.seq[c.AccountID]++
	c.DisplayID = m.seq[c.AccountID]
	c.ID = int64(len(m.convs) + 1)
	m.convs = append(m.convs, c)
	return c, nil
}

func (m *memoryStore) FindByDisplayID(ctx context.Context, accountID, displayID int64) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.convs {
		if c.AccountID == accountID && c.DisplayID == displayID {
			return c, nil
		}
	}
	return Conversation{}, ErrNotFound
}

var (
	inbox = channels.Inbox{ID: 3, AccountID: 1}
	ident = identity.Identity{
		Contact: identity.Contact{ID: 7, AccountID: 1},
		Binding: identity.Binding{ID: 9, ContactID: 7, InboxID: 3},
	}
)

func TestOpen_AlwaysCreatesTaggedConversation(t *testing.T) {
	store := &memoryStore{}
	o := NewOpener(store)

	a, err := o.Open(context.Background(), 1, inbox, ident)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, err := o.Open(context.Background(), 1, inbox, ident)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if a.ID == b.ID || a.DisplayID == b.DisplayID {
		t.Fatalf("expected a fresh conversation per open, got %+v and %+v", a, b)
	}
	if a.AdditionalAttributes.Type != TypeVoiceCall {
		t.Fatalf("expected voice call tag, got %q", a.AdditionalAttributes.Type)
	}
	if a.ContactInboxID != ident.Binding.ID {
		t.Fatalf("expected binding %d, got %d", ident.Binding.ID, a.ContactInboxID)
	}

	got, err := o.Find(context.Background(), 1, b.DisplayID)
	if err != nil || got.ID != b.ID {
		t.Fatalf("find: %+v %v", got, err)
	}
	if _, err := o.Find(context.Background(), 2, b.DisplayID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across accounts, got %v", err)
	}
}

func TestOpen_RejectsForeignBinding(t *testing.T) {
	o := NewOpener(&memoryStore{})
	other := ident
	other.Binding.InboxID = 99
	if _, err := o.Open(context.Background(), 1, inbox, other); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := o.Open(context.Background(), 1, inbox, identity.Identity{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty identity, got %v", err)
	}
}
