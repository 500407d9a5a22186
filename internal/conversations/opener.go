package conversations

import (
	"context"
	"errors"
	"fmt"

	"voice-broker/internal/channels"
	"voice-broker/internal/identity"
	"voice-broker/pkg/logger"
)

// Store is the persistence contract for conversations.
type Store interface {
	// Create inserts c and allocates its DisplayID atomically within the account.
	Create(ctx context.Context, c Conversation) (Conversation, error)
	// FindByDisplayID returns ErrNotFound when no conversation matches.
	FindByDisplayID(ctx context.Context, accountID, displayID int64) (Conversation, error)
}

// Opener opens voice-call conversations.
type Opener struct {
	store Store
}

func NewOpener(store Store) *Opener {
	return &Opener{store: store}
}

// Open always creates a new conversation; conversations are never reused
// across joins.
func (o *Opener) Open(ctx context.Context, accountID int64, inbox channels.Inbox, id identity.Identity) (Conversation, error) {
	if o.store == nil {
		return Conversation{}, errors.New("conversations: store not configured")
	}
	if accountID == 0 || inbox.ID == 0 || id.Contact.ID == 0 || id.Binding.ID == 0 {
		return Conversation{}, ErrInvalidArgument
	}
	if id.Binding.InboxID != inbox.ID {
		return Conversation{}, fmt.Errorf("%w: binding belongs to inbox %d", ErrInvalidArgument, id.Binding.InboxID)
	}

	conv, err := o.store.Create(ctx, Conversation{
		AccountID:            accountID,
		InboxID:              inbox.ID,
		ContactID:            id.Contact.ID,
		ContactInboxID:       id.Binding.ID,
		AdditionalAttributes: Attributes{Type: TypeVoiceCall},
	})
	if err != nil {
		return Conversation{}, fmt.Errorf("conversations: create: %w", err)
	}
	logger.Component(ctx, "conversations").Info("conversation opened",
		"account_id", accountID, "conversation_id", conv.ID, "display_id", conv.DisplayID)
	return conv, nil
}

// Find returns the conversation with displayID in the account.
func (o *Opener) Find(ctx context.Context, accountID, displayID int64) (Conversation, error) {
	if o.store == nil {
		return Conversation{}, errors.New("conversations: store not configured")
	}
	return o.store.FindByDisplayID(ctx, accountID, displayID)
}
