package calls

import (
	"context"

	"voice-broker/internal/conversations"
)

// Repository persists call records and their event log.
//
// Event storage MUST be append-only. The only mutation allowed on a message
// is the status merge performed by EndRecord.
type Repository interface {
	// AppendRecord inserts m and its first event atomically and returns m with its id.
	AppendRecord(ctx context.Context, m Message, e Event) (Message, error)
	// LatestRecord returns the most recent call-record message of the conversation.
	LatestRecord(ctx context.Context, conversationID int64) (Message, bool, error)
	// EndRecord merges e.Status into the message's content attributes and
	// appends e, atomically.
	EndRecord(ctx context.Context, messageID int64, e Event) error
	// Events returns the conversation's events in append order.
	Events(ctx context.Context, conversationID int64) ([]Event, error)
}

// ConversationFinder looks conversations up by their display id.
type ConversationFinder interface {
	FindByDisplayID(ctx context.Context, accountID, displayID int64) (conversations.Conversation, error)
}

// StatusPublisher fans status changes out to downstream viewers. Best-effort.
type StatusPublisher interface {
	Publish(ctx context.Context, s Status) error
}
