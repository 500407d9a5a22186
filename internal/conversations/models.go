package conversations

import (
	"errors"
	"time"
)

// Conversation binds a contact to an inbox for one call attempt.
//
// DisplayID is allocated per account and is the only identifier exposed to
// widget clients; it correlates a room with its timeline.
type Conversation struct {
	ID             int64 `json:"id" db:"id"`
	AccountID      int64 `json:"account_id" db:"account_id"`
	InboxID        int64 `json:"inbox_id" db:"inbox_id"`
	ContactID      int64 `json:"contact_id" db:"contact_id"`
	ContactInboxID int64 `json:"contact_inbox_id" db:"contact_inbox_id"`
	DisplayID      int64 `json:"display_id" db:"display_id"`

	AdditionalAttributes Attributes `json:"additional_attributes" db:"additional_attributes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Attributes is the classification record stored with a conversation.
type Attributes struct {
	Type string `json:"type"`
}

const TypeVoiceCall = "webrtc_voice_call"

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrInvalidArgument = errors.New("conversations: invalid argument")
)
