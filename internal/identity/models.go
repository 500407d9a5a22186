package identity

import "time"

// Contact is a visitor reachable on a channel's inbox.
// Created lazily on first join; never deleted by the broker.
type Contact struct {
	ID        int64  `json:"id" db:"id"`
	AccountID int64  `json:"account_id" db:"account_id"`
	Name      string `json:"name" db:"name"`
	// Email and Phone are optional; empty means absent (stored as NULL).
	Email string `json:"email,omitempty" db:"email"`
	Phone string `json:"phone_number,omitempty" db:"phone_number"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Binding ties a contact to an inbox under a source id.
// Invariant: (InboxID, SourceID) is unique.
type Binding struct {
	ID        int64  `json:"id" db:"id"`
	ContactID int64  `json:"contact_id" db:"contact_id"`
	InboxID   int64  `json:"inbox_id" db:"inbox_id"`
	SourceID  string `json:"source_id" db:"source_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Identity is a resolved visitor: the contact plus its binding on the inbox.
type Identity struct {
	Contact Contact `json:"contact"`
	Binding Binding `json:"binding"`
}

// Visitor is the optional self-description supplied on join.
type Visitor struct {
	Name  string
	Email string
	Phone string
}

const DefaultName = "Visitor"
