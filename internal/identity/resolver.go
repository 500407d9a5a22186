package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"voice-broker/internal/channels"
	"voice-broker/pkg/logger"
)

var (
	// ErrIdentityConflict is returned when a binding key already exists on the
	// inbox. Not expected in normal operation; it signals a race or bad data.
	ErrIdentityConflict = errors.New("identity: binding conflict")
	ErrInvalidArgument  = errors.New("identity: invalid argument")
)

// Store is the persistence contract for identities.
type Store interface {
	// FindBinding returns the identity bound to sourceID on the inbox.
	// Returns (Identity{}, false, nil) when none exists.
	FindBinding(ctx context.Context, inboxID int64, sourceID string) (Identity, bool, error)

	// CreateIdentity inserts the contact and its binding atomically.
	// A (inbox, source_id) collision must surface as ErrIdentityConflict.
	CreateIdentity(ctx context.Context, c Contact, inboxID int64, sourceID string) (Identity, error)
}

// Resolver finds or creates visitor identities on an inbox.
type Resolver struct {
	store Store
	// newSourceID is injectable for deterministic tests.
	newSourceID func() (string, error)
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, newSourceID: randomSourceID}
}

// ResolveOrCreate returns the identity bound to v.Email on the inbox when one
// exists. Otherwise it creates a contact and binds it under v.Email, or under
// a fresh opaque id when no email was supplied.
func (r *Resolver) ResolveOrCreate(ctx context.Context, inbox channels.Inbox, v Visitor) (Identity, error) {
	if r.store == nil {
		return Identity{}, errors.New("identity: store not configured")
	}
	if inbox.ID == 0 || inbox.AccountID == 0 {
		return Identity{}, ErrInvalidArgument
	}
	log := logger.Component(ctx, "identity")

	email := strings.TrimSpace(v.Email)
	if email != "" {
		id, ok, err := r.store.FindBinding(ctx, inbox.ID, email)
		if err != nil {
			return Identity{}, fmt.Errorf("identity: find binding: %w", err)
		}
		if ok {
			log.Debug("repeat visitor", "inbox_id", inbox.ID, "contact_id", id.Contact.ID)
			return id, nil
		}
	}

	sourceID := email
	if sourceID == "" {
		s, err := r.newSourceID()
		if err != nil {
			return Identity{}, fmt.Errorf("identity: source id: %w", err)
		}
		sourceID = s
	}

	name := strings.TrimSpace(v.Name)
	if name == "" {
		name = DefaultName
	}
	id, err := r.store.CreateIdentity(ctx, Contact{
		AccountID: inbox.AccountID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(v.Phone),
	}, inbox.ID, sourceID)
	if err != nil {
		return Identity{}, err
	}
	log.Info("contact created", "inbox_id", inbox.ID, "contact_id", id.Contact.ID)
	return id, nil
}

func randomSourceID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
