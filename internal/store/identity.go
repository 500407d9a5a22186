package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voice-broker/internal/identity"
	"voice-broker/pkg/utils"
)

// FindBinding returns the identity bound to sourceID on the inbox.
func (s *Store) FindBinding(ctx context.Context, inboxID int64, sourceID string) (identity.Identity, bool, error) {
	var (
		id           identity.Identity
		email, phone sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT ci.id, ci.contact_id, ci.inbox_id, ci.source_id, ci.created_at,
		       c.id, c.account_id, c.name, c.email, c.phone_number, c.created_at
		FROM contact_inboxes ci
		JOIN contacts c ON c.id = ci.contact_id
		WHERE ci.inbox_id = ? AND ci.source_id = ?`), inboxID, sourceID,
	).Scan(
		&id.Binding.ID, &id.Binding.ContactID, &id.Binding.InboxID, &id.Binding.SourceID, &id.Binding.CreatedAt,
		&id.Contact.ID, &id.Contact.AccountID, &id.Contact.Name, &email, &phone, &id.Contact.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, false, nil
	}
	if err != nil {
		return identity.Identity{}, false, fmt.Errorf("store: find binding: %w", err)
	}
	id.Contact.Email = email.String
	id.Contact.Phone = phone.String
	return id, true, nil
}

// CreateIdentity inserts the contact and its inbox binding atomically.
// A duplicate (inbox, source_id) surfaces as identity.ErrIdentityConflict.
func (s *Store) CreateIdentity(ctx context.Context, c identity.Contact, inboxID int64, sourceID string) (identity.Identity, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	b := identity.Binding{InboxID: inboxID, SourceID: sourceID, CreatedAt: now}

	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO contacts (account_id, name, email, phone_number, created_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id`),
			c.AccountID, c.Name, nullString(c.Email), nullString(c.Phone), now,
		).Scan(&c.ID); err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
		b.ContactID = c.ID
		if err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO contact_inboxes (contact_id, inbox_id, source_id, created_at)
			VALUES (?, ?, ?, ?) RETURNING id`),
			b.ContactID, b.InboxID, b.SourceID, now,
		).Scan(&b.ID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %w", identity.ErrIdentityConflict, ErrConflict)
			}
			return fmt.Errorf("insert binding: %w", err)
		}
		return nil
	})
	if err != nil {
		return identity.Identity{}, fmt.Errorf("store: create identity: %w", err)
	}
	return identity.Identity{Contact: c, Binding: b}, nil
}
