package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voice-broker/internal/conversations"
	"voice-broker/pkg/utils"
)

// Create allocates the next display id of the account and inserts c.
// The sequence upsert is a single statement, so concurrent creates on one
// account never receive the same display id.
func (s *Store) Create(ctx context.Context, c conversations.Conversation) (conversations.Conversation, error) {
	attrs, err := json.Marshal(c.AdditionalAttributes)
	if err != nil {
		return conversations.Conversation{}, err
	}
	c.CreatedAt = time.Now().UTC()

	err = utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO account_sequences (account_id, last_display_id) VALUES (?, 1)
			ON CONFLICT (account_id) DO UPDATE SET last_display_id = account_sequences.last_display_id + 1
			RETURNING last_display_id`), c.AccountID,
		).Scan(&c.DisplayID); err != nil {
			return fmt.Errorf("allocate display id: %w", err)
		}
		if err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO conversations (account_id, inbox_id, contact_id, contact_inbox_id, display_id,
				additional_attributes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			c.AccountID, c.InboxID, c.ContactID, c.ContactInboxID, c.DisplayID, string(attrs), c.CreatedAt,
		).Scan(&c.ID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert conversation: %w", ErrConflict)
			}
			return fmt.Errorf("insert conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return conversations.Conversation{}, fmt.Errorf("store: create conversation: %w", err)
	}
	return c, nil
}

// FindByDisplayID returns conversations.ErrNotFound when absent.
func (s *Store) FindByDisplayID(ctx context.Context, accountID, displayID int64) (conversations.Conversation, error) {
	var (
		c     conversations.Conversation
		attrs []byte
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, account_id, inbox_id, contact_id, contact_inbox_id, display_id, additional_attributes, created_at
		FROM conversations WHERE account_id = ? AND display_id = ?`), accountID, displayID,
	).Scan(&c.ID, &c.AccountID, &c.InboxID, &c.ContactID, &c.ContactInboxID, &c.DisplayID, &attrs, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return conversations.Conversation{}, conversations.ErrNotFound
	}
	if err != nil {
		return conversations.Conversation{}, fmt.Errorf("store: find conversation: %w", err)
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &c.AdditionalAttributes); err != nil {
			return conversations.Conversation{}, fmt.Errorf("store: decode additional_attributes: %w", err)
		}
	}
	return c, nil
}
