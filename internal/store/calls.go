package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voice-broker/internal/calls"
	"voice-broker/pkg/utils"
)

// AppendRecord inserts the call-record message and its first event.
func (s *Store) AppendRecord(ctx context.Context, m calls.Message, e calls.Event) (calls.Message, error) {
	attrs, err := json.Marshal(m.ContentAttributes)
	if err != nil {
		return calls.Message{}, err
	}
	err = utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO messages (account_id, inbox_id, conversation_id, sender_id, message_type,
				content_type, content, content_attributes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			m.AccountID, m.InboxID, m.ConversationID, m.SenderID, m.MessageType,
			m.ContentType, m.Content, string(attrs), m.CreatedAt, m.UpdatedAt,
		).Scan(&m.ID); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		e.MessageID = m.ID
		return s.appendEvent(ctx, tx, e)
	})
	if err != nil {
		return calls.Message{}, fmt.Errorf("store: append call record: %w", err)
	}
	return m, nil
}

// LatestRecord returns the newest call-record message of the conversation.
func (s *Store) LatestRecord(ctx context.Context, conversationID int64) (calls.Message, bool, error) {
	var (
		m     calls.Message
		attrs []byte
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, account_id, inbox_id, conversation_id, sender_id, message_type, content_type, content,
		       content_attributes, created_at, updated_at
		FROM messages
		WHERE conversation_id = ? AND content_type = ?
		ORDER BY id DESC LIMIT 1`), conversationID, calls.ContentTypeCall,
	).Scan(&m.ID, &m.AccountID, &m.InboxID, &m.ConversationID, &m.SenderID, &m.MessageType, &m.ContentType,
		&m.Content, &attrs, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return calls.Message{}, false, nil
	}
	if err != nil {
		return calls.Message{}, false, fmt.Errorf("store: latest call record: %w", err)
	}
	if err := json.Unmarshal(attrs, &m.ContentAttributes); err != nil {
		return calls.Message{}, false, fmt.Errorf("store: decode content_attributes: %w", err)
	}
	return m, true, nil
}

// EndRecord merges e.Status into the message's content attributes and
// appends e. Keys other than status are preserved.
func (s *Store) EndRecord(ctx context.Context, messageID int64, e calls.Event) error {
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var raw []byte
		err := tx.QueryRowContext(ctx, s.q(`SELECT content_attributes FROM messages WHERE id = ?`+s.forUpdate()), messageID).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var attrs map[string]any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &attrs); err != nil {
				return fmt.Errorf("decode content_attributes: %w", err)
			}
		}
		merged, err := json.Marshal(calls.MergeStatus(attrs, e.Status))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE messages SET content_attributes = ?, updated_at = ? WHERE id = ?`),
			string(merged), e.CreatedAt, messageID); err != nil {
			return fmt.Errorf("update message: %w", err)
		}
		e.MessageID = messageID
		return s.appendEvent(ctx, tx, e)
	})
	if err != nil {
		return fmt.Errorf("store: end call record: %w", err)
	}
	return nil
}

// Events returns the conversation's call events in append order.
func (s *Store) Events(ctx context.Context, conversationID int64) ([]calls.Event, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, conversation_id, message_id, room_name, status, created_at
		FROM call_events WHERE conversation_id = ? ORDER BY seq`), conversationID)
	if err != nil {
		return nil, fmt.Errorf("store: list call events: %w", err)
	}
	defer rows.Close()

	var out []calls.Event
	for rows.Next() {
		var e calls.Event
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.MessageID, &e.RoomName, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan call event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Events are insert-only; there is deliberately no update or delete path.
func (s *Store) appendEvent(ctx context.Context, tx *sql.Tx, e calls.Event) error {
	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO call_events (id, conversation_id, message_id, room_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		e.ID, e.ConversationID, e.MessageID, e.RoomName, string(e.Status), e.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert call event: %w", err)
	}
	return nil
}
