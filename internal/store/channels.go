package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voice-broker/internal/channels"
	"voice-broker/pkg/utils"
)

const channelColumns = `id, account_id, inbox_id, website_token, hmac_token, provider_config,
	widget_color, welcome_title, welcome_tagline, website_url, created_at, updated_at`

// FindByWebsiteToken returns channels.ErrNotFound for unknown tokens.
func (s *Store) FindByWebsiteToken(ctx context.Context, websiteToken string) (channels.Channel, error) {
	if websiteToken == "" {
		return channels.Channel{}, channels.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+channelColumns+` FROM channel_webrtc WHERE website_token = ?`), websiteToken)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return channels.Channel{}, channels.ErrNotFound
	}
	if err != nil {
		return channels.Channel{}, fmt.Errorf("store: find channel: %w", err)
	}
	return ch, nil
}

// CreateWithInbox inserts the inbox and the channel in one transaction.
func (s *Store) CreateWithInbox(ctx context.Context, ch channels.Channel) (channels.Channel, error) {
	pc, err := json.Marshal(ch.ProviderConfig)
	if err != nil {
		return channels.Channel{}, err
	}
	now := time.Now().UTC()
	if ch.WidgetColor == "" {
		ch.WidgetColor = channels.DefaultWidgetColor
	}

	err = utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		inbox := ch.Inbox()
		if err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO inboxes (account_id, name, channel_type, created_at)
			VALUES (?, ?, ?, ?) RETURNING id`),
			ch.AccountID, inbox.Name, inbox.ChannelType, now,
		).Scan(&ch.InboxID); err != nil {
			return fmt.Errorf("insert inbox: %w", err)
		}
		if err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO channel_webrtc (account_id, inbox_id, website_token, hmac_token, provider_config,
				widget_color, welcome_title, welcome_tagline, website_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			ch.AccountID, ch.InboxID, ch.WebsiteToken, ch.HMACToken, string(pc),
			ch.WidgetColor, ch.WelcomeTitle, ch.WelcomeTagline, ch.WebsiteURL, now, now,
		).Scan(&ch.ID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert channel: %w", ErrConflict)
			}
			return fmt.Errorf("insert channel: %w", err)
		}
		return nil
	})
	if err != nil {
		return channels.Channel{}, fmt.Errorf("store: create channel: %w", err)
	}
	ch.CreatedAt, ch.UpdatedAt = now, now
	return ch, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (channels.Channel, error) {
	var (
		ch channels.Channel
		pc []byte
	)
	if err := row.Scan(
		&ch.ID, &ch.AccountID, &ch.InboxID, &ch.WebsiteToken, &ch.HMACToken, &pc,
		&ch.WidgetColor, &ch.WelcomeTitle, &ch.WelcomeTagline, &ch.WebsiteURL, &ch.CreatedAt, &ch.UpdatedAt,
	); err != nil {
		return channels.Channel{}, err
	}
	if len(pc) > 0 {
		if err := json.Unmarshal(pc, &ch.ProviderConfig); err != nil {
			return channels.Channel{}, fmt.Errorf("decode provider_config: %w", err)
		}
	}
	return ch, nil
}
