package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voice-broker/internal/conversations"
	"voice-broker/pkg/logger"
	"voice-broker/pkg/metrics"
)

// Tracker mirrors call lifecycle into conversation timelines.
//
// IMPORTANT:
//   - RecordEnd is a silent no-op when the conversation or its call record is
//     missing; leave is often called by clients that never fully joined.
//   - Only the latest call record of a conversation is ever updated.
//   - Publishing is best-effort and never fails a tracker call.
type Tracker struct {
	repo      Repository
	convs     ConversationFinder
	publisher StatusPublisher
	clock     func() time.Time
}

type Option func(*Tracker)

// WithPublisher fans status changes out through p.
func WithPublisher(p StatusPublisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

func NewTracker(repo Repository, convs ConversationFinder, opts ...Option) *Tracker {
	t := &Tracker{repo: repo, convs: convs, clock: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

var ErrInvalidArgument = errors.New("calls: invalid argument")

// RecordStart appends an in_progress call record authored by the conversation's contact.
func (t *Tracker) RecordStart(ctx context.Context, conv conversations.Conversation, roomName string) (Message, error) {
	if t.repo == nil {
		return Message{}, errors.New("calls: repository not configured")
	}
	if conv.ID == 0 || roomName == "" {
		return Message{}, ErrInvalidArgument
	}

	now := t.clock().UTC()
	m, err := t.repo.AppendRecord(ctx, Message{
		AccountID:      conv.AccountID,
		InboxID:        conv.InboxID,
		ConversationID: conv.ID,
		SenderID:       conv.ContactID,
		MessageType:    MessageTypeIncoming,
		ContentType:    ContentTypeCall,
		Content:        ContentCallStarted,
		ContentAttributes: map[string]any{
			attrRoomName: roomName,
			attrStatus:   string(CallStatusInProgress),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, t.newEvent(conv.ID, 0, roomName, CallStatusInProgress, now))
	if err != nil {
		return Message{}, fmt.Errorf("calls: record start: %w", err)
	}
	metrics.CallStatusEvents.WithLabelValues(string(CallStatusInProgress)).Inc()

	t.publish(ctx, Status{
		AccountID:      conv.AccountID,
		ConversationID: conv.ID,
		DisplayID:      conv.DisplayID,
		MessageID:      m.ID,
		RoomName:       roomName,
		Status:         CallStatusInProgress,
		UpdatedAt:      now,
	})
	return m, nil
}

// RecordEnd marks the latest call record of the conversation as ended.
func (t *Tracker) RecordEnd(ctx context.Context, accountID, displayID int64) error {
	if t.repo == nil || t.convs == nil {
		return errors.New("calls: tracker not configured")
	}
	log := logger.Component(ctx, "calls")

	conv, err := t.convs.FindByDisplayID(ctx, accountID, displayID)
	if errors.Is(err, conversations.ErrNotFound) {
		log.Debug("record end: no conversation", "account_id", accountID, "display_id", displayID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("calls: find conversation: %w", err)
	}

	m, ok, err := t.repo.LatestRecord(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("calls: latest record: %w", err)
	}
	if !ok {
		log.Debug("record end: no call record", "conversation_id", conv.ID)
		return nil
	}

	now := t.clock().UTC()
	if err := t.repo.EndRecord(ctx, m.ID, t.newEvent(conv.ID, m.ID, m.RoomName(), CallStatusEnded, now)); err != nil {
		return fmt.Errorf("calls: record end: %w", err)
	}
	metrics.CallStatusEvents.WithLabelValues(string(CallStatusEnded)).Inc()

	t.publish(ctx, Status{
		AccountID:      conv.AccountID,
		ConversationID: conv.ID,
		DisplayID:      conv.DisplayID,
		MessageID:      m.ID,
		RoomName:       m.RoomName(),
		Status:         CallStatusEnded,
		UpdatedAt:      now,
	})
	return nil
}

// Current returns the projected call status of a conversation.
// ok is false when the conversation is unknown or has no call events.
func (t *Tracker) Current(ctx context.Context, accountID, displayID int64) (Status, bool, error) {
	if t.repo == nil || t.convs == nil {
		return Status{}, false, errors.New("calls: tracker not configured")
	}
	conv, err := t.convs.FindByDisplayID(ctx, accountID, displayID)
	if errors.Is(err, conversations.ErrNotFound) {
		return Status{}, false, nil
	}
	if err != nil {
		return Status{}, false, fmt.Errorf("calls: find conversation: %w", err)
	}
	events, err := t.repo.Events(ctx, conv.ID)
	if err != nil {
		return Status{}, false, fmt.Errorf("calls: events: %w", err)
	}
	s, ok := Project(events)
	if !ok {
		return Status{}, false, nil
	}
	s.AccountID = conv.AccountID
	s.DisplayID = conv.DisplayID
	return s, true, nil
}

func (t *Tracker) newEvent(conversationID, messageID int64, roomName string, status CallStatus, at time.Time) Event {
	return Event{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		MessageID:      messageID,
		RoomName:       roomName,
		Status:         status,
		CreatedAt:      at,
	}
}

func (t *Tracker) publish(ctx context.Context, s Status) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Publish(ctx, s); err != nil {
		logger.Component(ctx, "calls").Warn("status publish failed",
			"conversation_id", s.ConversationID, "status", s.Status, "err", err)
	}
}
