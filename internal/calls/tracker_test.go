package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-broker/internal/conversations"
)

type convFinder map[int64]conversations.Conversation

func (f convFinder) FindByDisplayID(ctx context.Context, accountID, displayID int64) (conversations.Conversation, error) {
	c, ok := f[displayID]
	if !ok || c.AccountID != accountID {
		return conversations.Conversation{}, conversations.ErrNotFound
	}
	return c, nil
}

type recordingPublisher struct {
	got []Status
	err error
}

func (p *recordingPublisher) Publish(ctx context.Context, s Status) error {
	p.got = append(p.got, s)
	return p.err
}

var conv = conversations.Conversation{ID: 11, AccountID: 1, InboxID: 2, ContactID: 5, DisplayID: 42}

func newTestTracker(opts ...Option) (*Tracker, *MemoryRepo) {
	repo := NewMemoryRepo()
	t := NewTracker(repo, convFinder{conv.DisplayID: conv}, opts...)
	t.clock = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	return t, repo
}

func TestRecordStart_AppendsIncomingCallRecord(t *testing.T) {
	tr, repo := newTestTracker()

	m, err := tr.RecordStart(context.Background(), conv, "webrtc-42-deadbeef")
	if err != nil {
		t.Fatalf("record start: %v", err)
	}
	if m.ContentType != ContentTypeCall || m.MessageType != MessageTypeIncoming {
		t.Fatalf("unexpected message kind: %+v", m)
	}
	if m.SenderID != conv.ContactID {
		t.Fatalf("expected sender %d, got %d", conv.ContactID, m.SenderID)
	}
	if m.Status() != CallStatusInProgress || m.RoomName() != "webrtc-42-deadbeef" {
		t.Fatalf("unexpected attributes: %+v", m.ContentAttributes)
	}
	if n := len(repo.Messages()); n != 1 {
		t.Fatalf("expected 1 message, got %d", n)
	}
}

func TestRecordEnd_NoRecordIsNoop(t *testing.T) {
	tr, repo := newTestTracker()

	if err := tr.RecordEnd(context.Background(), conv.AccountID, conv.DisplayID); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := tr.RecordEnd(context.Background(), conv.AccountID, 999); err != nil {
		t.Fatalf("expected nil for unknown conversation, got %v", err)
	}
	if n := len(repo.Messages()); n != 0 {
		t.Fatalf("expected no messages, got %d", n)
	}
}

func TestRecordEnd_UpdatesOnlyLatestRecord(t *testing.T) {
	tr, repo := newTestTracker()
	ctx := context.Background()

	if err := tr.RecordEnd(ctx, conv.AccountID, conv.DisplayID); err != nil {
		t.Fatalf("end before start: %v", err)
	}
	first, err := tr.RecordStart(ctx, conv, "webrtc-42-00000001")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := tr.RecordStart(ctx, conv, "webrtc-42-00000002")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tr.RecordEnd(ctx, conv.AccountID, conv.DisplayID); err != nil {
		t.Fatalf("end: %v", err)
	}

	byID := map[int64]Message{}
	for _, m := range repo.Messages() {
		byID[m.ID] = m
	}
	if got := byID[first.ID].Status(); got != CallStatusInProgress {
		t.Fatalf("expected earlier record untouched, got %q", got)
	}
	if got := byID[second.ID].Status(); got != CallStatusEnded {
		t.Fatalf("expected latest record ended, got %q", got)
	}
	if got := byID[second.ID].RoomName(); got != "webrtc-42-00000002" {
		t.Fatalf("expected room name preserved by merge, got %q", got)
	}

	s, ok, err := tr.Current(ctx, conv.AccountID, conv.DisplayID)
	if err != nil || !ok {
		t.Fatalf("current: %v ok=%v", err, ok)
	}
	if s.Status != CallStatusEnded || s.MessageID != second.ID || s.DisplayID != conv.DisplayID {
		t.Fatalf("unexpected projection: %+v", s)
	}
}

func TestRecordEnd_MergeKeepsForeignKeys(t *testing.T) {
	repo := NewMemoryRepo()
	m, _ := repo.AppendRecord(context.Background(), Message{
		ConversationID:    conv.ID,
		ContentType:       ContentTypeCall,
		ContentAttributes: map[string]any{"room_name": "r", "status": "in_progress", "duration": 12},
	}, Event{ConversationID: conv.ID, Status: CallStatusInProgress})

	tr := NewTracker(repo, convFinder{conv.DisplayID: conv})
	if err := tr.RecordEnd(context.Background(), conv.AccountID, conv.DisplayID); err != nil {
		t.Fatalf("end: %v", err)
	}
	got, _, _ := repo.LatestRecord(context.Background(), conv.ID)
	if got.ID != m.ID || got.ContentAttributes["duration"] != 12 || got.Status() != CallStatusEnded {
		t.Fatalf("unexpected merged attributes: %+v", got.ContentAttributes)
	}
}

func TestTracker_PublishFailureDoesNotFail(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	tr, _ := newTestTracker(WithPublisher(pub))
	ctx := context.Background()

	if _, err := tr.RecordStart(ctx, conv, "webrtc-42-abcdef01"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tr.RecordEnd(ctx, conv.AccountID, conv.DisplayID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(pub.got) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pub.got))
	}
	if pub.got[1].Status != CallStatusEnded || pub.got[1].DisplayID != conv.DisplayID {
		t.Fatalf("unexpected published status: %+v", pub.got[1])
	}
}

func TestRecordStart_RequiresRoomName(t *testing.T) {
	tr, _ := newTestTracker()
	if _, err := tr.RecordStart(context.Background(), conv, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestProject(t *testing.T) {
	if _, ok := Project(nil); ok {
		t.Fatalf("expected no status for empty log")
	}
	events := []Event{
		{MessageID: 1, Status: CallStatusInProgress, RoomName: "a"},
		{MessageID: 2, Status: CallStatusInProgress, RoomName: "b"},
		{MessageID: 1, Status: CallStatusEnded, RoomName: "a"},
		{MessageID: 2, Status: CallStatusEnded, RoomName: "b"},
	}
	s, ok := Project(events[:3])
	if !ok || s.MessageID != 2 || s.Status != CallStatusInProgress {
		t.Fatalf("expected latest message to win, got %+v", s)
	}
	s, _ = Project(events)
	if s.MessageID != 2 || s.Status != CallStatusEnded || s.RoomName != "b" {
		t.Fatalf("unexpected fold: %+v", s)
	}
}

func TestStatusKey(t *testing.T) {
	if got := StatusKey(3, 17); got != "call:status:3:17" {
		t.Fatalf("unexpected key %q", got)
	}
}
