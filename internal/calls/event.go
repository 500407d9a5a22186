package calls

import "time"

// Event is an immutable, append-only call status record.
//
// Invariants:
//   - Events are never updated or deleted.
//   - Every event references the call-record message it describes.
//   - Repositories return a conversation's events in append order.
type Event struct {
	ID             string     `json:"id" db:"id"`
	ConversationID int64      `json:"conversation_id" db:"conversation_id"`
	MessageID      int64      `json:"message_id" db:"message_id"`
	RoomName       string     `json:"room_name" db:"room_name"`
	Status         CallStatus `json:"status" db:"status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Project folds events into the current status: the last event of the
// latest call-record message. ok is false when there are no events.
func Project(events []Event) (Status, bool) {
	var (
		cur Event
		ok  bool
	)
	for _, e := range events {
		if !ok || e.MessageID >= cur.MessageID {
			cur, ok = e, true
		}
	}
	if !ok {
		return Status{}, false
	}
	return Status{
		ConversationID: cur.ConversationID,
		MessageID:      cur.MessageID,
		RoomName:       cur.RoomName,
		Status:         cur.Status,
		UpdatedAt:      cur.CreatedAt,
	}, true
}
