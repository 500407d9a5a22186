package calls

import "time"

// Message is a call-record entry on a conversation timeline.
//
// Call records are ordinary timeline messages whose ContentType marks them as
// call state. ContentAttributes is an open JSON object: status changes merge
// into it and never drop keys written by other producers.
type Message struct {
	ID             int64 `json:"id" db:"id"`
	AccountID      int64 `json:"account_id" db:"account_id"`
	InboxID        int64 `json:"inbox_id" db:"inbox_id"`
	ConversationID int64 `json:"conversation_id" db:"conversation_id"`
	// SenderID is the contact that authored the entry.
	SenderID int64 `json:"sender_id" db:"sender_id"`

	MessageType string `json:"message_type" db:"message_type"`
	ContentType string `json:"content_type" db:"content_type"`
	Content     string `json:"content" db:"content"`

	ContentAttributes map[string]any `json:"content_attributes" db:"content_attributes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusEnded      CallStatus = "ended"
)

const (
	ContentTypeCall     = "livekit_webrtc"
	MessageTypeIncoming = "incoming"
	ContentCallStarted  = "Voice call started"

	attrRoomName = "room_name"
	attrStatus   = "status"
)

func (m Message) RoomName() string {
	s, _ := m.ContentAttributes[attrRoomName].(string)
	return s
}

func (m Message) Status() CallStatus {
	s, _ := m.ContentAttributes[attrStatus].(string)
	return CallStatus(s)
}

// MergeStatus returns a copy of attrs with status set; other keys are kept.
func MergeStatus(attrs map[string]any, status CallStatus) map[string]any {
	out := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out[attrStatus] = string(status)
	return out
}

// Status is the current call state of a conversation, derived from its events.
type Status struct {
	AccountID      int64      `json:"account_id"`
	ConversationID int64      `json:"conversation_id"`
	DisplayID      int64      `json:"display_id"`
	MessageID      int64      `json:"message_id"`
	RoomName       string     `json:"room_name"`
	Status         CallStatus `json:"status"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
