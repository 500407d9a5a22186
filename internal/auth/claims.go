package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for room-service credentials.
// Issuer is the API key; Subject is the participant identity, or "admin".
type Claims struct {
	jwt.RegisteredClaims

	Video VideoGrant `json:"video"`
}

// VideoGrant is the capability block understood by the room service.
// Participant grants carry Room plus the join/publish/subscribe rights;
// admin grants carry only the room-management rights.
type VideoGrant struct {
	Room           string `json:"room,omitempty"`
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	CanPublish     bool   `json:"canPublish,omitempty"`
	CanSubscribe   bool   `json:"canSubscribe,omitempty"`
	CanPublishData bool   `json:"canPublishData,omitempty"`

	RoomCreate bool `json:"roomCreate,omitempty"`
	RoomList   bool `json:"roomList,omitempty"`
	RoomAdmin  bool `json:"roomAdmin,omitempty"`
}

func participantGrant(room string) VideoGrant {
	return VideoGrant{Room: room, RoomJoin: true, CanPublish: true, CanSubscribe: true, CanPublishData: true}
}

func adminGrant() VideoGrant {
	return VideoGrant{RoomCreate: true, RoomList: true, RoomAdmin: true}
}

// IsAdmin reports whether the grant carries room-management rights.
func (g VideoGrant) IsAdmin() bool {
	return g.RoomCreate || g.RoomList || g.RoomAdmin
}
