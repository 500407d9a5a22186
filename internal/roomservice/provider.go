package roomservice

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client drives the administrative RPC surface of the external room service.
//
// Rules:
//   - One attempt per call; no retries.
//   - Callers decide whether a failure is fatal. The broker treats both
//     create and delete failures as non-fatal.
//   - adminToken is a bearer credential; never log it.
type Client interface {
	CreateRoom(ctx context.Context, endpoint, adminToken, roomName string, emptyTimeout time.Duration) error
	DeleteRoom(ctx context.Context, endpoint, adminToken, roomName string) error
}

const (
	// Namespace is the twirp service prefix of the room service admin API.
	Namespace = "twirp/livekit.RoomService"

	MethodCreateRoom = "CreateRoom"
	MethodDeleteRoom = "DeleteRoom"

	DefaultEmptyTimeout = 300 * time.Second
)

// ErrUnreachable wraps transport failures (DNS, connect, TLS, timeout).
var ErrUnreachable = errors.New("roomservice: unreachable")

// Error is a non-2xx response from the room service.
type Error struct {
	Method     string
	StatusCode int
	// Body is truncated; it is for logs only.
	Body string
}

func (e *Error) Error() string {
	return fmt.Sprintf("roomservice: %s returned %d", e.Method, e.StatusCode)
}

type createRoomRequest struct {
	Name         string `json:"name"`
	EmptyTimeout int64  `json:"empty_timeout"`
}

type deleteRoomRequest struct {
	Room string `json:"room"`
}
