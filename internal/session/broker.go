package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-broker/internal/auth"
	"voice-broker/internal/calls"
	"voice-broker/internal/channels"
	"voice-broker/internal/config"
	"voice-broker/internal/conversations"
	"voice-broker/internal/identity"
	"voice-broker/internal/roomservice"
	"voice-broker/pkg/logger"
	"voice-broker/pkg/metrics"
)

// State is the lifecycle of one call as seen by the broker.
// The broker keeps no session table; states only label log lines.
type State string

const (
	StateIdle    State = "idle"
	StateJoining State = "joining"
	StateActive  State = "active"
	StateEnded   State = "ended"
)

const (
	opJoin  = "join"
	opLeave = "leave"

	roomNamePrefix = "webrtc"
)

// ChannelFinder resolves routing tokens.
type ChannelFinder interface {
	FindByWebsiteToken(ctx context.Context, websiteToken string) (channels.Channel, error)
}

type IdentityResolver interface {
	ResolveOrCreate(ctx context.Context, inbox channels.Inbox, v identity.Visitor) (identity.Identity, error)
}

type ConversationOpener interface {
	Open(ctx context.Context, accountID int64, inbox channels.Inbox, id identity.Identity) (conversations.Conversation, error)
}

type StatusTracker interface {
	RecordStart(ctx context.Context, conv conversations.Conversation, roomName string) (calls.Message, error)
	RecordEnd(ctx context.Context, accountID, displayID int64) error
}

type JoinRequest struct {
	Name  string
	Email string
	Phone string
}

type JoinResult struct {
	Token          string `json:"token"`
	RoomName       string `json:"room_name"`
	ConversationID int64  `json:"conversation_id"`
	URL            string `json:"url"`
}

type LeaveRequest struct {
	RoomName string
	// ConversationID is the conversation's display id.
	ConversationID int64
}

// Deps are the collaborators of a Broker.
type Deps struct {
	Channels      ChannelFinder
	Identities    IdentityResolver
	Conversations ConversationOpener
	Tracker       StatusTracker
	Issuer        *auth.Issuer
	Rooms         roomservice.Client
	// Slots is optional; nil disables per-channel caps.
	Slots SlotLimiter
}

// Broker runs the join/leave state machine.
//
// Rules:
//   - Room service failures never fail a join or a leave.
//   - Side effects committed before a failure are not rolled back.
//   - Concurrent joins are not deduplicated; each opens its own conversation and room.
type Broker struct {
	deps     Deps
	defaults config.RoomServiceConfig

	clock   func() time.Time
	randHex func() (string, error)
}

func NewBroker(deps Deps, defaults config.RoomServiceConfig) (*Broker, error) {
	if deps.Channels == nil || deps.Identities == nil || deps.Conversations == nil ||
		deps.Tracker == nil || deps.Issuer == nil || deps.Rooms == nil {
		return nil, errors.New("session: missing dependency")
	}
	if defaults.EmptyTimeout <= 0 {
		defaults.EmptyTimeout = roomservice.DefaultEmptyTimeout
	}
	return &Broker{deps: deps, defaults: defaults, clock: time.Now, randHex: randomHex}, nil
}

// Join opens a conversation for the visitor and returns a participant credential.
func (b *Broker) Join(ctx context.Context, routingToken string, req JoinRequest) (res JoinResult, err error) {
	log := logger.Component(ctx, "session")
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = outcomeFor(err)
		}
		metrics.Joins.WithLabelValues(outcome).Inc()
	}()

	ch, err := b.channel(ctx, opJoin, routingToken)
	if err != nil {
		return JoinResult{}, err
	}
	log = log.With("channel_id", ch.ID, "account_id", ch.AccountID)
	log.Debug("session state", "state", StateJoining)

	if b.deps.Slots != nil {
		ok, acqErr := b.deps.Slots.Acquire(ctx, ch.ID)
		switch {
		case acqErr != nil:
			// Fail open.
			log.Warn("call slot acquire failed; continuing", "err", acqErr)
		case !ok:
			return JoinResult{}, newError(KindCapacityExceeded, opJoin, fmt.Errorf("channel %d at capacity", ch.ID))
		default:
			defer func() {
				if err != nil {
					b.releaseSlot(ctx, ch.ID)
				}
			}()
		}
	}

	inbox := ch.Inbox()
	id, err := b.deps.Identities.ResolveOrCreate(ctx, inbox, identity.Visitor{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if errors.Is(err, identity.ErrIdentityConflict) {
		return JoinResult{}, newError(KindIdentityConflict, opJoin, err)
	}
	if err != nil {
		return JoinResult{}, newError(KindInternal, opJoin, err)
	}

	conv, err := b.deps.Conversations.Open(ctx, ch.AccountID, inbox, id)
	if err != nil {
		return JoinResult{}, newError(KindInternal, opJoin, err)
	}
	log = log.With("conversation_id", conv.ID, "display_id", conv.DisplayID)

	suffix, err := b.randHex()
	if err != nil {
		return JoinResult{}, newError(KindInternal, opJoin, fmt.Errorf("room name: %w", err))
	}
	roomName := RoomName(conv.DisplayID, suffix)

	rs := channels.Resolve(ch.ProviderConfig, b.defaults)
	key := auth.Credentials{APIKey: rs.APIKey, APISecret: rs.APISecret}
	now := b.clock()

	token, err := b.deps.Issuer.IssueParticipant(now, roomName, participantName(req.Name), key)
	if err != nil {
		kind := KindInternal
		if errors.Is(err, auth.ErrSigningConfig) {
			kind = KindSigningConfig
		}
		return JoinResult{}, newError(kind, opJoin, err)
	}

	// Room creation is independent of credential issuance: the room service
	// also creates rooms when the first participant connects.
	b.createRoom(ctx, rs, key, roomName, now)

	if _, err := b.deps.Tracker.RecordStart(ctx, conv, roomName); err != nil {
		return JoinResult{}, newError(KindInternal, opJoin, err)
	}

	log.Info("session state", "state", StateActive, "room_name", roomName)
	return JoinResult{
		Token:          token,
		RoomName:       roomName,
		ConversationID: conv.DisplayID,
		URL:            rs.URL,
	}, nil
}

// Leave tears the room down and marks the call ended. Every step after the
// channel lookup is best-effort.
func (b *Broker) Leave(ctx context.Context, routingToken string, req LeaveRequest) (err error) {
	log := logger.Component(ctx, "session")
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = outcomeFor(err)
		}
		metrics.Leaves.WithLabelValues(outcome).Inc()
	}()

	ch, err := b.channel(ctx, opLeave, routingToken)
	if err != nil {
		return err
	}
	if req.RoomName == "" {
		log.Debug("leave without room name; nothing to do", "channel_id", ch.ID)
		return nil
	}
	log = log.With("channel_id", ch.ID, "account_id", ch.AccountID, "room_name", req.RoomName)

	// Re-resolve: channel config may have changed since join.
	rs := channels.Resolve(ch.ProviderConfig, b.defaults)
	key := auth.Credentials{APIKey: rs.APIKey, APISecret: rs.APISecret}

	if admin, err := b.deps.Issuer.IssueAdmin(b.clock(), key); err != nil {
		log.Warn("admin token unavailable; room not deleted", "err", err)
	} else if err := b.deps.Rooms.DeleteRoom(ctx, rs.URL, admin, req.RoomName); err != nil {
		log.Warn("delete room failed", "err", err)
	}

	if req.ConversationID != 0 {
		if err := b.deps.Tracker.RecordEnd(ctx, ch.AccountID, req.ConversationID); err != nil {
			log.Error("record call end failed", "display_id", req.ConversationID, "err", err)
		}
	}

	if b.deps.Slots != nil {
		b.releaseSlot(ctx, ch.ID)
	}
	log.Info("session state", "state", StateEnded, "display_id", req.ConversationID)
	return nil
}

func (b *Broker) channel(ctx context.Context, op, routingToken string) (channels.Channel, error) {
	ch, err := b.deps.Channels.FindByWebsiteToken(ctx, routingToken)
	if errors.Is(err, channels.ErrNotFound) {
		return channels.Channel{}, newError(KindChannelNotFound, op, err)
	}
	if err != nil {
		return channels.Channel{}, newError(KindInternal, op, err)
	}
	return ch, nil
}

func (b *Broker) createRoom(ctx context.Context, rs channels.RoomService, key auth.Credentials, roomName string, now time.Time) {
	log := logger.Component(ctx, "session")
	admin, err := b.deps.Issuer.IssueAdmin(now, key)
	if err != nil {
		log.Warn("admin token unavailable; room not created", "room_name", roomName, "err", err)
		return
	}
	if err := b.deps.Rooms.CreateRoom(ctx, rs.URL, admin, roomName, b.defaults.EmptyTimeout); err != nil {
		log.Warn("create room failed", "room_name", roomName, "err", err)
	}
}

func (b *Broker) releaseSlot(ctx context.Context, channelID int64) {
	if err := b.deps.Slots.Release(ctx, channelID); err != nil {
		logger.Component(ctx, "session").Warn("call slot release failed", "channel_id", channelID, "err", err)
	}
}

// RoomName builds webrtc-{displayID}-{suffix}.
func RoomName(displayID int64, suffix string) string {
	return fmt.Sprintf("%s-%d-%s", roomNamePrefix, displayID, suffix)
}

func participantName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return identity.DefaultName
	}
	return name
}

func randomHex() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func outcomeFor(err error) string {
	switch KindOf(err) {
	case KindChannelNotFound:
		return metrics.OutcomeNotFound
	case KindCapacityExceeded:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
