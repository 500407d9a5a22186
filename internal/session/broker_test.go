package session

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"voice-broker/internal/auth"
	"voice-broker/internal/calls"
	"voice-broker/internal/channels"
	"voice-broker/internal/config"
	"voice-broker/internal/conversations"
	"voice-broker/internal/identity"
	"voice-broker/internal/roomservice"
	"voice-broker/internal/roomservice/roomservicetest"
	"voice-broker/internal/store"
	"voice-broker/pkg/utils"
)

var testKey = auth.Credentials{APIKey: "devkey", APISecret: "devsecret"}

type fixture struct {
	broker  *Broker
	store   *store.Store
	tracker *calls.Tracker
	rooms   *roomservicetest.Server
	channel channels.Channel
}

func newFixture(t *testing.T, pc func(rooms *roomservicetest.Server) channels.ProviderConfig) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := utils.OpenDB(ctx, "sqlite", filepath.Join(t.TempDir(), "session.db"), utils.DBPoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := store.New(db, "sqlite")
	require.NoError(t, st.Migrate(ctx))

	rooms := roomservicetest.NewServer(testKey)
	t.Cleanup(rooms.Close)

	ch, err := st.CreateWithInbox(ctx, channels.Channel{
		AccountID:      1,
		WebsiteToken:   "web-token",
		HMACToken:      "hmac-token",
		ProviderConfig: pc(rooms),
	})
	require.NoError(t, err)

	tracker := calls.NewTracker(st, st)
	b, err := NewBroker(Deps{
		Channels:      st,
		Identities:    identity.NewResolver(st),
		Conversations: conversations.NewOpener(st),
		Tracker:       tracker,
		Issuer:        auth.NewIssuer(),
		Rooms:         roomservice.NewHTTPClient(2 * time.Second),
	}, config.RoomServiceConfig{EmptyTimeout: config.DefaultEmptyTimeout})
	require.NoError(t, err)

	return &fixture{broker: b, store: st, tracker: tracker, rooms: rooms, channel: ch}
}

func channelOnServer(rooms *roomservicetest.Server) channels.ProviderConfig {
	return channels.ProviderConfig{URL: rooms.WSURL(), APIKey: testKey.APIKey, APISecret: testKey.APISecret}
}

var roomNamePattern = regexp.MustCompile(`^webrtc-(\d+)-[0-9a-f]{8}$`)

func TestJoinLeave_RoundTrip(t *testing.T) {
	f := newFixture(t, channelOnServer)
	ctx := context.Background()

	res, err := f.broker.Join(ctx, "web-token", JoinRequest{Name: "Alice", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Regexp(t, roomNamePattern, res.RoomName)
	assert.Equal(t, f.rooms.WSURL(), res.URL)
	assert.NotZero(t, res.ConversationID)

	claims, err := auth.NewIssuer().Verify(res.Token, testKey, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Alice", claims.Subject)
	assert.Equal(t, res.RoomName, claims.Video.Room)
	assert.True(t, claims.Video.RoomJoin)

	calls0 := f.rooms.Calls()
	require.Len(t, calls0, 1)
	assert.Equal(t, roomservice.MethodCreateRoom, calls0[0].Method)
	assert.Equal(t, res.RoomName, calls0[0].Room)
	assert.Equal(t, int64(300), calls0[0].EmptyTimeout)

	st, ok, err := f.tracker.Current(ctx, 1, res.ConversationID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, calls.CallStatusInProgress, st.Status)

	require.NoError(t, f.broker.Leave(ctx, "web-token", LeaveRequest{RoomName: res.RoomName, ConversationID: res.ConversationID}))

	calls1 := f.rooms.Calls()
	require.Len(t, calls1, 2)
	assert.Equal(t, roomservice.MethodDeleteRoom, calls1[1].Method)
	assert.Equal(t, res.RoomName, calls1[1].Room)

	st, ok, err = f.tracker.Current(ctx, 1, res.ConversationID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, calls.CallStatusEnded, st.Status)
}

func TestJoin_RepeatVisitorOpensFreshConversation(t *testing.T) {
	f := newFixture(t, channelOnServer)
	ctx := context.Background()

	a, err := f.broker.Join(ctx, "web-token", JoinRequest{Email: "a@x.com"})
	require.NoError(t, err)
	b, err := f.broker.Join(ctx, "web-token", JoinRequest{Email: "a@x.com"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ConversationID, b.ConversationID)
	assert.NotEqual(t, a.RoomName, b.RoomName)

	ca, err := f.store.FindByDisplayID(ctx, 1, a.ConversationID)
	require.NoError(t, err)
	cb, err := f.store.FindByDisplayID(ctx, 1, b.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, ca.ContactID, cb.ContactID)

	claims, err := auth.NewIssuer().Verify(a.Token, testKey, time.Now())
	require.NoError(t, err)
	assert.Equal(t, identity.DefaultName, claims.Subject)
}

func TestJoin_UnknownToken(t *testing.T) {
	f := newFixture(t, channelOnServer)

	_, err := f.broker.Join(context.Background(), "nope", JoinRequest{})
	require.Error(t, err)
	assert.Equal(t, KindChannelNotFound, KindOf(err))
	assert.Equal(t, "Invalid token", PublicMessage(err))
	assert.Empty(t, f.rooms.Calls())

	err = f.broker.Leave(context.Background(), "nope", LeaveRequest{RoomName: "r"})
	assert.Equal(t, KindChannelNotFound, KindOf(err))
}

func TestJoin_RoomServiceUnreachableStillIssuesToken(t *testing.T) {
	f := newFixture(t, func(*roomservicetest.Server) channels.ProviderConfig {
		return channels.ProviderConfig{URL: "ws://127.0.0.1:1", APIKey: testKey.APIKey, APISecret: testKey.APISecret}
	})
	ctx := context.Background()

	res, err := f.broker.Join(ctx, "web-token", JoinRequest{Name: "Alice"})
	require.NoError(t, err)
	_, err = auth.NewIssuer().Verify(res.Token, testKey, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.broker.Leave(ctx, "web-token", LeaveRequest{RoomName: res.RoomName, ConversationID: res.ConversationID}))
	st, ok, err := f.tracker.Current(ctx, 1, res.ConversationID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, calls.CallStatusEnded, st.Status)
}

func TestJoin_RoomServiceErrorIsNotFatal(t *testing.T) {
	f := newFixture(t, channelOnServer)
	f.rooms.FailWith(500)

	_, err := f.broker.Join(context.Background(), "web-token", JoinRequest{})
	require.NoError(t, err)
	assert.Len(t, f.rooms.Calls(), 1)
}

func TestJoin_MissingSecretIsSigningConfigError(t *testing.T) {
	f := newFixture(t, func(rooms *roomservicetest.Server) channels.ProviderConfig {
		return channels.ProviderConfig{URL: rooms.WSURL(), APIKey: testKey.APIKey}
	})

	_, err := f.broker.Join(context.Background(), "web-token", JoinRequest{})
	require.Error(t, err)
	assert.Equal(t, KindSigningConfig, KindOf(err))
	assert.True(t, errors.Is(err, auth.ErrSigningConfig))
	assert.Equal(t, "Voice channel is not configured", PublicMessage(err))
	assert.Empty(t, f.rooms.Calls())
}

func TestLeave_WithoutRoomNameIsNoop(t *testing.T) {
	f := newFixture(t, channelOnServer)
	ctx := context.Background()

	res, err := f.broker.Join(ctx, "web-token", JoinRequest{})
	require.NoError(t, err)
	require.NoError(t, f.broker.Leave(ctx, "web-token", LeaveRequest{ConversationID: res.ConversationID}))

	assert.Len(t, f.rooms.Calls(), 1)
	st, _, err := f.tracker.Current(ctx, 1, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, calls.CallStatusInProgress, st.Status)
}

func TestLeave_UnknownConversationIsNoop(t *testing.T) {
	f := newFixture(t, channelOnServer)
	require.NoError(t, f.broker.Leave(context.Background(), "web-token", LeaveRequest{RoomName: "webrtc-9-00000000", ConversationID: 9}))
}

type fixedSlots struct {
	free     int
	released int
}

func (s *fixedSlots) Acquire(ctx context.Context, channelID int64) (bool, error) {
	if s.free == 0 {
		return false, nil
	}
	s.free--
	return true, nil
}

func (s *fixedSlots) Release(ctx context.Context, channelID int64) error {
	s.free++
	s.released++
	return nil
}

func TestJoin_CapacityExceeded(t *testing.T) {
	f := newFixture(t, channelOnServer)
	slots := &fixedSlots{free: 1}
	f.broker.deps.Slots = slots
	ctx := context.Background()

	res, err := f.broker.Join(ctx, "web-token", JoinRequest{})
	require.NoError(t, err)

	_, err = f.broker.Join(ctx, "web-token", JoinRequest{})
	assert.Equal(t, KindCapacityExceeded, KindOf(err))

	require.NoError(t, f.broker.Leave(ctx, "web-token", LeaveRequest{RoomName: res.RoomName, ConversationID: res.ConversationID}))
	assert.Equal(t, 1, slots.released)

	_, err = f.broker.Join(ctx, "web-token", JoinRequest{})
	assert.NoError(t, err)
}

func TestRoomName_UniqueAcrossManyJoins(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := int64(1); i <= 10000; i++ {
		suffix, err := randomHex()
		require.NoError(t, err)
		name := RoomName(i%50, suffix)
		require.Regexp(t, roomNamePattern, name)
		_, dup := seen[name]
		require.False(t, dup, "duplicate room name %s", name)
		seen[name] = struct{}{}
	}
}

func TestPublicMessage_HidesCause(t *testing.T) {
	err := newError(KindInternal, opJoin, errors.New("pq: relation \"contacts\" does not exist"))
	assert.Equal(t, "Unable to start call", PublicMessage(err))
	assert.Equal(t, "Unable to end call", PublicMessage(newError(KindInternal, opLeave, nil)))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}
