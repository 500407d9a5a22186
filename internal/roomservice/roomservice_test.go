package roomservice_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"voice-broker/internal/auth"
	"voice-broker/internal/roomservice"
	"voice-broker/internal/roomservice/roomservicetest"
)

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"ws://localhost:7880":             "http://localhost:7880",
		"wss://rooms.example.com":         "https://rooms.example.com:443",
		"ws://rooms.example.com":          "http://rooms.example.com:80",
		"https://rooms.example.com:8443/": "https://rooms.example.com:8443",
		"WSS://Rooms.example.com:9000/x":  "https://Rooms.example.com:9000",
	}
	for in, want := range cases {
		got, err := roomservice.BaseURL(in)
		if err != nil {
			t.Fatalf("%q: unexpected err %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}

	for _, bad := range []string{"", "ftp://x", "ws://"} {
		if _, err := roomservice.BaseURL(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestMethodURL(t *testing.T) {
	got, err := roomservice.MethodURL("ws://localhost:7880", roomservice.MethodCreateRoom)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "http://localhost:7880/twirp/livekit.RoomService/CreateRoom" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestHTTPClient_CreateAndDelete(t *testing.T) {
	key := auth.Credentials{APIKey: "key", APISecret: "secret"}
	srv := roomservicetest.NewServer(key)
	defer srv.Close()

	admin, err := auth.NewIssuer().IssueAdmin(time.Now(), key)
	if err != nil {
		t.Fatalf("admin token: %v", err)
	}

	c := roomservice.NewHTTPClient(5 * time.Second)
	ctx := context.Background()
	if err := c.CreateRoom(ctx, srv.WSURL(), admin, "webrtc-1-abcdef01", 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.DeleteRoom(ctx, srv.WSURL(), admin, "webrtc-1-abcdef01"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	calls := srv.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Method != roomservice.MethodCreateRoom || calls[0].Room != "webrtc-1-abcdef01" || calls[0].EmptyTimeout != 300 {
		t.Fatalf("unexpected create call: %+v", calls[0])
	}
	if calls[1].Method != roomservice.MethodDeleteRoom || calls[1].Room != "webrtc-1-abcdef01" {
		t.Fatalf("unexpected delete call: %+v", calls[1])
	}
}

func TestHTTPClient_Non2xxIsError(t *testing.T) {
	key := auth.Credentials{APIKey: "key", APISecret: "secret"}
	srv := roomservicetest.NewServer(key)
	defer srv.Close()
	srv.FailWith(http.StatusInternalServerError)

	admin, _ := auth.NewIssuer().IssueAdmin(time.Now(), key)
	err := roomservice.NewHTTPClient(time.Second).CreateRoom(context.Background(), srv.URL, admin, "r", time.Minute)

	var rsErr *roomservice.Error
	if !errors.As(err, &rsErr) {
		t.Fatalf("expected *roomservice.Error, got %v", err)
	}
	if rsErr.StatusCode != http.StatusInternalServerError || rsErr.Method != roomservice.MethodCreateRoom {
		t.Fatalf("unexpected error: %+v", rsErr)
	}
}

func TestHTTPClient_WrongSecretIsUnauthorized(t *testing.T) {
	srv := roomservicetest.NewServer(auth.Credentials{APIKey: "key", APISecret: "secret"})
	defer srv.Close()

	admin, _ := auth.NewIssuer().IssueAdmin(time.Now(), auth.Credentials{APIKey: "key", APISecret: "other"})
	err := roomservice.NewHTTPClient(time.Second).DeleteRoom(context.Background(), srv.URL, admin, "r")

	var rsErr *roomservice.Error
	if !errors.As(err, &rsErr) || rsErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestHTTPClient_UnreachableIsWrapped(t *testing.T) {
	srv := roomservicetest.NewServer(auth.Credentials{APIKey: "k", APISecret: "s"})
	endpoint := srv.WSURL()
	srv.Close()

	err := roomservice.NewHTTPClient(time.Second).CreateRoom(context.Background(), endpoint, "tok", "r", 0)
	if !errors.Is(err, roomservice.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}
