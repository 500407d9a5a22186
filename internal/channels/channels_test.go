package channels

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"voice-broker/internal/config"
)

func TestResolve_Precedence(t *testing.T) {
	defaults := config.RoomServiceConfig{URL: "wss://default.example.com", APIKey: "dkey", APISecret: "dsecret"}

	got := Resolve(ProviderConfig{URL: "wss://channel.example.com", APIKey: "ckey"}, defaults)
	if got.URL != "wss://channel.example.com" || got.APIKey != "ckey" {
		t.Fatalf("expected channel values to win, got %+v", got)
	}
	if got.APISecret != "dsecret" {
		t.Fatalf("expected secret to fall back to default, got %q", got.APISecret)
	}

	fallback := Resolve(ProviderConfig{}, config.RoomServiceConfig{})
	if fallback.URL != config.DefaultRoomServiceURL {
		t.Fatalf("expected hard-coded url fallback, got %q", fallback.URL)
	}
	if fallback.APIKey != "" || fallback.APISecret != "" {
		t.Fatalf("expected empty credentials, got %+v", fallback)
	}
}

func TestResolve_BlankChannelValueIsUnset(t *testing.T) {
	got := Resolve(ProviderConfig{URL: "   "}, config.RoomServiceConfig{URL: "ws://rooms:7880"})
	if got.URL != "ws://rooms:7880" {
		t.Fatalf("expected default url, got %q", got.URL)
	}
}

func TestNewSecureToken(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		tok, err := NewSecureToken()
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if len(tok) != 24 {
			t.Fatalf("expected 24 chars, got %d", len(tok))
		}
		for _, r := range tok {
			if !strings.ContainsRune(base58Alphabet, r) {
				t.Fatalf("unexpected rune %q in %q", r, tok)
			}
		}
		seen[tok] = struct{}{}
	}
	if len(seen) != 100 {
		t.Fatalf("expected unique tokens")
	}
}

type memoryRepo struct {
	mu       sync.Mutex
	channels []Channel
}

func (r *memoryRepo) FindByWebsiteToken(ctx context.Context, token string) (Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.channels {
		if c.WebsiteToken == token {
			return c, nil
		}
	}
	return Channel{}, ErrNotFound
}

func (r *memoryRepo) CreateWithInbox(ctx context.Context, ch Channel) (Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch.ID = int64(len(r.channels) + 1)
	ch.InboxID = ch.ID + 100
	r.channels = append(r.channels, ch)
	return ch, nil
}

func TestSeed_SkipsExistingAndGeneratesTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "channels.yaml")
	doc := `
channels:
  - account_id: 1
    website_token: demo
    provider_config:
      livekit_url: wss://rooms.example.com
  - account_id: 2
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(f.Channels) != 2 || f.Channels[0].ProviderConfig.URL != "wss://rooms.example.com" {
		t.Fatalf("unexpected seed file: %+v", f)
	}

	repo := &memoryRepo{}
	created, err := Seed(context.Background(), repo, f, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 created, got %d", len(created))
	}
	if created[1].WebsiteToken == "" || created[1].HMACToken == "" {
		t.Fatalf("expected generated tokens")
	}
	if created[1].WidgetColor != DefaultWidgetColor {
		t.Fatalf("expected default widget color, got %q", created[1].WidgetColor)
	}

	again, err := Seed(context.Background(), repo, SeedFile{Channels: f.Channels[:1]}, nil)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected existing channel to be skipped")
	}
}

func TestLoadSeedFile_RequiresAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("channels:\n  - website_token: x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSeedFile(path); err == nil {
		t.Fatalf("expected account_id error")
	}
}
