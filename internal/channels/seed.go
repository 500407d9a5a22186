package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("channel not found")

// Repository is the persistence contract for channels.
type Repository interface {
	FindByWebsiteToken(ctx context.Context, websiteToken string) (Channel, error)
	// CreateWithInbox inserts the channel and the inbox it feeds into.
	CreateWithInbox(ctx context.Context, ch Channel) (Channel, error)
}

// SeedFile is the YAML document accepted by CHANNELS_FILE.
//
//	channels:
//	  - account_id: 1
//	    website_token: demo-token
//	    widget_color: "#1f93ff"
//	    provider_config:
//	      livekit_url: wss://rooms.example.com
type SeedFile struct {
	Channels []SeedChannel `yaml:"channels"`
}

type SeedChannel struct {
	AccountID      int64          `yaml:"account_id"`
	WebsiteToken   string         `yaml:"website_token"`
	HMACToken      string         `yaml:"hmac_token"`
	WidgetColor    string         `yaml:"widget_color"`
	WelcomeTitle   string         `yaml:"welcome_title"`
	WelcomeTagline string         `yaml:"welcome_tagline"`
	WebsiteURL     string         `yaml:"website_url"`
	ProviderConfig ProviderConfig `yaml:"provider_config"`
}

// LoadSeedFile reads and validates a channel seed file.
func LoadSeedFile(path string) (SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("reading seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return SeedFile{}, fmt.Errorf("parsing seed file: %w", err)
	}
	for i, c := range f.Channels {
		if c.AccountID <= 0 {
			return SeedFile{}, fmt.Errorf("seed channel %d: account_id is required", i)
		}
	}
	return f, nil
}

// Seed creates every channel whose website_token is not already present.
// Missing tokens are generated. Returns the channels created.
func Seed(ctx context.Context, repo Repository, f SeedFile, log *slog.Logger) ([]Channel, error) {
	if repo == nil {
		return nil, errors.New("channels: repository not configured")
	}
	if log == nil {
		log = slog.Default()
	}
	var created []Channel
	for _, sc := range f.Channels {
		ch, err := sc.toChannel()
		if err != nil {
			return created, err
		}
		if _, err := repo.FindByWebsiteToken(ctx, ch.WebsiteToken); err == nil {
			log.Debug("seed channel exists", "account_id", ch.AccountID, "website_token", ch.WebsiteToken)
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		out, err := repo.CreateWithInbox(ctx, ch)
		if err != nil {
			return created, fmt.Errorf("seeding channel for account %d: %w", ch.AccountID, err)
		}
		log.Info("seeded channel", "account_id", out.AccountID, "channel_id", out.ID, "website_token", out.WebsiteToken)
		created = append(created, out)
	}
	return created, nil
}

func (sc SeedChannel) toChannel() (Channel, error) {
	ch := Channel{
		AccountID:      sc.AccountID,
		WebsiteToken:   strings.TrimSpace(sc.WebsiteToken),
		HMACToken:      strings.TrimSpace(sc.HMACToken),
		WidgetColor:    strings.TrimSpace(sc.WidgetColor),
		WelcomeTitle:   sc.WelcomeTitle,
		WelcomeTagline: sc.WelcomeTagline,
		WebsiteURL:     sc.WebsiteURL,
		ProviderConfig: sc.ProviderConfig,
	}
	var err error
	if ch.WebsiteToken == "" {
		if ch.WebsiteToken, err = NewSecureToken(); err != nil {
			return Channel{}, err
		}
	}
	if ch.HMACToken == "" {
		if ch.HMACToken, err = NewSecureToken(); err != nil {
			return Channel{}, err
		}
	}
	if ch.WidgetColor == "" {
		ch.WidgetColor = DefaultWidgetColor
	}
	return ch, nil
}
