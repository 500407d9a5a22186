package channels

import "time"

// Channel is a tenant-configured WebRTC voice entry point.
//
// WebsiteToken routes public widget requests; HMACToken is a shared secret
// used to verify trusted callers. Both are unique across all channels.
// A channel is treated as immutable for the duration of a call.
type Channel struct {
	ID        int64 `json:"id" db:"id"`
	AccountID int64 `json:"account_id" db:"account_id"`
	InboxID   int64 `json:"inbox_id" db:"inbox_id"`

	WebsiteToken string `json:"website_token" db:"website_token"`
	HMACToken    string `json:"-" db:"hmac_token"`

	ProviderConfig ProviderConfig `json:"-" db:"provider_config"`

	// Cosmetic fields. Not used by the call flow.
	WidgetColor    string `json:"widget_color" db:"widget_color"`
	WelcomeTitle   string `json:"welcome_title,omitempty" db:"welcome_title"`
	WelcomeTagline string `json:"welcome_tagline,omitempty" db:"welcome_tagline"`
	WebsiteURL     string `json:"website_url,omitempty" db:"website_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Inbox is the communication thread a channel feeds into.
type Inbox struct {
	ID          int64  `json:"id" db:"id"`
	AccountID   int64  `json:"account_id" db:"account_id"`
	Name        string `json:"name" db:"name"`
	ChannelType string `json:"channel_type" db:"channel_type"`
}

const (
	ChannelName        = "WebRTC Voice"
	ChannelType        = "Channel::Webrtc"
	DefaultWidgetColor = "#1f93ff"
)

func (c Channel) Name() string { return ChannelName }

// Inbox returns the inbox reference the channel is bound to.
func (c Channel) Inbox() Inbox {
	return Inbox{ID: c.InboxID, AccountID: c.AccountID, Name: ChannelName, ChannelType: ChannelType}
}

// ProviderConfig is the per-channel room-service override record.
// Empty fields are unset and fall back to process defaults.
type ProviderConfig struct {
	URL       string `json:"livekit_url,omitempty" yaml:"livekit_url"`
	APIKey    string `json:"livekit_api_key,omitempty" yaml:"livekit_api_key"`
	APISecret string `json:"livekit_api_secret,omitempty" yaml:"livekit_api_secret"`
}
