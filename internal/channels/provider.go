package channels

import (
	"strings"

	"voice-broker/internal/config"
)

// RoomService is the effective room-service configuration for one request.
type RoomService struct {
	URL       string
	APIKey    string
	APISecret string
}

// Resolve merges a channel's provider config over process defaults.
//
// Precedence per field: non-empty channel value, then non-empty process
// default, then the hard-coded fallback (config.DefaultRoomServiceURL for the
// URL, empty for key and secret). Call it per request: channel config may
// change between join and leave.
func Resolve(pc ProviderConfig, defaults config.RoomServiceConfig) RoomService {
	return RoomService{
		URL:       firstNonEmpty(pc.URL, defaults.URL, config.DefaultRoomServiceURL),
		APIKey:    firstNonEmpty(pc.APIKey, defaults.APIKey),
		APISecret: firstNonEmptyRaw(pc.APISecret, defaults.APISecret),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// Secrets are not trimmed; whitespace may be significant.
func firstNonEmptyRaw(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
