package roomservice

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// BaseURL normalizes a configured room-service endpoint to the HTTP(S) origin
// used for admin RPC. ws:// maps to http://, wss:// to https://; host and
// port are preserved (made explicit when absent) and any path is dropped.
func BaseURL(endpoint string) (string, error) {
	raw := strings.TrimSpace(endpoint)
	if raw == "" {
		return "", errors.New("roomservice: endpoint is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("roomservice: invalid endpoint: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "ws":
		scheme = "http"
	case "wss":
		scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("roomservice: unsupported endpoint scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return "", errors.New("roomservice: endpoint host is empty")
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if scheme == "https" {
			port = "443"
		}
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}

// MethodURL returns the admin RPC URL for method on endpoint.
func MethodURL(endpoint, method string) (string, error) {
	base, err := BaseURL(endpoint)
	if err != nil {
		return "", err
	}
	return base + "/" + Namespace + "/" + method, nil
}
