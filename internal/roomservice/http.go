package roomservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voice-broker/pkg/logger"
	"voice-broker/pkg/metrics"
)

const maxErrorBody = 512

// HTTPClient speaks the twirp JSON protocol of the room service admin API.
type HTTPClient struct {
	http *http.Client
}

// NewHTTPClient returns a client whose calls are bounded by timeout.
// A zero timeout leaves calls bounded only by ctx.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{http: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) CreateRoom(ctx context.Context, endpoint, adminToken, roomName string, emptyTimeout time.Duration) error {
	if emptyTimeout <= 0 {
		emptyTimeout = DefaultEmptyTimeout
	}
	return c.call(ctx, endpoint, MethodCreateRoom, adminToken, createRoomRequest{
		Name:         roomName,
		EmptyTimeout: int64(emptyTimeout / time.Second),
	})
}

func (c *HTTPClient) DeleteRoom(ctx context.Context, endpoint, adminToken, roomName string) error {
	return c.call(ctx, endpoint, MethodDeleteRoom, adminToken, deleteRoomRequest{Room: roomName})
}

func (c *HTTPClient) call(ctx context.Context, endpoint, method, adminToken string, body any) error {
	start := time.Now()
	outcome := metrics.OutcomeOK
	defer func() {
		metrics.RoomServiceRequests.WithLabelValues(method, outcome).Inc()
		metrics.RoomServiceLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	target, err := MethodURL(endpoint, method)
	if err != nil {
		outcome = metrics.OutcomeError
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		outcome = metrics.OutcomeError
		return fmt.Errorf("roomservice: encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		outcome = metrics.OutcomeError
		return fmt.Errorf("roomservice: build %s: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		outcome = metrics.OutcomeUnreachable
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = metrics.OutcomeError
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Method: method, StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.From(ctx).Debug("room service call", "method", method, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
