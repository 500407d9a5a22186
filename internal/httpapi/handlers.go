package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-broker/internal/auth"
	"voice-broker/internal/calls"
	"voice-broker/internal/session"
	"voice-broker/pkg/logger"
)

// Broker is the session state machine behind join and leave.
type Broker interface {
	Join(ctx context.Context, routingToken string, req session.JoinRequest) (session.JoinResult, error)
	Leave(ctx context.Context, routingToken string, req session.LeaveRequest) error
}

// StatusReader serves the projected call status.
type StatusReader interface {
	Current(ctx context.Context, accountID, displayID int64) (calls.Status, bool, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Every handler runs behind auth.RequireChannel.
type Handlers struct {
	Broker      Broker
	Status      StatusReader
	FrontendURL string
}

// --- Widget ---

// Show returns the channel's public cosmetic fields.
func (h Handlers) Show(c *gin.Context) {
	ch, err := auth.ChannelFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "channel not resolved"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":            ch.Name(),
		"website_token":   ch.WebsiteToken,
		"widget_color":    ch.WidgetColor,
		"welcome_title":   ch.WelcomeTitle,
		"welcome_tagline": ch.WelcomeTagline,
		"website_url":     ch.WebsiteURL,
		"widget_url":      h.widgetURL(ch.WebsiteToken),
	})
}

func (h Handlers) widgetURL(websiteToken string) string {
	return h.FrontendURL + "/webrtc/room?token=" + url.QueryEscape(websiteToken)
}

// --- Calls ---

type joinRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
	Phone string `json:"phone" form:"phone"`
}

// Join resolves the visitor, opens a conversation and returns a participant credential.
func (h Handlers) Join(c *gin.Context) {
	var req joinRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.Broker.Join(c.Request.Context(), c.Param("token"), session.JoinRequest{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type leaveRequest struct {
	RoomName       string    `json:"room_name" form:"room_name"`
	ConversationID displayID `json:"conversation_id" form:"conversation_id"`
}

// Leave tears down the room and marks the call ended.
func (h Handlers) Leave(c *gin.Context) {
	var req leaveRequest
	if !bindOptional(c, &req) {
		return
	}
	err := h.Broker.Leave(c.Request.Context(), c.Param("token"), session.LeaveRequest{
		RoomName:       strings.TrimSpace(req.RoomName),
		ConversationID: int64(req.ConversationID),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CallStatus returns the current call status of a conversation.
// RBAC: the channel's shared secret (auth.RequireChannelSecret).
func (h Handlers) CallStatus(c *gin.Context) {
	ch, err := auth.ChannelFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "channel not resolved"})
		return
	}
	id, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conversation_id must be a positive integer"})
		return
	}
	st, ok, err := h.Status.Current(c.Request.Context(), ch.AccountID, id)
	if err != nil {
		logger.FromGin(c).Error("call status lookup failed", "display_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no call for conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": st.DisplayID,
		"status":          st.Status,
		"room_name":       st.RoomName,
		"updated_at":      st.UpdatedAt,
	})
}

// writeError maps broker error kinds to status codes. The wrapped cause is
// logged, never returned.
func writeError(c *gin.Context, err error) {
	kind := session.KindOf(err)
	logger.FromGin(c).Warn("call request failed", "kind", kind, "err", err)
	switch kind {
	case session.KindChannelNotFound:
		c.Abort()
		c.String(http.StatusNotFound, "Invalid token")
	case session.KindCapacityExceeded:
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": session.PublicMessage(err)})
	default:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": session.PublicMessage(err)})
	}
}

// bindOptional binds JSON or form bodies. All fields are optional, so an
// empty body is valid.
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 && c.Request.URL.RawQuery == "" {
		return true
	}
	if err := c.ShouldBind(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// displayID accepts a conversation id as a JSON number or string.
type displayID int64

func (d *displayID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return d.set(n.String())
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.set(s)
}

// UnmarshalParam lets gin form binding use the same parsing.
func (d *displayID) UnmarshalParam(param string) error {
	return d.set(param)
}

func (d *displayID) set(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*d = displayID(n)
	return nil
}
