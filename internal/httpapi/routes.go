package httpapi

import (
	"github.com/gin-gonic/gin"

	"voice-broker/internal/auth"
)

// Register mounts the widget call API under /:token.
func Register(r gin.IRouter, h Handlers, finder auth.ChannelFinder) {
	ch := r.Group("/:token")
	ch.Use(auth.RequireChannel(finder))
	{
		ch.GET("", h.Show)
		ch.POST("/join", h.Join)
		ch.POST("/leave", h.Leave)
		ch.GET("/calls/:conversation_id", auth.RequireChannelSecret(), h.CallStatus)
	}
}
