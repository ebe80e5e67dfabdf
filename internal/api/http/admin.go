package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type levelRequest struct {
	Level string `json:"level" binding:"required"`
}

// LogLevel reports the current log level.
func (h *Handlers) LogLevel(c *gin.Context) {
	if h.levels == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "log level control disabled", Code: "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": h.levels.Level()})
}

// SetLogLevel changes the log level of every component at runtime.
func (h *Handlers) SetLogLevel(c *gin.Context) {
	if h.levels == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "log level control disabled", Code: "not_found"})
		return
	}

	var req levelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	previous := h.levels.Level()
	if err := h.levels.SetLevel(req.Level); err != nil {
		badRequest(c, err.Error())
		return
	}

	h.logger.Info("Log level changed",
		zap.String("from", previous),
		zap.String("to", h.levels.Level()),
	)
	c.JSON(http.StatusOK, gin.H{"level": h.levels.Level()})
}
