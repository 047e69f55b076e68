package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chrisdamba/foodatrack/internal/tracking"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracking.ErrIllegalTransition), errors.Is(err, tracking.ErrDriverBusy):
		return http.StatusConflict
	case errors.Is(err, tracking.ErrInvalidStatus),
		errors.Is(err, tracking.ErrInvalidActor),
		errors.Is(err, tracking.ErrInvalidDriver),
		errors.Is(err, tracking.ErrInvalidLocation),
		errors.Is(err, tracking.ErrInvalidInteraction),
		errors.Is(err, tracking.ErrInvalidOrder):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail writes err as JSON. Store failures are logged and hidden from the
// caller.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}
