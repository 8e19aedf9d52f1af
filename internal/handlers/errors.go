package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"librarydesk/internal/services"
)

var kindStatus = map[services.Kind]int{
	services.KindNotFound:     http.StatusNotFound,
	services.KindForbidden:    http.StatusForbidden,
	services.KindConflict:     http.StatusBadRequest,
	services.KindValidation:   http.StatusBadRequest,
	services.KindUnauthorized: http.StatusUnauthorized,
	services.KindInternal:     http.StatusInternalServerError,
}

// respondError translates a service error to its status code. Internal
// failures are logged and answered with a generic message.
func (h *LibraryHandler) respondError(c *gin.Context, op string, err error) {
	kind := services.KindOf(err)
	status := kindStatus[kind]

	var svcErr *services.Error
	msg := "Internal server error"
	if errors.As(err, &svcErr) {
		msg = svcErr.Message
	}
	if kind == services.KindInternal {
		h.log.Error(op+": internal error",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
