package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"customer-api/internal/domain"
	"customer-api/internal/service"
)

// Envelope is the success response shape.
type Envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respondData(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{Data: data, Message: message})
}

const (
	internalErrorMessage       = "Internal Server Error: "
	internalDeleteErrorMessage = "Internal Server Error."
)

// fail maps err onto the error envelope. Raw error text is returned on 500s.
func (h *Handler) fail(c *gin.Context, err error) {
	h.failWith(c, err, internalErrorMessage)
}

func (h *Handler) failWith(c *gin.Context, err error, internalMessage string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Missing required values.",
			"fields":  verr.Fields,
			"missing": verr.Missing,
		})
	case errors.Is(err, domain.ErrMissingToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access Token Required"})
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token."})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": internalMessage, "error": err.Error()})
	}
}

func isInvalidInput(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput)
}
