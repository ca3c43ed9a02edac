package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ErrorCase pairs a sentinel error with the HTTP status and message it maps to.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError walks the cases in order and writes the first match.
// Unmatched errors fall through to the provided default status and message.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	for _, ec := range cases {
		if ec.Err == nil {
			continue
		}
		if errors.Is(err, ec.Err) {
			c.JSON(ec.Status, NewErrorResponse(c, ec.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
