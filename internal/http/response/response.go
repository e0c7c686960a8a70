package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerr "github.com/brenlab/bren-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps service-layer sentinels onto HTTP statuses so
// handlers don't each reinvent the table.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, pkgerr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerr.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, pkgerr.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, pkgerr.ErrDuplicateMessage):
		RespondError(c, http.StatusConflict, "duplicate_message", err)
	case errors.Is(err, pkgerr.ErrInsufficientFunds):
		RespondError(c, http.StatusPaymentRequired, "insufficient_funds", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
