package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vision-relay-go/internal/platform/errors"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// ErrorData is the data payload of a failed response.
type ErrorData struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondErr maps err to a status by its kind and writes the envelope.
func RespondErr(c *gin.Context, err error) {
	kind := errors.KindOf(err)
	status := StatusFor(kind)
	_ = c.Error(err)
	RespondError(c, status, err.Error(), ErrorData{Error: err.Error(), Kind: string(kind)})
}

// StatusFor is the HTTP status reported for an error kind.
func StatusFor(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindAuth:
		return http.StatusUnauthorized
	case errors.KindProvider, errors.KindNetwork, errors.KindParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
