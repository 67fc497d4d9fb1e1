package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"rollcall/internal/apiclient"
	"rollcall/internal/call"
	"rollcall/internal/student"
)

type errorBody struct {
	Error  string                 `json:"error"`
	Kind   string                 `json:"kind,omitempty"`
	Fields []apiclient.FieldError `json:"fields,omitempty"`
}

// statusFor maps an error to the status returned to the browser and the body
// describing it. Upstream failures keep their server detail so the UI can
// show it.
func statusFor(err error) (int, errorBody) {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		body := errorBody{Error: apiErr.Message(), Kind: string(apiErr.Kind), Fields: apiErr.Fields}
		switch apiErr.Kind {
		case apiclient.ErrUnauthorized:
			return http.StatusUnauthorized, body
		case apiclient.ErrForbidden:
			return http.StatusForbidden, body
		case apiclient.ErrValidation:
			return http.StatusUnprocessableEntity, body
		case apiclient.ErrNotFound:
			return http.StatusNotFound, body
		case apiclient.ErrConflict:
			return http.StatusConflict, body
		case apiclient.ErrNetwork:
			return http.StatusBadGateway, body
		default:
			return http.StatusBadGateway, body
		}
	}

	switch {
	case errors.Is(err, call.ErrNoTripSelected),
		errors.Is(err, call.ErrStaleSelection),
		errors.Is(err, student.ErrNotLoaded):
		return http.StatusConflict, errorBody{Error: err.Error()}
	case errors.Is(err, call.ErrNotOnRoster):
		return http.StatusNotFound, errorBody{Error: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error"}
}

func writeError(c *gin.Context, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	status, body := statusFor(err)
	c.AbortWithStatusJSON(status, body)
}

// paramID parses the :id path parameter, answering 400 when it is not a
// number.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, key string, fallback int64) int64 {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
