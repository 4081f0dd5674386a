package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/tabular"
	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/dateid"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

var (
	errUnauthorized = errors.New("missing or malformed bearer token")
	errInternal     = errors.New("internal error")
	errBadRequest   = errors.New("bad request")
)

type errorBody struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

// statusOf maps a hub error onto an HTTP status and a stable error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrNoSession),
		errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, types.ErrForbidden), errors.Is(err, types.ErrMissingScope):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrTableNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrAlreadyPromoted):
		return http.StatusConflict, "conflict"
	case errors.Is(err, errBadRequest),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidState),
		errors.Is(err, types.ErrMissingKey),
		errors.Is(err, types.ErrUnknownReport),
		errors.Is(err, dateid.ErrFormat),
		errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, dataset.ErrNotNumeric),
		errors.Is(err, dataset.ErrKindMismatch),
		errors.Is(err, dataset.ErrRowLength),
		errors.Is(err, dataset.ErrInvalidSpec),
		errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.Is(err, tabular.ErrNoHeader):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal"
}

func errorJSON(c *gin.Context, err error) (int, gin.H) {
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = errInternal.Error()
	}
	return status, gin.H{"error": errorBody{Message: msg, Code: code, RequestID: requestID(c)}}
}

func writeError(c *gin.Context, err error) {
	status, body := errorJSON(c, err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	status, body := errorJSON(c, err)
	c.AbortWithStatusJSON(status, body)
}
