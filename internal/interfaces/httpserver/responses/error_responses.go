package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/dm-api/internal/utils/platformerrors"
)

// ErrorResponse represents an error response with platform error details
type ErrorResponse struct {
	Code          string `json:"code"` // UUID from PlatformError
	Error         string `json:"error"`
	ErrorInstance error  `json:"-"`
	RequestID     string `json:"request_id,omitempty"`
}

// HandleError handles domain errors and returns appropriate HTTP responses
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(domainErr.Type)

		// validation messages are written for the caller, everything else stays generic
		errorMessage := message
		if domainErr.Type == platformerrors.ErrorTypeValidation || errorMessage == "" {
			errorMessage = domainErr.Message
		}

		_ = reqCtx.Error(err)
		reqCtx.AbortWithStatusJSON(statusCode, ErrorResponse{
			Code:          domainErr.UUID,
			Error:         errorMessage,
			ErrorInstance: domainErr,
			RequestID:     requestID(reqCtx, domainErr.RequestID),
		})
		return
	}

	if err != nil {
		_ = reqCtx.Error(err)
	}
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:          "unclassified",
		Error:         message,
		ErrorInstance: err,
		RequestID:     requestID(reqCtx, ""),
	})
}

// HandleNewError creates a new typed error at the route layer and handles it
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, code string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, code)
	HandleError(reqCtx, err, message)
}

func requestID(reqCtx *gin.Context, fromErr string) string {
	if fromErr != "" {
		return fromErr
	}
	return platformerrors.RequestIDFromContext(reqCtx.Request.Context())
}

// HandleBindError reports a request that failed binding or validation as a 400.
func HandleBindError(reqCtx *gin.Context, err error, code string) {
	bindErr := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, platformerrors.ErrorTypeValidation, "invalid request: "+err.Error(), err, code)
	HandleError(reqCtx, bindErr, "")
}
