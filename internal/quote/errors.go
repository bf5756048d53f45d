package quote

import (
	"errors"
	"net/http"

	"github.com/byteaxis/byteaxis-api/internal/common"
	"github.com/byteaxis/byteaxis-api/internal/submission"
)

// mapSubmitError converts submission errors into API errors.
func mapSubmitError(err error) *common.AppError {
	var verr *submission.ValidationError
	switch {
	case errors.As(err, &verr):
		return common.NewAppError("VALIDATION_ERROR", verr.Message, http.StatusUnprocessableEntity, err).
			WithDetails(map[string]any{"kind": verr.Kind, "fields": verr.Fields})
	case errors.Is(err, submission.ErrNotConfigured):
		return common.NewAppError("NOT_CONFIGURED", "submissions are not configured yet, please contact ByteAxis", http.StatusServiceUnavailable, err)
	case errors.Is(err, submission.ErrStoreUnavailable):
		return common.NewAppError("STORE_UNAVAILABLE", "failed to submit request, please try again", http.StatusBadGateway, err).
			WithDetails(map[string]any{"retryable": true})
	case errors.Is(err, submission.ErrInvalidTransition):
		return common.NewAppError("CONFLICT", "request is already being submitted", http.StatusConflict, err)
	default:
		return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
}
