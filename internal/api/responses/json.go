package responses

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/insightloop/dataqual/pkg/errors"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// WriteError writes an error as a JSON response. AppError values carry
// their own HTTP status; well-known sentinels get their conventional
// status; anything else becomes a 500.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = appErrorForSentinel(err)
	}

	WriteJSON(w, appErr.HTTPStatus, &errors.ErrorResponse{
		Error:     appErr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func appErrorForSentinel(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, errors.ErrDatasetNotFound):
		appErr := errors.NewDatasetError(errors.CodeDatasetNotFound, err.Error())
		appErr.HTTPStatus = http.StatusNotFound
		return appErr
	case stderrors.Is(err, errors.ErrAnalysisNotFound):
		appErr := errors.NewDatasetError(errors.CodeReadFailed, err.Error())
		appErr.HTTPStatus = http.StatusNotFound
		return appErr
	case stderrors.Is(err, errors.ErrAnalysisInProgress):
		appErr := errors.NewPersistenceError(errors.CodeAnalysisBusy, err.Error())
		appErr.HTTPStatus = http.StatusConflict
		return appErr
	default:
		return errors.NewInternalError(err.Error())
	}
}
