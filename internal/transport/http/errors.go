package http

import (
	"errors"

	apierrors "neurphys/internal/errors"
	"neurphys/internal/services"
)

// mapServiceError translates service sentinel errors into the API error
// taxonomy. Unknown errors pass through and surface as 500s.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrRecordingNotFound):
		return apierrors.RecordingNotFoundError(err.Error())
	case errors.Is(err, services.ErrOperationNotFound):
		return apierrors.ErrOperationNotFound
	case errors.Is(err, services.ErrInvalidRequest):
		return apierrors.InvalidRequestWithError(err)
	case errors.Is(err, services.ErrUnreadableFile):
		return apierrors.UnreadableFileError(err)
	default:
		return err
	}
}
