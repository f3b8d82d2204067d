package repository

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	apperrors "circulapp/pkg/errors"
)

// mapMongoError translates driver errors into the application taxonomy.
func mapMongoError(resource string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.NotFound(resource, err)
	case mongo.IsDuplicateKeyError(err):
		return apperrors.Conflict(resource+" already exists", err)
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return apperrors.Internal("Timed out accessing "+strings.ToLower(resource), err)
	default:
		return apperrors.Internal("Failed to access "+strings.ToLower(resource), err)
	}
}
