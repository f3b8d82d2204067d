package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"go.mongodb.org/mongo-driver/bson"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "circulapp/pkg/errors"
)

const (
	firestoreChats    = "chats"
	firestoreChatKeys = "chatKeys"
	firestoreUsers    = "users"
	firestoreProducts = "products"

	payloadField = "payload"
)

// Firestore documents hold the fields queries filter on at the top level and
// the whole entity, BSON encoded, under payload. Entities keep one encoding
// across both document stores that way.
func withPayload(v interface{}, fields map[string]interface{}) (map[string]interface{}, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields[payloadField] = raw
	return fields, nil
}

func decodePayload(snap *firestore.DocumentSnapshot, out interface{}) error {
	v, err := snap.DataAt(payloadField)
	if err != nil {
		return err
	}
	raw, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("document %s: payload has type %T", snap.Ref.ID, v)
	}
	return bson.Unmarshal(raw, out)
}

// eachDoc drains iter and calls fn for every snapshot.
func eachDoc(iter *firestore.DocumentIterator, fn func(*firestore.DocumentSnapshot) error) error {
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}

// mapFirestoreError translates gRPC status errors into the application taxonomy.
func mapFirestoreError(resource string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch status.Code(err) {
	case codes.NotFound:
		return apperrors.NotFound(resource, err)
	case codes.AlreadyExists:
		return apperrors.Conflict(resource+" already exists", err)
	case codes.Aborted, codes.FailedPrecondition:
		return apperrors.Conflict(resource+" was modified concurrently", err)
	case codes.DeadlineExceeded:
		return apperrors.Internal("Timed out accessing "+strings.ToLower(resource), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Internal("Timed out accessing "+strings.ToLower(resource), err)
	}
	return apperrors.Internal("Failed to access "+strings.ToLower(resource), err)
}
