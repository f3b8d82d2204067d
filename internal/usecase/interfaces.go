package usecase

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"circulapp/pkg/errors"
)

// Notifier pushes realtime events to connected users.
type Notifier interface {
	Notify(userIDs []string, eventType, chatID string, data interface{})
}

type RateLimiter interface {
	Allow(key, action string) (bool, time.Duration)
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) error
}

type noopNotifier struct{}

func (noopNotifier) Notify([]string, string, string, interface{}) {}

// clock returns UTC time at the millisecond precision BSON dates keep.
func clock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func callerID(userID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, errors.Unauthorized("Invalid user identity", err)
	}
	return id, nil
}

// resourceID parses a path id. Malformed ids cannot name anything, so they
// are reported as missing.
func resourceID(hex, resource string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errors.NotFound(resource, nil)
	}
	return id, nil
}

func checkRate(limiter RateLimiter, key, action string) error {
	if limiter == nil {
		return nil
	}
	if ok, wait := limiter.Allow(key, action); !ok {
		return errors.TooManyRequests(fmt.Sprintf("Rate limit exceeded, retry in %ds", errors.RetrySeconds(wait)), wait)
	}
	return nil
}
