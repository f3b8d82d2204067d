package firebase

import (
	"context"
	"errors"
	"time"

	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	apperrors "circulapp/pkg/errors"
	"circulapp/pkg/logger"
)

var ErrNoCredentials = errors.New("firebase: no service account configured")

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// NewAuthClient builds a Firebase Auth client from either inline service
// account JSON or a credentials file path. JSON wins when both are set.
func NewAuthClient(ctx context.Context, projectID, serviceAccountJSON, serviceAccountPath string) (*auth.Client, error) {
	opt, err := credentials(serviceAccountJSON, serviceAccountPath)
	if err != nil {
		return nil, err
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: projectID}, opt)
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}

func credentials(serviceAccountJSON, serviceAccountPath string) (option.ClientOption, error) {
	switch {
	case serviceAccountJSON != "":
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(serviceAccountJSON)), nil
	case serviceAccountPath != "":
		logger.Info("Using Firebase service account from file: %s", serviceAccountPath)
		return option.WithCredentialsFile(serviceAccountPath), nil
	default:
		return nil, ErrNoCredentials
	}
}

// FirebaseAuthClient verifies Firebase ID tokens and maps them to local users,
// provisioning a user record on first sight.
type FirebaseAuthClient struct {
	verifier idTokenVerifier
	users    repository.UserRepository
	now      func() time.Time
}

func NewFirebaseAuthClient(client *auth.Client, users repository.UserRepository) *FirebaseAuthClient {
	return newFirebaseAuthClient(client, users)
}

func newFirebaseAuthClient(v idTokenVerifier, users repository.UserRepository) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		verifier: v,
		users:    users,
		now:      time.Now,
	}
}

// Verify returns the local user id (hex) for a valid ID token.
func (f *FirebaseAuthClient) Verify(ctx context.Context, idToken string) (string, error) {
	token, err := f.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}

	user, err := f.users.GetByFirebaseUID(ctx, token.UID)
	if err == nil {
		if !user.IsActive {
			return "", apperrors.Unauthorized("Account is disabled", nil)
		}
		return user.ID.Hex(), nil
	}
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		return "", err
	}

	user, err = f.provision(ctx, token)
	if err != nil {
		return "", err
	}
	return user.ID.Hex(), nil
}

func (f *FirebaseAuthClient) provision(ctx context.Context, token *auth.Token) (*entity.User, error) {
	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	picture, _ := token.Claims["picture"].(string)
	verified, _ := token.Claims["email_verified"].(bool)
	if email == "" {
		return nil, apperrors.Unauthorized("Firebase account has no email", nil)
	}
	if name == "" {
		name = email
	}

	now := f.now().UTC()
	user := &entity.User{
		Name:        name,
		Email:       email,
		Avatar:      picture,
		UserType:    entity.UserTypeIndividual,
		IsVerified:  verified,
		IsActive:    true,
		FirebaseUID: token.UID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := f.users.Create(ctx, user); err != nil {
		if !apperrors.Is(err, apperrors.CodeConflict) {
			return nil, err
		}
		// A concurrent first request may have created the row.
		existing, getErr := f.users.GetByFirebaseUID(ctx, token.UID)
		if getErr != nil {
			return nil, err
		}
		return existing, nil
	}

	logger.Info("Provisioned user %s for firebase uid %s", user.ID.Hex(), token.UID)
	return user, nil
}
