package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulapp/internal/adapter/repository/memory"
)

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	tok, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return tok, nil
}

func TestVerifyProvisionsOnFirstSight(t *testing.T) {
	store := memory.NewStore()
	v := fakeVerifier{tokens: map[string]*auth.Token{
		"good": {UID: "fb-1", Claims: map[string]interface{}{
			"email":          "ana@example.com",
			"name":           "Ana",
			"email_verified": true,
		}},
	}}
	client := newFirebaseAuthClient(v, store.Users())
	ctx := context.Background()

	first, err := client.Verify(ctx, "good")
	require.NoError(t, err)

	second, err := client.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	user, err := store.Users().GetByFirebaseUID(ctx, "fb-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.True(t, user.IsVerified)
	assert.Equal(t, first, user.ID.Hex())
}

func TestVerifyRejectsBadTokenAndDisabledUser(t *testing.T) {
	store := memory.NewStore()
	v := fakeVerifier{tokens: map[string]*auth.Token{
		"good": {UID: "fb-2", Claims: map[string]interface{}{"email": "b@example.com"}},
	}}
	client := newFirebaseAuthClient(v, store.Users())
	ctx := context.Background()

	_, err := client.Verify(ctx, "forged")
	assert.Error(t, err)

	_, err = client.Verify(ctx, "good")
	require.NoError(t, err)
	user, err := store.Users().GetByFirebaseUID(ctx, "fb-2")
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, store.Users().Update(ctx, user))

	_, err = client.Verify(ctx, "good")
	assert.Error(t, err)
}

func TestNewAuthClientNeedsCredentials(t *testing.T) {
	_, err := NewAuthClient(context.Background(), "proj", "", "")
	assert.ErrorIs(t, err, ErrNoCredentials)
}
