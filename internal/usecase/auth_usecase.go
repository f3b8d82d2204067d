package usecase

import (
	"context"
	"strings"
	"time"

	"circulapp/internal/domain/entity"
	"circulapp/internal/domain/repository"
	"circulapp/internal/infrastructure/metrics"
	"circulapp/internal/infrastructure/ratelimit"
	"circulapp/pkg/errors"
	"circulapp/pkg/logger"
)

type AuthUseCase struct {
	userRepo    repository.UserRepository
	hasher      PasswordHasher
	tokens      TokenIssuer
	rateLimiter RateLimiter
	now         func() time.Time
}

// NewAuthUseCase wires password auth. A nil issuer disables register and
// login, which is the case when identities come from Firebase.
func NewAuthUseCase(userRepo repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, rateLimiter RateLimiter) *AuthUseCase {
	return &AuthUseCase{
		userRepo:    userRepo,
		hasher:      hasher,
		tokens:      tokens,
		rateLimiter: rateLimiter,
		now:         clock,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	UserType string
	Location entity.UserLocation
}

type AuthResult struct {
	User  *entity.User
	Token string
}

type UpdateProfileInput struct {
	Name     *string
	Phone    *string
	Avatar   *string
	Location *entity.UserLocation
}

func (uc *AuthUseCase) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if uc.tokens == nil {
		return nil, errors.BadRequest("Password registration is disabled, sign in with Firebase", nil)
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := checkRate(uc.rateLimiter, "register:"+email, ratelimit.ActionAuth); err != nil {
		return nil, err
	}

	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Internal("Failed to secure password", err)
	}

	userType := input.UserType
	if userType == "" {
		userType = entity.UserTypeIndividual
	}

	now := uc.now()
	user := &entity.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(input.Phone),
		Location:     input.Location,
		UserType:     userType,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		metrics.RecordAuth("register", false)
		return nil, err
	}

	token, err := uc.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, errors.Internal("Failed to generate authentication token", err)
	}
	metrics.RecordAuth("register", true)
	logger.Info("Registered user %s", user.ID.Hex())

	return &AuthResult{User: user, Token: token}, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if uc.tokens == nil {
		return nil, errors.BadRequest("Password login is disabled, sign in with Firebase", nil)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := checkRate(uc.rateLimiter, "login:"+email, ratelimit.ActionAuth); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			metrics.RecordAuth("login", false)
			return nil, errors.Unauthorized("Invalid credentials", nil)
		}
		return nil, err
	}
	if user.PasswordHash == "" || uc.hasher.Verify(password, user.PasswordHash) != nil {
		metrics.RecordAuth("login", false)
		return nil, errors.Unauthorized("Invalid credentials", nil)
	}
	if !user.IsActive {
		metrics.RecordAuth("login", false)
		return nil, errors.Unauthorized("Account is disabled", nil)
	}

	token, err := uc.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, errors.Internal("Failed to generate authentication token", err)
	}
	metrics.RecordAuth("login", true)

	return &AuthResult{User: user, Token: token}, nil
}

func (uc *AuthUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	id, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	return uc.userRepo.GetByID(ctx, id)
}

func (uc *AuthUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	id, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Avatar != nil {
		user.Avatar = strings.TrimSpace(*input.Avatar)
	}
	if input.Location != nil {
		user.Location = *input.Location
	}
	user.UpdatedAt = uc.now()

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
