package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/pkg/utils"
)

// MinPasswordLength applies to signup and password changes.
const MinPasswordLength = 8

// Used for the unknown-email login path when no random salt can be drawn.
const (
	fallbackDummySalt   = "6c61756e6472792d64756d6d792d73616c74"
	fallbackDummyDigest = "00"
)

type SignupInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Password  string `json:"password" validate:"required,min=8"`
}

// ProfileInput holds editable profile fields. Blank fields are ignored.
type ProfileInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// AuthGateway implements signup, login and the authenticated account
// operations on top of CredentialStore and TokenService.
type AuthGateway struct {
	users    *CredentialStore
	tokens   *TokenService
	validate *validator.Validate
	now      func() time.Time
	hash     func(string) (string, string, error)
	log      *zap.Logger

	dummyOnce   sync.Once
	dummyDigest string
	dummySalt   string
}

func NewAuthGateway(users *CredentialStore, tokens *TokenService, log *zap.Logger) *AuthGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthGateway{
		users:    users,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		hash:     utils.HashPassword,
		log:      log.With(zap.String("component", "auth")),
	}
}

func (g *AuthGateway) Tokens() *TokenService { return g.tokens }

func (g *AuthGateway) Signup(ctx context.Context, in SignupInput) (models.PublicUser, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := g.validate.Struct(in); err != nil {
		return models.PublicUser{}, signupValidationError(err)
	}

	digest, salt, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.PublicUser{}, &apperr.Error{Kind: apperr.KindInternal, Message: "hash password", Err: err}
	}

	user, err := g.users.Insert(ctx, models.User{
		ID:        uuid.NewString(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Password:  digest,
		Salt:      salt,
		CreatedAt: g.now().UTC(),
	})
	if err != nil {
		return models.PublicUser{}, err
	}

	g.log.Info("user registered", zap.String("user_id", user.ID))
	return user.Public(), nil
}

func signupValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("Invalid signup data")
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return apperr.Validation("All fields are required")
		}
	}
	switch fe := verrs[0]; fe.Field() {
	case "Email":
		return apperr.Validation("Please enter a valid email address")
	case "Password":
		return apperr.Validation("Password must be at least 8 characters long")
	default:
		return apperr.Validation("Invalid " + strings.ToLower(fe.Field()))
	}
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords fail identically, and both run one password derivation.
func (g *AuthGateway) Login(_ context.Context, email, password string) (models.PublicUser, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.PublicUser{}, "", apperr.Validation("Email and password are required")
	}

	user, ok := g.users.FindByEmail(email)
	if !ok {
		digest, salt := g.dummyHash()
		utils.VerifyPassword(password, digest, salt)
		return models.PublicUser{}, "", apperr.InvalidCredentials("Invalid email or password")
	}
	if !utils.VerifyPassword(password, user.Password, user.Salt) {
		return models.PublicUser{}, "", apperr.InvalidCredentials("Invalid email or password")
	}

	token, err := g.tokens.Issue(user)
	if err != nil {
		return models.PublicUser{}, "", &apperr.Error{Kind: apperr.KindInternal, Message: "issue token", Err: err}
	}
	return user.Public(), token, nil
}

// dummyHash returns the credentials checked against when the email is
// unknown. They are never empty, so VerifyPassword always derives a key.
func (g *AuthGateway) dummyHash() (string, string) {
	g.dummyOnce.Do(func() {
		digest, salt, err := g.hash(uuid.NewString())
		if err != nil {
			g.log.Error("dummy password hash failed, using fixed salt", zap.Error(err))
			digest, salt = fallbackDummyDigest, fallbackDummySalt
		}
		g.dummyDigest, g.dummySalt = digest, salt
	})
	return g.dummyDigest, g.dummySalt
}

// Authenticate resolves a bearer token to its payload.
func (g *AuthGateway) Authenticate(token string) (models.TokenPayload, error) {
	if token == "" {
		return models.TokenPayload{}, apperr.Unauthenticated("Authentication required")
	}
	payload, ok := g.tokens.Verify(token)
	if !ok {
		return models.TokenPayload{}, apperr.InvalidToken("Invalid or expired token")
	}
	return payload, nil
}

func (g *AuthGateway) GetProfile(id string) (models.PublicUser, error) {
	user, ok := g.users.FindByID(id)
	if !ok {
		return models.PublicUser{}, apperr.NotFound("User not found")
	}
	return user.Public(), nil
}

func (g *AuthGateway) UpdateProfile(ctx context.Context, id string, in ProfileInput) (models.PublicUser, error) {
	var patch UserPatch
	if v := strings.TrimSpace(in.FirstName); v != "" {
		patch.FirstName = &v
	}
	if v := strings.TrimSpace(in.LastName); v != "" {
		patch.LastName = &v
	}
	if v := strings.TrimSpace(in.Phone); v != "" {
		patch.Phone = &v
	}

	user, err := g.users.Update(ctx, id, patch)
	if err != nil {
		return models.PublicUser{}, err
	}
	return user.Public(), nil
}

func (g *AuthGateway) ChangePassword(ctx context.Context, id, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("Current password and new password are required")
	}
	if len(next) < MinPasswordLength {
		return apperr.Validation("Password must be at least 8 characters long")
	}

	user, ok := g.users.FindByID(id)
	if !ok {
		return apperr.NotFound("User not found")
	}
	if !utils.VerifyPassword(current, user.Password, user.Salt) {
		return apperr.InvalidCredentials("Current password is incorrect")
	}

	digest, salt, err := utils.HashPassword(next)
	if err != nil {
		return &apperr.Error{Kind: apperr.KindInternal, Message: "hash password", Err: err}
	}
	if _, err := g.users.Update(ctx, id, UserPatch{Password: &digest, Salt: &salt}); err != nil {
		return err
	}

	g.log.Info("password changed", zap.String("user_id", id))
	return nil
}

// DeleteAccount hard-deletes the user. Only the local client exposes it.
func (g *AuthGateway) DeleteAccount(ctx context.Context, id string) (models.PublicUser, error) {
	user, err := g.users.Delete(ctx, id)
	if err != nil {
		return models.PublicUser{}, err
	}
	g.log.Info("user deleted", zap.String("user_id", id))
	return user.Public(), nil
}
