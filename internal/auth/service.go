package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-boutique/internal/common"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// unknownAdminHash is verified against when the username does not exist so
// both rejection paths pay for one argon2id comparison.
var unknownAdminHash = sync.OnceValue(func() string {
	hash, err := HashPassword(uuid.NewString())
	if err != nil {
		panic(fmt.Errorf("auth: build placeholder hash: %w", err))
	}
	return hash
})

// Service authenticates back-office admins.
type Service struct {
	store    Store
	tokens   TokenValidator
	tokenTTL time.Duration
	now      func() time.Time
	verify   func(password, hash string) (bool, error)
}

// Config configures the auth service.
type Config struct {
	Store     Store
	Secret    string
	TokenTTL  time.Duration
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Admin     Admin     `json:"admin"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewService constructs a Service with defaults for unset fields.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "boutique-api"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "boutique-admin"
	}
	skew := cfg.ClockSkew
	if skew < 0 {
		skew = 0
	}
	return &Service{
		store: cfg.Store,
		tokens: TokenValidator{
			Secret:    []byte(secret),
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: skew,
			Algorithm: jwa.HS256,
		},
		tokenTTL: ttl,
		now:      time.Now,
		verify:   VerifyPassword,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func invalidCredentials() *common.AppError {
	return common.NewAppError(common.CodeInvalidCredentials, "invalid username or password", http.StatusUnauthorized, nil)
}

func unauthorized(err error) *common.AppError {
	return common.NewAppError(common.CodeUnauthorized, "invalid or expired token", http.StatusUnauthorized, err)
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, common.ValidationFailed("username and password are required")
	}
	logger := zerolog.Ctx(ctx)

	creds, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_, _ = s.verify(password, unknownAdminHash())
			return LoginResult{}, invalidCredentials()
		}
		return LoginResult{}, fmt.Errorf("load admin: %w", err)
	}
	ok, err := s.verify(password, creds.PasswordHash)
	if err != nil {
		logger.Warn().Err(err).Str("admin_id", creds.Admin.ID).Msg("verify password")
		return LoginResult{}, invalidCredentials()
	}
	if !ok {
		return LoginResult{}, invalidCredentials()
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.tokens.Sign(creds.Admin.ID, now, expiresAt)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.store.RecordLogin(ctx, creds.Admin.ID, now); err != nil {
		logger.Warn().Err(err).Str("admin_id", creds.Admin.ID).Msg("record last login")
	} else {
		creds.Admin.LastLogin = &now
	}
	if NeedsRehash(creds.PasswordHash) {
		s.upgradeHash(ctx, creds.Admin.ID, password)
	}
	return LoginResult{Admin: creds.Admin, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) upgradeHash(ctx context.Context, id, password string) {
	logger := zerolog.Ctx(ctx)
	hash, err := HashPassword(password)
	if err != nil {
		logger.Warn().Err(err).Str("admin_id", id).Msg("rehash password")
		return
	}
	if err := s.store.UpdatePasswordHash(ctx, id, hash); err != nil {
		logger.Warn().Err(err).Str("admin_id", id).Msg("store upgraded password hash")
		return
	}
	logger.Info().Str("admin_id", id).Msg("password hash upgraded to argon2id")
}

// ParseAccessToken validates token and returns the admin id it was issued for.
func (s *Service) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError(common.CodeUnauthorized, "missing token", http.StatusUnauthorized, nil)
	}
	parsed, err := s.tokens.Parse(trimmed, s.now())
	if err != nil {
		return "", unauthorized(err)
	}
	return parsed.Subject(), nil
}

// Me returns the admin identified by id.
func (s *Service) Me(ctx context.Context, id string) (Admin, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Admin{}, unauthorized(err)
		}
		return Admin{}, fmt.Errorf("load admin: %w", err)
	}
	return a, nil
}

// CreateAdmin registers a new admin with an argon2id password hash.
func (s *Service) CreateAdmin(ctx context.Context, username, name, password string) (Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Admin{}, common.ValidationFailed("username is required", common.FieldError{Field: "username", Rule: "required"})
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Admin{}, common.ValidationFailed(err.Error(), common.FieldError{Field: "password", Rule: "min", Param: fmt.Sprint(MinPasswordLength)})
	}
	a, err := s.store.Create(ctx, username, strings.TrimSpace(name), "admin", hash)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return Admin{}, common.Conflict("username already exists", err)
		}
		return Admin{}, err
	}
	return a, nil
}
