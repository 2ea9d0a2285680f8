package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"

	"omnia/internal/domain"
	"omnia/internal/domain/models"
	"omnia/internal/logging"
	"omnia/internal/repositories"
	"omnia/internal/utils"
)

var errBadCredentials = domain.UnauthorizedError{Msg: "invalid username or password"}

// Claims of a session token. The registered ID is the session id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Role   string `json:"role"`
}

// AuthResult is returned by a successful sign-in.
type AuthResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      models.PublicUser `json:"user"`
}

// Identity is what a valid session token resolves to.
type Identity struct {
	SessionID string
	User      models.PublicUser
}

// identityCacheTTL bounds how long ResolveToken may serve a cached identity.
const identityCacheTTL = 30 * time.Second

// AuthService signs users in and resolves session tokens. Resolved
// identities are cached for up to identityCacheTTL, so a session deleted or a
// user disabled outside this process is still accepted until the entry
// expires. SignOut evicts its own session immediately.
type AuthService struct {
	Users    repositories.UserRepository
	Sessions repositories.SessionRepository
	Log      logging.Logger

	secret   []byte
	ttl      time.Duration
	cache    *expirable.LRU[string, Identity]
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthService(users repositories.UserRepository, sessions repositories.SessionRepository, secret string, ttl time.Duration, log logging.Logger) *AuthService {
	cacheTTL := min(ttl, identityCacheTTL)
	return &AuthService{
		Users:    users,
		Sessions: sessions,
		Log:      log,
		secret:   []byte(secret),
		ttl:      ttl,
		cache:    expirable.NewLRU[string, Identity](1024, nil, cacheTTL),
		validate: newValidator(),
		now:      utils.NowUTC,
	}
}

// SignIn checks the credentials and opens a new session.
func (s *AuthService) SignIn(ctx context.Context, in models.SignInInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if fe := fieldErrors(s.validate.Struct(in)); len(fe) > 0 {
		return AuthResult{}, fe
	}

	u, err := s.Users.GetByLogin(ctx, in.Username)
	if domain.IsNotFound(err) {
		// Spend the same time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(in.Password))
		return AuthResult{}, errBadCredentials
	}
	if err != nil {
		return AuthResult{}, domain.InternalError{Msg: "could not sign in", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		s.Log.Warn(ctx, "sign-in rejected", "username", in.Username)
		return AuthResult{}, errBadCredentials
	}
	if u.Status == string(domain.UserDisabled) {
		return AuthResult{}, domain.UnauthorizedError{Msg: "account disabled"}
	}

	now := s.now()
	sess := models.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return AuthResult{}, domain.InternalError{Msg: "could not sign in", Err: err}
	}

	token, err := s.sign(sess, u.Role)
	if err != nil {
		return AuthResult{}, domain.InternalError{Msg: "could not sign in", Err: err}
	}
	pub := u.ToPublic()
	s.cache.Add(sess.ID, Identity{SessionID: sess.ID, User: pub})
	s.Log.Info(ctx, "signed in", "user_id", u.ID, "session_id", sess.ID)
	return AuthResult{Token: token, ExpiresAt: sess.ExpiresAt, User: pub}, nil
}

// SignOut ends the session behind token. Unknown or expired tokens are not
// an error.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	s.cache.Remove(claims.ID)
	if err := s.Sessions.Delete(ctx, claims.ID); err != nil {
		return domain.InternalError{Msg: "could not sign out", Err: err}
	}
	s.Log.Info(ctx, "signed out", "user_id", claims.UserID, "session_id", claims.ID)
	return nil
}

// ResolveToken returns the identity behind token. Invalid, expired and
// revoked tokens yield a domain.UnauthorizedError.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return Identity{}, domain.UnauthorizedError{Msg: "invalid session", Err: err}
	}
	if id, ok := s.cache.Get(claims.ID); ok {
		return id, nil
	}

	sess, err := s.Sessions.Get(ctx, claims.ID)
	if domain.IsNotFound(err) {
		return Identity{}, domain.UnauthorizedError{Msg: "session revoked", Err: err}
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(s.now()) {
		return Identity{}, domain.UnauthorizedError{Msg: "session expired"}
	}

	u, err := s.Users.GetByID(ctx, sess.UserID)
	if domain.IsNotFound(err) {
		return Identity{}, domain.UnauthorizedError{Msg: "user no longer exists", Err: err}
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load user: %w", err)
	}
	if u.Status == string(domain.UserDisabled) {
		return Identity{}, domain.UnauthorizedError{Msg: "account disabled"}
	}

	id := Identity{SessionID: sess.ID, User: u.ToPublic()}
	s.cache.Add(sess.ID, id)
	return id, nil
}

// Register creates an editor account.
func (s *AuthService) Register(ctx context.Context, in models.RegisterInput) (models.PublicUser, error) {
	in.Name = utils.NormalizeSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if fe := fieldErrors(s.validate.Struct(in)); len(fe) > 0 {
		return models.PublicUser{}, fe
	}
	u, err := s.newUser(in.Name, in.Username, in.Email, in.Password, domain.RoleEditor)
	if err != nil {
		return models.PublicUser{}, err
	}
	if err := s.Users.Create(ctx, &u); err != nil {
		return models.PublicUser{}, err
	}
	s.Log.Info(ctx, "user registered", "user_id", u.ID, "username", u.Username)
	return u.ToPublic(), nil
}

// SeedAdmin creates the admin account unless the username is taken.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) error {
	if _, err := s.Users.GetByLogin(ctx, username); err == nil {
		return nil
	} else if !domain.IsNotFound(err) {
		return err
	}
	u, err := s.newUser("Administrator", username, username+"@localhost", password, domain.RoleAdmin)
	if err != nil {
		return err
	}
	return s.Users.Create(ctx, &u)
}

// PurgeExpired deletes sessions past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Sessions.DeleteExpired(ctx, s.now())
}

func (s *AuthService) newUser(name, username, email, password string, role domain.Role) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, domain.InternalError{Msg: "could not hash password", Err: err}
	}
	now := s.now()
	return models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(role),
		Status:       string(domain.UserActive),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *AuthService) sign(sess models.Session, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		UserID: sess.UserID,
		Role:   role,
	})
	return token.SignedString(s.secret)
}

func (s *AuthService) parse(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("empty token")
	}
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !t.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// dummyHash is compared against when the user does not exist.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("omnia-placeholder"), bcrypt.DefaultCost)
