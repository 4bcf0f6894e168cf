package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	applog "gestorebinder/internal/log"
	"gestorebinder/internal/sessionstore"
	"gestorebinder/internal/storage"
)

// SessionCookie carries the signed session token.
const SessionCookie = "gestorebinder_session"

const issuer = "gestorebinder"

var (
	errNoSession      = errors.New("no session")
	errRevokedSession = errors.New("session revoked")
)

type contextKey string

const userIDKey contextKey = "user_id"

// sessionClaims are the JWT claims of a session cookie. Subject holds the
// user id, ID a random token id used for revocation.
type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator issues and checks session cookies.
type Authenticator struct {
	users    storage.Store
	sessions sessionstore.Store
	secret   []byte
	ttl      time.Duration
	secure   bool
	now      func() time.Time
	logger   *applog.Logger
}

func newAuthenticator(users storage.Store, sessions sessionstore.Store, secret string, ttl time.Duration, secure bool, logger *applog.Logger) *Authenticator {
	return &Authenticator{
		users:    users,
		sessions: sessions,
		secret:   []byte(secret),
		ttl:      ttl,
		secure:   secure,
		now:      time.Now,
		logger:   logger.WithComponent(applog.ComponentAuth),
	}
}

// HashPassword hashes a password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// SeedUser creates the user unless it already exists.
func SeedUser(ctx context.Context, users storage.Store, username, password string) error {
	if _, err := users.UserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := users.CreateUser(ctx, username, hash); err != nil && !errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("seed user %s: %w", username, err)
	}
	return nil
}

// verify checks credentials. Unknown users and wrong passwords look the same.
func (a *Authenticator) verify(ctx context.Context, username, password string) (storage.User, bool, error) {
	u, err := a.users.UserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, false, nil
	}
	if err != nil {
		return storage.User{}, false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return storage.User{}, false, nil
	}
	return u, true, nil
}

func (a *Authenticator) issue(u storage.User) (*http.Cookie, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := sessionClaims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func (a *Authenticator) clearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// parse validates the cookie signature and expiry. It does not consult the
// revocation store.
func (a *Authenticator) parse(r *http.Request) (*sessionClaims, error) {
	ck, err := r.Cookie(SessionCookie)
	if err != nil || ck.Value == "" {
		return nil, errNoSession
	}
	claims := &sessionClaims{}
	_, err = jwt.ParseWithClaims(ck.Value, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *Authenticator) authenticate(r *http.Request) (int64, error) {
	claims, err := a.parse(r)
	if err != nil {
		return 0, err
	}
	revoked, err := a.sessions.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		return 0, err
	}
	if revoked {
		return 0, errRevokedSession
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session subject: %w", err)
	}
	return id, nil
}

// revoke records the token id until the token would expire.
func (a *Authenticator) revoke(ctx context.Context, claims *sessionClaims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	return a.sessions.Revoke(ctx, claims.ID, claims.ExpiresAt.Sub(a.now()))
}

// RequireSession rejects requests without a valid session with 401 and
// stores the user id in the request context.
func (a *Authenticator) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.authenticate(r)
		if err != nil {
			if !errors.Is(err, errNoSession) {
				a.logger.DebugContext(r.Context(), "Session rejected", applog.FieldError, err)
			}
			writeError(w, http.StatusUnauthorized, "Non autenticato")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		logger := applog.FromContext(ctx).With(applog.FieldUserID, userID)
		next.ServeHTTP(w, r.WithContext(applog.NewContext(ctx, logger)))
	})
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
