package server

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/songseeker/internal/shared"
)

const (
	// CookieName is the session cookie set on login.
	CookieName = "songseeker_auth"
	// SessionTTL is how long a session cookie stays valid.
	SessionTTL = 30 * 24 * time.Hour

	issuer = "songseeker"
)

// SessionClaims are the JWT claims carried by the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// Authenticator checks htpasswd credentials and issues session tokens.
type Authenticator struct {
	htpasswdPath string
	secret       []byte
	logger       *log.Logger
	now          func() time.Time

	once    sync.Once
	users   map[string]string
	loadErr error
}

// NewAuthenticator creates an [Authenticator]. The htpasswd file is read on first use.
func NewAuthenticator(htpasswdPath string, secret []byte, logger *log.Logger) *Authenticator {
	return &Authenticator{
		htpasswdPath: htpasswdPath,
		secret:       secret,
		logger:       logger,
		now:          time.Now,
	}
}

// ParseHtpasswd reads `user:hash` lines. Blank lines and lines without a colon are skipped.
func ParseHtpasswd(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open htpasswd: %w", err)
	}
	defer f.Close()

	users := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		user, hash, ok := strings.Cut(line, ":")
		if !ok || user == "" {
			continue
		}
		users[user] = hash
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read htpasswd: %w", err)
	}
	return users, nil
}

func (a *Authenticator) loadUsers() map[string]string {
	a.once.Do(func() {
		a.users, a.loadErr = ParseHtpasswd(a.htpasswdPath)
		if a.loadErr != nil {
			a.logger.Error("htpasswd unavailable", "path", a.htpasswdPath, "error", a.loadErr)
			return
		}
		if len(a.users) == 0 {
			a.loadErr = fmt.Errorf("%w: %s", shared.ErrMissingPassword, a.htpasswdPath)
			a.logger.Warn("htpasswd has no entries", "path", a.htpasswdPath)
			return
		}
		a.logger.Info("loaded htpasswd", "users", len(a.users))
	})
	return a.users
}

// CheckPassword reports whether username and password match a bcrypt htpasswd entry.
func (a *Authenticator) CheckPassword(username, password string) bool {
	if username == "" || password == "" {
		return false
	}

	hash, ok := a.loadUsers()[username]
	if !ok || !strings.HasPrefix(hash, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a session token for username.
func (a *Authenticator) IssueToken(username string) (string, error) {
	now := a.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns its subject.
func (a *Authenticator) ParseToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", shared.ErrInvalidSession)
	}

	var claims SessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", fmt.Errorf("%w: %v", shared.ErrSessionExpired, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", shared.ErrInvalidSession)
	}
	return claims.Subject, nil
}

// SessionUser returns the user of the request's session cookie.
func (a *Authenticator) SessionUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	user, err := a.ParseToken(cookie.Value)
	if err != nil {
		return "", false
	}
	return user, true
}

// SessionCookie builds the cookie carrying token. An empty token clears the session.
func SessionCookie(token string) *http.Cookie {
	maxAge := int(SessionTTL.Seconds())
	if token == "" {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
