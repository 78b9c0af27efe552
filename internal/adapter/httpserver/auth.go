package httpserver

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/fairyhunter13/ai-voice-studio/internal/config"
	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	obsctx "github.com/fairyhunter13/ai-voice-studio/internal/observability"
)

// SessionCookieName is the cookie carrying the signed session.
const SessionCookieName = "voice_session"

const sessionTTL = 24 * time.Hour

// Argon2Params defines parameters for Argon2id password hashing
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// DefaultArgon2Params are used by HashPassword callers such as account provisioning.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLen:     16,
	KeyLen:      32,
}

// HashPassword creates an Argon2id hash of the password.
// Format: argon2id$iterations$memory$parallelism$salt$hash (raw std base64).
func HashPassword(password string, params Argon2Params) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		params.Iterations,
		params.Memory,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword verifies a password against its Argon2id hash
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false
	}
	iters, err1 := parseUint32(parts[1])
	mem, err2 := parseUint32(parts[2])
	par64, err3 := parseUint32(parts[3])
	if err1 != nil || err2 != nil || err3 != nil || par64 == 0 || par64 > math.MaxUint8 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}
	actual := argon2.IDKey([]byte(password), salt, iters, mem, uint8(par64), uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

// SessionData represents session information
type SessionData struct {
	Username  string
	LoginTime time.Time
	ExpiresAt time.Time
}

// SessionManager issues HMAC-signed session cookies and checks account
// credentials configured through AUTH_ACCOUNTS.
type SessionManager struct {
	secret   []byte
	accounts map[string]string
	secure   bool
	sameSite http.SameSite
	now      func() time.Time
	// dummy is verified for unknown users so that lookups take similar time.
	dummy string
}

// NewSessionManager creates a new session manager
func NewSessionManager(cfg config.Config) *SessionManager {
	dummy, _ := HashPassword("unused", Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32})
	return &SessionManager{
		secret:   []byte(cfg.SessionSecret),
		accounts: cfg.AuthAccounts,
		secure:   !cfg.IsDev() && !cfg.IsTest(),
		sameSite: parseSameSite(cfg.SessionSameSite),
		now:      time.Now,
		dummy:    dummy,
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Authenticate checks username/password against the configured accounts.
func (sm *SessionManager) Authenticate(username, password string) bool {
	hash, ok := sm.accounts[username]
	if !ok {
		VerifyPassword(password, sm.dummy)
		return false
	}
	return VerifyPassword(password, hash)
}

// CreateSession creates a new session and returns the session cookie value
func (sm *SessionManager) CreateSession(username string) (string, error) {
	if username == "" || strings.ContainsAny(username, ":.") {
		return "", fmt.Errorf("%w: invalid username", domain.ErrInvalidArgument)
	}
	if len(sm.secret) == 0 {
		return "", fmt.Errorf("%w: session secret not configured", domain.ErrInternal)
	}
	now := sm.now()
	payload := fmt.Sprintf("%s:%d:%d", username, now.Unix(), now.Add(sessionTTL).Unix())
	return payload + "." + sm.sign(payload), nil
}

func (sm *SessionManager) sign(payload string) string {
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

var errInvalidSession = errors.New("invalid session")

// ValidateSession validates a session cookie value and returns session data
func (sm *SessionManager) ValidateSession(sessionValue string) (*SessionData, error) {
	payload, sig, ok := strings.Cut(sessionValue, ".")
	if !ok || payload == "" || len(sm.secret) == 0 {
		return nil, errInvalidSession
	}
	if !hmac.Equal([]byte(sig), []byte(sm.sign(payload))) {
		return nil, errInvalidSession
	}
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return nil, errInvalidSession
	}
	login, err1 := strconv.ParseInt(parts[1], 10, 64)
	expires, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		return nil, errInvalidSession
	}
	data := &SessionData{Username: parts[0], LoginTime: time.Unix(login, 0), ExpiresAt: time.Unix(expires, 0)}
	if sm.now().After(data.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired", errInvalidSession)
	}
	return data, nil
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, sessionValue string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: sm.sameSite,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

// ClearSessionCookie clears the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: sm.sameSite,
		MaxAge:   -1,
	})
}

// AuthRequired rejects requests without a valid session with a JSON 401
// and stores the user id in the request context.
func (sm *SessionManager) AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, fmt.Errorf("%w: login required", domain.ErrUnauthorized), nil)
			return
		}
		session, err := sm.ValidateSession(cookie.Value)
		if err != nil {
			sm.ClearSessionCookie(w)
			writeError(w, r, fmt.Errorf("%w: session is invalid or expired", domain.ErrUnauthorized), nil)
			return
		}
		ctx := obsctx.ContextWithUserID(r.Context(), session.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseUint32 parses a decimal string into uint32; returns error on failure
func parseUint32(s string) (uint32, error) {
	x, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	return uint32(x), nil
}

// FixedUser authenticates every request as userID. It is used in
// development when no accounts are configured.
func FixedUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(obsctx.ContextWithUserID(r.Context(), userID)))
		})
	}
}
