package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"net/http"

	"goodhabits/apperr"
	"goodhabits/config"
	"goodhabits/models"

	"github.com/gorilla/sessions"
)

var Store *sessions.CookieStore

const SessionName = "goodhabits-session"

const (
	usernameKey = "username"
	noticeKey   = "notices"
)

// Notice is a one-shot message tied to a habit, shown after the redirect
// that follows a track or reset.
type Notice struct {
	HabitID int64
	Kind    string // success, info or warning
	Text    string
}

func init() {
	gob.Register(Notice{})
}

func InitStore() {
	// Derive two 32-byte keys from the session key to ensure secure encryption
	// Auth key for signing (HMAC)
	authKey := sha256.Sum256([]byte(config.AppConfig.SessionKey + "auth"))
	// Encryption key for content encryption (AES)
	encKey := sha256.Sum256([]byte(config.AppConfig.SessionKey + "encryption"))

	Store = sessions.NewCookieStore(authKey[:], encKey[:])

	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   config.AppConfig.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func GetUsername(r *http.Request) string {
	session, _ := Store.Get(r, SessionName)
	if name, ok := session.Values[usernameKey].(string); ok {
		return name
	}
	return ""
}

func SetSession(w http.ResponseWriter, r *http.Request, username string) error {
	session, _ := Store.Get(r, SessionName)
	session.Values[usernameKey] = username
	return session.Save(r, w)
}

func ClearSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := Store.Get(r, SessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func AddNotice(w http.ResponseWriter, r *http.Request, n Notice) error {
	session, _ := Store.Get(r, SessionName)
	session.AddFlash(n, noticeKey)
	return session.Save(r, w)
}

// PopNotices returns pending notices keyed by habit id and clears them. The
// notices are returned even when clearing them from the cookie fails.
func PopNotices(w http.ResponseWriter, r *http.Request) (map[int64]Notice, error) {
	session, _ := Store.Get(r, SessionName)
	flashes := session.Flashes(noticeKey)
	if len(flashes) == 0 {
		return nil, nil
	}
	out := make(map[int64]Notice, len(flashes))
	for _, f := range flashes {
		if n, ok := f.(Notice); ok {
			out[n.HabitID] = n
		}
	}
	return out, session.Save(r, w)
}

// Token-based auth for the JSON API and the browser extension. Only the
// sha256 of a token is stored.
type TokenStore interface {
	SaveAPIToken(ctx context.Context, tokenHash, username string) error
	LookupAPIToken(ctx context.Context, tokenHash string) (models.APISession, error)
}

func CreateAPIToken(ctx context.Context, ts TokenStore, username string) (string, error) {
	token := generateRandomToken(32)
	if err := ts.SaveAPIToken(ctx, HashToken(token), username); err != nil {
		return "", err
	}
	return token, nil
}

func GetAPISession(ctx context.Context, ts TokenStore, token string) (models.APISession, bool) {
	if token == "" {
		return models.APISession{}, false
	}
	sess, err := ts.LookupAPIToken(ctx, HashToken(token))
	if err != nil {
		return models.APISession{}, false
	}
	return sess, true
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRandomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// If we can't generate random numbers, the system is in a critical state.
		panic(fmt.Sprintf("critical security error: failed to generate random token: %v", err))
	}
	return base64.URLEncoding.EncodeToString(b)
}

const MinPasswordLength = 8

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	return nil
}
