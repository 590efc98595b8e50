package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "rinde:session:"

// SessionManager keeps sessions in Redis behind a signed cookie. The cookie
// carries "<id>.<mac>" so forged ids never reach Redis.
type SessionManager struct {
	client     redis.UniversalClient
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session is the per-request view of a stored session.
type Session struct {
	ID             string
	values         map[string]string
	userID         string
	activeLocation int64
	previousID     string
	isNew          bool
	dirty          bool
	destroyed      bool
}

type sessionPayload struct {
	UserID         string            `json:"user_id,omitempty"`
	ActiveLocation int64             `json:"active_location,omitempty"`
	Values         map[string]string `json:"values,omitempty"`
}

// NewSessionManager constructs a SessionManager. secret signs session cookies.
func NewSessionManager(client redis.UniversalClient, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load returns the session named by the request cookie, or a fresh one when
// the cookie is absent, badly signed or expired server side.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, err
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return sm.newSession(), nil
	}

	raw, err := sm.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	if stored.Values == nil {
		stored.Values = make(map[string]string)
	}
	return &Session{
		ID:             id,
		values:         stored.Values,
		userID:         stored.UserID,
		activeLocation: stored.ActiveLocation,
	}, nil
}

// Commit persists changes and refreshes the cookie. Untouched sessions only
// have their TTL extended.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		keys := []string{sessionKeyPrefix + sess.ID}
		if sess.previousID != "" {
			keys = append(keys, sessionKeyPrefix+sess.previousID)
		}
		if err := sm.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}

	if sess.dirty || sess.isNew || sess.previousID != "" {
		data, err := json.Marshal(sessionPayload{
			UserID:         sess.userID,
			ActiveLocation: sess.activeLocation,
			Values:         sess.values,
		})
		if err != nil {
			return err
		}
		_, err = sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKeyPrefix+sess.ID, data, sm.ttl)
			if sess.previousID != "" {
				pipe.Del(ctx, sessionKeyPrefix+sess.previousID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		sess.dirty, sess.isNew, sess.previousID = false, false, ""
	} else if err := sm.client.Expire(ctx, sessionKeyPrefix+sess.ID, sm.ttl).Err(); err != nil {
		return err
	}

	http.SetCookie(w, sm.cookie(sm.sign(sess.ID), int(sm.ttl.Seconds())))
	return nil
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (sm *SessionManager) mac(id string) string {
	h := hmac.New(sha256.New, sm.secret)
	_, _ = h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) sign(id string) string {
	return id + "." + sm.mac(id)
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, mac, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(mac), []byte(sm.mac(id)))
}

func (sm *SessionManager) newSession() *Session {
	return &Session{ID: uuid.NewString(), values: make(map[string]string), isNew: true}
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	delete(s.values, key)
	s.dirty = true
}

// SetUser binds the session to a user.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the raw user id.
func (s *Session) User() string {
	if s == nil {
		return ""
	}
	return s.userID
}

// UserID parses the session user as a numeric id.
func (s *Session) UserID() (int64, bool) {
	if s == nil || s.userID == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s.userID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetActiveLocation binds the session to a location.
func (s *Session) SetActiveLocation(id int64) {
	s.activeLocation = id
	s.dirty = true
}

// ActiveLocation returns the location bound to the session, if any.
func (s *Session) ActiveLocation() (int64, bool) {
	if s == nil || s.activeLocation <= 0 {
		return 0, false
	}
	return s.activeLocation, true
}

// Clear drops the user, the active location and every stored value.
func (s *Session) Clear() {
	s.userID = ""
	s.activeLocation = 0
	s.values = make(map[string]string)
	s.dirty = true
}

// Renew moves the session to a new id. The old key is removed on commit.
func (s *Session) Renew() {
	if s.previousID == "" && !s.isNew {
		s.previousID = s.ID
	}
	s.ID = uuid.NewString()
	s.dirty = true
}
