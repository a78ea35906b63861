package syncer

import (
	"encoding/json"
	intErrors "errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/certsync/certsync/types"
	"github.com/certsync/certsync/utils"
	"github.com/pkg/errors"
	"gopkg.in/ajg/form.v1"
	"gorm.io/gorm"
)

// TokenLifetime is deliberately under the provider's stated four-hour
// token life.
const TokenLifetime = 3*time.Hour + 55*time.Minute

const maxErrorBodyLen = 2000

type authCredentials struct {
	Username    string `form:"username"`
	Password    string `form:"password"`
	Token       string `form:"token"`
	Permissions string `form:"permissions"`
}

// TokenStore persists and serves the single currently-valid bearer
// credential, refreshing it from the auth gateway when the stored one
// is missing or expired. Expiry is fixed lazily on read rather than by
// a background sweep. The mutex keeps refresh single-flight so
// concurrent callers never both write valid rows.
type TokenStore struct {
	DB       *gorm.DB
	AuthURL  string
	Username string
	Password string
	Client   *http.Client

	// Now is the clock; tests inject fixed times here.
	Now func() time.Time

	mu sync.Mutex
}

func NewTokenStore(db *gorm.DB, authURL, username, password string, timeout time.Duration) *TokenStore {
	return &TokenStore{
		DB:       db,
		AuthURL:  authURL,
		Username: username,
		Password: password,
		Client:   utils.NewHTTPClient(timeout),
		Now:      time.Now,
	}
}

// GetValidToken returns the newest stored token if it is still valid,
// marking it invalid first if its expiry has passed. Otherwise it
// refreshes from the auth gateway.
func (s *TokenStore) GetValidToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now().UTC()

	var row types.AuthToken
	err := s.DB.Order("id desc").First(&row).Error
	if err == nil {
		if row.Valid && !row.ExpiresAt.After(now) {
			err := s.DB.Model(&types.AuthToken{}).
				Where("id = ?", row.ID).
				Update("valid", false).
				Error
			if err != nil {
				return "", errors.Wrap(err, "invalidate expired token")
			}
			row.Valid = false
		}
		if row.Valid {
			return row.TokenValue, nil
		}
	} else if !intErrors.Is(err, gorm.ErrRecordNotFound) {
		return "", errors.Wrap(err, "look up newest token")
	}

	return s.refresh(now)
}

// refresh requests a new token, invalidates all prior valid rows and
// inserts the new one in a single transaction. Failed attempts are
// persisted with Valid false for auditing and never used as
// credentials.
func (s *TokenStore) refresh(now time.Time) (string, error) {
	if s.Username == "" || s.Password == "" {
		return "", &AuthError{Msg: "username / password not set"}
	}

	creds := authCredentials{
		Username:    s.Username,
		Password:    s.Password,
		Token:       "true",
		Permissions: "true",
	}
	encoded, err := form.EncodeToValues(creds)
	if err != nil {
		return "", errors.Wrap(err, "encode credentials")
	}

	req, err := http.NewRequest("POST", s.AuthURL, strings.NewReader(encoded.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build auth request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", &TransportError{Err: errors.Wrap(err, "auth gateway")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: errors.Wrap(err, "read auth response")}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := "Auth failed: " + truncateBody(body)
		s.recordFailedAttempt(now, resp.StatusCode, msg)
		return "", &AuthError{StatusCode: resp.StatusCode, Msg: truncateBody(body)}
	}

	token := parseTokenFromResponse(body)
	if token == "" {
		msg := "Could not parse token from auth response: " + truncateBody(body)
		s.recordFailedAttempt(now, resp.StatusCode, msg)
		return "", &AuthError{StatusCode: resp.StatusCode, Msg: msg}
	}

	statusCode := resp.StatusCode
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&types.AuthToken{}).
			Where("valid = ?", true).
			Update("valid", false).
			Error
		if err != nil {
			return errors.Wrap(err, "invalidate previous tokens")
		}

		row := types.AuthToken{
			TokenValue: token,
			CreatedAt:  now,
			ExpiresAt:  now.Add(TokenLifetime),
			Valid:      true,
			AuthURL:    s.AuthURL,
			StatusCode: &statusCode,
		}
		return errors.Wrap(tx.Create(&row).Error, "store token")
	})
	if err != nil {
		return "", err
	}

	TokenRefreshes.Inc()
	DebugLogger(LogHolder{Message: "Refreshed auth token", Endpoint: s.AuthURL})

	return token, nil
}

func (s *TokenStore) recordFailedAttempt(now time.Time, statusCode int, msg string) {
	row := types.AuthToken{
		TokenValue:   "",
		CreatedAt:    now,
		ExpiresAt:    now,
		Valid:        false,
		AuthURL:      s.AuthURL,
		StatusCode:   &statusCode,
		ErrorMessage: &msg,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		ErrorLogger(LogHolder{Message: errors.Wrap(err, "record failed auth attempt").Error()})
	}
}

// tokenStrategies are tried in order; the first non-empty result wins.
// The gateway has been seen returning the token under several JSON keys
// and occasionally as a bare JWT body.
var tokenStrategies = []func(body []byte) string{
	jsonStringField("token"),
	jsonStringField("access_token"),
	jsonStringField("jwt"),
	jsonNestedField("data", "token"),
	bareJWTBody,
}

func parseTokenFromResponse(body []byte) string {
	for _, strategy := range tokenStrategies {
		if token := strategy(body); token != "" {
			return token
		}
	}
	return ""
}

func jsonStringField(key string) func([]byte) string {
	return func(body []byte) string {
		var parsed map[string]json.RawMessage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return ""
		}
		var value string
		if err := json.Unmarshal(parsed[key], &value); err != nil {
			return ""
		}
		return value
	}
}

func jsonNestedField(outer, inner string) func([]byte) string {
	return func(body []byte) string {
		var parsed map[string]json.RawMessage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return ""
		}
		return jsonStringField(inner)(parsed[outer])
	}
}

// bareJWTBody accepts the raw body as the token only if it duck-types
// as a JWT: exactly two dot separators and longer than 50 bytes.
func bareJWTBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if strings.Count(text, ".") == 2 && len(text) > 50 {
		return text
	}
	return ""
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBodyLen {
		return string(body[:maxErrorBodyLen])
	}
	return string(body)
}
