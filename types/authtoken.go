package types

import "time"

// AuthToken is one credential issuance from the auth gateway. At most
// one row is valid at a time; issuing a new token invalidates all prior
// valid rows. Failed issuance attempts are kept with Valid false and an
// error message for auditing.
type AuthToken struct {
	ID         int64     `gorm:"primary_key" json:"id"`
	TokenValue string    `gorm:"type:text;not null" json:"-"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt  time.Time `gorm:"not null" json:"expires_at"`
	Valid      bool      `gorm:"not null" json:"valid"`

	AuthURL      string  `json:"auth_url"`
	StatusCode   *int    `json:"status_code"`
	ErrorMessage *string `gorm:"type:text" json:"error_message"`
}
