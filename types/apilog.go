package types

import "time"

// APILog is one row per page-fetch attempt. The row is committed before
// the network call goes out, so even a total failure leaves a record,
// and is updated with the outcome afterwards. Rows are never deleted.
type APILog struct {
	ID         int64  `gorm:"primary_key" json:"id"`
	Endpoint   string `gorm:"not null" json:"endpoint"`
	PageNumber int    `gorm:"not null" json:"page_number"`
	PageSize   int    `gorm:"not null" json:"page_size"`
	PageRange  string `gorm:"not null" json:"page_range"`
	StatusCode *int   `json:"status_code"`

	RequestBodyJSON string  `gorm:"type:text;not null" json:"request_body_json"`
	ResponseCount   *int    `json:"response_count"`
	ErrorMessage    *string `gorm:"type:text" json:"error_message"`

	// SyncRunID groups the pages of a single sync invocation.
	SyncRunID string `gorm:"index" json:"sync_run_id"`

	CreatedAt time.Time `json:"created_at"`
}
