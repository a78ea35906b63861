package types

import "time"

// Certificate is one row of CertView certificate inventory. The primary
// key is assigned by CertView, never generated locally.
type Certificate struct {
	ID                 int64  `gorm:"primary_key" json:"id"`
	CertHash           string `gorm:"index" json:"certhash"`
	SerialNumber       string `gorm:"index" json:"serial_number"`
	DN                 string `gorm:"index" json:"dn"`
	CertType           string `gorm:"index" json:"cert_type"`
	SignatureAlgorithm string `json:"signature_algorithm"`
	KeySize            int    `json:"key_size"`
	SelfSigned         bool   `json:"self_signed"`
	ExtendedValidation bool   `json:"extended_validation"`

	ValidFromDate *time.Time `json:"valid_from_date"`
	ValidToDate   *time.Time `json:"valid_to_date"`
	CreatedDate   *time.Time `json:"created_date"`
	UpdateDate    *time.Time `json:"update_date"`

	IssuerCategory string `json:"issuer_category"`
	InstanceCount  *int   `json:"instance_count"`
	AssetCount     *int   `json:"asset_count"`

	// Upstream substructures stored verbatim as serialized JSON.
	SourcesJSON *string `gorm:"type:text" json:"sources_json"`
	SubjectJSON *string `gorm:"type:text" json:"subject_json"`
	IssuerJSON  *string `gorm:"type:text" json:"issuer_json"`

	// PageRange records which sync page last wrote this row, e.g. "0-99".
	PageRange string `gorm:"not null" json:"page_range"`

	// MappedToInventory is owned by the inventory mapping workflow.
	// Sync initializes it to false on first sight and never touches it
	// again.
	MappedToInventory bool `json:"mapped_to_inventory"`

	InsertedAt time.Time `json:"inserted_at"`

	Assets []Asset `gorm:"foreignKey:CertificateID;constraint:OnDelete:CASCADE" json:"assets,omitempty"`
}
