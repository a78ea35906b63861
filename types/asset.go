package types

import "time"

// Asset is a host seen carrying a certificate. Identity is the
// composite (certificate id, CertView asset id); rows are updated in
// place on later sightings and never deleted by sync.
type Asset struct {
	ID            int64 `gorm:"primary_key" json:"id"`
	CertificateID int64 `gorm:"not null;uniqueIndex:uq_asset_per_cert" json:"certificate_id"`
	AssetID       int64 `gorm:"not null;index;uniqueIndex:uq_asset_per_cert" json:"asset_id"`

	UUID            string `gorm:"index" json:"uuid"`
	Name            string `gorm:"index" json:"name"`
	NetbiosName     string `gorm:"index" json:"netbios_name"`
	OperatingSystem string `json:"operating_system"`
	PrimaryIP       string `gorm:"index" json:"primary_ip"`

	HostInstancesJSON   *string `gorm:"type:text" json:"host_instances_json"`
	AssetInterfacesJSON *string `gorm:"type:text" json:"asset_interfaces_json"`

	InsertedAt time.Time `json:"inserted_at"`
}
