package certview

import "encoding/json"

// Filter is a single field predicate in the listing request.
type Filter struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Operator string `json:"operator"`
}

// FilterClause combines filters; CertView only supports AND here.
type FilterClause struct {
	Filters   []Filter `json:"filters"`
	Operation string   `json:"operation"`
}

// ListCertificatesRequest is the JSON payload POSTed to the listing
// endpoint for one page.
type ListCertificatesRequest struct {
	Filter     FilterClause `json:"filter"`
	PageNumber int          `json:"pageNumber"`
	PageSize   int          `json:"pageSize"`
	Includes   []string     `json:"includes"`
	AssetType  string       `json:"assetType"`
}

// NewListCertificatesRequest builds the standard single-filter request
// on certificate.type.
func NewListCertificatesRequest(filterValue string, pageNumber, pageSize int, includes []string, assetType string) ListCertificatesRequest {
	return ListCertificatesRequest{
		Filter: FilterClause{
			Filters: []Filter{
				{Field: "certificate.type", Value: filterValue, Operator: "EQUALS"},
			},
			Operation: "AND",
		},
		PageNumber: pageNumber,
		PageSize:   pageSize,
		Includes:   includes,
		AssetType:  assetType,
	}
}

// CertificatePayload is one certificate object in a listing response.
// Substructures the sync does not interpret stay as raw JSON.
type CertificatePayload struct {
	ID                 *int64 `json:"id"`
	CertHash           string `json:"certhash"`
	SerialNumber       string `json:"serialNumber"`
	DN                 string `json:"dn"`
	Type               string `json:"type"`
	SignatureAlgorithm string `json:"signatureAlgorithm"`
	KeySize            int    `json:"keySize"`
	SelfSigned         bool   `json:"selfSigned"`
	ExtendedValidation bool   `json:"extendedValidation"`

	ValidFromDate string `json:"validFromDate"`
	ValidToDate   string `json:"validToDate"`
	CreatedDate   string `json:"createdDate"`
	UpdateDate    string `json:"updateDate"`

	IssuerCategory string `json:"issuerCategory"`
	InstanceCount  *int   `json:"instanceCount"`
	AssetCount     *int   `json:"assetCount"`

	Sources json.RawMessage `json:"sources"`
	Subject json.RawMessage `json:"subject"`
	Issuer  json.RawMessage `json:"issuer"`

	Assets []AssetPayload `json:"assets"`
}

// AssetPayload is one asset object nested under a certificate.
type AssetPayload struct {
	ID              *int64 `json:"id"`
	UUID            string `json:"uuid"`
	Name            string `json:"name"`
	NetbiosName     string `json:"netbiosName"`
	OperatingSystem string `json:"operatingSystem"`
	PrimaryIP       string `json:"primaryIp"`

	HostInstances   json.RawMessage `json:"hostInstances"`
	AssetInterfaces json.RawMessage `json:"assetInterfaces"`
}
