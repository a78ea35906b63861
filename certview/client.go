package certview

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/certsync/certsync/utils"
	"github.com/pkg/errors"
)

// ListCertificatesPath is the listing endpoint, recorded verbatim on
// every audit log row.
const ListCertificatesPath = "/certview/v1/certificates"

// ErrClientNotInitialized - when the CertView client hasn't been initialized
var ErrClientNotInitialized = errors.New("CertView client not initialized")

// TokenProvider supplies the bearer credential attached to every
// listing request.
type TokenProvider interface {
	GetValidToken() (string, error)
}

// CertViewClient issues one request per logical page of certificates.
type CertViewClient interface {
	ListCertificates(payload ListCertificatesRequest) (*PageResult, error)
}

// PageResult is the raw outcome of one page fetch. The sync loop owns
// the decision table over status code and body shape, so the client
// reports both without interpreting them.
type PageResult struct {
	StatusCode int
	Body       []byte
}

type APIClient struct {
	baseURL string
	tokens  TokenProvider
	client  *http.Client
}

// certViewClient holds the global client instance
var certViewClient CertViewClient

// InitClient initializes the global CertView client.
func InitClient(baseURL string, tokens TokenProvider, timeout time.Duration) {
	certViewClient = &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  utils.NewHTTPClient(timeout),
	}
}

// SetClientForTesting allows injecting a mock client for testing
func SetClientForTesting(client CertViewClient) {
	certViewClient = client
}

// Client returns the global CertView client instance.
// Returns ErrClientNotInitialized if InitClient hasn't been called.
func Client() (CertViewClient, error) {
	if certViewClient == nil {
		return nil, ErrClientNotInitialized
	}
	return certViewClient, nil
}

func (c *APIClient) buildURL(endpoint string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse base URL")
	}
	u.Path = path.Join(u.Path, endpoint)
	return u.String(), nil
}

// ListCertificates POSTs the page request with a bearer token obtained
// from the token provider. Transport failures and token failures come
// back as errors; any HTTP status is a result.
func (c *APIClient) ListCertificates(payload ListCertificatesRequest) (*PageResult, error) {
	urlString, err := c.buildURL(ListCertificatesPath)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal list request")
	}

	token, err := c.tokens.GetValidToken()
	if err != nil {
		return nil, errors.Wrap(err, "obtain token")
	}

	req, err := http.NewRequest("POST", urlString, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build list request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "execute list request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read list response body")
	}

	return &PageResult{StatusCode: resp.StatusCode, Body: respBody}, nil
}
