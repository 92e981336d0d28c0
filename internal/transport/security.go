package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/dtroode/console-auth/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// TLSLayer represents TLS transport credentials for the identity service connection.
// It verifies the server against the system roots or a provided CA certificate.
type TLSLayer struct {
	caCertFileName string
}

// NewTLSLayer creates a new TLSLayer instance.
// An empty caCertFileName uses the system roots.
//
// Parameters:
//   - caCertFileName: Path to a PEM CA certificate file, may be empty
//
// Returns a pointer to the newly created TLSLayer instance.
func NewTLSLayer(caCertFileName string) *TLSLayer {
	return &TLSLayer{caCertFileName: caCertFileName}
}

// DialOption returns TLS transport credentials.
// It loads the CA certificate when one is configured.
//
// Returns a dial option or an error if the CA certificate cannot be loaded.
func (l *TLSLayer) DialOption() (grpc.DialOption, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if l.caCertFileName != "" {
		pem, err := os.ReadFile(l.caCertFileName)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA certificate %s", l.caCertFileName)
		}
		tlsConfig.RootCAs = pool
	}

	return grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)), nil
}

// PlainLayer represents unencrypted transport for local development.
type PlainLayer struct{}

// NewPlainLayer creates a new PlainLayer instance.
//
// Returns a pointer to the newly created PlainLayer instance.
func NewPlainLayer() *PlainLayer {
	return &PlainLayer{}
}

// DialOption returns insecure transport credentials.
//
// Returns a dial option; the error is always nil.
func (l *PlainLayer) DialOption() (grpc.DialOption, error) {
	return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
}

// Resolve maps a base URL to a dial target and the security layer matching its scheme.
//
// Parameters:
//   - baseURL: The identity service URL, http or https
//   - caCertFileName: Path to a PEM CA certificate file used for https, may be empty
//
// Returns the dial target, the security layer, or an error for an unusable URL.
func Resolve(baseURL, caCertFileName string) (string, model.SecurityLayer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if u.Host == "" {
		return "", nil, fmt.Errorf("base URL %q has no host", baseURL)
	}

	switch u.Scheme {
	case "https":
		return hostPort(u, "443"), NewTLSLayer(caCertFileName), nil
	case "http":
		return hostPort(u, "80"), NewPlainLayer(), nil
	default:
		return "", nil, fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
}

func hostPort(u *url.URL, defaultPort string) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), defaultPort)
}
