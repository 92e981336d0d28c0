package transport

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtroode/console-auth/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestCACertificate(t *testing.T, certFile string) {
	privateKey := testutil.DeviceKey(t)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test"},
			Country:      []string{"US"},
			Locality:     []string{"San Francisco"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certOut, err := os.Create(certFile)
	require.NoError(t, err)
	defer certOut.Close()

	err = pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	require.NoError(t, err)
}

func TestTLSLayer_DialOption(t *testing.T) {
	t.Parallel()

	t.Run("system roots", func(t *testing.T) {
		t.Parallel()

		opt, err := NewTLSLayer("").DialOption()
		require.NoError(t, err)
		assert.NotNil(t, opt)
	})

	t.Run("custom CA", func(t *testing.T) {
		t.Parallel()

		certFile := filepath.Join(t.TempDir(), "ca.pem")
		createTestCACertificate(t, certFile)

		opt, err := NewTLSLayer(certFile).DialOption()
		require.NoError(t, err)
		assert.NotNil(t, opt)
	})

	t.Run("missing CA file", func(t *testing.T) {
		t.Parallel()

		_, err := NewTLSLayer(filepath.Join(t.TempDir(), "missing.pem")).DialOption()
		assert.Error(t, err)
	})

	t.Run("invalid CA file", func(t *testing.T) {
		t.Parallel()

		certFile := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))

		_, err := NewTLSLayer(certFile).DialOption()
		assert.Error(t, err)
	})
}

func TestPlainLayer_DialOption(t *testing.T) {
	t.Parallel()

	opt, err := NewPlainLayer().DialOption()
	require.NoError(t, err)
	assert.NotNil(t, opt)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		baseURL    string
		wantTarget string
		wantTLS    bool
		wantErr    bool
	}{
		{name: "https default port", baseURL: "https://console.example.com", wantTarget: "console.example.com:443", wantTLS: true},
		{name: "https explicit port", baseURL: "https://console.example.com:8443", wantTarget: "console.example.com:8443", wantTLS: true},
		{name: "http explicit port", baseURL: "http://localhost:50051", wantTarget: "localhost:50051"},
		{name: "http default port", baseURL: "http://localhost", wantTarget: "localhost:80"},
		{name: "unsupported scheme", baseURL: "ftp://localhost", wantErr: true},
		{name: "no host", baseURL: "localhost:50051", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target, layer, err := Resolve(tt.baseURL, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, target)

			_, isTLS := layer.(*TLSLayer)
			assert.Equal(t, tt.wantTLS, isTLS)
		})
	}
}
