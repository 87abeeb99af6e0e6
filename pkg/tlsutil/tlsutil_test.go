package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSelfSigned writes cert.pem and key.pem for localhost into dir.
func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"debitcard test"}},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestServerCredentials(t *testing.T) {
	certFile, keyFile := writeSelfSigned(t, t.TempDir())

	creds, err := ServerCredentials(certFile, keyFile)
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)

	_, err = ServerCredentials(filepath.Join(t.TempDir(), "missing.pem"), keyFile)
	assert.Error(t, err)
}

func TestClientCredentials(t *testing.T) {
	dir := t.TempDir()
	certFile, _ := writeSelfSigned(t, dir)

	creds, err := ClientCredentials(certFile)
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)

	creds, err = ClientCredentials("")
	require.NoError(t, err)
	assert.NotNil(t, creds)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))
	_, err = ClientCredentials(garbage)
	assert.ErrorContains(t, err, "failed to parse CA certificate")
}
