package hostregistry_test

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

	"github.com/stretchr/testify/require"

	"github.com/coldframe/origin/hostregistry"
	"github.com/coldframe/origin/internal/herr"
)

func writeSelfSignedBundle(t *testing.T, dir, cn string, notAfter time.Time) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		DNSNames:     []string{cn},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(dir, "bundle.pem")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, pem.Encode(f, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, pem.Encode(f, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}))
	return path
}

func TestTLSConfigValidBundle(t *testing.T) {
	dir := t.TempDir()
	path := writeSelfSignedBundle(t, dir, "secure.example", time.Now().Add(24*time.Hour))

	tc, err := hostregistry.NewTLSConfig("secure.example", hostregistry.TLSOptions{LocalCert: path})
	require.NoError(t, err)
	require.Empty(t, tc.Warnings())
}

func TestTLSConfigWarnsOnNameMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeSelfSignedBundle(t, dir, "other.example", time.Now().Add(24*time.Hour))

	tc, err := hostregistry.NewTLSConfig("secure.example", hostregistry.TLSOptions{LocalCert: path})
	require.NoError(t, err)
	require.NotEmpty(t, tc.Warnings())
}

func TestTLSConfigWarnsOnExpiredCert(t *testing.T) {
	dir := t.TempDir()
	path := writeSelfSignedBundle(t, dir, "secure.example", time.Now().Add(-24*time.Hour))

	tc, err := hostregistry.NewTLSConfig("secure.example", hostregistry.TLSOptions{LocalCert: path})
	require.NoError(t, err)
	require.NotEmpty(t, tc.Warnings())
}

func TestTLSConfigMissingKeyIsConfigError(t *testing.T) {
	dir := t.TempDir()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "nolock.example"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(dir, "certonly.pem")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(f, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	f.Close()

	_, err = hostregistry.NewTLSConfig("nolock.example", hostregistry.TLSOptions{LocalCert: path})
	require.Error(t, err)
	require.True(t, herr.IsConfigError(err))
}

func TestCryptoMethodEmptyBitmaskIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := writeSelfSignedBundle(t, dir, "bad.example", time.Now().Add(time.Hour))

	_, err := hostregistry.NewTLSConfig("bad.example", hostregistry.TLSOptions{
		LocalCert:    path,
		CryptoMethod: "bogus-token",
	})
	require.Error(t, err)
	require.True(t, herr.IsConfigError(err))
}

func TestCryptoMethodLegacyTokenRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeSelfSignedBundle(t, dir, "legacy.example", time.Now().Add(time.Hour))

	_, err := hostregistry.NewTLSConfig("legacy.example", hostregistry.TLSOptions{
		LocalCert:    path,
		CryptoMethod: "sslv23",
	})
	require.Error(t, err)
}

func TestCryptoMethodListForm(t *testing.T) {
	dir := t.TempDir()
	path := writeSelfSignedBundle(t, dir, "list.example", time.Now().Add(time.Hour))

	tc, err := hostregistry.NewTLSConfig("list.example", hostregistry.TLSOptions{
		LocalCert:    path,
		CryptoMethod: []string{"tls1.2", "tls1.3"},
	})
	require.NoError(t, err)
	require.NotNil(t, tc)
}
