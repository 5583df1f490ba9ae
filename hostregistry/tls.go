package hostregistry

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"strings"
	"time"

	"github.com/coldframe/origin/internal/herr"
)

// TLSOptions mirrors the TLS context keys of spec.md §6. Loading the
// PEM bundle from disk and parsing are this package's job; accepting
// a handshake on a socket is the out-of-scope collaborator's job
// (spec.md §1).
type TLSOptions struct {
	LocalCert        string // path to a PEM bundle: cert + private key
	Passphrase       string
	AllowSelfSigned  bool
	VerifyPeer       bool
	Ciphers          []uint16
	CAFile           string
	SingleECDHUse    bool
	ECDHCurve        string // default "prime256v1"
	HonorCipherOrder bool   // default true
	DisableCompression bool // default true; crypto/tls never compresses, kept for option-surface parity
	RenegLimit       int
	CryptoMethod     interface{} // string, []string, or nil -> "any"
}

// defaultTLSOptions mirrors spec.md §4.1's "Merges options over
// defaults (peer verification off, honor-cipher-order on, compression
// off, ECDH curve prime256v1)".
func defaultTLSOptions() TLSOptions {
	return TLSOptions{
		VerifyPeer:         false,
		HonorCipherOrder:   true,
		DisableCompression: true,
		ECDHCurve:          "prime256v1",
	}
}

// TLSConfig is the built, ready-to-use TLS context for a Host.
type TLSConfig struct {
	config   *tls.Config
	warnings []error
}

// Warnings returns any non-fatal ConfigWarning accumulated while
// building this TLSConfig (cert name mismatch, cert expired).
func (t *TLSConfig) Warnings() []error { return t.warnings }

// orderedVersions is indexed by bit position in the bitmask built by
// resolveCryptoMethod; position i corresponds to versions[i].
var orderedVersions = []uint16{tls.VersionTLS10, tls.VersionTLS11, tls.VersionTLS12, tls.VersionTLS13}

var cryptoMethodBits = map[string]int{
	"tls":     0,
	"tls1":    0,
	"tlsv1":   0,
	"tlsv1.0": 0,
	"tls1.1":  1,
	"tlsv1.1": 1,
	"tls1.2":  2,
	"tlsv1.2": 2,
	"tls1.3":  3,
	"tlsv1.3": 3,
}

// legacyCryptoMethods names crypto_method tokens spec.md §6 lists but
// that the modern crypto/tls stack cannot negotiate. spec.md's source
// silently ignores unknown tokens; this module instead rejects these
// legacy tokens explicitly, a deliberate REDESIGN (see SPEC_FULL.md §7),
// so a configuration naming a protocol that can never be negotiated
// fails with a ConfigError. Other unknown tokens are still ignored.
var legacyCryptoMethods = map[string]bool{
	"ssl2":  true,
	"sslv2": true,
	"ssl3":  true,
	"sslv3": true,
	"sslv23": true,
}

// resolveCryptoMethod normalizes the crypto_method option (a
// space-separated string or a list of tokens) into a (minVersion,
// maxVersion) pair for tls.Config. An empty result --- no recognized
// token at all --- is a ConfigError (spec.md §4.1).
func resolveCryptoMethod(raw interface{}) (min, max uint16, err error) {
	var tokens []string
	switch v := raw.(type) {
	case nil:
		tokens = []string{"any"}
	case string:
		tokens = strings.Fields(v)
	case []string:
		tokens = v
	default:
		return 0, 0, herr.ConfigErrorf("crypto_method must be a string or []string, got %T", raw)
	}
	if len(tokens) == 0 {
		tokens = []string{"any"}
	}

	var bitmask uint32
	sawAny := false
	for _, tok := range tokens {
		t := strings.ToLower(strings.TrimSpace(tok))
		if t == "" {
			continue
		}
		if t == "any" {
			sawAny = true
			continue
		}
		if legacyCryptoMethods[t] {
			return 0, 0, herr.ConfigErrorf("crypto_method token %q names a protocol crypto/tls cannot negotiate", t)
		}
		bit, ok := cryptoMethodBits[t]
		if !ok {
			// Unknown, non-legacy token: silently ignored per spec.md §6.
			continue
		}
		bitmask |= 1 << uint(bit)
	}

	if sawAny {
		return orderedVersions[0], orderedVersions[len(orderedVersions)-1], nil
	}
	if bitmask == 0 {
		return 0, 0, herr.ConfigErrorf("crypto_method produced an empty bitmask")
	}
	minV, maxV := uint16(0), uint16(0)
	for i, v := range orderedVersions {
		if bitmask&(1<<uint(i)) != 0 {
			if minV == 0 {
				minV = v
			}
			maxV = v
		}
	}
	return minV, maxV, nil
}

var ecdhCurves = map[string]tls.CurveID{
	"prime256v1": tls.CurveP256,
	"secp384r1":  tls.CurveP384,
	"secp521r1":  tls.CurveP521,
	"x25519":     tls.X25519,
}

// NewTLSConfig reads and validates the PEM bundle named by
// opts.LocalCert, builds a *tls.Config, and returns any accumulated
// ConfigWarnings alongside it. hostName is used only to check the
// certificate's CN/SAN coverage for a warning, never enforced.
func NewTLSConfig(hostName string, opts TLSOptions) (*TLSConfig, error) {
	merged := defaultTLSOptions()
	mergeOptions(&merged, opts)

	if merged.LocalCert == "" {
		return nil, herr.ConfigErrorf("tls: local_cert is required")
	}
	raw, err := os.ReadFile(merged.LocalCert)
	if err != nil {
		return nil, herr.Wrap(herr.ConfigErrorf("tls: reading local_cert: %v", err), merged.LocalCert)
	}

	cert, leaf, err := parseCertAndKey(raw)
	if err != nil {
		return nil, err
	}

	minV, maxV, err := resolveCryptoMethod(merged.CryptoMethod)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		MinVersion:         minV,
		MaxVersion:         maxV,
		InsecureSkipVerify: merged.AllowSelfSigned && !merged.VerifyPeer,
	}
	if len(merged.Ciphers) > 0 {
		cfg.CipherSuites = merged.Ciphers
	}
	if merged.VerifyPeer {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	if curve, ok := ecdhCurves[strings.ToLower(merged.ECDHCurve)]; ok {
		cfg.CurvePreferences = []tls.CurveID{curve}
	}
	if merged.CAFile != "" {
		pool, perr := loadCAFile(merged.CAFile)
		if perr != nil {
			return nil, herr.Wrap(perr, "tls: loading cafile")
		}
		cfg.ClientCAs = pool
	}

	tc := &TLSConfig{config: cfg}
	tc.warnings = append(tc.warnings, validateCertWarnings(hostName, leaf)...)
	return tc, nil
}

func mergeOptions(dst *TLSOptions, src TLSOptions) {
	if src.LocalCert != "" {
		dst.LocalCert = src.LocalCert
	}
	if src.Passphrase != "" {
		dst.Passphrase = src.Passphrase
	}
	dst.AllowSelfSigned = src.AllowSelfSigned
	dst.VerifyPeer = src.VerifyPeer
	if len(src.Ciphers) > 0 {
		dst.Ciphers = src.Ciphers
	}
	if src.CAFile != "" {
		dst.CAFile = src.CAFile
	}
	dst.SingleECDHUse = src.SingleECDHUse
	if src.ECDHCurve != "" {
		dst.ECDHCurve = src.ECDHCurve
	}
	if src.RenegLimit != 0 {
		dst.RenegLimit = src.RenegLimit
	}
	if src.CryptoMethod != nil {
		dst.CryptoMethod = src.CryptoMethod
	}
	// HonorCipherOrder / DisableCompression default to true, and a
	// false in src cannot be told apart from an unset field, so src is
	// OR-ed with the default: both stay true whatever src says.
	dst.HonorCipherOrder = src.HonorCipherOrder || dst.HonorCipherOrder
	dst.DisableCompression = src.DisableCompression || dst.DisableCompression
}

func parseCertAndKey(raw []byte) (tls.Certificate, *x509.Certificate, error) {
	var certPEM, keyPEM []byte
	rest := raw
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(block)...)
		case strings.HasSuffix(block.Type, "PRIVATE KEY"):
			keyPEM = append(keyPEM, pem.EncodeToMemory(block)...)
		}
	}
	if len(certPEM) == 0 {
		return tls.Certificate{}, nil, herr.ConfigErrorf("tls: local_cert does not contain a CERTIFICATE block")
	}
	if len(keyPEM) == 0 {
		return tls.Certificate{}, nil, herr.ConfigErrorf("tls: local_cert does not contain a PRIVATE KEY block")
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, nil, herr.ConfigErrorf("tls: invalid certificate/key pair: %v", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, nil, herr.ConfigErrorf("tls: parsing X.509 certificate: %v", err)
	}
	return cert, leaf, nil
}

func validateCertWarnings(hostName string, leaf *x509.Certificate) []error {
	var warnings []error
	if hostName != "" {
		covered := strings.EqualFold(leaf.Subject.CommonName, hostName)
		for _, san := range leaf.DNSNames {
			if strings.EqualFold(san, hostName) {
				covered = true
			}
		}
		if !covered {
			warnings = append(warnings, herr.ConfigWarningf(
				"certificate CN %q and SANs do not cover host name %q", leaf.Subject.CommonName, hostName))
		}
	}
	if leaf.NotAfter.Before(time.Now()) {
		warnings = append(warnings, herr.ConfigWarningf("certificate expired at %s", leaf.NotAfter))
	}
	return warnings
}

func loadCAFile(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, herr.ConfigErrorf("cafile %q contains no usable certificates", path)
	}
	return pool, nil
}
