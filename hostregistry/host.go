// Package hostregistry implements the immutable Host record and the
// (address, port, SNI name) lookup table described in spec.md §4.1.
//
// It is a pure, read-only collaborator once built: construction may
// fail with a ConfigError, but Matches/Lookup never mutate state and
// are safe to call concurrently from any connection's goroutine.
package hostregistry

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/coldframe/origin/internal/herr"
)

// Host is an immutable listen-address/name/port/handler/TLS record.
type Host struct {
	address  string // normalized: "*", "[::]", a literal IPv4/IPv6 address
	port     int
	name     string // lowercased, IDN-normalized server name; may be empty
	handler  Handler
	tls      *TLSConfig
	identity string
}

// Handler is the application callable a Host routes matched requests
// to. It is an external collaborator's concern (spec.md §1's
// "request routing" Non-goal covers picking *which* handler runs;
// this type only names the shape the registry stores).
type Handler interface {
	ServeOrigin(ResponseWriter, Request)
}

// ResponseWriter and Request are minimal hand-offs to keep this
// package from importing response/driver and creating a cycle; the
// driver package supplies concrete types satisfying these at wiring
// time.
type ResponseWriter interface{}
type Request interface{}

// NewHost builds a Host, normalizing address and name and validating
// the port range. Returns a *herr.ConfigError wrapped error on any
// failure, per spec.md §7.
func NewHost(address, name string, port int, handler Handler, tlsCfg *TLSConfig) (*Host, error) {
	if port < 1 || port > 65535 {
		return nil, herr.ConfigErrorf("host port %d out of range [1,65535]", port)
	}
	normAddr, err := normalizeAddress(address)
	if err != nil {
		return nil, herr.Wrap(err, "normalize listen address")
	}
	normName, err := normalizeName(name)
	if err != nil {
		return nil, herr.Wrap(err, "normalize server name")
	}

	h := &Host{
		address: normAddr,
		port:    port,
		name:    normName,
		handler: handler,
		tls:     tlsCfg,
	}
	h.identity = identityKey(identityHost(normName, normAddr), port)
	return h, nil
}

// normalizeAddress implements spec.md §4.1's construction rule: bare
// "*" stays wildcard, "::" canonicalizes to "[::]", anything else
// must parse as IPv4 or IPv6.
func normalizeAddress(address string) (string, error) {
	if address == "" || address == "*" {
		return "*", nil
	}
	if address == "::" {
		return "[::]", nil
	}
	trimmed := strings.TrimPrefix(strings.TrimSuffix(address, "]"), "[")
	if ip := net.ParseIP(trimmed); ip != nil {
		if strings.Contains(trimmed, ":") {
			return "[" + ip.String() + "]", nil
		}
		return ip.String(), nil
	}
	return "", herr.ConfigErrorf("address %q is not a wildcard, IPv4, or IPv6 literal", address)
}

// normalizeName lowercases and, if the name is non-ASCII, folds it
// through IDNA/punycode so a unicode host name and its SNI-observed
// ASCII form resolve to the same identity key (SPEC_FULL.md §4.1).
func normalizeName(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	lower := strings.ToLower(name)
	if isASCII(lower) {
		return lower, nil
	}
	ascii, err := idna.Lookup.ToASCII(lower)
	if err != nil {
		return "", herr.ConfigErrorf("invalid international host name %q: %v", name, err)
	}
	return ascii, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func identityHost(name, address string) string {
	if name != "" {
		return name
	}
	return address
}

func identityKey(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

// ID returns this host's identity key, "<name-or-address>:<port>".
func (h *Host) ID() string { return h.identity }

// Name returns the normalized server name (possibly empty).
func (h *Host) Name() string { return h.name }

// Address returns the normalized listen address.
func (h *Host) Address() string { return h.address }

// Port returns the listen port.
func (h *Host) Port() int { return h.port }

// Handler returns the application callable for this host.
func (h *Host) Handler() Handler { return h.handler }

// Encrypted reports whether this host carries a non-empty TLS
// context (spec.md §3).
func (h *Host) Encrypted() bool { return h.tls != nil }

// TLSConfig returns this host's TLS context, or nil if unencrypted.
func (h *Host) TLSConfig() *tls.Config {
	if h.tls == nil {
		return nil
	}
	return h.tls.config
}

// Matches implements spec.md §4.1's identity comparison: equal
// identity strings, or either side wildcard on address or port.
//
// identity is a string of grammar "<host-or-addr>:<port>", "*:<port>",
// "<host-or-addr>:*", or "*" (spec.md §6). An all-wildcard "*:*" (or
// bare "*") is treated as equivalent to a match against anything, per
// spec.md §9's Open Question resolution.
func (h *Host) Matches(identity string) bool {
	return matches(h.identity, identity)
}

func matches(a, b string) bool {
	if a == b {
		return true
	}
	ah, ap, aok := splitIdentity(a)
	bh, bp, bok := splitIdentity(b)
	if !aok || !bok {
		return false
	}
	if ah == "*" || bh == "*" {
		return ap == bp || ap == "*" || bp == "*"
	}
	if ap == "*" || bp == "*" {
		return ah == bh
	}
	return false
}

// splitIdentity parses "<host-or-addr>:<port>", "*:<port>",
// "<host-or-addr>:*", or "*" into (host, port, ok).
func splitIdentity(id string) (host, port string, ok bool) {
	if id == "*" {
		return "*", "*", true
	}
	idx := strings.LastIndexByte(id, ':')
	if idx < 0 {
		return "", "", false
	}
	return id[:idx], id[idx+1:], true
}

// String renders the host for diagnostics.
func (h *Host) String() string {
	return fmt.Sprintf("Host(%s, encrypted=%v)", h.identity, h.Encrypted())
}
