package driver

import (
	"io"

	"github.com/coldframe/origin/header"
)

// Request is what the core sees of an inbound message (spec.md §3):
// method, target URI, protocol version, header multimap, and an
// optional body stream. Populating one from wire bytes is the
// request parser's byte-level grammar — an out-of-scope collaborator
// per spec.md §1 — so Request itself carries no parsing logic.
type Request struct {
	Method                 string
	Target                 string
	ProtoMajor, ProtoMinor int
	Header                 header.Map
	Body                   io.ReadCloser
}

func (r *Request) AtLeast11() bool {
	return r.ProtoMajor > 1 || (r.ProtoMajor == 1 && r.ProtoMinor >= 1)
}

// Decoder is the request parser's byte-level grammar, supplied by the
// collaborator spec.md §1 places out of scope. Decode reads exactly
// one request from src, or returns io.EOF when the connection has no
// more requests to offer.
type Decoder interface {
	Decode(src io.Reader) (*Request, error)
}
