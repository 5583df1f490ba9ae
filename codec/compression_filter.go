package codec

import (
	"bytes"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/coldframe/origin/header"
)

// Encoding names a negotiated content-encoding.
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingGzip
	EncodingBrotli
)

// NegotiateEncoding picks a content-encoding from the request's
// Accept-Encoding header. gzip via klauspost/compress and br via
// andybalholm/brotli — both real dependencies of the pack's
// shiroyk-ski-ext/fetch module (SPEC_FULL.md's domain-stack wiring).
func NegotiateEncoding(acceptEncoding string) Encoding {
	lower := strings.ToLower(acceptEncoding)
	// brotli generally compresses better; prefer it when both are offered.
	if strings.Contains(lower, "br") {
		return EncodingBrotli
	}
	if strings.Contains(lower, "gzip") {
		return EncodingGzip
	}
	return EncodingNone
}

func (e Encoding) String() string {
	switch e {
	case EncodingGzip:
		return "gzip"
	case EncodingBrotli:
		return "br"
	default:
		return ""
	}
}

type flushWriteCloser interface {
	io.WriteCloser
	Flush() error
}

// CompressionFilter negotiates content-encoding and recompresses the
// body stream. Per spec.md §4.3: "adds content-encoding, drops
// precomputed content-length" — once a compressor is engaged the
// downstream entity length becomes unknown (streaming), since
// compressed size isn't known until the whole body has passed
// through.
type CompressionFilter struct {
	Encoding Encoding

	buf *bytes.Buffer
	enc flushWriteCloser
}

func (f *CompressionFilter) OnHeaders(h header.Map, next func(header.Map) error) error {
	if f.Encoding == EncodingNone || h.Get(PseudoRawBody) != "" {
		// A raw body (Response.SendBody) is written straight to the
		// sink by the writer factory, never through this pipeline's
		// OnChunk — there is no byte stream here to compress, so
		// skip negotiation rather than advertise an encoding nothing
		// will apply.
		return next(h)
	}
	h.Set("content-encoding", f.Encoding.String())
	if el := h.Get(PseudoEntityLength); el != "" && el != EntityLengthNone {
		h.Set(PseudoEntityLength, EntityLengthStreaming)
	}

	f.buf = &bytes.Buffer{}
	switch f.Encoding {
	case EncodingGzip:
		f.enc = gzip.NewWriter(f.buf)
	case EncodingBrotli:
		f.enc = brotli.NewWriter(f.buf)
	}
	return next(h)
}

func (f *CompressionFilter) OnChunk(chunk []byte, next func([]byte) error) error {
	if f.Encoding == EncodingNone || len(chunk) == 0 {
		return next(chunk)
	}
	if _, err := f.enc.Write(chunk); err != nil {
		return err
	}
	if err := f.enc.Flush(); err != nil {
		return err
	}
	out := append([]byte(nil), f.buf.Bytes()...)
	f.buf.Reset()
	return next(out)
}

func (f *CompressionFilter) OnFlush(next func() error) error {
	return next()
}

func (f *CompressionFilter) OnEnd(emit func([]byte) error, next func() error) error {
	if f.Encoding == EncodingNone {
		return next()
	}
	if err := f.enc.Close(); err != nil {
		return err
	}
	tail := append([]byte(nil), f.buf.Bytes()...)
	f.buf.Reset()
	if err := emit(tail); err != nil {
		return err
	}
	return next()
}
